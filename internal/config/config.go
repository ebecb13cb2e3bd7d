// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the full configuration of the deckconv service.
type Config struct {
	// Server
	HTTPPort string

	// Scheduling
	Concurrency int

	// Conversion
	ConversionTimeout time.Duration
	MaxInputSizeMB    int64
	ScratchDir        string
	LibreOfficeBin    string

	// Storage
	StorageProvider   string // "s3" or "localfs"
	StorageLocalRoot  string
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UseSSL          bool

	// Transient storage error retry policy
	StorageMaxAttempts int
	StorageRetryBase   time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present.
func Load() (*Config, error) {
	// Missing .env is fine; containers set real env vars.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort: Env("HTTP_PORT", "8080"),

		Concurrency: IntEnv("CONCURRENCY", 1),

		ConversionTimeout: time.Duration(IntEnv("CONVERSION_TIMEOUT_SECONDS", 180)) * time.Second,
		MaxInputSizeMB:    int64(IntEnv("MAX_INPUT_SIZE_MB", 100)),
		ScratchDir:        Env("SCRATCH_DIR", "/tmp/deckconv"),
		LibreOfficeBin:    Env("LIBREOFFICE_BIN", "soffice"),

		StorageProvider:   Env("STORAGE_PROVIDER", "s3"),
		StorageLocalRoot:  Env("STORAGE_LOCAL_ROOT", ""),
		S3Endpoint:        Env("S3_ENDPOINT", ""),
		S3Region:          Env("S3_REGION", "us-east-2"),
		S3AccessKeyID:     Env("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: Env("S3_SECRET_ACCESS_KEY", ""),
		S3UseSSL:          BoolEnv("S3_USE_SSL", true),

		StorageMaxAttempts: IntEnv("STORAGE_MAX_ATTEMPTS", 3),
		StorageRetryBase:   time.Duration(IntEnv("STORAGE_RETRY_BASE_MS", 500)) * time.Millisecond,

		LogLevel:  Env("LOG_LEVEL", "info"),
		LogFormat: Env("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("CONCURRENCY must be >= 1, got %d", c.Concurrency)
	}
	if c.ConversionTimeout <= 0 {
		return fmt.Errorf("CONVERSION_TIMEOUT_SECONDS must be positive")
	}
	if c.MaxInputSizeMB <= 0 {
		return fmt.Errorf("MAX_INPUT_SIZE_MB must be positive")
	}
	if c.StorageMaxAttempts < 1 {
		return fmt.Errorf("STORAGE_MAX_ATTEMPTS must be >= 1, got %d", c.StorageMaxAttempts)
	}
	switch c.StorageProvider {
	case "s3":
		if c.S3Endpoint == "" {
			return fmt.Errorf("S3_ENDPOINT is required when STORAGE_PROVIDER=s3")
		}
	case "localfs":
		if c.StorageLocalRoot == "" {
			return fmt.Errorf("STORAGE_LOCAL_ROOT is required when STORAGE_PROVIDER=localfs")
		}
	default:
		return fmt.Errorf("unknown STORAGE_PROVIDER: %s", c.StorageProvider)
	}
	return nil
}

// MaxInputBytes returns the input size ceiling in bytes.
func (c *Config) MaxInputBytes() int64 {
	return c.MaxInputSizeMB * 1024 * 1024
}

// Env reads an env var with a default.
func Env(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

// IntEnv reads an env var as int. If empty or invalid, returns def.
func IntEnv(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// BoolEnv reads an env var as bool. If empty or invalid, returns def.
// strconv.ParseBool accepts: 1,t,T,TRUE,true,True,0,f,F,FALSE,false,False.
func BoolEnv(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
