package storage

import (
	"fmt"

	"deckconv/internal/adapters/storage/localfs"
	"deckconv/internal/adapters/storage/s3"
	"deckconv/internal/config"
)

func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.StorageProvider {
	case "localfs":
		return localfs.New(cfg.StorageLocalRoot), nil

	case "s3":
		return s3.New(s3.Options{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UseSSL:          cfg.S3UseSSL,
		})

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.StorageProvider)
	}
}
