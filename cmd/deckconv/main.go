package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"deckconv/internal/config"
	"deckconv/internal/converter"
	"deckconv/internal/httpapi"
	"deckconv/internal/httpapi/handlers"
	"deckconv/internal/pipeline"
	"deckconv/internal/pkg/logger"
	"deckconv/internal/pkg/shutdown"
	"deckconv/internal/registry"
	"deckconv/internal/scheduler"
	"deckconv/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().LogFatal("invalid configuration", err)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "deckconv",
	})

	log.Info("starting deckconv",
		"version", "0.1.0",
		"concurrency", cfg.Concurrency,
		"storage_provider", cfg.StorageProvider,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize shutdown manager
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	// Prepare scratch space
	if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
		log.LogFatal("failed to create scratch directory", err)
	}

	// Initialize object store
	log.Info("initializing object store")
	store, err := storage.NewStore(cfg)
	if err != nil {
		log.LogFatal("failed to initialize object store", err)
	}
	log.Info("object store initialized", "provider", store.Provider())

	// Wire the job pipeline
	reg := registry.New(log)
	engine := converter.NewLibreOffice(cfg.LibreOfficeBin, cfg.ScratchDir, cfg.ConversionTimeout, log)
	pipe := pipeline.New(store, reg, engine, pipeline.Options{
		ScratchDir:    cfg.ScratchDir,
		MaxInputBytes: cfg.MaxInputBytes(),
		RetryAttempts: cfg.StorageMaxAttempts,
		RetryBase:     cfg.StorageRetryBase,
	}, log)

	// Start the worker pool
	sched := scheduler.New(cfg.Concurrency, pipe, log)
	sched.Start(ctx)
	shutdownMgr.Register("scheduler", func(ctx context.Context) error {
		cancel()
		sched.Stop()
		return nil
	})

	// Create HTTP server
	h := handlers.New(reg, sched, store, log)
	router := httpapi.NewRouter(h, log)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	// Start server in goroutine
	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"port", cfg.HTTPPort,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	// Wait for shutdown signal
	shutdownMgr.Wait()
}
