package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dhruv501/contract-intelligence-api/internal/config"
	"github.com/Dhruv501/contract-intelligence-api/internal/db"
	"github.com/Dhruv501/contract-intelligence-api/internal/metrics"
	"github.com/Dhruv501/contract-intelligence-api/internal/repository"
	"github.com/Dhruv501/contract-intelligence-api/internal/router"
	"github.com/Dhruv501/contract-intelligence-api/internal/services"
	"github.com/Dhruv501/contract-intelligence-api/internal/storage"
	"github.com/Dhruv501/contract-intelligence-api/internal/utils"
	"github.com/Dhruv501/contract-intelligence-api/internal/webhook"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	// Initialize database
	database, err := db.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	// Run migrations
	if err := db.RunMigrations(database, "internal/db/migrations"); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// Initialize object storage
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := storage.NewS3Storage(ctx, storage.Options{
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		BucketName:      cfg.S3BucketName,
		UseSSL:          cfg.S3UseSSL,
	})
	cancel()
	if err != nil {
		logger.Fatal("Failed to connect to object storage", "error", err)
	}

	// Initialize contract service
	repo := repository.NewRepository(database)
	collector := metrics.NewCollector()
	emitter := webhook.NewEmitter(cfg.WebhookURL, logger)

	service, err := services.NewService(repo, store, cfg, collector, emitter, logger)
	if err != nil {
		logger.Fatal("Failed to initialize service", "error", err)
	}

	// Setup HTTP router
	handler := router.NewRouter(service, collector, logger)

	// Create HTTP server. Streamed answers hold the response open, so no
	// write deadline.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
