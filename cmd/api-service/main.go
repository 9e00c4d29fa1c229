package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/transcribe-service/internal/admission"
	"github.com/cuongbtq/transcribe-service/internal/api/handler"
	"github.com/cuongbtq/transcribe-service/internal/api/router"
	"github.com/cuongbtq/transcribe-service/internal/config"
	"github.com/cuongbtq/transcribe-service/internal/ledger"
	"github.com/cuongbtq/transcribe-service/internal/reaper"
	"github.com/cuongbtq/transcribe-service/internal/storage"
	"github.com/cuongbtq/transcribe-service/internal/stream"
	"github.com/cuongbtq/transcribe-service/internal/transcribe"
	"github.com/cuongbtq/transcribe-service/internal/worker"
	"github.com/cuongbtq/transcribe-service/shared/logger"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("TRANSCRIBE_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting transcription service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize artifact store
	artifacts, err := storage.NewStore(cfg.Storage.TempDir)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	appLogger.Info("Artifact store ready",
		slog.String("dir", artifacts.Dir()),
	)

	// Initialize collaborator factories
	newConverter := transcribe.NewConverterFactory(cfg.Transcription.FFmpegPath, appLogger.Logger)
	newEngine, err := transcribe.NewEngineFactory(transcribe.EngineOptions{
		Provider:      cfg.Transcription.Provider,
		Model:         cfg.Transcription.Model,
		APIKey:        cfg.Transcription.APIKey(),
		WhisperBinary: cfg.Transcription.Whisper.BinaryPath,
		WhisperModel:  cfg.Transcription.Whisper.ModelPath,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize transcription engine: %w", err)
	}

	// Initialize core components
	jobLedger := ledger.NewLedger(appLogger.Logger)
	admissionCtl := admission.NewController(jobLedger, cfg.Worker.MaxWorkers, cfg.Worker.MaxQueueSize)
	pool := worker.NewPool(cfg.Worker.MaxWorkers, appLogger.Logger)
	processor := worker.NewProcessor(&worker.Config{
		Ledger:       jobLedger,
		Pool:         pool,
		Artifacts:    artifacts,
		NewConverter: newConverter,
		NewEngine:    newEngine,
		JobTimeout:   cfg.Worker.JobTimeout,
		Logger:       appLogger.Logger,
	})

	// Process-level context for background jobs; cancelled on shutdown
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	// Start reaper
	jobReaper := reaper.NewReaper(jobLedger, cfg.Reaper.Interval, cfg.Reaper.Retention, appLogger.Logger)
	jobReaper.Start(jobCtx)

	// Initialize router
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r := router.SetupRouter(&handler.Dependencies{
		Logger:       appLogger.Logger,
		Ledger:       jobLedger,
		Admission:    admissionCtl,
		Processor:    processor,
		Pool:         pool,
		Artifacts:    artifacts,
		NewConverter: newConverter,
		NewEngine:    newEngine,
		StreamConfig: stream.Config{
			MinTrigger: cfg.Stream.MinTriggerBytes,
			MaxSize:    cfg.Stream.MaxBufferBytes,
		},
		BaseContext: jobCtx,
	})

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Transcription service is running",
		slog.String("address", addr),
		slog.Int("max_workers", cfg.Worker.MaxWorkers),
		slog.Int("max_queue_size", cfg.Worker.MaxQueueSize),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop background work: cancel in-flight jobs, halt the reaper
	cancelJobs()
	jobReaper.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}
