package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/startlinker/rankfeed/internal/cache"
	"github.com/startlinker/rankfeed/internal/db"
	"github.com/startlinker/rankfeed/internal/scorer"
	"github.com/startlinker/rankfeed/pkg/config"
	"github.com/startlinker/rankfeed/pkg/logging"
	"github.com/startlinker/rankfeed/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting StartLinker rescoring worker")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Initialize database
	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Initialize Redis cache (nil when disabled; job lock then falls back
	// to the in-process guard)
	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	repo := db.NewRepository(database.DB)
	job := scorer.New(repo, redisCache, &cfg.Ranking, &cfg.Scorer)

	// Cancel the run loop on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Shutting down rescoring worker...")
		cancel()
	}()

	if err := job.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("Rescoring loop failed", zap.Error(err))
	}

	logger.Info("Rescoring worker exited")
}
