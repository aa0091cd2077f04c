package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/healthpal-ng/healthpal/internal/config"
	"github.com/healthpal-ng/healthpal/internal/database"
	"github.com/healthpal-ng/healthpal/internal/logger"
	"github.com/healthpal-ng/healthpal/internal/models"
	"github.com/healthpal-ng/healthpal/internal/workers"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	log.Info().Str("version", version).Msg("Starting HealthPal token cleanup worker")

	db, err := database.Open(cfg.Database.URL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	if err := models.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	pruner, err := workers.NewTokenPruner(db, cfg.Auth.PruneSchedule, logger.Component("token-pruner"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token pruner")
	}
	pruner.Start()
	log.Info().Str("schedule", cfg.Auth.PruneSchedule).Time("next_run", pruner.Next()).Msg("Token cleanup scheduled")

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Info().Msg("Received shutdown signal, shutting down gracefully...")

	pruner.Stop()
	log.Info().Msg("Worker shutdown complete")
}
