package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/iho/merchledger/internal/infrastructure/config"
	"github.com/iho/merchledger/internal/infrastructure/logger"
	"github.com/iho/merchledger/internal/infrastructure/postgres"
)

func main() {
	// Load configuration
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// "migrate-down" rolls back the newest migration and exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
		if err := postgres.RunMigrationsDown(cfg.DatabaseURL, cfg.MigrationsPath, appLogger); err != nil {
			appLogger.Fatal().Err(err).Msg("rollback failed")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal().Err(err).Msg("server failed")
	}

	appLogger.Info().Msg("server stopped")
}
