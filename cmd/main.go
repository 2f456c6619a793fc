package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/kpx/internal/favorites"
	"github.com/desertthunder/kpx/internal/repositories"
	"github.com/desertthunder/kpx/internal/services"
	"github.com/desertthunder/kpx/internal/shared"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat(defaultConfigPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(defaultConfigPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}
	config.ApplyEnv()

	if err := shared.ApplyLogLevel(logger, config.Logging.Level); err != nil {
		logger.Warn("ignoring log level", "error", err)
	}
	if err := config.Validate(); err != nil {
		logger.Fatalf("configuration error: %v", err)
	}
	if config.API.APIKey == "" {
		logger.Warn("no API key configured", "env", shared.EnvAPIKey)
	}

	var slot favorites.Slot
	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		logger.Warn("favorites will not persist", "error", err)
		slot = favorites.NewMemorySlot()
	} else {
		defer db.Close()
		slot = repositories.NewSlotRepository(db)
	}

	store := favorites.New(slot, logger)
	store.Load()

	catalogService := services.NewCatalogService(config.API, nil, logger)

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: defaultConfigPath,
		Catalog:    catalogService,
		API:        catalogService,
		Favorites:  store,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "kpx",
		Usage:    "Browse the Kinopoisk catalog and keep a list of favorite movies",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			return
		}
		if db != nil {
			db.Close()
		}
		logger.Fatalf("application error: %v", err)
	}
}
