package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/config"
	"github.com/xiaot623/gogo/assistant/internal/logging"
	"github.com/xiaot623/gogo/assistant/internal/repository"
)

func runMigrate(ctx context.Context, demo bool, account string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	events, err := repository.NewEventStore(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer events.Close()

	if err := events.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("schema migrated", zap.String("database_driver", cfg.DatabaseDriver))

	if !demo {
		return nil
	}
	if err := events.SeedDemo(ctx, account); err != nil {
		return err
	}
	logger.Info("demo data seeded", zap.String("account_id", account))
	return nil
}
