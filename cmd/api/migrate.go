package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/pkg/config"
	"github.com/V4T54L/tabletop/internal/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create shared tables, collections and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel, cfg.LogFile)
			defer log.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			store, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			log.Info("migration complete", zap.String("driver", cfg.StoreDriver))
			return nil
		},
	}
}
