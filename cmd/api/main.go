package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/adapter/repository/mongodb"
	"github.com/V4T54L/tabletop/internal/adapter/repository/postgres"
	"github.com/V4T54L/tabletop/internal/domain"
	"github.com/V4T54L/tabletop/internal/pkg/config"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "tabletop",
		Short:         "Multi-tenant restaurant administration API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML config file applied over the environment")

	rootCmd.AddCommand(newServeCmd(), newProvisionCmd(), newMigrateCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore connects the store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (domain.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.PostgresURL, logger)
	default:
		return mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	}
}
