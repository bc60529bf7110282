package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/isokoinfo/marketplace/internal/app"
	"github.com/isokoinfo/marketplace/internal/config"
	"github.com/isokoinfo/marketplace/pkg/logger"
)

const serviceName = "isokoinfo"

var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "isokoinfo",
		Short: "Isokoinfo marketplace server",
		Long: `Isokoinfo lists products sold at physical markets. Sellers register,
manage their products and collect reviews through single-use codes.

Configuration is read from environment variables; see internal/config.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd(), newMigrateCmd(), newMarketCmd(), newSeedCmd())
	return root
}

// setup loads configuration and builds the logger every command uses.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(serviceName, cfg.LogLevel), nil
}

// withDatabase runs fn with a connected pool and closes it afterwards.
func withDatabase(ctx context.Context, fn func(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	pool, err := app.OpenDatabase(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, pool, log)
}
