package main

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/isokoinfo/marketplace/internal/event"
	"github.com/isokoinfo/marketplace/internal/repository/postgres"
	"github.com/isokoinfo/marketplace/internal/service"
)

func newMarketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Manage markets",
		Long: `Manage the markets sellers and products belong to. This is the
command line counterpart of the web admin page.`,
	}
	cmd.AddCommand(newMarketCreateCmd(), newMarketListCmd())
	return cmd
}

// catalogFor builds a catalog service for market administration. Product
// operations are not used, so no ledger or media store is wired.
func catalogFor(pool *pgxpool.Pool, log *slog.Logger) *service.CatalogService {
	store := postgres.NewStore(pool)
	return service.NewCatalogService(store.Repositories(), store, nil, nil,
		service.CatalogConfig{}, event.NewProducer(nil, log), log)
}

func newMarketCreateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a market",
		Long: `Create a market.

Examples:
  isokoinfo market create --name "Gikomba"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
				market, err := catalogFor(pool, log).CreateMarket(ctx, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created market %d %q\n", market.ID, market.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Market name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newMarketListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List markets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
				markets, err := catalogFor(pool, log).ListMarkets(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME")
				for _, m := range markets {
					fmt.Fprintf(w, "%d\t%s\n", m.ID, m.Name)
				}
				return w.Flush()
			})
		},
	}
}
