package main

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/isokoinfo/marketplace/migrations"
	"github.com/isokoinfo/marketplace/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long: `Apply every embedded migration that has not been recorded in
schema_migrations yet. The server does the same on startup.

Examples:
  isokoinfo migrate            # Apply pending migrations
  isokoinfo migrate --status   # List applied migrations`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
				if status {
					return printMigrations(ctx, cmd, pool)
				}

				applied, err := database.RunMigrations(ctx, pool, migrations.FS, log)
				if err != nil {
					return fmt.Errorf("run migrations: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", applied)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "List applied migrations instead of applying")
	return cmd
}

func printMigrations(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool) error {
	applied, err := database.AppliedMigrations(ctx, pool)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tAPPLIED AT")
	for _, m := range applied {
		fmt.Fprintf(w, "%s\t%s\n", m.Version, m.AppliedAt.UTC().Format(time.RFC3339))
	}
	return w.Flush()
}
