package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/pricer/internal/db"
	"github.com/Simplici0/pricer/internal/migrations"
	"github.com/Simplici0/pricer/internal/seed"
)

func (a *app) openDB(ctx context.Context, override string) (*sql.DB, error) {
	path := a.cfg.DBPath
	if override != "" {
		path = override
	}
	a.logger.Debug("opening database", zap.String("path", path))
	return db.Open(ctx, path)
}

func newMigrateCmd(a *app) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := a.openDB(ctx, dbPath)
			if err != nil {
				return err
			}
			defer database.Close()

			applied, err := migrations.Up(ctx, database)
			if err != nil {
				return err
			}
			version, err := migrations.Version(ctx, database)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s), schema version %d\n", applied, version)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")
	return cmd
}

func newSeedCmd(a *app) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo catalogue if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := a.openDB(ctx, dbPath)
			if err != nil {
				return err
			}
			defer database.Close()

			if _, err := migrations.Up(ctx, database); err != nil {
				return err
			}
			stats, err := seed.Run(ctx, database)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seed inserted %d record(s)\n", stats.Inserts)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")
	return cmd
}
