package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/postboard/internal/config"
	"github.com/dshills/postboard/internal/storage"
)

const migrateTimeout = 5 * time.Minute

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `Apply, roll back or inspect schema migrations.

serve and mcp migrate automatically on startup; use this command to inspect
or roll back a database by hand.

Examples:
  # Show the current schema version
  postboard migrate status

  # Apply pending migrations
  postboard migrate up

  # Undo the most recent migration
  postboard migrate down`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd, func(ctx context.Context, db *sql.DB) error {
			before, err := storage.SchemaVersion(ctx, db)
			if err != nil {
				return err
			}
			if err := storage.ApplyMigrations(ctx, db); err != nil {
				return err
			}
			after, err := storage.SchemaVersion(ctx, db)
			if err != nil {
				return err
			}
			if before == after {
				fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s)\n", after)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s -> %s\n", before, after)
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd, func(ctx context.Context, db *sql.DB) error {
			before, err := storage.SchemaVersion(ctx, db)
			if err != nil {
				return err
			}
			if err := storage.RollbackMigration(ctx, db); err != nil {
				return err
			}
			after, err := storage.SchemaVersion(ctx, db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %s -> %s\n", before, after)
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd, func(ctx context.Context, db *sql.DB) error {
			v, err := storage.SchemaVersion(ctx, db)
			if err != nil {
				return err
			}
			latest := storage.AllMigrations[len(storage.AllMigrations)-1].Version
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version: %s (latest %s)\n", v, latest)
			return nil
		})
	},
}

// withDatabase opens the configured database without migrating it.
func withDatabase(cmd *cobra.Command, fn func(ctx context.Context, db *sql.DB) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := ensureDir(cfg.Database.Path); err != nil {
		return err
	}
	db, err := storage.OpenWithoutMigrations(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
	defer cancel()
	return fn(ctx, db)
}
