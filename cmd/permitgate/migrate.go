// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/permitgate/permitgate/internal/config"
	"github.com/permitgate/permitgate/internal/database"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var (
		down  bool
		steps int
		force int
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Apply pending database migrations against the PostgreSQL database.
With --down all migrations are rolled back; with --steps N only N
migrations are applied (negative N rolls back).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, nil)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
			}
			return runMigrate(cmd, cfg.DatabaseURL, down, steps, force)
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "roll back all migrations")
	cmd.Flags().IntVar(&steps, "steps", 0, "apply exactly N migrations (negative rolls back)")
	cmd.Flags().IntVar(&force, "force", -1, "force the schema version without running migrations")
	cmd.MarkFlagsMutuallyExclusive("down", "steps", "force")

	return cmd
}

func runMigrate(cmd *cobra.Command, databaseURL string, down bool, steps, force int) error {
	migrator, err := database.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer migrator.Close() //nolint:errcheck

	switch {
	case force >= 0:
		cmd.Printf("Forcing schema version %d...\n", force)
		if err := migrator.Force(force); err != nil {
			return err
		}
	case down:
		cmd.Println("Rolling back all migrations...")
		if err := migrator.Down(); err != nil {
			return err
		}
	case steps != 0:
		cmd.Printf("Applying %d migration step(s)...\n", steps)
		if err := migrator.Steps(steps); err != nil {
			return err
		}
	default:
		pending, err := migrator.PendingMigrations()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			cmd.Println("Database schema is up to date")
			return nil
		}
		cmd.Printf("Applying %d pending migration(s)...\n", len(pending))
		if err := migrator.Up(); err != nil {
			return err
		}
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	if dirty {
		cmd.Printf("Schema version %d is dirty; fix manually and re-run with --force\n", version)
		return oops.Code("MIGRATION_DIRTY").Errorf("schema version %d is dirty", version)
	}
	cmd.Printf("Migrations completed, schema version %d\n", version)
	return nil
}
