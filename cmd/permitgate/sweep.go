// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/permitgate/permitgate/internal/auth"
	authpg "github.com/permitgate/permitgate/internal/auth/postgres"
	"github.com/permitgate/permitgate/internal/config"
	"github.com/permitgate/permitgate/internal/database"
)

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions",
		Long: `Delete all sessions whose expiry has passed. Expired sessions are
also removed lazily when presented; sweep reclaims rows for sessions
that are never presented again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, nil)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
			}

			ctx := cmd.Context()
			pool, err := database.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			store, err := auth.NewSessionStore(
				authpg.NewSessionRepository(pool),
				authpg.NewUserRepository(pool),
			)
			if err != nil {
				return err
			}

			n, err := store.Sweep(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("Swept %d expired session(s)\n", n)
			return nil
		},
	}
}
