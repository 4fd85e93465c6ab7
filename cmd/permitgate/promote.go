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

// NewPromoteCmd creates the promote subcommand. Role changes go through the
// same audited repository path the service uses, so CLI promotions show up
// in the audit log like any other.
func NewPromoteCmd() *cobra.Command {
	var (
		email string
		role  string
		actor string
	)

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Change a user's role",
		Long: `Assign a role to an existing user, identified by email. This is how
accounts leave the UNAPPROVED state: an operator reviews the role
application and promotes the account to its working role.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			newRole := auth.Role(role)
			if !newRole.IsValid() {
				return oops.Code("INVALID_ROLE").
					With("role", role).
					Errorf("unknown role %q", role)
			}

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

			users := authpg.NewUserRepository(pool)
			user, err := users.FindByEmailCI(ctx, email)
			if err != nil {
				return oops.Code("USER_LOOKUP_FAILED").
					With("email", email).
					Wrap(err)
			}
			if user.Role == newRole {
				cmd.Printf("User %s already has role %s\n", user.Username, newRole)
				return nil
			}

			if err := users.UpdateRole(ctx, user.ID, newRole, actor); err != nil {
				return err
			}
			cmd.Printf("Promoted %s from %s to %s\n", user.Username, user.Role, newRole)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email of the user to promote")
	cmd.Flags().StringVar(&role, "role", "", "role to assign")
	cmd.Flags().StringVar(&actor, "actor", "cli", "actor recorded in the audit log")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}
