// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the PermitGate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permitgate",
		Short: "PermitGate - authentication and role gating service",
		Long: `PermitGate is the authentication service for the fishing permit
platform: account registration with role applications, session-based
login, and exact-match role gating for the operational portals.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSweepCmd())
	cmd.AddCommand(NewPromoteCmd())

	return cmd
}
