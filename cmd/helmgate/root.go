// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/helmgate/helmgate/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Helmgate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "helmgate",
		Short: "Helmgate - account and session service",
		Long: `Helmgate is a user-account backend: registration, login, email
verification, password recovery, and refresh-token session rotation
over a PostgreSQL credential store.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewCertsCmd())

	return cmd
}

// resolveConfigFile returns the --config value, falling back to the XDG
// config file when it exists. An empty result means defaults only.
func resolveConfigFile() string {
	if configFile != "" {
		return configFile
	}
	path := xdg.DefaultConfigFile()
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
