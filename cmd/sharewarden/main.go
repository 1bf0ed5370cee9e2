// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

// Command sharewarden watches a Plex server for shared accounts, terminates
// offending streams and bans the account for a configurable time.
//
// Usage:
//
//	sharewarden [run]            start the enforcer (default)
//	sharewarden bans list        show persisted bans
//	sharewarden bans lift USER   remove a ban
//	sharewarden config check     validate configuration
//
// Configuration is read from config.yaml (or --config / CONFIG_PATH), an
// optional .env file and environment variables such as PLEX_URL and
// PLEX_TOKEN. Environment variables take precedence.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/sharewarden/internal/config"
	"github.com/tomtom215/sharewarden/internal/logging"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "sharewarden",
		Short: "Detect and stop Plex account sharing",
		Long: `Sharewarden polls a Plex Media Server for active sessions. When one
account streams from more distinct locations than allowed, or collects too
many addresses within a sliding window, its sessions are terminated and the
account is banned for a configurable number of hours.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEnforcer(cmd, flags)
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to YAML config file (default: config.yaml, /etc/sharewarden/config.yaml)")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "path to a dotenv file (default: .env when present)")

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newBansCmd(flags))
	root.AddCommand(newConfigCmd(flags))
	return root
}

// loadConfig loads configuration and applies its logging section.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigPath: flags.configPath,
		EnvFile:    flags.envFile,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return nil, err
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	return cfg, nil
}
