// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomtom215/sharewarden/internal/config"
	"github.com/tomtom215/sharewarden/internal/logging"
)

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load and validate configuration, then print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			printConfigSummary(cmd.OutOrStdout(), cfg)
			return nil
		},
	})
	return cfgCmd
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	var channels []string
	if cfg.Notifications.TelegramEnabled() {
		channels = append(channels, "telegram")
	}
	if cfg.Notifications.DiscordEnabled() {
		channels = append(channels, "discord")
	}
	if cfg.Notifications.WebhookEnabled() {
		channels = append(channels, "webhook")
	}
	if len(channels) == 0 {
		channels = []string{"none"}
	}

	d := cfg.Detection
	fmt.Fprintln(w, "Configuration OK")
	fmt.Fprintf(w, "  plex:          %s (token %s)\n", cfg.Plex.URL, logging.SanitizeToken(cfg.Plex.Token))
	fmt.Fprintf(w, "  poll interval: %s\n", cfg.Poll.Interval)
	fmt.Fprintf(w, "  concurrent:    ban above %d location(s)\n", d.MaxUniqueStreams)
	if d.HistoryEnabled {
		fmt.Fprintf(w, "  history:       ban above %d address(es) in %dh\n", d.HistoryMaxUniqueIPs, d.HistoryWindowHours)
	} else {
		fmt.Fprintln(w, "  history:       disabled")
	}
	fmt.Fprintf(w, "  ban duration:  %dh\n", d.BanDurationHours)
	fmt.Fprintf(w, "  whitelist:     %d user(s), %d network(s)\n", len(d.UsernameWhitelist), len(d.NetworkWhitelist))
	fmt.Fprintf(w, "  storage:       %s at %s\n", cfg.Storage.Backend, cfg.Storage.Path)
	fmt.Fprintf(w, "  notifications: %s\n", strings.Join(channels, ", "))
	fmt.Fprintf(w, "  dry run:       %t\n", cfg.Enforcement.DryRun)
	if cfg.Metrics.Enabled {
		fmt.Fprintf(w, "  metrics:       %s\n", cfg.Metrics.Listen)
	}
}
