// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/sharewarden/internal/banstore"
	"github.com/tomtom215/sharewarden/internal/config"
	"github.com/tomtom215/sharewarden/internal/detection"
	"github.com/tomtom215/sharewarden/internal/enforcement"
	"github.com/tomtom215/sharewarden/internal/logging"
	"github.com/tomtom215/sharewarden/internal/metrics"
	"github.com/tomtom215/sharewarden/internal/poller"
	"github.com/tomtom215/sharewarden/internal/supervisor"
	"github.com/tomtom215/sharewarden/internal/supervisor/services"
	"github.com/tomtom215/sharewarden/internal/sync"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the enforcer (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEnforcer(cmd, flags)
		},
	}
}

func runEnforcer(cmd *cobra.Command, flags *globalFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg)
}

// serve wires every component and blocks until ctx is canceled.
func serve(ctx context.Context, cfg *config.Config) error {
	logging.Info().
		Str("plex_url", cfg.Plex.URL).
		Str("plex_token", logging.SanitizeToken(cfg.Plex.Token)).
		Dur("poll_interval", cfg.Poll.Interval).
		Int("max_unique_streams", cfg.Detection.MaxUniqueStreams).
		Bool("history_enabled", cfg.Detection.HistoryEnabled).
		Bool("dry_run", cfg.Enforcement.DryRun).
		Msg("Starting Sharewarden")

	store := banstore.OpenOrMemory(cfg.Storage)
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing ban store")
		}
	}()

	policy, err := poller.PolicyFromConfig(&cfg.Detection)
	if err != nil {
		return fmt.Errorf("build policy: %w", err)
	}

	plexClient := sync.NewPlexClient(&cfg.Plex)
	dispatcher := enforcement.NewDispatcher(
		plexClient,
		enforcement.NewNotifiers(&cfg.Notifications),
		store,
		enforcement.Options{
			DryRun:                cfg.Enforcement.DryRun,
			TerminationsPerSecond: cfg.Enforcement.TerminationsPerSecond,
		},
	)

	state := detection.NewState(banstore.LoadOrEmpty(ctx, store))
	p := poller.New(
		sync.NewPlexSnapshotSource(sync.NewCircuitBreakerClient(plexClient, sync.DefaultBreakerSettings())),
		detection.NewEngine(policy),
		state,
		dispatcher,
		cfg.Poll.Interval,
	)

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDetectionService(p)

	if cfg.Metrics.Enabled {
		server := services.NewMetricsServer(cfg.Metrics.Listen, metrics.NewRouter())
		tree.AddAPIService(services.NewHTTPServerService("metrics-server", server, 5*time.Second))
		logging.Info().Str("listen", cfg.Metrics.Listen).Msg("Metrics endpoint enabled")
	}

	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree stopped with error")
		return err
	}

	logging.Info().Int("active_bans", state.Bans.Len()).Msg("Sharewarden stopped")
	return nil
}
