// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/sharewarden/internal/banstore"
	"github.com/tomtom215/sharewarden/internal/detection"
	"github.com/tomtom215/sharewarden/internal/metrics"
)

func newBansCmd(flags *globalFlags) *cobra.Command {
	bans := &cobra.Command{
		Use:   "bans",
		Short: "Inspect or edit the persisted ban list",
		Long: `Inspect or edit the persisted ban list.

The badger backend allows a single process at a time; stop the enforcer
before using these commands with it.`,
	}

	bans.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List banned users and their remaining time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(flags, func(store banstore.Store) error {
				ledger, err := store.Load(cmd.Context())
				metrics.RecordBanStoreOp("load", err)
				if err != nil {
					return err
				}
				return printBans(cmd.OutOrStdout(), ledger, time.Now())
			})
		},
	})

	bans.AddCommand(&cobra.Command{
		Use:   "lift USERNAME",
		Short: "Remove a user's ban",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			return withStore(flags, func(store banstore.Store) error {
				stored, err := store.Load(cmd.Context())
				if err != nil {
					return err
				}
				ledger := detection.NewBanLedger(stored)
				if err := ledger.Lift(username); err != nil {
					return fmt.Errorf("%s: %w", username, err)
				}
				err = store.Save(cmd.Context(), ledger.Snapshot())
				metrics.RecordBanStoreOp("save", err)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from ban list\n", username)
				return nil
			})
		},
	})

	return bans
}

func withStore(flags *globalFlags, fn func(banstore.Store) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	store, err := banstore.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open ban store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// printBans writes one row per ban, ordered by username.
func printBans(w io.Writer, bans map[string]int64, now time.Time) error {
	if len(bans) == 0 {
		_, err := fmt.Fprintln(w, "No bans recorded")
		return err
	}

	users := make([]string, 0, len(bans))
	for u := range bans {
		users = append(users, u)
	}
	sort.Strings(users)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tEXPIRES\tREMAINING")
	for _, u := range users {
		expiry := bans[u]
		remaining := "expired"
		if left := expiry - now.Unix(); left >= 0 {
			remaining = detection.FormatRemaining(left)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u, time.Unix(expiry, 0).UTC().Format(time.RFC3339), remaining)
	}
	return tw.Flush()
}
