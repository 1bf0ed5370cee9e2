// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package poller

import (
	"fmt"

	"github.com/tomtom215/sharewarden/internal/config"
	"github.com/tomtom215/sharewarden/internal/detection"
)

// PolicyFromConfig builds the detection policy from validated config.
func PolicyFromConfig(cfg *config.DetectionConfig) (detection.Policy, error) {
	prefixes, err := cfg.NetworkPrefixes()
	if err != nil {
		return detection.Policy{}, fmt.Errorf("network whitelist: %w", err)
	}
	tmpl, err := cfg.BanTemplate()
	if err != nil {
		return detection.Policy{}, fmt.Errorf("ban message: %w", err)
	}
	return detection.Policy{
		MaxUniqueStreams:    cfg.MaxUniqueStreams,
		HistoryEnabled:      cfg.HistoryEnabled,
		HistoryWindowHours:  cfg.HistoryWindowHours,
		HistoryMaxUniqueIPs: cfg.HistoryMaxUniqueIPs,
		BanDurationHours:    cfg.BanDurationHours,
		BanMessage:          tmpl,
		UsernameWhitelist:   cfg.UsernameWhitelist,
		NetworkWhitelist:    prefixes,
	}, nil
}
