// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

// Package detection turns per-cycle session snapshots into ban decisions.
//
// The package performs no I/O. Each call to Engine.RunCycle reads a
// snapshot, updates the address history and ban ledger held in State, and
// returns the Actions the caller must carry out. Actions are executed by
// internal/enforcement.
package detection

import (
	"errors"
	"net/netip"
	"text/template"
)

// RuleType identifies the rule that caused a ban.
type RuleType string

const (
	// RuleTypeConcurrentStreams bans users streaming from too many distinct
	// addresses in a single snapshot.
	RuleTypeConcurrentStreams RuleType = "concurrent_streams"

	// RuleTypeIPHistory bans users who accumulate too many distinct
	// addresses within the sliding history window.
	RuleTypeIPHistory RuleType = "ip_history"
)

// ErrNotBanned is returned by ledger operations on a user with no entry.
var ErrNotBanned = errors.New("user is not banned")

// Policy is the immutable enforcement policy.
type Policy struct {
	// MaxUniqueStreams is the concurrent distinct-location limit.
	MaxUniqueStreams int

	// HistoryEnabled turns on the sliding-window rule.
	HistoryEnabled bool

	// HistoryWindowHours is the length of the sliding window.
	HistoryWindowHours int

	// HistoryMaxUniqueIPs is the distinct-address limit within the window.
	HistoryMaxUniqueIPs int

	// BanDurationHours is the length of a ban.
	BanDurationHours int

	// BanMessage renders the termination reason shown to the user.
	// Keys: .Username, .Remaining, .Hours
	BanMessage *template.Template

	// UsernameWhitelist is matched case-insensitively.
	UsernameWhitelist []string

	// NetworkWhitelist prefixes are never counted as locations.
	NetworkWhitelist []netip.Prefix
}

// DefaultPolicy returns a policy allowing one location with no history rule.
func DefaultPolicy() Policy {
	return Policy{
		MaxUniqueStreams:    1,
		HistoryEnabled:      false,
		HistoryWindowHours:  24,
		HistoryMaxUniqueIPs: 5,
		BanDurationHours:    24,
		BanMessage: template.Must(template.New("ban_message").Parse(
			"You have been banned from streaming for account sharing. Your ban will be lifted in {{.Remaining}}.")),
	}
}
