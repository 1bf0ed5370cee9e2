// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package detection

import (
	"fmt"
	"maps"
)

// BanLedger maps usernames to ban expiry (Unix seconds). An entry stays
// present after it expires; validity is checked on lookup and the entry is
// lifted by the engine the next time the user is seen.
//
// BanLedger is not safe for concurrent use.
type BanLedger struct {
	bans map[string]int64
}

// NewBanLedger returns a ledger seeded with a copy of initial, which may be
// nil.
func NewBanLedger(initial map[string]int64) *BanLedger {
	bans := make(map[string]int64, len(initial))
	maps.Copy(bans, initial)
	return &BanLedger{bans: bans}
}

// Issue bans username until now + durationHours. Any prior expiry is
// replaced, not extended.
func (l *BanLedger) Issue(username string, durationHours int, now int64) int64 {
	expiry := now + int64(durationHours)*3600
	l.bans[username] = expiry
	return expiry
}

// Has reports whether username has an entry, expired or not.
func (l *BanLedger) Has(username string) bool {
	_, ok := l.bans[username]
	return ok
}

// Expiry returns the expiry for username.
func (l *BanLedger) Expiry(username string) (int64, error) {
	expiry, ok := l.bans[username]
	if !ok {
		return 0, ErrNotBanned
	}
	return expiry, nil
}

// IsValid reports whether the ban on username is still in force at now.
// The expiry second itself is still banned.
func (l *BanLedger) IsValid(username string, now int64) (bool, error) {
	expiry, ok := l.bans[username]
	if !ok {
		return false, ErrNotBanned
	}
	return now <= expiry, nil
}

// RemainingHuman formats the time left on the ban as
// "<H> hours and <M> minutes", rounding down. A ban at or past its expiry
// renders as "0 hours and 0 minutes".
func (l *BanLedger) RemainingHuman(username string, now int64) (string, error) {
	expiry, ok := l.bans[username]
	if !ok {
		return "", ErrNotBanned
	}
	return FormatRemaining(expiry - now), nil
}

// FormatRemaining formats a number of seconds as "<H> hours and <M> minutes".
func FormatRemaining(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d hours and %d minutes", seconds/3600, (seconds%3600)/60)
}

// Lift removes the entry for username.
func (l *BanLedger) Lift(username string) error {
	if _, ok := l.bans[username]; !ok {
		return ErrNotBanned
	}
	delete(l.bans, username)
	return nil
}

// Len returns the number of entries.
func (l *BanLedger) Len() int {
	return len(l.bans)
}

// Snapshot returns a copy of the ledger for persistence.
func (l *BanLedger) Snapshot() map[string]int64 {
	return maps.Clone(l.bans)
}
