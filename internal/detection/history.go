// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package detection

import (
	"net/netip"
)

// HistoryEntry records that a user was seen at Address at Timestamp
// (Unix seconds).
type HistoryEntry struct {
	Timestamp int64
	Address   netip.Addr
}

// History holds each user's observed addresses in chronological order.
// It lives in memory only and starts empty on every process start.
//
// History is not safe for concurrent use.
type History struct {
	entries map[string][]HistoryEntry
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{entries: make(map[string][]HistoryEntry)}
}

// Record appends one entry per address, all stamped with now.
func (h *History) Record(username string, addrs []netip.Addr, now int64) {
	if len(addrs) == 0 {
		return
	}
	for _, a := range addrs {
		h.entries[username] = append(h.entries[username], HistoryEntry{Timestamp: now, Address: a})
	}
}

// Prune drops every entry older than windowHours before now, for all users.
// Users left with no entries are removed.
func (h *History) Prune(windowHours int, now int64) {
	cutoff := now - int64(windowHours)*3600
	for user, entries := range h.entries {
		kept := entries[:0]
		for _, e := range entries {
			if e.Timestamp >= cutoff {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(h.entries, user)
			continue
		}
		clear(entries[len(kept):])
		h.entries[user] = kept
	}
}

// DistinctCount returns the number of distinct addresses retained for
// username.
func (h *History) DistinctCount(username string) int {
	entries := h.entries[username]
	if len(entries) == 0 {
		return 0
	}
	seen := make(map[netip.Addr]struct{}, len(entries))
	for _, e := range entries {
		seen[e.Address] = struct{}{}
	}
	return len(seen)
}

// DedupLog returns the user's entries with consecutive repeats of the same
// address collapsed to the first occurrence. The stored history is not
// modified.
func (h *History) DedupLog(username string) []HistoryEntry {
	entries := h.entries[username]
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if len(out) > 0 && out[len(out)-1].Address == e.Address {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Entries returns a copy of the user's retained entries.
func (h *History) Entries(username string) []HistoryEntry {
	return append([]HistoryEntry(nil), h.entries[username]...)
}

// Users returns the number of users with retained entries.
func (h *History) Users() int {
	return len(h.entries)
}
