// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package detection

import (
	"reflect"
	"testing"
)

const hour = int64(3600)

func TestHistory_RecordAndCount(t *testing.T) {
	t.Parallel()

	h := NewHistory()
	if got := h.DistinctCount("alice"); got != 0 {
		t.Errorf("DistinctCount(absent) = %d, want 0", got)
	}

	h.Record("alice", addrs("1.1.1.1", "2.2.2.2"), 100)
	h.Record("alice", addrs("1.1.1.1"), 200)

	entries := h.Entries("alice")
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].Timestamp != 100 || entries[1].Timestamp != 100 || entries[2].Timestamp != 200 {
		t.Errorf("timestamps = %v, want [100 100 200]", entries)
	}
	if got := h.DistinctCount("alice"); got != 2 {
		t.Errorf("DistinctCount() = %d, want 2", got)
	}
}

func TestHistory_RecordEmptyDoesNotCreateUser(t *testing.T) {
	t.Parallel()

	h := NewHistory()
	h.Record("alice", nil, 100)
	if h.Users() != 0 {
		t.Errorf("Users() = %d, want 0", h.Users())
	}
}

func TestHistory_Prune(t *testing.T) {
	t.Parallel()

	now := 100 * hour
	h := NewHistory()
	h.Record("alice", addrs("1.1.1.1"), now-25*hour)
	h.Record("alice", addrs("2.2.2.2"), now-24*hour) // exactly on the cutoff, kept
	h.Record("alice", addrs("3.3.3.3"), now-1*hour)
	h.Record("bob", addrs("4.4.4.4"), now-48*hour)

	h.Prune(24, now)

	if got := h.DistinctCount("alice"); got != 2 {
		t.Errorf("alice DistinctCount() = %d, want 2", got)
	}
	for _, e := range h.Entries("alice") {
		if e.Timestamp < now-24*hour {
			t.Errorf("entry %v older than window survived prune", e)
		}
	}
	if h.DistinctCount("bob") != 0 || h.Users() != 1 {
		t.Errorf("bob should be removed entirely, Users() = %d", h.Users())
	}
}

func TestHistory_PruneIdempotent(t *testing.T) {
	t.Parallel()

	now := 50 * hour
	h := NewHistory()
	h.Record("alice", addrs("1.1.1.1"), now-30*hour)
	h.Record("alice", addrs("2.2.2.2", "3.3.3.3"), now-2*hour)
	h.Record("carol", addrs("5.5.5.5"), now)

	h.Prune(24, now)
	first := map[string][]HistoryEntry{"alice": h.Entries("alice"), "carol": h.Entries("carol")}
	h.Prune(24, now)
	second := map[string][]HistoryEntry{"alice": h.Entries("alice"), "carol": h.Entries("carol")}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("prune not idempotent: %v != %v", first, second)
	}
}

func TestHistory_DistinctCountMonotonicWithinWindow(t *testing.T) {
	t.Parallel()

	h := NewHistory()
	now := 10 * hour
	prev := 0
	for i, ip := range []string{"1.1.1.1", "1.1.1.1", "2.2.2.2", "3.3.3.3", "2.2.2.2"} {
		h.Record("alice", addrs(ip), now+int64(i)*60)
		h.Prune(24, now+int64(i)*60)
		got := h.DistinctCount("alice")
		if got < prev {
			t.Fatalf("DistinctCount decreased from %d to %d without pruning", prev, got)
		}
		prev = got
	}
	if prev != 3 {
		t.Errorf("final DistinctCount() = %d, want 3", prev)
	}
}

func TestHistory_DedupLog(t *testing.T) {
	t.Parallel()

	h := NewHistory()
	h.Record("alice", addrs("1.1.1.1"), 1)
	h.Record("alice", addrs("1.1.1.1"), 2)
	h.Record("alice", addrs("2.2.2.2"), 3)
	h.Record("alice", addrs("1.1.1.1"), 4)
	h.Record("alice", addrs("1.1.1.1"), 5)

	got := h.DedupLog("alice")
	want := []HistoryEntry{
		{Timestamp: 1, Address: addrs("1.1.1.1")[0]},
		{Timestamp: 3, Address: addrs("2.2.2.2")[0]},
		{Timestamp: 4, Address: addrs("1.1.1.1")[0]},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DedupLog() = %v, want %v", got, want)
	}
	if n := len(h.Entries("alice")); n != 5 {
		t.Errorf("DedupLog mutated history: %d entries, want 5", n)
	}
}
