// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package sync

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sharewarden/internal/models"
)

func decodeFixture(t *testing.T, body string) *models.PlexSessionsResponse {
	t.Helper()
	var resp models.PlexSessionsResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return &resp
}

func TestNormalize_DropsPaused(t *testing.T) {
	snapshot := Normalize(context.Background(), decodeFixture(t, sessionsFixture))

	if _, ok := snapshot["bob"]; ok {
		t.Error("paused session for bob was kept")
	}
	alice := snapshot["alice"]
	if len(alice) != 1 {
		t.Fatalf("len(alice) = %d, want 1", len(alice))
	}
	want := models.StreamSession{
		SessionID: "abc123",
		Username:  "alice",
		State:     models.StatePlaying,
		Title:     "Some Show - Pilot",
		Device:    "Chromecast",
		IPAddress: netip.MustParseAddr("203.0.113.5"),
	}
	if alice[0] != want {
		t.Errorf("alice[0] = %+v, want %+v", alice[0], want)
	}
}

func TestNormalize_InvalidRecordsDropped(t *testing.T) {
	body := `{"MediaContainer": {"Metadata": [
	  {"title": "ok", "User": {"title": "carol"}, "Player": {"address": "10.0.0.1", "state": "playing"}, "Session": {"id": "s1"}},
	  {"title": "no session", "User": {"title": "carol"}, "Player": {"address": "10.0.0.2", "state": "playing"}},
	  {"title": "no player", "User": {"title": "carol"}, "Session": {"id": "s3"}},
	  {"title": "bad ip", "User": {"title": "carol"}, "Player": {"address": "nowhere", "state": "playing"}, "Session": {"id": "s4"}},
	  {"User": {"title": "carol"}, "Player": {"address": "10.0.0.5", "state": "playing"}, "Session": {"id": "s5"}},
	  {"title": "no state", "User": {"title": "carol"}, "Player": {"address": "10.0.0.6"}, "Session": {"id": "s6"}},
	  {"title": "buffering", "User": {"title": "carol"}, "Player": {"address": "::ffff:10.0.0.7", "state": "buffering"}, "Session": {"id": "s7"}},
	  {"title": "ipv6", "User": {"title": "carol"}, "Player": {"address": "2001:db8::7", "state": "playing"}, "Session": {"id": "s8"}}
	]}}`

	snapshot := Normalize(context.Background(), decodeFixture(t, body))

	carol := snapshot["carol"]
	if len(carol) != 2 {
		t.Fatalf("len(carol) = %d, want 2 (valid siblings kept): %+v", len(carol), carol)
	}
	if carol[0].SessionID != "s1" || carol[1].SessionID != "s7" {
		t.Errorf("kept sessions = %s, %s, want s1, s7", carol[0].SessionID, carol[1].SessionID)
	}
	if carol[1].IPAddress != netip.MustParseAddr("10.0.0.7") {
		t.Errorf("IPv4-mapped address = %v, want unmapped 10.0.0.7", carol[1].IPAddress)
	}
	if carol[1].State != models.StateBuffering {
		t.Errorf("State = %v, want buffering", carol[1].State)
	}
	if carol[0].Device != "Unknown" {
		t.Errorf("Device = %q, want Unknown", carol[0].Device)
	}
}

func TestNormalize_EmptyPayloads(t *testing.T) {
	tests := []struct {
		name string
		resp *models.PlexSessionsResponse
	}{
		{"nil response", nil},
		{"no container", &models.PlexSessionsResponse{}},
		{"no metadata", &models.PlexSessionsResponse{MediaContainer: &models.PlexSessionsContainer{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := Normalize(context.Background(), tt.resp)
			if snapshot == nil || len(snapshot) != 0 {
				t.Errorf("Normalize() = %v, want empty non-nil snapshot", snapshot)
			}
		})
	}
}

func TestPlexSnapshotSource_CurrentSessions(t *testing.T) {
	fake := &fakeSessionsAPI{resp: decodeFixture(t, sessionsFixture)}
	source := NewPlexSnapshotSource(fake)

	snapshot, err := source.CurrentSessions(context.Background())
	if err != nil {
		t.Fatalf("CurrentSessions() error = %v", err)
	}
	if snapshot.SessionCount() != 1 {
		t.Errorf("SessionCount() = %d, want 1", snapshot.SessionCount())
	}

	fake.err = errors.New("timeout")
	if _, err := source.CurrentSessions(context.Background()); err == nil {
		t.Error("CurrentSessions() error = nil, want fetch error")
	}
}
