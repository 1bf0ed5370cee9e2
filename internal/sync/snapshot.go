// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package sync

import (
	"context"
	"net/netip"

	"github.com/tomtom215/sharewarden/internal/logging"
	"github.com/tomtom215/sharewarden/internal/metrics"
	"github.com/tomtom215/sharewarden/internal/models"
	"github.com/tomtom215/sharewarden/internal/validation"
)

// PlexSnapshotSource builds per-user snapshots of the active sessions.
type PlexSnapshotSource struct {
	api SessionsAPI
}

// NewPlexSnapshotSource reads sessions through api.
func NewPlexSnapshotSource(api SessionsAPI) *PlexSnapshotSource {
	return &PlexSnapshotSource{api: api}
}

// CurrentSessions returns the non-paused, well-formed sessions grouped by
// username. A fetch error is returned unchanged; malformed records are
// logged and skipped without affecting the others.
func (s *PlexSnapshotSource) CurrentSessions(ctx context.Context) (models.UserSnapshot, error) {
	resp, err := s.api.GetSessions(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := Normalize(ctx, resp)
	metrics.SessionsObserved.Set(float64(snapshot.SessionCount()))
	return snapshot, nil
}

// Normalize converts a sessions payload into a UserSnapshot.
func Normalize(ctx context.Context, resp *models.PlexSessionsResponse) models.UserSnapshot {
	snapshot := make(models.UserSnapshot)
	if resp == nil || resp.MediaContainer == nil {
		return snapshot
	}

	for i := range resp.MediaContainer.Metadata {
		record := &resp.MediaContainer.Metadata[i]
		session, ok := normalizeRecord(ctx, i, record)
		if !ok {
			continue
		}
		snapshot.Add(session)
	}
	return snapshot
}

func normalizeRecord(ctx context.Context, index int, record *models.PlexSession) (models.StreamSession, bool) {
	if verr := validation.ValidateStruct(record); verr != nil {
		metrics.SessionsDropped.WithLabelValues("invalid").Inc()
		logging.Ctx(ctx).Warn().
			Int("index", index).
			Strs("fields", verr.Fields()).
			Str("error", verr.Error()).
			Msg("Dropping malformed session record")
		return models.StreamSession{}, false
	}

	addr, err := netip.ParseAddr(record.Player.Address)
	if err != nil {
		metrics.SessionsDropped.WithLabelValues("invalid").Inc()
		logging.Ctx(ctx).Warn().
			Int("index", index).
			Str("address", record.Player.Address).
			Msg("Dropping session record with unparseable address")
		return models.StreamSession{}, false
	}
	addr = addr.Unmap()
	if !addr.Is4() {
		metrics.SessionsDropped.WithLabelValues("invalid").Inc()
		logging.Ctx(ctx).Warn().
			Int("index", index).
			Str("address", record.Player.Address).
			Msg("Dropping session record with non-IPv4 address")
		return models.StreamSession{}, false
	}

	state := models.ParsePlaybackState(record.Player.State)
	if state == models.StatePaused {
		metrics.SessionsDropped.WithLabelValues("paused").Inc()
		logging.Ctx(ctx).Debug().
			Str("username", record.User.Title).
			Str("session_id", record.Session.ID).
			Msg("Ignoring paused session")
		return models.StreamSession{}, false
	}

	return models.StreamSession{
		SessionID: record.Session.ID,
		Username:  record.User.Title,
		State:     state,
		Title:     record.DisplayTitle(),
		Device:    record.Player.DeviceName(),
		IPAddress: addr,
	}, true
}
