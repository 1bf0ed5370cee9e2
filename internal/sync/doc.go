// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

/*
Package sync talks to the Plex Media Server.

It provides three layers:

  - PlexClient: raw HTTP access to /status/sessions and
    /status/sessions/terminate, with X-Plex-Token authentication and
    HTTP 429 back-off honouring Retry-After.
  - CircuitBreakerClient: wraps any SessionsAPI with sony/gobreaker so an
    unreachable server fails fast instead of stalling every poll cycle.
  - PlexSnapshotSource: turns the sessions payload into a
    models.UserSnapshot, dropping paused and malformed records.

The poller reads snapshots from PlexSnapshotSource and the enforcement
dispatcher terminates sessions through the same SessionsAPI.
*/
package sync

import (
	"context"

	"github.com/tomtom215/sharewarden/internal/models"
)

// SessionsAPI is the subset of the Plex API the enforcer needs.
type SessionsAPI interface {
	GetSessions(ctx context.Context) (*models.PlexSessionsResponse, error)
	TerminateSession(ctx context.Context, sessionID, reason string) error
}
