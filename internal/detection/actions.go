// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package detection

import (
	"github.com/tomtom215/sharewarden/internal/models"
)

// Action is a side effect requested by the engine. The concrete types are
// KillSessions, Notify and PersistBans.
type Action interface {
	actionKind() string
}

// KillSessions asks for every listed session to be terminated with Message
// shown to the user.
type KillSessions struct {
	Username string
	Sessions []models.StreamSession
	Message  string
}

// Notify asks for Text to be sent to the operator channels.
type Notify struct {
	Text string
}

// PersistBans asks for Bans to replace the stored ban ledger.
type PersistBans struct {
	Bans map[string]int64
}

func (KillSessions) actionKind() string { return "kill_sessions" }
func (Notify) actionKind() string       { return "notify" }
func (PersistBans) actionKind() string  { return "persist_bans" }

// ActionKind returns a short label for a, for logs and metrics.
func ActionKind(a Action) string {
	return a.actionKind()
}
