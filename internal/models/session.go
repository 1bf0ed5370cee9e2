// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

// Package models holds the data types shared between the Plex client, the
// detection engine and the enforcement layer.
package models

import (
	"net/netip"
	"strings"
)

// PlaybackState is the player state reported for a session.
type PlaybackState string

const (
	StatePlaying   PlaybackState = "playing"
	StatePaused    PlaybackState = "paused"
	StateBuffering PlaybackState = "buffering"
	StateOther     PlaybackState = "other"
)

// ParsePlaybackState maps a Plex player state onto PlaybackState.
// Unknown values become StateOther.
func ParsePlaybackState(s string) PlaybackState {
	switch PlaybackState(strings.ToLower(strings.TrimSpace(s))) {
	case StatePlaying:
		return StatePlaying
	case StatePaused:
		return StatePaused
	case StateBuffering:
		return StateBuffering
	default:
		return StateOther
	}
}

// StreamSession is one active, non-paused playback session as seen in a
// single poll. Values are built fresh each cycle and never mutated.
type StreamSession struct {
	SessionID string
	Username  string
	State     PlaybackState
	Title     string
	Device    string
	IPAddress netip.Addr
}

// UserSnapshot groups the current sessions by username.
type UserSnapshot map[string][]StreamSession

// Add appends a session under its username.
func (s UserSnapshot) Add(session StreamSession) {
	s[session.Username] = append(s[session.Username], session)
}

// SessionCount returns the number of sessions across all users.
func (s UserSnapshot) SessionCount() int {
	n := 0
	for _, sessions := range s {
		n += len(sessions)
	}
	return n
}
