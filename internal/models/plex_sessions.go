// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package models

// PlexSessionsResponse is the body of GET /status/sessions.
// MediaContainer and Metadata are absent when nobody is streaming.
type PlexSessionsResponse struct {
	MediaContainer *PlexSessionsContainer `json:"MediaContainer"`
}

// PlexSessionsContainer wraps the active sessions array.
type PlexSessionsContainer struct {
	Size     int           `json:"size"`
	Metadata []PlexSession `json:"Metadata"`
}

// PlexSession is a single entry of MediaContainer.Metadata. Sub-objects are
// pointers so that a missing object can be told apart from an empty one.
type PlexSession struct {
	SessionKey       string             `json:"sessionKey"`
	Type             string             `json:"type"`
	Title            string             `json:"title" validate:"required"`
	GrandparentTitle string             `json:"grandparentTitle,omitempty"`
	User             *PlexSessionUser   `json:"User" validate:"required"`
	Player           *PlexSessionPlayer `json:"Player" validate:"required"`
	Session          *PlexSessionInfo   `json:"Session" validate:"required"`
}

// PlexSessionUser identifies the account that owns a session.
type PlexSessionUser struct {
	Title string `json:"title" validate:"required"`
}

// PlexSessionPlayer describes the client device.
type PlexSessionPlayer struct {
	Address string `json:"address" validate:"required,ip"`
	Device  string `json:"device"`
	Product string `json:"product"`
	State   string `json:"state" validate:"required"`
	Title   string `json:"title"`
	Local   bool   `json:"local"`
}

// PlexSessionInfo carries the termination handle for a session.
type PlexSessionInfo struct {
	ID        string `json:"id" validate:"required"`
	Bandwidth int    `json:"bandwidth"`
	Location  string `json:"location"`
}

// DisplayTitle returns "Show - Episode" for episodes and Title otherwise.
func (s *PlexSession) DisplayTitle() string {
	if s.GrandparentTitle != "" {
		return s.GrandparentTitle + " - " + s.Title
	}
	return s.Title
}

// DeviceName prefers the device, then the player title, then the product.
func (p *PlexSessionPlayer) DeviceName() string {
	switch {
	case p.Device != "":
		return p.Device
	case p.Title != "":
		return p.Title
	case p.Product != "":
		return p.Product
	default:
		return "Unknown"
	}
}
