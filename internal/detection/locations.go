// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package detection

import (
	"net/netip"
	"slices"

	"github.com/tomtom215/sharewarden/internal/logging"
	"github.com/tomtom215/sharewarden/internal/models"
)

// DistinctLocations returns the sorted, deduplicated addresses of sessions,
// excluding any address contained in a whitelisted prefix.
func DistinctLocations(sessions []models.StreamSession, whitelist []netip.Prefix) []netip.Addr {
	seen := make(map[netip.Addr]struct{}, len(sessions))
	locations := make([]netip.Addr, 0, len(sessions))

	for i := range sessions {
		addr := sessions[i].IPAddress.Unmap()
		if !addr.IsValid() {
			continue
		}
		if isWhitelisted(addr, whitelist) {
			logging.Debug().
				Str("username", sessions[i].Username).
				Str("ip_address", addr.String()).
				Msg("Ignoring stream from whitelisted network")
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		locations = append(locations, addr)
	}

	slices.SortFunc(locations, func(a, b netip.Addr) int { return a.Compare(b) })
	return locations
}

func isWhitelisted(addr netip.Addr, whitelist []netip.Prefix) bool {
	for _, p := range whitelist {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
