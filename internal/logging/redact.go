// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package logging

import "strings"

// SanitizeToken masks a secret, keeping the first and last 4 characters.
// Secrets of 12 characters or fewer are fully masked.
//
//	SanitizeToken("xxxxYYYYzzzzWWWW") // "xxxx...WWWW"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// RedactSecret replaces every occurrence of secret in s with its
// sanitized form. Transport errors from net/http embed the request URL,
// which for the Telegram API contains the bot token.
func RedactSecret(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, SanitizeToken(secret))
}
