// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

// Package config loads Sharewarden configuration from built-in defaults, an
// optional YAML file and environment variables, in that order of precedence.
//
// Configuration is loaded once at startup and treated as immutable for the
// lifetime of the process.
package config

import (
	"fmt"
	"net/netip"
	"strings"
	"text/template"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Plex          PlexConfig          `koanf:"plex"`
	Poll          PollConfig          `koanf:"poll"`
	Detection     DetectionConfig     `koanf:"detection"`
	Storage       StorageConfig       `koanf:"storage"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Enforcement   EnforcementConfig   `koanf:"enforcement"`
	Metrics       MetricsConfig       `koanf:"metrics"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// PlexConfig holds Plex Media Server connection settings.
type PlexConfig struct {
	// URL is the server base URL, e.g. http://192.168.1.10:32400
	URL string `koanf:"url"`

	// Token is the X-Plex-Token of the server owner. Required.
	Token string `koanf:"token"`

	// Timeout bounds each HTTP request to the server.
	Timeout time.Duration `koanf:"timeout"`

	// MaxRetries is the number of retries on HTTP 429.
	MaxRetries int `koanf:"max_retries"`
}

// PollConfig controls the session polling loop.
type PollConfig struct {
	// Interval is the sleep between the end of one cycle and the start of
	// the next.
	Interval time.Duration `koanf:"interval"`
}

// DetectionConfig holds the sharing policy.
type DetectionConfig struct {
	// MaxUniqueStreams is the number of distinct locations a user may stream
	// from at once. One more than this triggers a ban.
	MaxUniqueStreams int `koanf:"max_unique_streams"`

	// HistoryEnabled turns on the sliding-window rule.
	HistoryEnabled bool `koanf:"history_enabled"`

	// HistoryWindowHours is the length of the sliding window.
	HistoryWindowHours int `koanf:"history_window_hours"`

	// HistoryMaxUniqueIPs is the number of distinct addresses allowed within
	// the window.
	HistoryMaxUniqueIPs int `koanf:"history_max_unique_ips"`

	// BanDurationHours is how long a ban lasts from the moment it is issued.
	BanDurationHours int `koanf:"ban_duration_hours"`

	// BanMessage is a text/template shown to the user when their sessions
	// are terminated. Fields: .Username, .Remaining, .Hours
	BanMessage string `koanf:"ban_message"`

	// UsernameWhitelist is matched case-insensitively.
	UsernameWhitelist []string `koanf:"username_whitelist"`

	// NetworkWhitelist holds IPv4 CIDR blocks whose addresses are never
	// counted as a location.
	NetworkWhitelist []string `koanf:"network_whitelist"`
}

// StorageConfig selects the ban store backend.
type StorageConfig struct {
	// Backend is badger, file or memory.
	Backend string `koanf:"backend"`

	// Path is a directory for badger or a JSON file for file.
	Path string `koanf:"path"`
}

// NotificationsConfig holds the operator notification channels. A channel
// is enabled when its credentials are present.
type NotificationsConfig struct {
	Telegram TelegramConfig `koanf:"telegram"`
	Discord  DiscordConfig  `koanf:"discord"`
	Webhook  WebhookConfig  `koanf:"webhook"`

	// MinInterval is the minimum gap between two messages on one channel.
	MinInterval time.Duration `koanf:"min_interval"`
}

// TelegramConfig configures the Telegram bot channel.
type TelegramConfig struct {
	BotToken string `koanf:"bot_token"`
	ChatID   string `koanf:"chat_id"`
	APIURL   string `koanf:"api_url"`
}

// DiscordConfig configures the Discord webhook channel.
type DiscordConfig struct {
	WebhookURL string `koanf:"webhook_url"`
}

// WebhookConfig configures the generic JSON webhook channel.
type WebhookConfig struct {
	URL string `koanf:"url"`
}

// EnforcementConfig controls how decisions are carried out.
type EnforcementConfig struct {
	// DryRun logs terminations instead of performing them. Bans are still
	// recorded and persisted.
	DryRun bool `koanf:"dry_run"`

	// TerminationsPerSecond paces termination calls. Zero disables pacing.
	TerminationsPerSecond float64 `koanf:"terminations_per_second"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes file and line number in logs.
	Caller bool `koanf:"caller"`
}

// NetworkPrefixes parses the network whitelist.
func (d *DetectionConfig) NetworkPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(d.NetworkWhitelist))
	for _, raw := range d.NetworkWhitelist {
		p, err := netip.ParsePrefix(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid network %q: %w", raw, err)
		}
		if !p.Addr().Is4() {
			return nil, fmt.Errorf("invalid network %q: only IPv4 networks are supported", raw)
		}
		if p != p.Masked() {
			return nil, fmt.Errorf("invalid network %q: host bits set (did you mean %s?)", raw, p.Masked())
		}
		prefixes = append(prefixes, p)
	}
	return prefixes, nil
}

// BanTemplate parses the ban message template.
func (d *DetectionConfig) BanTemplate() (*template.Template, error) {
	tmpl, err := template.New("ban_message").Option("missingkey=error").Parse(d.BanMessage)
	if err != nil {
		return nil, fmt.Errorf("invalid ban message template: %w", err)
	}
	return tmpl, nil
}

// TelegramEnabled reports whether Telegram credentials are configured.
func (n *NotificationsConfig) TelegramEnabled() bool {
	return n.Telegram.BotToken != ""
}

// DiscordEnabled reports whether a Discord webhook is configured.
func (n *NotificationsConfig) DiscordEnabled() bool {
	return n.Discord.WebhookURL != ""
}

// WebhookEnabled reports whether a generic webhook is configured.
func (n *NotificationsConfig) WebhookEnabled() bool {
	return n.Webhook.URL != ""
}
