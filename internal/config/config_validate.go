// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/tomtom215/sharewarden/internal/logging"
)

// ErrMissingRequired is wrapped by validation errors for absent required keys.
var ErrMissingRequired = errors.New("missing required configuration")

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validatePlex(); err != nil {
		return err
	}
	if err := c.validatePoll(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateEnforcement(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePlex() error {
	if c.Plex.URL == "" {
		return fmt.Errorf("%w: PLEX_URL", ErrMissingRequired)
	}
	if err := validateBaseURL(c.Plex.URL, "PLEX_URL"); err != nil {
		return err
	}
	if c.Plex.Token == "" {
		return fmt.Errorf("%w: PLEX_TOKEN", ErrMissingRequired)
	}
	if c.Plex.Timeout < time.Second {
		return fmt.Errorf("PLEX_TIMEOUT must be at least 1s, got %v", c.Plex.Timeout)
	}
	if c.Plex.MaxRetries < 0 {
		return fmt.Errorf("PLEX_MAX_RETRIES must not be negative, got %d", c.Plex.MaxRetries)
	}
	return nil
}

func (c *Config) validatePoll() error {
	if c.Poll.Interval < time.Second {
		return fmt.Errorf("POLL_INTERVAL must be at least 1s, got %v", c.Poll.Interval)
	}
	return nil
}

func (c *Config) validateDetection() error {
	d := &c.Detection
	if d.MaxUniqueStreams < 1 {
		return fmt.Errorf("MAX_UNIQUE_STREAMS must be at least 1, got %d", d.MaxUniqueStreams)
	}
	if d.BanDurationHours < 1 {
		return fmt.Errorf("BAN_DURATION_HOURS must be at least 1, got %d", d.BanDurationHours)
	}
	if d.HistoryEnabled {
		if d.HistoryWindowHours < 1 {
			return fmt.Errorf("HISTORY_WINDOW_HOURS must be at least 1 when HISTORY_BAN_ENABLED=true, got %d", d.HistoryWindowHours)
		}
		if d.HistoryMaxUniqueIPs < 0 {
			return fmt.Errorf("HISTORY_MAX_UNIQUE_IPS must not be negative, got %d", d.HistoryMaxUniqueIPs)
		}
	}
	if d.BanMessage == "" {
		return fmt.Errorf("%w: BAN_MESSAGE", ErrMissingRequired)
	}
	tmpl, err := d.BanTemplate()
	if err != nil {
		return fmt.Errorf("BAN_MESSAGE: %w", err)
	}
	sample := map[string]any{"Username": "user", "Remaining": "1 hours and 0 minutes", "Hours": d.BanDurationHours}
	if err := tmpl.Execute(io.Discard, sample); err != nil {
		return fmt.Errorf("BAN_MESSAGE: template references unknown field (available: .Username, .Remaining, .Hours): %w", err)
	}
	if _, err := d.NetworkPrefixes(); err != nil {
		return fmt.Errorf("NETWORK_WHITELIST: %w", err)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "badger", "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: STORAGE_PATH (required for STORAGE_BACKEND=%s)", ErrMissingRequired, c.Storage.Backend)
		}
	case "memory":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of badger, file, memory, got %q", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	n := &c.Notifications
	if n.TelegramEnabled() {
		if n.Telegram.ChatID == "" {
			return fmt.Errorf("%w: TELEGRAM_CHAT_ID (required when TELEGRAM_BOT_TOKEN is set)", ErrMissingRequired)
		}
		if err := validateBaseURL(n.Telegram.APIURL, "TELEGRAM_API_URL"); err != nil {
			return err
		}
	}
	if n.DiscordEnabled() {
		if _, err := validateEndpointURL(n.Discord.WebhookURL, "DISCORD_WEBHOOK_URL"); err != nil {
			return err
		}
	}
	if n.WebhookEnabled() {
		if _, err := validateEndpointURL(n.Webhook.URL, "NOTIFY_WEBHOOK_URL"); err != nil {
			return err
		}
	}
	if n.MinInterval < 0 {
		return fmt.Errorf("NOTIFY_MIN_INTERVAL must not be negative, got %v", n.MinInterval)
	}
	return nil
}

func (c *Config) validateEnforcement() error {
	if c.Enforcement.TerminationsPerSecond < 0 {
		return fmt.Errorf("TERMINATIONS_PER_SECOND must not be negative, got %v", c.Enforcement.TerminationsPerSecond)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if !c.Metrics.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
		return fmt.Errorf("METRICS_LISTEN must be host:port, got %q: %w", c.Metrics.Listen, err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
