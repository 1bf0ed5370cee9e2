// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Plex.URL = "http://127.0.0.1:32400"
	cfg.Plex.Token = "token"
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults with plex credentials", mutate: func(*Config) {}},
		{name: "missing plex url", mutate: func(c *Config) { c.Plex.URL = "" }, wantErr: "PLEX_URL"},
		{name: "plex url with path", mutate: func(c *Config) { c.Plex.URL = "http://plex:32400/web" }, wantErr: "base URL only"},
		{name: "plex url bad scheme", mutate: func(c *Config) { c.Plex.URL = "ftp://plex" }, wantErr: "scheme"},
		{name: "missing token", mutate: func(c *Config) { c.Plex.Token = "" }, wantErr: "PLEX_TOKEN"},
		{name: "poll interval too small", mutate: func(c *Config) { c.Poll.Interval = 100 * time.Millisecond }, wantErr: "POLL_INTERVAL"},
		{name: "zero concurrent threshold", mutate: func(c *Config) { c.Detection.MaxUniqueStreams = 0 }, wantErr: "MAX_UNIQUE_STREAMS"},
		{name: "zero ban duration", mutate: func(c *Config) { c.Detection.BanDurationHours = 0 }, wantErr: "BAN_DURATION_HOURS"},
		{
			name: "history window zero when enabled",
			mutate: func(c *Config) {
				c.Detection.HistoryEnabled = true
				c.Detection.HistoryWindowHours = 0
			},
			wantErr: "HISTORY_WINDOW_HOURS",
		},
		{
			name: "history threshold zero when enabled",
			mutate: func(c *Config) {
				c.Detection.HistoryEnabled = true
				c.Detection.HistoryMaxUniqueIPs = 0
			},
		},
		{
			name: "negative history threshold",
			mutate: func(c *Config) {
				c.Detection.HistoryEnabled = true
				c.Detection.HistoryMaxUniqueIPs = -1
			},
			wantErr: "HISTORY_MAX_UNIQUE_IPS",
		},
		{
			name: "history window ignored when disabled",
			mutate: func(c *Config) {
				c.Detection.HistoryEnabled = false
				c.Detection.HistoryWindowHours = 0
			},
		},
		{name: "bad template", mutate: func(c *Config) { c.Detection.BanMessage = "{{.Remaining" }, wantErr: "BAN_MESSAGE"},
		{name: "unknown template field", mutate: func(c *Config) { c.Detection.BanMessage = "Lifted at {{.Expiry}}" }, wantErr: "unknown field"},
		{name: "ipv6 network", mutate: func(c *Config) { c.Detection.NetworkWhitelist = []string{"fd00::/8"} }, wantErr: "IPv4"},
		{name: "host bits set", mutate: func(c *Config) { c.Detection.NetworkWhitelist = []string{"192.168.1.1/24"} }, wantErr: "host bits"},
		{name: "not a cidr", mutate: func(c *Config) { c.Detection.NetworkWhitelist = []string{"lan"} }, wantErr: "NETWORK_WHITELIST"},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage.Backend = "redis" }, wantErr: "STORAGE_BACKEND"},
		{name: "file backend without path", mutate: func(c *Config) { c.Storage.Backend = "file"; c.Storage.Path = "" }, wantErr: "STORAGE_PATH"},
		{name: "memory backend without path", mutate: func(c *Config) { c.Storage.Backend = "memory"; c.Storage.Path = "" }},
		{name: "telegram without chat id", mutate: func(c *Config) { c.Notifications.Telegram.BotToken = "1:a" }, wantErr: "TELEGRAM_CHAT_ID"},
		{name: "discord bad url", mutate: func(c *Config) { c.Notifications.Discord.WebhookURL = "discord" }, wantErr: "DISCORD_WEBHOOK_URL"},
		{name: "metrics bad listen", mutate: func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Listen = "9090" }, wantErr: "METRICS_LISTEN"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "LOG_LEVEL"},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_MissingRequiredIsSentinel(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Plex.URL = ""
	if err := cfg.Validate(); !errors.Is(err, ErrMissingRequired) {
		t.Errorf("Validate() error = %v, want ErrMissingRequired", err)
	}
}

func TestNetworkPrefixes(t *testing.T) {
	t.Parallel()

	d := DetectionConfig{NetworkWhitelist: []string{"192.168.0.0/16", " 10.1.2.0/24 "}}
	prefixes, err := d.NetworkPrefixes()
	if err != nil {
		t.Fatalf("NetworkPrefixes() error = %v", err)
	}
	if len(prefixes) != 2 || prefixes[1].String() != "10.1.2.0/24" {
		t.Errorf("NetworkPrefixes() = %v", prefixes)
	}
}

func TestBanTemplate(t *testing.T) {
	t.Parallel()

	d := DetectionConfig{BanMessage: DefaultBanMessage}
	tmpl, err := d.BanTemplate()
	if err != nil {
		t.Fatalf("BanTemplate() error = %v", err)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, map[string]any{"Remaining": "2 hours and 5 minutes"}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasSuffix(sb.String(), "lifted in 2 hours and 5 minutes.") {
		t.Errorf("rendered %q", sb.String())
	}
}
