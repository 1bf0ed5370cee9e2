// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sharewarden/config.yaml",
	"/etc/sharewarden/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultEnvFile is loaded into the environment when present.
const DefaultEnvFile = ".env"

// DefaultBanMessage is shown to a banned user when their streams are stopped.
const DefaultBanMessage = "You have been banned from streaming for account sharing. Your ban will be lifted in {{.Remaining}}."

// LoadOptions carries command-line overrides for Load.
type LoadOptions struct {
	// ConfigPath names a YAML file that must exist.
	ConfigPath string

	// EnvFile names a dotenv file that must exist.
	EnvFile string
}

func defaultConfig() *Config {
	return &Config{
		Plex: PlexConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Poll: PollConfig{
			Interval: 30 * time.Second,
		},
		Detection: DetectionConfig{
			MaxUniqueStreams:    1,
			HistoryEnabled:      false,
			HistoryWindowHours:  24,
			HistoryMaxUniqueIPs: 5,
			BanDurationHours:    24,
			BanMessage:          DefaultBanMessage,
			UsernameWhitelist:   []string{},
			NetworkWhitelist:    []string{},
		},
		Storage: StorageConfig{
			Backend: "badger",
			Path:    "/data/bans",
		},
		Notifications: NotificationsConfig{
			Telegram: TelegramConfig{
				APIURL: "https://api.telegram.org",
			},
			MinInterval: 500 * time.Millisecond,
		},
		Enforcement: EnforcementConfig{
			DryRun:                false,
			TerminationsPerSecond: 5,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads configuration with layered sources:
//  1. Defaults
//  2. Config file (optional unless named explicitly)
//  3. Environment variables, after loading a dotenv file if one exists
//
// The result is validated before it is returned.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath, err := findConfigFile(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadEnvFile loads a dotenv file without overriding variables that are
// already set. An explicitly named file must exist.
func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}
	if _, err := os.Stat(DefaultEnvFile); err == nil {
		if err := godotenv.Load(DefaultEnvFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", DefaultEnvFile, err)
		}
	}
	return nil
}

// findConfigFile resolves the config file path. An explicit path (flag or
// CONFIG_PATH) that does not exist is an error; the default paths are
// optional.
func findConfigFile(explicit string) (string, error) {
	if explicit == "" {
		explicit = os.Getenv(ConfigPathEnvVar)
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("config file %s does not exist", explicit)
			}
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// sliceConfigPaths are split on commas and whitespace when they arrive as a
// single string (env vars, or a scalar in YAML).
var sliceConfigPaths = []string{
	"detection.username_whitelist",
	"detection.network_whitelist",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.FieldsFunc(strVal, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		})
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	"plex_url":         "plex.url",
	"plex_token":       "plex.token",
	"plex_timeout":     "plex.timeout",
	"plex_max_retries": "plex.max_retries",

	"poll_interval": "poll.interval",

	"max_unique_streams":     "detection.max_unique_streams",
	"history_ban_enabled":    "detection.history_enabled",
	"history_window_hours":   "detection.history_window_hours",
	"history_max_unique_ips": "detection.history_max_unique_ips",
	"ban_duration_hours":     "detection.ban_duration_hours",
	"ban_message":            "detection.ban_message",
	"username_whitelist":     "detection.username_whitelist",
	"network_whitelist":      "detection.network_whitelist",

	"storage_backend": "storage.backend",
	"storage_path":    "storage.path",

	"telegram_bot_token":  "notifications.telegram.bot_token",
	"telegram_chat_id":    "notifications.telegram.chat_id",
	"telegram_api_url":    "notifications.telegram.api_url",
	"discord_webhook_url": "notifications.discord.webhook_url",
	"notify_webhook_url":  "notifications.webhook.url",
	"notify_min_interval": "notifications.min_interval",

	"dry_run":                 "enforcement.dry_run",
	"terminations_per_second": "enforcement.terminations_per_second",

	"metrics_enabled": "metrics.enabled",
	"metrics_listen":  "metrics.listen",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a koanf path.
// Returning "" tells koanf to skip the variable.
//
// Examples:
//   - PLEX_URL -> plex.url
//   - HISTORY_BAN_ENABLED -> detection.history_enabled
//   - TELEGRAM_BOT_TOKEN -> notifications.telegram.bot_token
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
