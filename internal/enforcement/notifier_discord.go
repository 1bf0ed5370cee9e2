// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package enforcement

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/sharewarden/internal/config"
)

const discordEmbedColor = 0xE5A00D

// DiscordNotifier sends notifications to a Discord channel webhook as a
// single embed.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewDiscordNotifier creates a Discord notifier.
func NewDiscordNotifier(cfg config.DiscordConfig, minInterval time.Duration) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: cfg.WebhookURL,
		client:     newNotifyHTTPClient(),
		limiter:    newLimiter(minInterval),
		now:        time.Now,
	}
}

// Name returns the notifier name.
func (n *DiscordNotifier) Name() string {
	return "discord"
}

// Send delivers text to Discord.
func (n *DiscordNotifier) Send(ctx context.Context, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	payload := discordWebhookPayload{
		Embeds: []discordEmbed{{
			Title:       "Sharewarden",
			Description: text,
			Color:       discordEmbedColor,
			Timestamp:   n.now().UTC().Format(time.RFC3339),
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord webhook: %w", err)
	}
	defer resp.Body.Close()

	return checkStatus("discord", resp)
}

type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}
