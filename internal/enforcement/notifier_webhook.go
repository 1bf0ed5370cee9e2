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

// WebhookPayload is the JSON body posted to a generic webhook.
type WebhookPayload struct {
	EventType string    `json:"event_type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// WebhookNotifier posts notifications as JSON to an arbitrary URL.
type WebhookNotifier struct {
	webhookURL string
	client     *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewWebhookNotifier creates a generic webhook notifier.
func NewWebhookNotifier(cfg config.WebhookConfig, minInterval time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL: cfg.URL,
		client:     newNotifyHTTPClient(),
		limiter:    newLimiter(minInterval),
		now:        time.Now,
	}
}

// Name returns the notifier name.
func (n *WebhookNotifier) Name() string {
	return "webhook"
}

// Send posts text to the webhook.
func (n *WebhookNotifier) Send(ctx context.Context, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(WebhookPayload{
		EventType: "enforcement_notice",
		Message:   text,
		Timestamp: n.now().UTC(),
		Source:    "sharewarden",
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Sharewarden-Webhook/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	return checkStatus("webhook", resp)
}
