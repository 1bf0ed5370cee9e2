// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package enforcement

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/sharewarden/internal/config"
	"github.com/tomtom215/sharewarden/internal/logging"
)

// TelegramNotifier posts messages through the Telegram Bot API sendMessage
// method.
type TelegramNotifier struct {
	apiURL  string
	token   string
	chatID  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewTelegramNotifier creates a Telegram notifier.
func NewTelegramNotifier(cfg config.TelegramConfig, minInterval time.Duration) *TelegramNotifier {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	return &TelegramNotifier{
		apiURL:  apiURL,
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
		client:  newNotifyHTTPClient(),
		limiter: newLimiter(minInterval),
	}
}

// Name returns the notifier name.
func (n *TelegramNotifier) Name() string {
	return "telegram"
}

// Send delivers text to the configured chat. Errors never contain the raw
// bot token.
func (n *TelegramNotifier) Send(ctx context.Context, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)

	endpoint := n.apiURL + "/bot" + n.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return n.redact(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return n.redact(err)
	}
	defer resp.Body.Close()

	return n.redact(checkStatus("telegram", resp))
}

func (n *TelegramNotifier) redact(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(logging.RedactSecret(err.Error(), n.token))
}
