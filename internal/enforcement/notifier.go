// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package enforcement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/sharewarden/internal/config"
	"github.com/tomtom215/sharewarden/internal/logging"
	"github.com/tomtom215/sharewarden/internal/metrics"
)

const (
	defaultNotifyTimeout  = 10 * time.Second
	defaultNotifyInterval = 500 * time.Millisecond
)

// Notifier delivers operator notifications to one channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// newLimiter allows one message per interval.
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		interval = defaultNotifyInterval
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func newNotifyHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultNotifyTimeout}
}

// checkStatus turns a 4xx/5xx reply into an error carrying a short body
// excerpt.
func checkStatus(channel string, resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	return fmt.Errorf("%s returned status %d: %s", channel, resp.StatusCode, excerpt)
}

// MultiNotifier fans one message out to every channel. A failing channel
// does not stop delivery to the others.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier combines notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Name implements Notifier.
func (m *MultiNotifier) Name() string { return "multi" }

// Len returns the number of channels.
func (m *MultiNotifier) Len() int { return len(m.notifiers) }

// Send implements Notifier. The returned error joins every channel failure.
func (m *MultiNotifier) Send(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m.notifiers {
		err := n.Send(ctx, text)
		metrics.RecordNotification(n.Name(), err)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("notifier", n.Name()).Msg("Notification delivery failed")
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// NewNotifiers builds a MultiNotifier from every configured channel.
func NewNotifiers(cfg *config.NotificationsConfig) *MultiNotifier {
	var notifiers []Notifier
	if cfg.TelegramEnabled() {
		notifiers = append(notifiers, NewTelegramNotifier(cfg.Telegram, cfg.MinInterval))
	}
	if cfg.DiscordEnabled() {
		notifiers = append(notifiers, NewDiscordNotifier(cfg.Discord, cfg.MinInterval))
	}
	if cfg.WebhookEnabled() {
		notifiers = append(notifiers, NewWebhookNotifier(cfg.Webhook, cfg.MinInterval))
	}
	if len(notifiers) == 0 {
		logging.Warn().Msg("No notification channels configured, ban events will only be logged")
	}
	return NewMultiNotifier(notifiers...)
}
