// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package enforcement

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/sharewarden/internal/config"
	"github.com/tomtom215/sharewarden/internal/metrics"
)

const testBotToken = "123456789:AAFakeTelegramBotTokenValue"

func TestTelegramNotifier_Send(t *testing.T) {
	var gotPath string
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		gotForm = r.PostForm
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	n := NewTelegramNotifier(config.TelegramConfig{
		BotToken: testBotToken,
		ChatID:   "-1001234",
		APIURL:   server.URL + "/",
	}, time.Millisecond)

	if err := n.Send(context.Background(), "Banned bob for 24 hours"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if want := "/bot" + testBotToken + "/sendMessage"; gotPath != want {
		t.Errorf("path = %q, want %q", gotPath, want)
	}
	if gotForm.Get("chat_id") != "-1001234" {
		t.Errorf("chat_id = %q, want -1001234", gotForm.Get("chat_id"))
	}
	if gotForm.Get("text") != "Banned bob for 24 hours" {
		t.Errorf("text = %q", gotForm.Get("text"))
	}
}

func TestTelegramNotifier_ErrorsRedactToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	serverURL := server.URL
	server.Close()

	n := NewTelegramNotifier(config.TelegramConfig{BotToken: testBotToken, ChatID: "1", APIURL: serverURL}, time.Millisecond)
	err := n.Send(context.Background(), "hello")
	if err == nil {
		t.Fatal("Send() to closed server returned nil error")
	}
	if strings.Contains(err.Error(), testBotToken) {
		t.Errorf("error leaks bot token: %v", err)
	}
}

func TestTelegramNotifier_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	n := NewTelegramNotifier(config.TelegramConfig{BotToken: testBotToken, ChatID: "1", APIURL: server.URL}, time.Millisecond)
	err := n.Send(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("Send() error = %v, want status error with body excerpt", err)
	}
}

func TestDiscordNotifier_Send(t *testing.T) {
	var payload discordWebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewDiscordNotifier(config.DiscordConfig{WebhookURL: server.URL}, time.Millisecond)
	n.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	if err := n.Send(context.Background(), "Removed bob from ban list"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(payload.Embeds) != 1 {
		t.Fatalf("len(Embeds) = %d, want 1", len(payload.Embeds))
	}
	embed := payload.Embeds[0]
	if embed.Description != "Removed bob from ban list" {
		t.Errorf("Description = %q", embed.Description)
	}
	if embed.Timestamp != "2026-01-02T03:04:05Z" {
		t.Errorf("Timestamp = %q", embed.Timestamp)
	}
}

func TestWebhookNotifier_Send(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"accepted", http.StatusAccepted, false},
		{"server error", http.StatusBadGateway, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload WebhookPayload
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&payload)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			n := NewWebhookNotifier(config.WebhookConfig{URL: server.URL}, time.Millisecond)
			err := n.Send(context.Background(), "Prevented banned user bob from streaming")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Send() error = %v, wantErr %v", err, tt.wantErr)
			}
			if payload.Message != "Prevented banned user bob from streaming" {
				t.Errorf("Message = %q", payload.Message)
			}
			if payload.Source != "sharewarden" || payload.EventType != "enforcement_notice" {
				t.Errorf("payload = %+v", payload)
			}
		})
	}
}

func TestNotifier_RateLimitHonoursContext(t *testing.T) {
	n := NewWebhookNotifier(config.WebhookConfig{URL: "http://127.0.0.1:1"}, time.Hour)
	n.limiter.Allow() // consume the only token

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Send(ctx, "x"); err == nil {
		t.Error("Send() with canceled context and empty limiter returned nil")
	}
}

type recordingNotifier struct {
	name string
	err  error
	sent []string
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Send(_ context.Context, text string) error {
	r.sent = append(r.sent, text)
	return r.err
}

func TestMultiNotifier_ContinuesAfterFailure(t *testing.T) {
	failing := &recordingNotifier{name: "failing-test", err: errors.New("boom")}
	ok := &recordingNotifier{name: "ok-test"}
	m := NewMultiNotifier(failing, ok)

	before := testutil.ToFloat64(metrics.NotificationsSent.WithLabelValues("failing-test", "error"))
	err := m.Send(context.Background(), "hello")
	if err == nil {
		t.Fatal("Send() error = nil, want joined failure")
	}
	if !strings.Contains(err.Error(), "failing-test: boom") {
		t.Errorf("Send() error = %v", err)
	}
	if len(ok.sent) != 1 {
		t.Errorf("healthy channel received %d messages, want 1", len(ok.sent))
	}
	after := testutil.ToFloat64(metrics.NotificationsSent.WithLabelValues("failing-test", "error"))
	if after-before != 1 {
		t.Errorf("error counter delta = %v, want 1", after-before)
	}
}

func TestNewNotifiers(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.NotificationsConfig
		want int
	}{
		{"none", config.NotificationsConfig{}, 0},
		{"telegram only", config.NotificationsConfig{Telegram: config.TelegramConfig{BotToken: "t", ChatID: "c"}}, 1},
		{"all", config.NotificationsConfig{
			Telegram: config.TelegramConfig{BotToken: "t", ChatID: "c"},
			Discord:  config.DiscordConfig{WebhookURL: "https://discord.example/hook"},
			Webhook:  config.WebhookConfig{URL: "https://hooks.example/x"},
		}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewNotifiers(&tt.cfg).Len(); got != tt.want {
				t.Errorf("Len() = %d, want %d", got, tt.want)
			}
		})
	}
}
