// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/sharewarden/internal/config"
	"github.com/tomtom215/sharewarden/internal/logging"
	"github.com/tomtom215/sharewarden/internal/models"
)

const (
	endpointSessions  = "/status/sessions"
	endpointTerminate = "/status/sessions/terminate"

	defaultPlexTimeout = 30 * time.Second
	defaultRetryDelay  = time.Second
)

// ErrRateLimited is returned when Plex keeps answering 429 after every retry.
var ErrRateLimited = errors.New("plex rate limit exceeded")

// PlexClient handles communication with the Plex Media Server API.
type PlexClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewPlexClient creates a client for cfg.URL authenticated with cfg.Token.
func NewPlexClient(cfg *config.PlexConfig) *PlexClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultPlexTimeout
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &PlexClient{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: retries,
		baseDelay:  defaultRetryDelay,
	}
}

// GetSessions fetches the currently active playback sessions.
func (c *PlexClient) GetSessions(ctx context.Context) (*models.PlexSessionsResponse, error) {
	var resp models.PlexSessionsResponse
	if err := c.doJSONRequest(ctx, endpointSessions, &resp); err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}
	return &resp, nil
}

// TerminateSession stops a playback session. reason is shown to the user on
// their player.
func (c *PlexClient) TerminateSession(ctx context.Context, sessionID, reason string) error {
	query := url.Values{}
	query.Set("sessionId", sessionID)
	query.Set("reason", reason)

	err := c.doRequest(ctx, requestConfig{
		method:      http.MethodGet,
		path:        endpointTerminate,
		query:       query,
		expectNoErr: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("terminate session %s: %w", sessionID, err)
	}
	return nil
}

// doRequestWithRateLimit executes req, retrying on HTTP 429 with exponential
// back-off (1s, 2s, 4s, ...). A Retry-After header in seconds overrides the
// computed delay.
func (c *PlexClient) doRequestWithRateLimit(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		resp.Body.Close()

		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("%w after %d retries", ErrRateLimited, c.maxRetries)
		}

		retryDelay := c.baseDelay * (1 << attempt)
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && seconds >= 0 {
				retryDelay = time.Duration(seconds) * time.Second
			}
		}

		logging.Warn().
			Dur("retry_delay", retryDelay).
			Int("attempt", attempt+1).
			Int("max_retries", c.maxRetries).
			Str("path", req.URL.Path).
			Msg("Plex API rate limited (HTTP 429), retrying")

		timer := time.NewTimer(retryDelay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
}
