// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package sync

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sharewarden/internal/metrics"
)

type requestConfig struct {
	method      string
	path        string
	query       url.Values
	acceptJSON  bool
	expectNoErr bool // accept 204 No Content as well as 200 OK
}

// doRequest executes a Plex API request and decodes the body into result
// when result is non-nil.
func (c *PlexClient) doRequest(ctx context.Context, cfg requestConfig, result any) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordPlexRequest(cfg.path, time.Since(start), err)
	}()

	req, err := http.NewRequestWithContext(ctx, cfg.method, c.baseURL+cfg.path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("X-Plex-Token", c.token)
	if cfg.acceptJSON {
		req.Header.Set("Accept", "application/json")
	}
	if len(cfg.query) > 0 {
		req.URL.RawQuery = cfg.query.Encode()
	}

	resp, err := c.doRequestWithRateLimit(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case cfg.expectNoErr && resp.StatusCode == http.StatusNoContent:
	default:
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *PlexClient) doJSONRequest(ctx context.Context, path string, result any) error {
	return c.doRequest(ctx, requestConfig{
		method:     http.MethodGet,
		path:       path,
		acceptJSON: true,
	}, result)
}
