// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	id1 := GenerateCorrelationID()
	id2 := GenerateCorrelationID()
	if len(id1) != 8 {
		t.Errorf("len(id) = %d, want 8", len(id1))
	}
	if id1 == id2 {
		t.Error("expected unique correlation IDs")
	}
}

func TestCorrelationIDContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if id := CorrelationIDFromContext(ctx); id != "" {
		t.Errorf("CorrelationIDFromContext(empty) = %q, want empty", id)
	}

	ctx = ContextWithCorrelationID(ctx, "cycle123")
	if id := CorrelationIDFromContext(ctx); id != "cycle123" {
		t.Errorf("CorrelationIDFromContext = %q, want %q", id, "cycle123")
	}

	ctx = ContextWithNewCorrelationID(context.Background())
	if id := CorrelationIDFromContext(ctx); len(id) != 8 {
		t.Errorf("new correlation id = %q, want 8 characters", id)
	}
}

func TestCtx_AddsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := ContextWithCorrelationID(context.Background(), "abcd1234")
	Ctx(ctx).Info().Msg("cycle complete")

	if !strings.Contains(buf.String(), `"correlation_id":"abcd1234"`) {
		t.Errorf("output missing correlation_id: %s", buf.String())
	}
}
