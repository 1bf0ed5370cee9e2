// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/sharewarden/internal/models"
)

type fakeSessionsAPI struct {
	resp       *models.PlexSessionsResponse
	err        error
	calls      int
	terminated []string

	// failTerminations makes the first n TerminateSession calls fail.
	failTerminations int
	attempted        []string
}

func (f *fakeSessionsAPI) GetSessions(_ context.Context) (*models.PlexSessionsResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeSessionsAPI) TerminateSession(_ context.Context, sessionID, _ string) error {
	f.calls++
	f.attempted = append(f.attempted, sessionID)
	if len(f.attempted) <= f.failTerminations {
		return errors.New("plex returned status 500")
	}
	if f.err != nil {
		return f.err
	}
	f.terminated = append(f.terminated, sessionID)
	return nil
}

func testBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 3, OpenTimeout: time.Hour, HalfOpenRequests: 1}
}

func TestCircuitBreakerClient_PassThrough(t *testing.T) {
	fake := &fakeSessionsAPI{resp: &models.PlexSessionsResponse{}}
	cbc := NewCircuitBreakerClient(fake, testBreakerSettings())

	resp, err := cbc.GetSessions(context.Background())
	if err != nil {
		t.Fatalf("GetSessions() error = %v", err)
	}
	if resp != fake.resp {
		t.Error("GetSessions() did not return the wrapped response")
	}
	if err := cbc.TerminateSession(context.Background(), "s1", "bye"); err != nil {
		t.Fatalf("TerminateSession() error = %v", err)
	}
	if len(fake.terminated) != 1 || fake.terminated[0] != "s1" {
		t.Errorf("terminated = %v, want [s1]", fake.terminated)
	}
}

func TestCircuitBreakerClient_OpensAfterConsecutiveFailures(t *testing.T) {
	fake := &fakeSessionsAPI{err: errors.New("connection refused")}
	cbc := NewCircuitBreakerClient(fake, testBreakerSettings())

	for i := 0; i < 3; i++ {
		if _, err := cbc.GetSessions(context.Background()); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if cbc.State() != gobreaker.StateOpen {
		t.Fatalf("State() = %v, want open", cbc.State())
	}

	_, err := cbc.GetSessions(context.Background())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("GetSessions() error = %v, want ErrOpenState", err)
	}
	if fake.calls != 3 {
		t.Errorf("wrapped client called %d times, want 3", fake.calls)
	}
}

func TestCircuitBreakerClient_CanceledContextDoesNotTrip(t *testing.T) {
	fake := &fakeSessionsAPI{err: context.Canceled}
	cbc := NewCircuitBreakerClient(fake, testBreakerSettings())

	for i := 0; i < 5; i++ {
		cbc.GetSessions(context.Background()) //nolint:errcheck // counting calls only
	}
	if cbc.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, want closed", cbc.State())
	}
	if fake.calls != 5 {
		t.Errorf("wrapped client called %d times, want 5", fake.calls)
	}
}

func TestCircuitBreakerClient_TerminationFailuresDoNotTrip(t *testing.T) {
	fake := &fakeSessionsAPI{resp: &models.PlexSessionsResponse{}, failTerminations: 3}
	cbc := NewCircuitBreakerClient(fake, testBreakerSettings())

	ids := []string{"s1", "s2", "s3", "s4", "s5"}
	failures := 0
	for _, id := range ids {
		if err := cbc.TerminateSession(context.Background(), id, "bye"); err != nil {
			failures++
		}
	}

	if failures != 3 {
		t.Errorf("termination failures = %d, want 3", failures)
	}
	if len(fake.attempted) != len(ids) {
		t.Errorf("attempted = %v, want all of %v", fake.attempted, ids)
	}
	if cbc.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, want closed", cbc.State())
	}
	if _, err := cbc.GetSessions(context.Background()); err != nil {
		t.Errorf("GetSessions() after termination failures error = %v, want nil", err)
	}
}
