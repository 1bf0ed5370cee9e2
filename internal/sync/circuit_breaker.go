// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/sharewarden/internal/logging"
	"github.com/tomtom215/sharewarden/internal/metrics"
	"github.com/tomtom215/sharewarden/internal/models"
)

// BreakerSettings tunes CircuitBreakerClient.
type BreakerSettings struct {
	// ConsecutiveFailures opens the circuit once reached.
	ConsecutiveFailures uint32

	// OpenTimeout is how long the circuit stays open before a probe.
	OpenTimeout time.Duration

	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32
}

// DefaultBreakerSettings suit a poll interval in the tens of seconds: three
// failed cycles in a row open the circuit for two minutes.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 3,
		OpenTimeout:         2 * time.Minute,
		HalfOpenRequests:    1,
	}
}

// CircuitBreakerClient wraps a SessionsAPI with a circuit breaker around
// session fetches. While the circuit is open GetSessions fails immediately
// with gobreaker.ErrOpenState. Terminations bypass the breaker: each one is
// attempted on its own, and a failed termination neither trips the circuit
// nor blocks the rest of a batch.
type CircuitBreakerClient struct {
	client SessionsAPI
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewCircuitBreakerClient wraps client.
func NewCircuitBreakerClient(client SessionsAPI, settings BreakerSettings) *CircuitBreakerClient {
	const cbName = "plex-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: settings.HalfOpenRequests,
		Timeout:     settings.OpenTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= settings.ConsecutiveFailures
			if trip {
				logging.Warn().
					Uint32("consecutive_failures", counts.ConsecutiveFailures).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},

		// Our own shutdown is not a server failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: cbName}
}

func (cbc *CircuitBreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := cbc.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		logging.Debug().Err(err).Str("breaker", cbc.name).Msg("[CIRCUIT BREAKER] Request rejected")
	}
	return result, err
}

// castResult type-asserts a breaker result.
func castResult[T any](result any, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// State returns the current breaker state.
func (cbc *CircuitBreakerClient) State() gobreaker.State {
	return cbc.cb.State()
}

// GetSessions implements SessionsAPI.
func (cbc *CircuitBreakerClient) GetSessions(ctx context.Context) (*models.PlexSessionsResponse, error) {
	return castResult[models.PlexSessionsResponse](cbc.execute(func() (any, error) {
		return cbc.client.GetSessions(ctx)
	}))
}

// TerminateSession implements SessionsAPI. It calls the wrapped client
// directly and leaves the breaker counts untouched.
func (cbc *CircuitBreakerClient) TerminateSession(ctx context.Context, sessionID, reason string) error {
	return cbc.client.TerminateSession(ctx, sessionID, reason)
}
