// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

// Package poller runs the enforcement loop: fetch a snapshot, let the
// detection engine decide, dispatch the resulting actions, sleep, repeat.
//
// Cycles never overlap. Cancelling the context passed to Serve stops the
// loop between cycles; a cycle already in progress runs to completion.
package poller

import (
	"context"
	"time"

	"github.com/tomtom215/sharewarden/internal/detection"
	"github.com/tomtom215/sharewarden/internal/enforcement"
	"github.com/tomtom215/sharewarden/internal/logging"
	"github.com/tomtom215/sharewarden/internal/metrics"
	"github.com/tomtom215/sharewarden/internal/models"
)

// SnapshotSource provides the current non-paused sessions grouped by user.
type SnapshotSource interface {
	CurrentSessions(ctx context.Context) (models.UserSnapshot, error)
}

// Dispatcher executes engine actions.
type Dispatcher interface {
	Dispatch(ctx context.Context, actions []detection.Action) enforcement.Result
}

// Poller owns the detection state and drives it one cycle at a time.
type Poller struct {
	source     SnapshotSource
	engine     *detection.Engine
	state      *detection.State
	dispatcher Dispatcher
	interval   time.Duration
	now        func() time.Time
	name       string
}

// New creates a poller. state holds the ledger loaded at startup.
func New(source SnapshotSource, engine *detection.Engine, state *detection.State, dispatcher Dispatcher, interval time.Duration) *Poller {
	return &Poller{
		source:     source,
		engine:     engine,
		state:      state,
		dispatcher: dispatcher,
		interval:   interval,
		now:        time.Now,
		name:       "session-poller",
	}
}

// State exposes the detection state. It must not be used while Serve is
// running.
func (p *Poller) State() *detection.State {
	return p.state
}

// RunCycle performs one snapshot, decide, dispatch pass. A snapshot error is
// logged and returned without touching the detection state.
func (p *Poller) RunCycle(ctx context.Context) error {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.Ctx(ctx)
	start := p.now()

	snapshot, err := p.source.CurrentSessions(ctx)
	if err != nil {
		metrics.RecordCycle(time.Since(start), err)
		log.Warn().Err(err).Msg("Could not fetch Plex sessions, skipping cycle")
		return err
	}

	actions := p.engine.RunCycle(p.state, snapshot, p.now())
	res := p.dispatcher.Dispatch(ctx, actions)

	duration := time.Since(start)
	metrics.RecordCycle(duration, nil)
	log.Info().
		Int("users", len(snapshot)).
		Int("sessions", snapshot.SessionCount()).
		Int("actions", len(actions)).
		Int("terminated", res.Terminated).
		Int("termination_failures", res.TerminationFailures).
		Int("active_bans", p.state.Bans.Len()).
		Dur("duration", duration).
		Msg("Poll cycle complete")
	return nil
}

// Serve implements suture.Service. Each cycle runs on a context detached
// from ctx so shutdown never interrupts it.
func (p *Poller) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", p.interval).Msg("Session poller started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Session poller stopped")
			return ctx.Err()
		case <-timer.C:
		}

		p.RunCycle(context.WithoutCancel(ctx)) //nolint:errcheck // logged inside

		timer.Reset(p.interval)
	}
}

// String implements fmt.Stringer for suture logs.
func (p *Poller) String() string {
	return p.name
}
