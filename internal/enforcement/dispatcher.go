// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

// Package enforcement carries out the actions decided by the detection
// engine: terminating Plex sessions, notifying the operator and persisting
// the ban ledger.
//
// Every action is isolated. A failed termination, notification or save is
// logged and counted, and the remaining actions still run. Nothing here
// feeds back into the engine's state.
package enforcement

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/tomtom215/sharewarden/internal/banstore"
	"github.com/tomtom215/sharewarden/internal/detection"
	"github.com/tomtom215/sharewarden/internal/logging"
	"github.com/tomtom215/sharewarden/internal/metrics"
)

// Terminator stops a Plex playback session.
type Terminator interface {
	TerminateSession(ctx context.Context, sessionID, reason string) error
}

// Result counts what one Dispatch call did.
type Result struct {
	Terminated          int
	TerminationFailures int
	Notified            int
	NotifyFailures      int
	Persisted           int
	PersistFailures     int
}

// Dispatcher executes engine actions in order.
type Dispatcher struct {
	terminator Terminator
	notifier   Notifier
	store      banstore.Store
	dryRun     bool
	limiter    *rate.Limiter
}

// Options configures a Dispatcher.
type Options struct {
	// DryRun logs terminations instead of performing them.
	DryRun bool

	// TerminationsPerSecond paces termination calls. Zero means unpaced.
	TerminationsPerSecond float64
}

// NewDispatcher creates a dispatcher. notifier may be nil.
func NewDispatcher(terminator Terminator, notifier Notifier, store banstore.Store, opts Options) *Dispatcher {
	d := &Dispatcher{
		terminator: terminator,
		notifier:   notifier,
		store:      store,
		dryRun:     opts.DryRun,
	}
	if opts.TerminationsPerSecond > 0 {
		burst := int(opts.TerminationsPerSecond)
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(opts.TerminationsPerSecond), burst)
	}
	return d
}

// Dispatch executes actions in order and reports the outcome counts.
func (d *Dispatcher) Dispatch(ctx context.Context, actions []detection.Action) Result {
	var res Result
	for _, action := range actions {
		switch a := action.(type) {
		case detection.KillSessions:
			d.killSessions(ctx, a, &res)
		case detection.Notify:
			d.notify(ctx, a, &res)
		case detection.PersistBans:
			d.persistBans(ctx, a, &res)
		default:
			logging.Ctx(ctx).Error().Str("action", detection.ActionKind(action)).Msg("Unhandled action type")
		}
	}
	return res
}

func (d *Dispatcher) killSessions(ctx context.Context, a detection.KillSessions, res *Result) {
	log := logging.Ctx(ctx)
	for _, s := range a.Sessions {
		if d.dryRun {
			log.Info().
				Str("username", a.Username).
				Str("session_id", s.SessionID).
				Str("ip_address", s.IPAddress.String()).
				Str("reason", a.Message).
				Msg("Dry run: would terminate session")
			metrics.RecordTermination(nil, true)
			continue
		}

		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				log.Warn().Err(err).Msg("Termination pacing interrupted")
			}
		}

		err := d.terminator.TerminateSession(ctx, s.SessionID, a.Message)
		metrics.RecordTermination(err, false)
		if err != nil {
			res.TerminationFailures++
			log.Error().Err(err).
				Str("username", a.Username).
				Str("session_id", s.SessionID).
				Str("title", s.Title).
				Str("device", s.Device).
				Str("ip_address", s.IPAddress.String()).
				Msg("Failed to terminate session")
			continue
		}
		res.Terminated++
		log.Info().
			Str("username", a.Username).
			Str("session_id", s.SessionID).
			Str("title", s.Title).
			Str("ip_address", s.IPAddress.String()).
			Msg("Terminated session")
	}
}

func (d *Dispatcher) notify(ctx context.Context, a detection.Notify, res *Result) {
	logging.Ctx(ctx).Info().Str("notice", a.Text).Msg("Enforcement notice")
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Send(ctx, a.Text); err != nil {
		res.NotifyFailures++
		return
	}
	res.Notified++
}

func (d *Dispatcher) persistBans(ctx context.Context, a detection.PersistBans, res *Result) {
	err := d.store.Save(ctx, a.Bans)
	metrics.RecordBanStoreOp("save", err)
	if err != nil {
		res.PersistFailures++
		logging.Ctx(ctx).Error().Err(err).Int("bans", len(a.Bans)).Msg("Failed to persist bans, keeping in-memory ledger")
		return
	}
	res.Persisted++
}
