// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

// Package metrics defines the Prometheus instruments for the enforcement
// loop. Instruments are always registered; they are only exposed over HTTP
// when the metrics endpoint is enabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sharewarden"

var (
	// Poll cycle metrics
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Total number of poll cycles by outcome",
		},
		[]string{"outcome"}, // "ok", "fetch_error"
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_cycle_duration_seconds",
			Help:      "Duration of a full poll cycle (fetch, decide, dispatch)",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	SessionsObserved = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_observed",
			Help:      "Number of non-paused sessions seen in the last cycle",
		},
	)

	SessionsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_dropped_total",
			Help:      "Session records dropped before evaluation",
		},
		[]string{"reason"}, // "paused", "invalid"
	)

	// Decision metrics
	BansIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bans_issued_total",
			Help:      "Total number of bans issued by rule",
		},
		[]string{"rule"},
	)

	BansLifted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bans_lifted_total",
			Help:      "Total number of expired bans lifted",
		},
	)

	BannedStreamsBlocked = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "banned_user_blocks_total",
			Help:      "Times a banned user was found streaming and stopped",
		},
	)

	ActiveBans = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bans_active",
			Help:      "Number of entries in the ban ledger",
		},
	)

	HistoryUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_tracked_users",
			Help:      "Number of users with retained address history",
		},
	)

	// Enforcement metrics
	SessionsTerminated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_terminated_total",
			Help:      "Session termination attempts by outcome",
		},
		[]string{"outcome"}, // "success", "error", "dry_run"
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by channel and outcome",
		},
		[]string{"notifier", "outcome"},
	)

	BanStoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ban_store_operations_total",
			Help:      "Ban store load/save operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// Plex API metrics
	PlexRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plex_request_duration_seconds",
			Help:      "Duration of Plex API requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint", "outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordCycle records a completed poll cycle.
func RecordCycle(duration time.Duration, err error) {
	CycleDuration.Observe(duration.Seconds())
	if err != nil {
		CyclesTotal.WithLabelValues("fetch_error").Inc()
		return
	}
	CyclesTotal.WithLabelValues("ok").Inc()
}

// RecordTermination records one session termination attempt.
func RecordTermination(err error, dryRun bool) {
	if dryRun {
		SessionsTerminated.WithLabelValues("dry_run").Inc()
		return
	}
	SessionsTerminated.WithLabelValues(outcome(err)).Inc()
}

// RecordNotification records one notification delivery.
func RecordNotification(notifier string, err error) {
	NotificationsSent.WithLabelValues(notifier, outcome(err)).Inc()
}

// RecordBanStoreOp records a ban store load or save.
func RecordBanStoreOp(operation string, err error) {
	BanStoreOperations.WithLabelValues(operation, outcome(err)).Inc()
}

// RecordPlexRequest records a Plex API call.
func RecordPlexRequest(endpoint string, duration time.Duration, err error) {
	PlexRequestDuration.WithLabelValues(endpoint, outcome(err)).Observe(duration.Seconds())
}
