// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sseSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aira_sse_sessions_total",
		Help: "Completion listener sessions by terminal outcome",
	}, []string{"outcome"}) // outcome=completed|errored|timed_out|closed

	sseSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aira_sse_sessions_active",
		Help: "Completion listener sessions that have not reached a terminal state",
	})

	sseSessionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aira_sse_session_duration_seconds",
		Help:    "Time from connect to terminal outcome",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"outcome"})

	sseEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aira_sse_events_total",
		Help: "Server-sent events received by kind",
	}, []string{"kind"}) // kind=complete|error|ignored
)

// IncSSEActive marks a new session as in flight.
func IncSSEActive() {
	sseSessionsActive.Inc()
}

// RecordSSEOutcome records the single terminal outcome of a session.
func RecordSSEOutcome(outcome string, elapsed time.Duration) {
	sseSessionsActive.Dec()
	sseSessionsTotal.WithLabelValues(outcome).Inc()
	sseSessionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RecordSSEEvent counts a received event.
func RecordSSEEvent(kind string) {
	sseEventsTotal.WithLabelValues(kind).Inc()
}
