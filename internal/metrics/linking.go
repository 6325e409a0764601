// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	linkingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aira_linking_transitions_total",
		Help: "Linking code lifecycle state transitions",
	}, []string{"from", "to"})

	linkingCodesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aira_linking_codes_issued_total",
		Help: "Linking codes issued by trigger",
	}, []string{"trigger"}) // trigger=initial|auto|manual|retry

	linkingConnectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aira_linking_connect_failures_total",
		Help: "Failed connect calls by classified kind",
	}, []string{"kind"})

	linkingBudgetExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aira_linking_budget_exhausted_total",
		Help: "Times the automatic refresh budget ran out",
	})
)

// RecordLinkingTransition counts one state change.
func RecordLinkingTransition(from, to string) {
	linkingTransitions.WithLabelValues(from, to).Inc()
}

// RecordCodeIssued counts a successfully issued code.
func RecordCodeIssued(trigger string) {
	linkingCodesIssued.WithLabelValues(trigger).Inc()
}

// RecordConnectFailure counts a failed connect call.
func RecordConnectFailure(kind string) {
	linkingConnectFailures.WithLabelValues(kind).Inc()
}

// RecordBudgetExhausted counts a terminal expiry.
func RecordBudgetExhausted() {
	linkingBudgetExhausted.Inc()
}
