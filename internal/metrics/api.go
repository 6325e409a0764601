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
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aira_api_requests_total",
		Help: "Backend API calls by operation and outcome",
	}, []string{"operation", "outcome"}) // outcome=success|failure|circuit_open

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aira_api_request_duration_seconds",
		Help:    "Backend API call latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// RecordAPIRequest records a finished backend call.
func RecordAPIRequest(operation, outcome string, elapsed time.Duration) {
	apiRequestsTotal.WithLabelValues(operation, outcome).Inc()
	apiRequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
