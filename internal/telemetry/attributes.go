// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Stream attributes
	StreamURLKey           = "stream.url"
	StreamCompleteEventKey = "stream.complete_event"
	StreamOutcomeKey       = "stream.outcome"

	// Linking attributes
	LinkingTriggerKey    = "linking.trigger"
	LinkingBudgetUsedKey = "linking.budget_used"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// StreamAttributes creates attributes for a completion listener session.
func StreamAttributes(url, completeEvent string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if url != "" {
		attrs = append(attrs, attribute.String(StreamURLKey, url))
	}
	if completeEvent != "" {
		attrs = append(attrs, attribute.String(StreamCompleteEventKey, completeEvent))
	}
	return attrs
}

// LinkingAttributes creates attributes for a code issue attempt.
func LinkingAttributes(trigger string, budgetUsed int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(LinkingTriggerKey, trigger),
		attribute.Int(LinkingBudgetUsedKey, budgetUsed),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
