// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package linking

import (
	"strings"
)

// FailureKind classifies why the machine entered StateFailed.
type FailureKind string

const (
	FailureNone                   FailureKind = ""
	FailureRateLimit              FailureKind = "rate_limit"
	FailureNetwork                FailureKind = "network"
	FailureGeneric                FailureKind = "generic"
	FailureExpiredBudgetExhausted FailureKind = "expired_budget_exhausted"
)

// User-facing texts.
const (
	MsgRateLimit       = "Connection limit reached. Please wait a few minutes and try again."
	MsgNetwork         = "Network error. Please check your internet connection and try again."
	MsgGeneric         = "Failed to generate linking code. Please try again or contact support."
	MsgConnectFallback = "Failed to connect. Please try again."
	MsgExpiredReissue  = "Code expired - getting a new one..."
	MsgExpiredTooOften = "Code expired multiple times. Please check your connection."
	MsgExpiresInMinute = "Code expires in 1 minute"
	MsgSyncStarted     = "Sync started! Let AiRA do the heavy lifting, sit back and relax."
	MsgSyncComplete    = "Chats synced successfully!"
)

// Classify maps a connect failure to its kind and inline message. Matching
// is a case-sensitive substring test on the error text; it selects a
// message only and never drives a retry.
func Classify(err error) (FailureKind, string) {
	msg := errorText(err)
	switch {
	case strings.Contains(msg, "limit") || strings.Contains(msg, "max"):
		return FailureRateLimit, MsgRateLimit
	case strings.Contains(msg, "network"):
		return FailureNetwork, MsgNetwork
	default:
		return FailureGeneric, MsgGeneric
	}
}

// errorText returns the raw message shown in the transient notice.
func errorText(err error) string {
	if err == nil || err.Error() == "" {
		return MsgConnectFallback
	}
	return err.Error()
}
