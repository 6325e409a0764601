// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package linking manages the short-lived pairing code used to link a
// messaging account: issuing it, counting it down, refreshing it a bounded
// number of times on expiry and stopping once linking succeeded.
package linking

import (
	"time"
)

const (
	// CodeTTL is the fixed validity window of an issued code.
	CodeTTL = 5 * time.Minute

	// DefaultMaxRefreshes bounds the automatic reissues after expiry.
	DefaultMaxRefreshes = 3
)

// Code is one issued pairing code.
type Code struct {
	Value    string    `json:"value"`
	IssuedAt time.Time `json:"issued_at"`
}

// ExpiresAt returns the issue time plus CodeTTL.
func (c Code) ExpiresAt() time.Time {
	return c.IssuedAt.Add(CodeTTL)
}

// Remaining returns the validity left at now, clamped at zero.
func (c Code) Remaining(now time.Time) time.Duration {
	if d := c.ExpiresAt().Sub(now); d > 0 {
		return d
	}
	return 0
}

// Chunks splits the code into its two display halves. Codes of four
// characters or less yield a single chunk.
func (c Code) Chunks() []string {
	if len(c.Value) <= 4 {
		if c.Value == "" {
			return nil
		}
		return []string{c.Value}
	}
	return []string{c.Value[:4], c.Value[4:]}
}

// Display renders the code as "1234 5678".
func (c Code) Display() string {
	chunks := c.Chunks()
	switch len(chunks) {
	case 0:
		return ""
	case 1:
		return chunks[0]
	default:
		return chunks[0] + " " + chunks[1]
	}
}

// RefreshBudget counts expiry-triggered reissues. It is not safe for
// concurrent use; Lifecycle guards it.
type RefreshBudget struct {
	max  int
	used int
}

// NewRefreshBudget returns a budget allowing max reissues.
func NewRefreshBudget(max int) RefreshBudget {
	if max < 0 {
		max = 0
	}
	return RefreshBudget{max: max}
}

// Allow reports whether another reissue fits in the budget.
func (b RefreshBudget) Allow() bool { return b.used < b.max }

// Consume records one reissue.
func (b *RefreshBudget) Consume() { b.used++ }

// Reset clears the counter.
func (b *RefreshBudget) Reset() { b.used = 0 }

// Used returns the number of reissues recorded.
func (b RefreshBudget) Used() int { return b.used }

// Max returns the configured bound.
func (b RefreshBudget) Max() int { return b.max }
