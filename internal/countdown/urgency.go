// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package countdown

import "time"

// Urgency is the display tier of a countdown.
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyWarning  Urgency = "warning"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyCritical Urgency = "critical"
)

// ExpiredLabel is shown once the code has expired.
const ExpiredLabel = "Code expired - getting new one..."

// UrgencyFor maps the remaining time to a tier. Boundaries are inclusive
// and compared against the unrounded duration.
func UrgencyFor(remaining time.Duration) Urgency {
	switch {
	case remaining <= 30*time.Second:
		return UrgencyCritical
	case remaining <= 60*time.Second:
		return UrgencyUrgent
	case remaining <= 120*time.Second:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

// Label returns the text shown next to the remaining time.
func (u Urgency) Label() string {
	switch u {
	case UrgencyUrgent:
		return "Less than a minute!"
	case UrgencyCritical:
		return "Expiring soon!"
	default:
		return "Code expires in"
	}
}

// Emphasized reports whether the tier renders the time in bold.
func (u Urgency) Emphasized() bool {
	return u == UrgencyUrgent || u == UrgencyCritical
}

// Describe renders the full countdown line for remaining, or the expired
// text once nothing is left.
func Describe(remaining time.Duration) string {
	if remaining <= 0 {
		return ExpiredLabel
	}
	return UrgencyFor(remaining).Label() + " " + Format(remaining)
}
