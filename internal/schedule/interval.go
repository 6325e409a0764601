// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package schedule converts rule schedules between the form model (local
// HH:MM, named recurrence) and the wire model (UTC timestamps, day counts).
package schedule

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Interval is a named recurrence unit.
type Interval string

const (
	None      Interval = "none"
	Once      Interval = "once"
	Daily     Interval = "daily"
	Weekly    Interval = "weekly"
	Monthly   Interval = "monthly"
	Quarterly Interval = "quarterly"
	Yearly    Interval = "yearly"
)

var intervalDays = map[Interval]int{
	None:      0,
	Once:      0,
	Daily:     1,
	Weekly:    7,
	Monthly:   30,
	Quarterly: 90,
	Yearly:    365,
}

var daysInterval = map[int]Interval{
	0:   None,
	1:   Daily,
	7:   Weekly,
	30:  Monthly,
	90:  Quarterly,
	365: Yearly,
}

// fallbackInterval is used for day counts with no canonical unit.
const fallbackInterval = Daily

// Selectable lists the units offered by the schedule form, in display order.
func Selectable() []Interval {
	return []Interval{Once, Daily, Weekly, Monthly, Quarterly, Yearly}
}

// ParseInterval validates a unit name.
func ParseInterval(s string) (Interval, error) {
	i := Interval(s)
	if !i.Valid() {
		return "", fmt.Errorf("unknown interval %q", s)
	}
	return i, nil
}

// Valid reports whether i is a known unit.
func (i Interval) Valid() bool {
	_, ok := intervalDays[i]
	return ok
}

// Days returns the day count sent to the backend. Unknown units map to 0.
func (i Interval) Days() int {
	return intervalDays[i]
}

// Days is the total unit → day-count mapping.
func Days(i Interval) int { return i.Days() }

// Repeating reports whether the unit recurs.
func (i Interval) Repeating() bool {
	return i != None && i != Once && i.Valid()
}

// Label returns the display name, e.g. "Daily".
func (i Interval) Label() string {
	return cases.Title(language.English).String(string(i))
}

// FromDays maps a backend day count to a unit: 0 is none, canonical counts
// map to their unit and every other value falls back to daily.
func FromDays(days int) Interval {
	if i, ok := daysInterval[days]; ok {
		return i
	}
	return fallbackInterval
}

// FromDaysPtr is FromDays for an optional field; an absent count is none.
func FromDaysPtr(days *int) Interval {
	if days == nil {
		return None
	}
	return FromDays(*days)
}
