// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package schedule

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// SpanPresets are the allowed repeat periods, in minutes, inside a daily
// time span.
var SpanPresets = []int{15, 30, 60, 120, 180}

// Run count bounds for one-time windows.
const (
	MinRunCount = 1
	MaxRunCount = 20
)

var (
	// ErrIntervalRequired is returned when a schedule is enabled without a
	// recurrence.
	ErrIntervalRequired = errors.New("scheduled rules need a repeat interval")
	// ErrRunCount is returned for a run count outside its bounds.
	ErrRunCount = errors.New("run count out of range")
	// ErrSpanPreset is returned for a repeat period that is not a preset.
	ErrSpanPreset = errors.New("unsupported repeat period")
)

// Spec is the schedule part of the rule form.
type Spec struct {
	Enabled bool
	// Time is the local start time, HH:MM.
	Time string
	// TimeEnd closes the window for Once and the span for repeating units.
	TimeEnd  string
	Interval Interval
	// IntervalMinutes repeats the rule inside the span. Zero disables it.
	IntervalMinutes int
	// RunCount is how many times a Once rule runs inside its window.
	RunCount int
}

// DefaultSpec is the form state before the user touches it: real-time.
func DefaultSpec() Spec {
	return Spec{
		Time:     DefaultTime,
		TimeEnd:  DefaultTimeEnd,
		Interval: None,
		RunCount: MinRunCount,
	}
}

// Validate checks an enabled schedule. A disabled one is always valid.
func (s Spec) Validate() error {
	if !s.Enabled {
		return nil
	}
	if !s.Interval.Valid() {
		return fmt.Errorf("unknown interval %q", s.Interval)
	}
	if s.Interval == None {
		return ErrIntervalRequired
	}
	if _, _, err := ParseClock(s.Time); err != nil {
		return err
	}
	if s.TimeEnd != "" {
		if _, _, err := ParseClock(s.TimeEnd); err != nil {
			return err
		}
	}
	if s.Interval == Once && (s.RunCount < MinRunCount || s.RunCount > MaxRunCount) {
		return fmt.Errorf("%w: %d (allowed %d-%d)", ErrRunCount, s.RunCount, MinRunCount, MaxRunCount)
	}
	if s.Interval.Repeating() && s.IntervalMinutes != 0 && !slices.Contains(SpanPresets, s.IntervalMinutes) {
		return fmt.Errorf("%w: %d minutes", ErrSpanPreset, s.IntervalMinutes)
	}
	return nil
}

// Fields are the schedule fields of a rule on the wire.
type Fields struct {
	TriggerTime     *string `json:"trigger_time,omitempty"`
	TriggerTimeEnd  *string `json:"trigger_time_end,omitempty"`
	Interval        *int    `json:"interval,omitempty"`
	IntervalMinutes *int    `json:"interval_minutes,omitempty"`
	RunCount        *int    `json:"run_count,omitempty"`
}

// ToFields validates s and converts it to wire fields using the date of
// now in loc. A disabled schedule yields empty fields.
func (s Spec) ToFields(now time.Time, loc *time.Location) (Fields, error) {
	if !s.Enabled {
		return Fields{}, nil
	}
	if err := s.Validate(); err != nil {
		return Fields{}, err
	}

	start, err := BuildTriggerTimeUTC(s.Time, now, loc)
	if err != nil {
		return Fields{}, err
	}
	f := Fields{
		TriggerTime: &start,
		Interval:    ptr(s.Interval.Days()),
	}

	switch {
	case s.Interval == Once:
		end, err := BuildTriggerTimeUTC(timeEndOrDefault(s.TimeEnd), now, loc)
		if err != nil {
			return Fields{}, err
		}
		f.TriggerTimeEnd = &end
		f.RunCount = ptr(s.RunCount)
	case s.IntervalMinutes > 0:
		end, err := BuildTriggerTimeUTC(timeEndOrDefault(s.TimeEnd), now, loc)
		if err != nil {
			return Fields{}, err
		}
		f.TriggerTimeEnd = &end
		f.IntervalMinutes = ptr(s.IntervalMinutes)
	}
	return f, nil
}

// FromFields rebuilds the form state from stored fields. A rule with a
// trigger time and a zero day count is a one-time rule.
func FromFields(f Fields, loc *time.Location) Spec {
	s := DefaultSpec()
	if f.TriggerTime == nil || *f.TriggerTime == "" || *f.TriggerTime == RealTime {
		return s
	}

	s.Enabled = true
	s.Time = ParseTriggerTimeToLocal(*f.TriggerTime, loc)
	s.Interval = FromDaysPtr(f.Interval)
	if s.Interval == None {
		s.Interval = Once
	}
	if f.TriggerTimeEnd != nil && *f.TriggerTimeEnd != "" {
		s.TimeEnd = ParseTriggerTimeToLocal(*f.TriggerTimeEnd, loc)
	}
	if f.IntervalMinutes != nil {
		s.IntervalMinutes = *f.IntervalMinutes
	}
	if f.RunCount != nil {
		s.RunCount = *f.RunCount
	}
	return s
}

// Describe renders a one-line summary such as "Weekly at 09:30".
func (s Spec) Describe() string {
	if !s.Enabled {
		return RealTime
	}
	out := s.Interval.Label() + " at " + s.Time
	switch {
	case s.Interval == Once && s.TimeEnd != "":
		out = fmt.Sprintf("Once between %s and %s, %d run(s)", s.Time, s.TimeEnd, s.RunCount)
	case s.IntervalMinutes > 0:
		out += fmt.Sprintf(" until %s, every %d min", timeEndOrDefault(s.TimeEnd), s.IntervalMinutes)
	}
	return out
}

func timeEndOrDefault(s string) string {
	if s == "" {
		return DefaultTimeEnd
	}
	return s
}

func ptr[T any](v T) *T { return &v }
