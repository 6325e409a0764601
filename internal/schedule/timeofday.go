// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTime is used when no trigger time is set.
	DefaultTime = "09:00"
	// DefaultTimeEnd is the default end of a time window.
	DefaultTimeEnd = "17:00"
	// RealTime marks rules that run on every event instead of a schedule.
	RealTime = "Real-time"

	// UTCLayout renders ISO-8601 UTC with milliseconds.
	UTCLayout = "2006-01-02T15:04:05.000Z"

	defaultHour   = 9
	defaultMinute = 0
)

// ErrInvalidTime is returned for a malformed HH:MM value.
var ErrInvalidTime = errors.New("invalid time of day")

// ParseClock splits "HH:MM" into hour and minute. Missing components take
// the defaults 09 and 00.
func ParseClock(hhmm string) (hour, minute int, err error) {
	hour, minute = defaultHour, defaultMinute
	hhmm = strings.TrimSpace(hhmm)
	if hhmm == "" {
		return hour, minute, nil
	}

	hs, ms, hasMinute := strings.Cut(hhmm, ":")
	if hour, err = strconv.Atoi(hs); err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, hhmm)
	}
	if hasMinute && ms != "" {
		if minute, err = strconv.Atoi(ms); err != nil || minute < 0 || minute > 59 {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, hhmm)
		}
	}
	return hour, minute, nil
}

// BuildTriggerTimeUTC takes the calendar date of now in loc, sets the time
// of day to hhmm with zero seconds and renders the instant in UTC. The date
// is not preserved across a round trip.
func BuildTriggerTimeUTC(hhmm string, now time.Time, loc *time.Location) (string, error) {
	hour, minute, err := ParseClock(hhmm)
	if err != nil {
		return "", err
	}
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	t := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	return t.UTC().Format(UTCLayout), nil
}

// ParseTriggerTimeToLocal renders a stored trigger time as local HH:MM.
// Empty, RealTime and unparsable values yield DefaultTime.
func ParseTriggerTimeToLocal(s string, loc *time.Location) string {
	if s == "" || s == RealTime {
		return DefaultTime
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return DefaultTime
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("15:04")
}
