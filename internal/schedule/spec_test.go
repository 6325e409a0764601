// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var formNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		err  error
	}{
		{"disabled", DefaultSpec(), nil},
		{"enabled without interval", Spec{Enabled: true, Time: "09:00", Interval: None}, ErrIntervalRequired},
		{"daily", Spec{Enabled: true, Time: "09:00", Interval: Daily}, nil},
		{"bad time", Spec{Enabled: true, Time: "9am", Interval: Daily}, ErrInvalidTime},
		{"bad end", Spec{Enabled: true, Time: "09:00", TimeEnd: "25:00", Interval: Daily}, ErrInvalidTime},
		{"once in range", Spec{Enabled: true, Time: "09:00", Interval: Once, RunCount: 20}, nil},
		{"once zero runs", Spec{Enabled: true, Time: "09:00", Interval: Once, RunCount: 0}, ErrRunCount},
		{"once too many", Spec{Enabled: true, Time: "09:00", Interval: Once, RunCount: 21}, ErrRunCount},
		{"span preset", Spec{Enabled: true, Time: "09:00", Interval: Daily, IntervalMinutes: 120}, nil},
		{"span off preset", Spec{Enabled: true, Time: "09:00", Interval: Daily, IntervalMinutes: 45}, ErrSpanPreset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.Error(t, Spec{Enabled: true, Interval: "hourly"}.Validate())
}

func TestSpec_ToFields(t *testing.T) {
	t.Run("disabled is real-time", func(t *testing.T) {
		f, err := DefaultSpec().ToFields(formNow, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, Fields{}, f)

		data, err := json.Marshal(f)
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(data))
	})

	t.Run("weekly", func(t *testing.T) {
		f, err := Spec{Enabled: true, Time: "09:30", Interval: Weekly}.ToFields(formNow, time.UTC)
		require.NoError(t, err)
		data, err := json.Marshal(f)
		require.NoError(t, err)
		assert.JSONEq(t, `{"trigger_time":"2026-03-01T09:30:00.000Z","interval":7}`, string(data))
	})

	t.Run("once window", func(t *testing.T) {
		f, err := Spec{Enabled: true, Time: "10:00", TimeEnd: "12:00", Interval: Once, RunCount: 3}.ToFields(formNow, time.UTC)
		require.NoError(t, err)
		data, err := json.Marshal(f)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"trigger_time":"2026-03-01T10:00:00.000Z",
			"trigger_time_end":"2026-03-01T12:00:00.000Z",
			"interval":0,
			"run_count":3
		}`, string(data))
	})

	t.Run("daily span", func(t *testing.T) {
		f, err := Spec{Enabled: true, Time: "08:00", Interval: Daily, IntervalMinutes: 30}.ToFields(formNow, time.UTC)
		require.NoError(t, err)
		data, err := json.Marshal(f)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"trigger_time":"2026-03-01T08:00:00.000Z",
			"trigger_time_end":"2026-03-01T17:00:00.000Z",
			"interval":1,
			"interval_minutes":30
		}`, string(data))
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := Spec{Enabled: true, Time: "09:00", Interval: None}.ToFields(formNow, time.UTC)
		assert.ErrorIs(t, err, ErrIntervalRequired)
	})
}

func TestFromFields_RoundTrip(t *testing.T) {
	specs := []Spec{
		{Enabled: true, Time: "09:30", TimeEnd: DefaultTimeEnd, Interval: Weekly, RunCount: 1},
		{Enabled: true, Time: "10:00", TimeEnd: "12:00", Interval: Once, RunCount: 3},
		{Enabled: true, Time: "08:00", TimeEnd: "18:00", Interval: Daily, IntervalMinutes: 60, RunCount: 1},
		{Enabled: true, Time: "07:15", TimeEnd: DefaultTimeEnd, Interval: Yearly, RunCount: 1},
	}
	for _, in := range specs {
		f, err := in.ToFields(formNow, time.UTC)
		require.NoError(t, err)
		out := FromFields(f, time.UTC)
		if diff := cmp.Diff(in, out); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestFromFields_RealTime(t *testing.T) {
	rt := RealTime
	assert.Equal(t, DefaultSpec(), FromFields(Fields{}, time.UTC))
	assert.Equal(t, DefaultSpec(), FromFields(Fields{TriggerTime: &rt}, time.UTC))
}

func TestFromFields_UnmappedDaysFallBackToDaily(t *testing.T) {
	ts := "2026-03-01T09:00:00.000Z"
	five := 5
	s := FromFields(Fields{TriggerTime: &ts, Interval: &five}, time.UTC)
	assert.Equal(t, Daily, s.Interval)
}

func TestSpec_Describe(t *testing.T) {
	assert.Equal(t, RealTime, DefaultSpec().Describe())
	assert.Equal(t, "Weekly at 09:30", Spec{Enabled: true, Time: "09:30", Interval: Weekly}.Describe())
	assert.Equal(t, "Daily at 08:00 until 17:00, every 30 min",
		Spec{Enabled: true, Time: "08:00", Interval: Daily, IntervalMinutes: 30}.Describe())
	assert.Equal(t, "Once between 10:00 and 12:00, 3 run(s)",
		Spec{Enabled: true, Time: "10:00", TimeEnd: "12:00", Interval: Once, RunCount: 3}.Describe())
}
