// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMock_AfterFuncFiresOnce(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMock(start)

	var fired int
	m.AfterFunc(5*time.Second, func() { fired++ })

	m.Advance(4 * time.Second)
	assert.Equal(t, 0, fired)

	m.Advance(time.Second)
	assert.Equal(t, 1, fired)

	m.Advance(time.Hour)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, m.Pending())
}

func TestMock_StopPreventsCallback(t *testing.T) {
	m := NewMock(time.Unix(0, 0))

	var fired bool
	timer := m.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop reports nothing to stop")

	m.Advance(time.Minute)
	assert.False(t, fired)
}

func TestMock_EveryFiresPerPeriod(t *testing.T) {
	start := time.Unix(1000, 0)
	m := NewMock(start)

	var seen []time.Time
	ticker := m.Every(time.Second, func() { seen = append(seen, m.Now()) })

	m.Advance(3500 * time.Millisecond)
	require.Len(t, seen, 3)
	assert.Equal(t, start.Add(time.Second), seen[0])
	assert.Equal(t, start.Add(3*time.Second), seen[2])
	assert.Equal(t, start.Add(3500*time.Millisecond), m.Now())

	ticker.Stop()
	m.Advance(10 * time.Second)
	assert.Len(t, seen, 3)
}

func TestMock_CallbackCanRegisterTimers(t *testing.T) {
	m := NewMock(time.Unix(0, 0))

	var order []string
	m.AfterFunc(time.Second, func() {
		order = append(order, "first")
		m.AfterFunc(time.Second, func() { order = append(order, "second") })
	})

	m.Advance(2 * time.Second)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestMock_CallbackCanStopItself(t *testing.T) {
	m := NewMock(time.Unix(0, 0))

	var count int
	var ticker Timer
	ticker = m.Every(time.Second, func() {
		count++
		if count == 2 {
			ticker.Stop()
		}
	})

	m.Advance(10 * time.Second)
	assert.Equal(t, 2, count)
}

func TestReal_EveryStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	var ticks atomic.Int32
	ticker := Real{}.Every(5*time.Millisecond, func() { ticks.Add(1) })

	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, time.Millisecond)
	assert.True(t, ticker.Stop())
	assert.False(t, ticker.Stop())
}

func TestReal_AfterFunc(t *testing.T) {
	done := make(chan struct{})
	Real{}.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AfterFunc did not fire")
	}
}
