// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clock

import (
	"sort"
	"sync"
	"time"
)

// Mock provides deterministic time control for testing.
// Callbacks run synchronously on the goroutine calling Advance, in
// deadline order.
type Mock struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	pending []*mockTimer
}

// NewMock creates a mock clock starting at the given time.
func NewMock(start time.Time) *Mock {
	return &Mock{now: start}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Mock) AfterFunc(d time.Duration, f func()) Timer {
	return m.register(d, 0, f)
}

func (m *Mock) Every(d time.Duration, f func()) Timer {
	if d <= 0 {
		panic("clock: non-positive interval for Every")
	}
	return m.register(d, d, f)
}

func (m *Mock) register(d, period time.Duration, f func()) *mockTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &mockTimer{
		clock:    m,
		seq:      m.seq,
		deadline: m.now.Add(d),
		period:   period,
		fn:       f,
	}
	m.pending = append(m.pending, t)
	return t
}

// Pending reports the number of active timers and tickers.
func (m *Mock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Advance moves the clock forward by d, firing every timer whose deadline
// falls inside the window. Tickers fire once per elapsed period. Timers
// registered by callbacks are honoured if their deadline is still within
// the window.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		if next.deadline.After(m.now) {
			m.now = next.deadline
		}
		if next.period > 0 {
			next.deadline = next.deadline.Add(next.period)
		} else {
			m.removeLocked(next)
		}
		fn := next.fn
		m.mu.Unlock()

		fn()
	}
}

// Set moves the clock to t, firing due timers like Advance.
func (m *Mock) Set(t time.Time) {
	m.Advance(t.Sub(m.Now()))
}

func (m *Mock) nextDueLocked(target time.Time) *mockTimer {
	if len(m.pending) == 0 {
		return nil
	}
	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].deadline.Equal(m.pending[j].deadline) {
			return m.pending[i].seq < m.pending[j].seq
		}
		return m.pending[i].deadline.Before(m.pending[j].deadline)
	})
	first := m.pending[0]
	if first.deadline.After(target) {
		return nil
	}
	return first
}

func (m *Mock) removeLocked(t *mockTimer) bool {
	for i, p := range m.pending {
		if p == t {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return true
		}
	}
	return false
}

type mockTimer struct {
	clock    *Mock
	seq      int
	deadline time.Time
	period   time.Duration
	fn       func()
}

func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.clock.removeLocked(t)
}
