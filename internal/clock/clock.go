// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package clock abstracts time so that timers and tickers can be driven
// deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock is the time source used by timers, countdowns and pollers.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer

	// Every calls f every d until the returned Timer is stopped.
	// Calls never overlap.
	Every(d time.Duration, f func()) Timer
}

// Timer is a handle for a pending AfterFunc or Every registration.
type Timer interface {
	// Stop prevents future calls. It returns false if the timer had
	// already fired (one-shot) or was already stopped.
	Stop() bool
}

// Real uses the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

func (Real) Every(d time.Duration, f func()) Timer {
	t := &realTicker{
		ticker: time.NewTicker(d),
		stop:   make(chan struct{}),
	}
	go t.run(f)
	return t
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) Stop() bool { return r.t.Stop() }

type realTicker struct {
	ticker *time.Ticker
	stop   chan struct{}
	once   sync.Once
}

func (r *realTicker) run(f func()) {
	for {
		select {
		case <-r.stop:
			return
		case <-r.ticker.C:
			// Stop may have raced with the tick.
			select {
			case <-r.stop:
				return
			default:
			}
			f()
		}
	}
}

func (r *realTicker) Stop() bool {
	stopped := false
	r.once.Do(func() {
		r.ticker.Stop()
		close(r.stop)
		stopped = true
	})
	return stopped
}
