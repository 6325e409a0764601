// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package countdown tracks the time left until a fixed expiry instant and
// raises threshold warnings and a single expiry notification.
package countdown

import (
	"fmt"
	"sync"
	"time"

	"github.com/aira-org/aira-client-os/internal/clock"
)

// TickInterval is the evaluation period of a running countdown.
const TickInterval = time.Second

// WarningThresholds are the whole-second marks that raise OnWarning.
var WarningThresholds = []int{120, 60, 30}

// Handlers receive countdown notifications. They run without internal
// locks held and may call Stop.
type Handlers struct {
	// OnTick receives the clamped remaining time on every evaluation.
	OnTick func(remaining time.Duration)
	// OnWarning receives the threshold, in seconds, that was just hit.
	OnWarning func(secondsLeft int)
	// OnExpired fires once when the remaining time reaches zero.
	OnExpired func()
}

// Countdown evaluates the remaining time once per TickInterval.
type Countdown struct {
	clk       clock.Clock
	expiresAt time.Time
	h         Handlers

	mu        sync.Mutex
	ticker    clock.Timer
	started   bool
	stopped   bool
	expired   bool
	warned    map[int]bool
	remaining time.Duration
}

// New returns a countdown towards expiresAt. It does nothing until Start.
func New(clk clock.Clock, expiresAt time.Time, h Handlers) *Countdown {
	return &Countdown{
		clk:       clk,
		expiresAt: expiresAt,
		h:         h,
		warned:    make(map[int]bool, len(WarningThresholds)),
		remaining: clampRemaining(expiresAt.Sub(clk.Now())),
	}
}

// Start evaluates immediately and then on every tick. Calling Start on a
// running or stopped countdown has no effect.
func (c *Countdown) Start() {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.evaluate()

	ticker := c.clk.Every(TickInterval, c.evaluate)
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		ticker.Stop()
		return
	}
	c.ticker = ticker
	c.mu.Unlock()
}

// Stop halts the ticker. No handler runs after Stop returns, except one
// that was already executing.
func (c *Countdown) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	ticker := c.ticker
	c.ticker = nil
	c.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
	}
}

// ExpiresAt returns the instant the countdown runs towards.
func (c *Countdown) ExpiresAt() time.Time { return c.expiresAt }

// Remaining returns the time left as of the last evaluation.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Expired reports whether the expiry notification has been raised.
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

func (c *Countdown) evaluate() {
	remaining := clampRemaining(c.expiresAt.Sub(c.clk.Now()))
	secs := int(remaining / time.Second)

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.remaining = remaining

	warn := 0
	for _, threshold := range WarningThresholds {
		if secs == threshold && !c.warned[threshold] {
			c.warned[threshold] = true
			warn = threshold
			break
		}
	}
	fireExpired := remaining == 0 && !c.expired
	if fireExpired {
		c.expired = true
	}
	c.mu.Unlock()

	if c.h.OnTick != nil {
		c.h.OnTick(remaining)
	}
	if warn != 0 && c.h.OnWarning != nil && !c.isStopped() {
		c.h.OnWarning(warn)
	}
	if fireExpired && c.h.OnExpired != nil && !c.isStopped() {
		c.h.OnExpired()
	}
}

func (c *Countdown) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func clampRemaining(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

// Format renders d as M:SS, truncated to whole seconds.
func Format(d time.Duration) string {
	total := int(clampRemaining(d) / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
