// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package linking

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aira-org/aira-client-os/internal/clock"
	xglog "github.com/aira-org/aira-client-os/internal/log"
)

// DefaultPollInterval is the pause between two status checks.
const DefaultPollInterval = 3 * time.Second

// StatusState is the backend's view of the link.
type StatusState string

const (
	StatusPending StatusState = "pending"
	StatusSyncing StatusState = "syncing"
	StatusSynced  StatusState = "synced"
	StatusError   StatusState = "error"
)

// Linked reports whether the account is paired.
func (s StatusState) Linked() bool {
	return s == StatusSyncing || s == StatusSynced
}

// Status is one link status report.
type Status struct {
	State   StatusState `json:"status"`
	Message string      `json:"message,omitempty"`
}

// StatusSource reports the current link status.
type StatusSource interface {
	LinkStatus(ctx context.Context) (Status, error)
}

// StatusSourceFunc adapts a function to StatusSource.
type StatusSourceFunc func(ctx context.Context) (Status, error)

// LinkStatus calls f.
func (f StatusSourceFunc) LinkStatus(ctx context.Context) (Status, error) { return f(ctx) }

// Poller asks a StatusSource for the link status at a steady pace until the
// account is synced. Pacing follows the injected clock.
type Poller struct {
	source  StatusSource
	limiter *rate.Limiter
	clock   clock.Clock
	logger  zerolog.Logger
}

// PollerOption customises a Poller.
type PollerOption func(*Poller)

// WithPollerClock replaces the wall clock used for pacing.
func WithPollerClock(c clock.Clock) PollerOption {
	return func(p *Poller) { p.clock = c }
}

// NewPoller returns a poller checking src once per interval.
func NewPoller(src StatusSource, interval time.Duration, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p := &Poller{
		source:  src,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		clock:   clock.Real{},
		logger:  xglog.WithComponent("linking.poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until the source reports StatusSynced or ctx ends. Every
// report, including failures mapped to StatusError, is passed to onStatus.
// It returns nil once synced.
func (p *Poller) Run(ctx context.Context, onStatus func(Status)) error {
	for {
		if err := p.wait(ctx); err != nil {
			return err
		}

		st, err := p.source.LinkStatus(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn().
				Err(err).
				Str(xglog.FieldEvent, "linking.poll_failed").
				Msg("link status check failed")
			st = Status{State: StatusError, Message: err.Error()}
		}

		if onStatus != nil {
			onStatus(st)
		}
		if st.State == StatusSynced {
			p.logger.Info().Str(xglog.FieldEvent, "linking.synced").Msg("link synced, polling stopped")
			return nil
		}
	}
}

// wait blocks until the limiter grants the next poll slot on p.clock.
func (p *Poller) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := p.clock.Now()
	r := p.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	slot := make(chan struct{})
	timer := p.clock.AfterFunc(delay, func() { close(slot) })
	select {
	case <-slot:
		return nil
	case <-ctx.Done():
		timer.Stop()
		r.CancelAt(p.clock.Now())
		return ctx.Err()
	}
}
