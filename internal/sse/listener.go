// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aira-org/aira-client-os/internal/clock"
	xglog "github.com/aira-org/aira-client-os/internal/log"
	"github.com/aira-org/aira-client-os/internal/metrics"
	platformnet "github.com/aira-org/aira-client-os/internal/platform/net"
	"github.com/aira-org/aira-client-os/internal/telemetry"
)

// State is the lifecycle state of a Session.
type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateCompleted  State = "completed"
	StateErrored    State = "errored"
	StateTimedOut   State = "timed_out"
	StateClosed     State = "closed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateErrored, StateTimedOut, StateClosed:
		return true
	}
	return false
}

// Request describes one completion wait. It is copied when listening
// starts; later changes by the caller have no effect.
type Request[T any] struct {
	// URL is an absolute URL, or a path when BaseURL is set.
	URL string
	// BaseURL is prepended verbatim. A trailing slash is not stripped.
	BaseURL string
	// CompleteEvent defaults to DefaultCompleteEvent.
	CompleteEvent string
	// Timeout defaults to DefaultTimeout. It is measured from Start and
	// is not extended by incoming events.
	Timeout time.Duration

	// OnMessage receives the decoded payload of the completion event.
	OnMessage func(T)
	// OnComplete fires before the session resolves successfully.
	OnComplete func()
	// OnError fires before the session resolves with an error.
	OnError func(error)
}

func (r Request[T]) fullURL() string {
	if r.BaseURL != "" {
		return r.BaseURL + r.URL
	}
	return r.URL
}

// Listener opens completion sessions over a Dialer.
type Listener struct {
	dialer Dialer
	clock  clock.Clock
	tracer trace.Tracer
}

// Option configures a Listener.
type Option func(*Listener)

// WithClock overrides the clock used for the session timeout.
func WithClock(c clock.Clock) Option {
	return func(l *Listener) { l.clock = c }
}

// NewListener returns a listener that dials through d.
func NewListener(d Dialer, opts ...Option) *Listener {
	l := &Listener{
		dialer: d,
		clock:  clock.Real{},
		tracer: telemetry.Tracer("aira/sse"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Session is one live completion wait. Its outcome is assigned exactly once.
type Session struct {
	id        string
	startedAt time.Time
	clk       clock.Clock
	logger    zerolog.Logger
	span      trace.Span

	mu       sync.Mutex
	state    State
	terminal bool
	err      error
	conn     Conn
	timer    clock.Timer
	stopCtx  func() bool

	cleanupOnce sync.Once
	done        chan struct{}
}

// Start opens a session for req. Connection construction failures are
// reported through the same path as later connection errors, so the
// returned Session is never nil.
func Start[T any](ctx context.Context, l *Listener, req Request[T]) *Session {
	if req.CompleteEvent == "" {
		req.CompleteEvent = DefaultCompleteEvent
	}
	if req.Timeout <= 0 {
		req.Timeout = DefaultTimeout
	}
	target := req.fullURL()

	s := &Session{
		id:        uuid.NewString(),
		startedAt: l.clock.Now(),
		clk:       l.clock,
		state:     StateConnecting,
		done:      make(chan struct{}),
	}
	ctx = xglog.ContextWithSessionID(ctx, s.id)
	s.logger = xglog.WithComponentFromContext(ctx, "sse")
	ctx, s.span = l.tracer.Start(ctx, "sse.listen",
		trace.WithAttributes(telemetry.StreamAttributes(platformnet.SanitizeURL(target), req.CompleteEvent)...))

	metrics.IncSSEActive()

	timer := l.clock.AfterFunc(req.Timeout, func() {
		if !s.claim(StateTimedOut, ErrTimeout) {
			return
		}
		s.logger.Error().
			Str(xglog.FieldEvent, "sse.timeout").
			Dur("timeout", req.Timeout).
			Msg("connection timeout")
		s.cleanup()
		if req.OnError != nil {
			req.OnError(ErrTimeout)
		}
		s.resolve()
	})
	s.mu.Lock()
	s.timer = timer
	s.mu.Unlock()

	s.logger.Debug().
		Str(xglog.FieldEvent, "sse.connect").
		Str(xglog.FieldURL, platformnet.SanitizeURL(target)).
		Msg("connecting")

	conn, err := l.dialer.Dial(ctx, target, Handlers{
		OnOpen:  s.onOpen,
		OnEvent: func(ev Event) { handleEvent(s, req, ev) },
		OnError: func(cause error) { s.connectionError(req.OnError, cause) },
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "sse.dial_failed").
			Msg("failed to create connection")
		s.connectionError(req.OnError, err)
		return s
	}
	s.attach(conn)

	stop := context.AfterFunc(ctx, s.Close)
	s.mu.Lock()
	s.stopCtx = stop
	s.mu.Unlock()
	if s.isTerminal() {
		stop()
	}
	return s
}

// Listen starts a session and waits for its outcome.
func Listen[T any](ctx context.Context, l *Listener, req Request[T]) error {
	s := Start(ctx, l, req)
	return s.Wait(ctx)
}

// ID returns the session identifier used in logs and traces.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the outcome is available.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the outcome: nil for completion. Only meaningful after Done.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the session resolves or ctx ends. Ending ctx here does
// not close the session.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the session down early. It is idempotent, never invokes the
// request callbacks, and resolves the session with ErrClosed when nothing
// terminal happened before.
func (s *Session) Close() {
	if !s.claim(StateClosed, ErrClosed) {
		return
	}
	s.logger.Debug().Str(xglog.FieldEvent, "sse.closed").Msg("session closed by owner")
	s.cleanup()
	s.resolve()
}

func (s *Session) onOpen() {
	s.mu.Lock()
	if s.state == StateConnecting {
		s.state = StateOpen
	}
	s.mu.Unlock()
	s.logger.Debug().Str(xglog.FieldEvent, "sse.open").Msg("connection established")
}

func handleEvent[T any](s *Session, req Request[T], ev Event) {
	switch ev.Type {
	case req.CompleteEvent:
		metrics.RecordSSEEvent("complete")
		if !s.claim(StateCompleted, nil) {
			return
		}
		s.logger.Debug().
			Str(xglog.FieldEvent, "sse.complete").
			Str("complete_event", req.CompleteEvent).
			Msg("completion event received")
		s.cleanup()

		var payload T
		if err := json.Unmarshal([]byte(ev.Data), &payload); err == nil {
			if req.OnMessage != nil {
				req.OnMessage(payload)
			}
		} else {
			s.logger.Debug().Err(err).Msg("completing without data")
		}
		if req.OnComplete != nil {
			req.OnComplete()
		}
		s.resolve()

	case ErrorEvent:
		metrics.RecordSSEEvent("error")
		s.connectionError(req.OnError, fmt.Errorf("server sent error event: %s", ev.Data))

	default:
		metrics.RecordSSEEvent("ignored")
		s.logger.Debug().
			Str(xglog.FieldEvent, "sse.ignored").
			Str("type", ev.Type).
			Str("data", ev.Data).
			Msg("generic message received (ignoring)")
	}
}

func (s *Session) connectionError(onError func(error), cause error) {
	err := fmt.Errorf("%w: %v", ErrConnection, cause)
	if !s.claim(StateErrored, err) {
		return
	}
	s.logger.Error().
		Err(cause).
		Str(xglog.FieldEvent, "sse.error").
		Msg("connection error occurred")
	s.cleanup()
	if onError != nil {
		onError(err)
	}
	s.resolve()
}

// claim assigns the outcome. Only the first caller wins.
func (s *Session) claim(state State, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal {
		return false
	}
	s.terminal = true
	s.state = state
	s.err = err
	return true
}

func (s *Session) isTerminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

// attach records the connection, closing it at once if the session already
// ended while dialing.
func (s *Session) attach(conn Conn) {
	s.mu.Lock()
	s.conn = conn
	terminal := s.terminal
	s.mu.Unlock()
	if terminal {
		s.closeConn(conn)
	}
}

func (s *Session) cleanup() {
	s.cleanupOnce.Do(func() {
		s.logger.Debug().Msg("cleaning up connection")
		s.mu.Lock()
		timer, conn, stop := s.timer, s.conn, s.stopCtx
		s.mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		if stop != nil {
			stop()
		}
		if conn != nil {
			s.closeConn(conn)
		}
	})
}

func (s *Session) closeConn(conn Conn) {
	if err := conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("close connection")
	}
}

func (s *Session) resolve() {
	s.mu.Lock()
	state, err := s.state, s.err
	s.mu.Unlock()

	metrics.RecordSSEOutcome(string(state), s.clk.Now().Sub(s.startedAt))
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, string(state))
	} else {
		s.span.SetStatus(codes.Ok, string(state))
	}
	s.span.End()
	close(s.done)
}
