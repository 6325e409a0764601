// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package linking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aira-org/aira-client-os/internal/clock"
	"github.com/aira-org/aira-client-os/internal/countdown"
	"github.com/aira-org/aira-client-os/internal/fsm"
	xglog "github.com/aira-org/aira-client-os/internal/log"
	"github.com/aira-org/aira-client-os/internal/metrics"
	"github.com/aira-org/aira-client-os/internal/telemetry"
)

// State is a linking lifecycle state.
type State string

const (
	StateIdle         State = "idle"
	StateIssuing      State = "issuing"
	StateDisplayed    State = "displayed"
	StateExpiringSoon State = "expiring_soon"
	StateExpired      State = "expired"
	StateReissuing    State = "reissuing"
	StateLinked       State = "linked"
	StateFailed       State = "failed"
)

var (
	// ErrStopped is returned by operations on a stopped lifecycle.
	ErrStopped = errors.New("linking lifecycle stopped")
	// ErrLinked is returned when a code is requested after linking succeeded.
	ErrLinked = errors.New("account already linked")
)

type trigger string

const (
	trigMount       trigger = "mount"
	trigRestore     trigger = "restore"
	trigIssued      trigger = "issued"
	trigIssueFailed trigger = "issue_failed"
	trigWarning     trigger = "warning"
	trigExpire      trigger = "expire"
	trigReissue     trigger = "reissue"
	trigExhausted   trigger = "exhausted"
	trigManual      trigger = "manual"
	trigLinked      trigger = "linked"
)

func transitions() []fsm.Transition[State, trigger] {
	notLinked := func(_ context.Context, from State, _ trigger) error {
		if from == StateLinked {
			return ErrLinked
		}
		return nil
	}
	return []fsm.Transition[State, trigger]{
		{From: StateIdle, Event: trigMount, To: StateIssuing},
		{From: StateIdle, Event: trigRestore, To: StateDisplayed},
		{From: StateIssuing, Event: trigIssued, To: StateDisplayed},
		{From: StateReissuing, Event: trigIssued, To: StateDisplayed},
		{From: StateIssuing, Event: trigIssueFailed, To: StateFailed},
		{From: StateReissuing, Event: trigIssueFailed, To: StateExpired},
		{From: StateDisplayed, Event: trigWarning, To: StateExpiringSoon},
		{From: StateExpiringSoon, Event: trigWarning, To: StateExpiringSoon},
		{From: StateDisplayed, Event: trigExpire, To: StateExpired},
		{From: StateExpiringSoon, Event: trigExpire, To: StateExpired},
		{From: StateExpired, Event: trigReissue, To: StateReissuing},
		{From: StateExpired, Event: trigExhausted, To: StateFailed},
		{Event: trigManual, To: StateIssuing, Guard: notLinked},
		{Event: trigLinked, To: StateLinked},
	}
}

// Snapshot is a point-in-time view of the lifecycle.
type Snapshot struct {
	State         State
	Code          Code
	HasCode       bool
	Remaining     time.Duration
	Urgency       countdown.Urgency
	InlineError   string
	Failure       FailureKind
	BudgetUsed    int
	LinkedMessage string
}

// CountdownText renders the countdown line for the displayed code.
func (s Snapshot) CountdownText() string {
	if !s.HasCode {
		return ""
	}
	if s.State == StateExpired {
		return countdown.ExpiredLabel
	}
	return countdown.Describe(s.Remaining)
}

// ShowsCode reports whether the code UI is visible.
func (s Snapshot) ShowsCode() bool {
	switch s.State {
	case StateDisplayed, StateExpiringSoon, StateExpired, StateReissuing:
		return s.HasCode
	}
	return false
}

// Config wires a Lifecycle to its collaborators.
type Config struct {
	Connector Connector
	// Notifier receives transient notices. Optional.
	Notifier Notifier
	// Store remembers the live code between lifecycles. Optional.
	Store CodeStore
	Clock clock.Clock
	// MaxRefreshes defaults to DefaultMaxRefreshes.
	MaxRefreshes int

	// OnWarning is forwarded every countdown threshold.
	OnWarning func(secondsLeft int)
	// OnChange receives a snapshot after every state change.
	OnChange func(Snapshot)
	// OnTick receives the remaining time of the displayed code every second.
	OnTick func(remaining time.Duration)
}

// Lifecycle drives one linking code from issue to link or failure. All
// methods are safe for concurrent use; callbacks run without internal
// locks held.
type Lifecycle struct {
	cfg    Config
	clk    clock.Clock
	logger zerolog.Logger
	tracer trace.Tracer
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	machine       *fsm.Machine[State, trigger]
	code          Code
	hasCode       bool
	cd            *countdown.Countdown
	budget        RefreshBudget
	inlineErr     string
	failure       FailureKind
	linkedMsg     string
	mounted       bool
	stopped       bool
	gen           uint64
	syncAnnounced bool
	syncCompleted bool
}

// New builds a lifecycle in StateIdle.
func New(cfg Config) *Lifecycle {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.MaxRefreshes <= 0 {
		cfg.MaxRefreshes = DefaultMaxRefreshes
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &Lifecycle{
		cfg:    cfg,
		clk:    cfg.Clock,
		logger: xglog.WithComponent("linking"),
		tracer: telemetry.Tracer("aira/linking"),
		ctx:    ctx,
		cancel: cancel,
		budget: NewRefreshBudget(cfg.MaxRefreshes),
	}
	machine, err := fsm.New(StateIdle, transitions(), fsm.WithObserver(l.observe))
	if err != nil {
		// The table is static; a duplicate edge is a programming error.
		panic(err)
	}
	l.machine = machine
	return l
}

func (l *Lifecycle) observe(from, to State, t trigger) {
	metrics.RecordLinkingTransition(string(from), string(to))
	l.logger.Debug().
		Str(xglog.FieldEvent, "linking.transition").
		Str(xglog.FieldOldState, string(from)).
		Str(xglog.FieldNewState, string(to)).
		Str("trigger", string(t)).
		Msg("state changed")
}

// Mount issues the first code. It runs at most once per lifecycle and does
// nothing when a code is already present or the account is linked. A
// still-valid code from the Store is shown instead of issuing a new one.
func (l *Lifecycle) Mount(ctx context.Context) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	if l.mounted || l.hasCode || l.machine.State() != StateIdle {
		l.mounted = true
		l.mu.Unlock()
		return nil
	}
	l.mounted = true
	l.mu.Unlock()

	if code, ok := l.loadStored(ctx); ok {
		l.mu.Lock()
		if l.stopped || l.machine.State() != StateIdle || !l.fireLocked(trigRestore) {
			l.mu.Unlock()
			return nil
		}
		start := l.installLocked(code)
		snap := l.snapshotLocked()
		l.mu.Unlock()

		l.logger.Info().
			Str(xglog.FieldEvent, "linking.restored").
			Dur("remaining", snap.Remaining).
			Msg("showing stored linking code")
		l.emit(snap)
		start()
		return nil
	}

	return l.issue(ctx, trigMount, "initial", false)
}

// Retry is the manual recovery path: it resets the refresh budget and the
// inline error and requests a new code. It is the only way out of a
// budget-exhausted failure.
func (l *Lifecycle) Retry(ctx context.Context) error {
	return l.issue(ctx, trigManual, "retry", true)
}

// Refresh requests a new code on demand without touching the budget.
func (l *Lifecycle) Refresh(ctx context.Context) error {
	return l.issue(ctx, trigManual, "manual", false)
}

// MarkLinked records a successful link. It supersedes every other state,
// stops the countdown and discards in-flight connect results.
func (l *Lifecycle) MarkLinked(message string) {
	l.mu.Lock()
	if l.stopped || l.machine.State() == StateLinked {
		l.mu.Unlock()
		return
	}
	l.fireLocked(trigLinked)
	l.gen++
	l.stopCountdownLocked()
	l.linkedMsg = message
	l.inlineErr = ""
	l.failure = FailureNone
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.logger.Info().Str(xglog.FieldEvent, "linking.linked").Msg("account linked")
	if l.cfg.Store != nil {
		if err := l.cfg.Store.Clear(l.ctx); err != nil {
			l.logger.Warn().Err(err).Msg("failed to clear stored linking code")
		}
	}
	l.emit(snap)
}

// HandleStatus applies a status report from the polling collaborator.
func (l *Lifecycle) HandleStatus(st Status) {
	switch st.State {
	case StatusSyncing:
		l.MarkLinked(st.Message)
		if l.markSync(&l.syncAnnounced) {
			l.notify(Notice{Level: NoticeInfo, Message: MsgSyncStarted, Persistent: true})
		}
	case StatusSynced:
		l.MarkLinked(st.Message)
		if l.markSync(&l.syncCompleted) {
			msg := st.Message
			if msg == "" {
				msg = MsgSyncComplete
			}
			l.notify(Notice{Level: NoticeSuccess, Message: msg, Persistent: true})
		}
	}
}

func (l *Lifecycle) markSync(flag *bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped || *flag {
		return false
	}
	*flag = true
	return true
}

// Stop tears the lifecycle down. It is idempotent; no callback runs after
// it returns except one already executing.
func (l *Lifecycle) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.gen++
	l.stopCountdownLocked()
	l.mu.Unlock()

	l.cancel()
	l.logger.Debug().Str(xglog.FieldEvent, "linking.stopped").Msg("lifecycle stopped")
}

// Snapshot returns the current view.
func (l *Lifecycle) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return l.machine.State()
}

func (l *Lifecycle) issue(ctx context.Context, t trigger, reason string, resetBudget bool) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	if _, err := l.machine.Fire(l.ctx, t); err != nil {
		l.mu.Unlock()
		if errors.Is(err, ErrLinked) {
			return ErrLinked
		}
		l.logger.Debug().Err(err).Str("trigger", string(t)).Msg("issue rejected")
		return err
	}
	auto := t == trigReissue
	if resetBudget {
		l.budget.Reset()
	}
	if !auto {
		l.inlineErr = ""
		l.failure = FailureNone
	}
	l.stopCountdownLocked()
	l.gen++
	gen := l.gen
	budgetUsed := l.budget.Used()
	snap := l.snapshotLocked()
	l.mu.Unlock()
	l.emit(snap)

	ctx, span := l.tracer.Start(ctx, "linking.issue",
		trace.WithAttributes(telemetry.LinkingAttributes(reason, budgetUsed)...))
	defer span.End()

	value, err := l.cfg.Connector.Connect(ctx)

	l.mu.Lock()
	if l.stopped || gen != l.gen {
		l.mu.Unlock()
		l.logger.Debug().
			Str(xglog.FieldEvent, "linking.stale_result").
			Str("trigger", reason).
			Msg("discarding superseded connect result")
		return nil
	}

	if err != nil {
		kind, inline := Classify(err)
		l.fireLocked(trigIssueFailed)
		if !auto {
			l.inlineErr = inline
			l.failure = kind
		}
		snap := l.snapshotLocked()
		l.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		metrics.RecordConnectFailure(string(kind))
		l.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "linking.issue_failed").
			Str(xglog.FieldFailureKind, string(kind)).
			Str("trigger", reason).
			Msg("failed to issue linking code")
		l.notify(Notice{Level: NoticeError, Message: errorText(err)})
		l.emit(snap)
		return nil
	}

	code := Code{Value: value, IssuedAt: l.clk.Now()}
	l.fireLocked(trigIssued)
	l.inlineErr = ""
	l.failure = FailureNone
	start := l.installLocked(code)
	snap = l.snapshotLocked()
	l.mu.Unlock()

	metrics.RecordCodeIssued(reason)
	l.logger.Info().
		Str(xglog.FieldEvent, "linking.issued").
		Str("trigger", reason).
		Int(xglog.FieldBudgetUsed, snap.BudgetUsed).
		Msg("linking code issued")
	if l.cfg.Store != nil {
		if err := l.cfg.Store.Save(ctx, code); err != nil {
			l.logger.Warn().Err(err).Msg("failed to store linking code")
		}
	}
	l.emit(snap)
	start()
	return nil
}

// installLocked replaces the displayed code and returns the function that
// starts its countdown. The caller must run it after releasing l.mu.
func (l *Lifecycle) installLocked(code Code) func() {
	l.stopCountdownLocked()
	l.code = code
	l.hasCode = true

	var cd *countdown.Countdown
	cd = countdown.New(l.clk, code.ExpiresAt(), countdown.Handlers{
		OnTick:    func(rem time.Duration) { l.onTick(cd, rem) },
		OnWarning: func(secs int) { l.onWarning(cd, secs) },
		OnExpired: func() { l.onExpired(cd) },
	})
	l.cd = cd
	return cd.Start
}

func (l *Lifecycle) stopCountdownLocked() {
	if l.cd != nil {
		l.cd.Stop()
		l.cd = nil
	}
}

func (l *Lifecycle) current(cd *countdown.Countdown) bool {
	return !l.stopped && l.cd == cd
}

func (l *Lifecycle) onTick(cd *countdown.Countdown, remaining time.Duration) {
	l.mu.Lock()
	ok := l.current(cd)
	l.mu.Unlock()
	if ok && l.cfg.OnTick != nil {
		l.cfg.OnTick(remaining)
	}
}

func (l *Lifecycle) onWarning(cd *countdown.Countdown, secs int) {
	l.mu.Lock()
	if !l.current(cd) || !l.fireLocked(trigWarning) {
		l.mu.Unlock()
		return
	}
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.logger.Info().
		Str(xglog.FieldEvent, "linking.expiring_soon").
		Int(xglog.FieldSecondsLeft, secs).
		Msg("linking code expiring soon")
	if secs == 60 {
		l.notify(Notice{Level: NoticeInfo, Message: MsgExpiresInMinute})
	}
	if l.cfg.OnWarning != nil {
		l.cfg.OnWarning(secs)
	}
	l.emit(snap)
}

func (l *Lifecycle) onExpired(cd *countdown.Countdown) {
	l.mu.Lock()
	if !l.current(cd) || !l.fireLocked(trigExpire) {
		l.mu.Unlock()
		return
	}

	if !l.budget.Allow() {
		l.fireLocked(trigExhausted)
		l.stopCountdownLocked()
		l.failure = FailureExpiredBudgetExhausted
		l.inlineErr = MsgExpiredTooOften
		snap := l.snapshotLocked()
		l.mu.Unlock()

		metrics.RecordBudgetExhausted()
		l.logger.Warn().
			Str(xglog.FieldEvent, "linking.budget_exhausted").
			Int(xglog.FieldBudgetUsed, snap.BudgetUsed).
			Msg("linking code expired too often")
		l.notify(Notice{Level: NoticeError, Message: MsgExpiredTooOften})
		l.emit(snap)
		return
	}

	l.budget.Consume()
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.logger.Info().
		Str(xglog.FieldEvent, "linking.expired").
		Int(xglog.FieldBudgetUsed, snap.BudgetUsed).
		Msg("linking code expired, reissuing")
	l.notify(Notice{Level: NoticeInfo, Message: MsgExpiredReissue})
	l.emit(snap)

	if err := l.issue(l.ctx, trigReissue, "auto", false); err != nil && !errors.Is(err, ErrStopped) {
		l.logger.Debug().Err(err).Msg("automatic reissue skipped")
	}
}

// fireLocked applies t and reports whether the table accepted it.
func (l *Lifecycle) fireLocked(t trigger) bool {
	if _, err := l.machine.Fire(l.ctx, t); err != nil {
		l.logger.Debug().Err(err).Str("trigger", string(t)).Msg("transition ignored")
		return false
	}
	return true
}

func (l *Lifecycle) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:         l.machine.State(),
		Code:          l.code,
		HasCode:       l.hasCode,
		InlineError:   l.inlineErr,
		Failure:       l.failure,
		BudgetUsed:    l.budget.Used(),
		LinkedMessage: l.linkedMsg,
	}
	if l.hasCode {
		snap.Remaining = l.code.Remaining(l.clk.Now())
		snap.Urgency = countdown.UrgencyFor(snap.Remaining)
	}
	return snap
}

func (l *Lifecycle) loadStored(ctx context.Context) (Code, bool) {
	if l.cfg.Store == nil {
		return Code{}, false
	}
	code, ok, err := l.cfg.Store.Load(ctx)
	if err != nil {
		l.logger.Warn().Err(err).Msg("failed to load stored linking code")
		return Code{}, false
	}
	if !ok || code.Remaining(l.clk.Now()) <= 0 {
		return Code{}, false
	}
	return code, true
}

func (l *Lifecycle) notify(n Notice) {
	if l.cfg.Notifier != nil {
		l.cfg.Notifier.Notify(n)
	}
}

func (l *Lifecycle) emit(s Snapshot) {
	if l.cfg.OnChange != nil {
		l.cfg.OnChange(s)
	}
}
