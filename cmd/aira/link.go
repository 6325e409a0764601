// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aira-org/aira-client-os/internal/cache"
	"github.com/aira-org/aira-client-os/internal/countdown"
	"github.com/aira-org/aira-client-os/internal/linking"
	xglog "github.com/aira-org/aira-client-os/internal/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newLinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "link",
		Short: "Link a WhatsApp account with a pairing code",
		Long: "Requests a pairing code, shows it with a live countdown and reissues it on expiry " +
			"until the backend reports the account as synced.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runLink(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (a *app) runLink(ctx context.Context, out io.Writer) error {
	logger := xglog.WithComponent("cli.link")

	client, err := a.apiClient()
	if err != nil {
		return err
	}
	flush, err := a.startTelemetry(ctx)
	if err != nil {
		return err
	}
	defer flush()

	sessionCache, err := cache.New(ctx, a.cfg.Cache.CacheSettings(), logger)
	if err != nil {
		return fmt.Errorf("open session cache: %w", err)
	}
	defer func() {
		if err := sessionCache.Close(); err != nil {
			logger.Warn().Err(err).Msg("session cache close failed")
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	view := newLinkView(out)
	lc := linking.New(linking.Config{
		Connector:    client,
		Notifier:     linking.NotifierFunc(view.notice),
		Store:        linking.NewCacheCodeStore(sessionCache, nil),
		MaxRefreshes: a.cfg.Linking.MaxRefreshes,
		OnWarning:    view.warning,
		OnChange:     view.change,
		OnTick:       view.tick,
	})
	defer lc.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Metrics.Enabled {
		g.Go(func() error { return serveMetrics(gctx, a.cfg.Metrics.ListenAddr) })
	}

	g.Go(func() error {
		err := linking.NewPoller(client, a.cfg.Linking.PollInterval).Run(gctx, lc.HandleStatus)
		if err == nil {
			cancel()
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		select {
		case snap := <-view.failed:
			return fmt.Errorf("linking failed: %s", snap.InlineError)
		case <-gctx.Done():
			return nil
		}
	})

	if err := lc.Mount(gctx); err != nil && !errors.Is(err, linking.ErrStopped) {
		cancel()
		_ = g.Wait()
		return err
	}

	return g.Wait()
}

// linkView renders lifecycle callbacks as terminal output. Callbacks arrive
// from timer and poller goroutines.
type linkView struct {
	mu       sync.Mutex
	out      io.Writer
	lastCode string
	lastText string
	failed   chan linking.Snapshot
}

func newLinkView(out io.Writer) *linkView {
	return &linkView{out: out, failed: make(chan linking.Snapshot, 1)}
}

func (v *linkView) change(s linking.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch s.State {
	case linking.StateDisplayed:
		if s.Code.Value != v.lastCode {
			v.lastCode = s.Code.Value
			fmt.Fprintf(v.out, "\nYour linking code: %s\n", s.Code.Display())
			fmt.Fprintln(v.out, "Open WhatsApp > Linked devices > Link with phone number and enter the code.")
		}
	case linking.StateReissuing:
		fmt.Fprintln(v.out, "\nRequesting a new code...")
	case linking.StateLinked:
		msg := s.LinkedMessage
		if msg == "" {
			msg = "Account linked."
		}
		fmt.Fprintf(v.out, "\n%s\n", msg)
	case linking.StateFailed:
		fmt.Fprintf(v.out, "\n%s\n", s.InlineError)
		select {
		case v.failed <- s:
		default:
		}
	}
}

func (v *linkView) tick(remaining time.Duration) {
	text := countdown.Describe(remaining)
	v.mu.Lock()
	defer v.mu.Unlock()
	if text == v.lastText {
		return
	}
	v.lastText = text
	marker := ""
	if countdown.UrgencyFor(remaining).Emphasized() {
		marker = " !"
	}
	fmt.Fprintf(v.out, "\r%s%s   ", text, marker)
}

func (v *linkView) warning(secondsLeft int) {
	logger := xglog.WithComponent("cli.link")
	logger.Debug().
		Int("seconds_left", secondsLeft).
		Msg("countdown threshold reached")
}

func (v *linkView) notice(n linking.Notice) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "\n[%s] %s\n", n.Level, n.Message)
}
