// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aira-org/aira-client-os/internal/devserver"
	"github.com/aira-org/aira-client-os/internal/linking"
)

// syncBuffer is written from lifecycle goroutines while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// isolate points every stateful setting at the test's temp dir.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("AIRA_PREFS_BACKEND", "file")
	t.Setenv("AIRA_PREFS_PATH", filepath.Join(t.TempDir(), "prefs.json"))
	t.Setenv("AIRA_CACHE_BACKEND", "memory")
	t.Setenv("AIRA_METRICS_ENABLED", "false")
	t.Setenv("AIRA_TELEMETRY_ENABLED", "false")
	t.Setenv("AIRA_LOG_LEVEL", "error")
}

func withBackend(t *testing.T, cfg devserver.Config) *devserver.Server {
	t.Helper()
	s := devserver.New(cfg)
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	t.Setenv("AIRA_API_BASE_URL", srv.URL)
	return s
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut syncBuffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSchedule_ToUTC(t *testing.T) {
	isolate(t)
	out, err := run(t, "schedule", "to-utc", "09:30", "--tz", "UTC")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "T09:30:00.000Z"), out)

	_, err = run(t, "schedule", "to-utc", "25:00", "--tz", "UTC")
	require.Error(t, err)

	_, err = run(t, "schedule", "to-utc", "09:30", "--tz", "Mars/Olympus")
	require.Error(t, err)
}

func TestSchedule_ToLocal(t *testing.T) {
	isolate(t)
	out, err := run(t, "schedule", "to-local", "2026-03-02T09:30:00.000Z", "--tz", "UTC")
	require.NoError(t, err)
	assert.Equal(t, "09:30\n", out)

	out, err = run(t, "schedule", "to-local", "Real-time", "--tz", "UTC")
	require.NoError(t, err)
	assert.Equal(t, "09:00\n", out)
}

func TestSchedule_Interval(t *testing.T) {
	isolate(t)
	tests := []struct {
		arg  string
		want string
	}{
		{"7", "weekly (Weekly)\n"},
		{"0", "none (None)\n"},
		{"14", "daily (Daily)\n"},
		{"monthly", "30\n"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			out, err := run(t, "schedule", "interval", tt.arg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	_, err := run(t, "schedule", "interval", "fortnightly")
	require.Error(t, err)
}

func TestOnboarding(t *testing.T) {
	isolate(t)

	out, err := run(t, "onboarding", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "onboarding completed: false")
	assert.Contains(t, out, "route: /onboarding")
	assert.Contains(t, out, "welcome banner visible: true")

	_, err = run(t, "onboarding", "complete")
	require.NoError(t, err)
	_, err = run(t, "onboarding", "dismiss-banner")
	require.NoError(t, err)

	out, err = run(t, "onboarding", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "onboarding completed: true")
	assert.Contains(t, out, "route: /\n")
	assert.Contains(t, out, "welcome banner visible: false")

	_, err = run(t, "onboarding", "reset")
	require.NoError(t, err)
	out, err = run(t, "onboarding", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "onboarding completed: false")
}

func TestInvalidLogLevelFlag(t *testing.T) {
	isolate(t)
	_, err := run(t, "--log-level", "verbose", "schedule", "interval", "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--log-level")
}

func TestRules_Suggest(t *testing.T) {
	isolate(t)
	out, err := run(t, "rules", "suggest", "Email", "me", "the", "meeting", "notes")
	require.NoError(t, err)
	assert.Contains(t, out, "connectors: google_calendar, email_scope, whatsapp")
	assert.Contains(t, out, "keywords: meeting, email, mail")
}

func TestRules_CreateListDelete(t *testing.T) {
	isolate(t)
	withBackend(t, devserver.Config{AvailableServices: []string{"whatsapp"}})

	_, err := run(t, "rules", "create", "--text", "Summarise the group chat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--group")

	out, err := run(t, "rules", "create",
		"--text", "Summarise the group chat",
		"--group", "120363000000000001@g.us",
		"--interval", "weekly", "--at", "08:15")
	require.NoError(t, err)
	assert.Contains(t, out, "(Weekly at 08:15)")
	id := strings.Fields(out)[1]

	out, err = run(t, "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Summarise the group chat")
	assert.Contains(t, out, "active")

	out, err = run(t, "rules", "delete", id)
	require.NoError(t, err)
	assert.Equal(t, "deleted "+id+"\n", out)

	_, err = run(t, "rules", "delete", id)
	require.Error(t, err)
}

func TestListen_Process(t *testing.T) {
	isolate(t)
	s := withBackend(t, devserver.Config{})
	id := s.StartProcess("3 chats summarised")

	out, err := run(t, "listen", "--process", "--timeout", "5s", id)
	require.NoError(t, err)
	assert.Contains(t, out, `"summary": "3 chats summarised"`)
	assert.Contains(t, out, `"status": "completed"`)

	_, err = run(t, "listen", "--process", "--timeout", "5s", "unknown")
	require.Error(t, err)
}

func TestLink_UntilSynced(t *testing.T) {
	isolate(t)
	t.Setenv("AIRA_LINKING_POLL_INTERVAL", "20ms")
	s := withBackend(t, devserver.Config{ConnectLimit: 10})

	var out, errOut syncBuffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"link"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(context.Background()) }()

	require.Eventually(t, func() bool { return len(s.IssuedCodes()) == 1 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Your linking code") },
		5*time.Second, 10*time.Millisecond)

	s.Link()
	s.Sync()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("link did not return after sync")
	}

	code := s.IssuedCodes()[0]
	text := out.String()
	assert.Contains(t, text, code[:4]+" "+code[4:])
	assert.Contains(t, text, linking.MsgSyncComplete)
}

func TestLink_RedisCacheRestoresCodeAcrossRuns(t *testing.T) {
	isolate(t)
	mr := miniredis.RunT(t)
	t.Setenv("AIRA_CACHE_BACKEND", "redis")
	t.Setenv("AIRA_CACHE_REDIS_ADDR", mr.Addr())
	t.Setenv("AIRA_LINKING_POLL_INTERVAL", "20ms")
	s := withBackend(t, devserver.Config{ConnectLimit: 10})

	start := func(ctx context.Context) (*syncBuffer, <-chan error) {
		out := &syncBuffer{}
		cmd := newRootCmd(out, &syncBuffer{})
		cmd.SetArgs([]string{"link"})
		done := make(chan error, 1)
		go func() { done <- cmd.ExecuteContext(ctx) }()
		return out, done
	}
	wait := func(done <-chan error) {
		t.Helper()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("link did not return")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	first, done := start(ctx)
	require.Eventually(t, func() bool { return strings.Contains(first.String(), "Your linking code") },
		5*time.Second, 10*time.Millisecond)
	cancel()
	wait(done)
	require.Len(t, s.IssuedCodes(), 1)
	code := s.IssuedCodes()[0]

	second, done := start(context.Background())
	require.Eventually(t, func() bool { return strings.Contains(second.String(), code[:4]+" "+code[4:]) },
		5*time.Second, 10*time.Millisecond)
	assert.Len(t, s.IssuedCodes(), 1, "stored code is shown instead of issuing a new one")

	s.Link()
	s.Sync()
	wait(done)
}

func TestDoctor(t *testing.T) {
	isolate(t)
	withBackend(t, devserver.Config{})

	out, err := run(t, "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "backend")
	assert.Contains(t, out, "link status: pending")
	assert.Contains(t, out, "overall: healthy")

	t.Setenv("AIRA_API_BASE_URL", "http://127.0.0.1:1")
	out, err = run(t, "doctor")
	require.Error(t, err)
	assert.Contains(t, out, "overall: unhealthy")
}
