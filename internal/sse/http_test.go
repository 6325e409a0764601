// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamHandler(t *testing.T, frames ...string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, f := range frames {
			_, _ = fmt.Fprint(w, f)
			flusher.Flush()
		}
		<-r.Context().Done()
	}
}

func TestHTTPDialer_CompletesFromServerStream(t *testing.T) {
	srv := httptest.NewServer(streamHandler(t,
		": ping\n\n",
		"data: working\n\n",
		"event: process_complete\ndata: {\"status\":\"ok\"}\n\n",
	))
	defer srv.Close()

	var got struct{ Status string }
	var completed bool
	l := NewListener(NewHTTPDialer(nil))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := Listen(ctx, l, Request[struct{ Status string }]{
		BaseURL:    srv.URL,
		URL:        "/api/v1/process/p1/events",
		OnMessage:  func(v struct{ Status string }) { got = v },
		OnComplete: func() { completed = true },
	})
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, "ok", got.Status)
}

func TestHTTPDialer_CredentialsAttached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err != nil || c.Value != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		streamHandler(t, "event: process_complete\ndata: {}\n\n")(w, r)
	}))
	defer srv.Close()

	dialer := NewHTTPDialer(func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "session", Value: "s3cret"})
	})
	err := Listen(context.Background(), NewListener(dialer), Request[struct{}]{URL: srv.URL})
	require.NoError(t, err)
}

func TestHTTPDialer_ErrorPaths(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-2xx status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		},
		{
			name: "wrong content type",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{}`))
			},
		},
		{
			name: "stream closed before completion",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				_, _ = fmt.Fprint(w, "data: partial\n\n")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			var calls int
			err := Listen(context.Background(), NewListener(NewHTTPDialer(nil)), Request[struct{}]{
				URL:     srv.URL,
				OnError: func(error) { calls++ },
			})
			assert.ErrorIs(t, err, ErrConnection)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestHTTPDialer_RejectsInvalidURLSynchronously(t *testing.T) {
	d := NewHTTPDialer(nil)
	for _, raw := range []string{"ftp://host/events", "/relative/only", "http://"} {
		_, err := d.Dial(context.Background(), raw, Handlers{})
		assert.Error(t, err, raw)
	}
}

func TestHTTPDialer_CloseStopsCallbacks(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-release:
			_, _ = fmt.Fprint(w, "event: process_complete\ndata: {}\n\n")
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	opened := make(chan struct{})
	var events int
	conn, err := NewHTTPDialer(nil).Dial(context.Background(), srv.URL, Handlers{
		OnOpen:  func() { close(opened) },
		OnEvent: func(Event) { events++ },
		OnError: func(err error) { t.Errorf("unexpected error after close: %v", err) },
	})
	require.NoError(t, err)

	select {
	case <-opened:
	case <-time.After(5 * time.Second):
		t.Fatal("stream never opened")
	}
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, events)
}
