// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aira-org/aira-client-os/internal/clock"
	"github.com/aira-org/aira-client-os/internal/linking"
	"github.com/aira-org/aira-client-os/internal/resilience"
	"github.com/aira-org/aira-client-os/internal/rules"
	"github.com/aira-org/aira-client-os/internal/schedule"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/", Token: "tok-123", BreakerThreshold: 2}, opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "ftp://host", "http://"} {
		_, err := New(Config{BaseURL: raw})
		assert.Error(t, err, raw)
	}
}

func TestConnect(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathConnect, r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		writeJSON(w, http.StatusOK, ConnectResponse{Code: "ABCD1234"})
	}))
	assert.False(t, strings.HasSuffix(c.BaseURL(), "/"), "trailing slash trimmed")

	code, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ABCD1234", code)
}

func TestConnect_EmptyCode(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ConnectResponse{Code: "  "})
	}))
	_, err := c.Connect(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	kind, _ := linking.Classify(err)
	assert.Equal(t, linking.FailureGeneric, kind)
}

func TestConnect_ErrorsClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   linking.FailureKind
		msg    string
	}{
		{"rate limit detail", http.StatusTooManyRequests, `{"detail":"connect limit reached"}`, linking.FailureRateLimit, "connect limit reached"},
		{"rate limit without wording", http.StatusTooManyRequests, `{"error":"slow down"}`, linking.FailureRateLimit, "rate limit exceeded: slow down"},
		{"server error text", http.StatusBadGateway, "upstream exploded", linking.FailureGeneric, "upstream exploded"},
		{"empty body", http.StatusInternalServerError, "", linking.FailureGeneric, "Internal Server Error"},
		{"message field", http.StatusBadRequest, `{"message":"session expired"}`, linking.FailureGeneric, "session expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			_, err := c.Connect(context.Background())
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.msg, apiErr.Message)
			kind, _ := linking.Classify(err)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestConnect_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base, Timeout: time.Second})
	require.NoError(t, err)
	_, err = c.Connect(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.Status)
	assert.True(t, apiErr.Temporary())
	kind, msg := linking.Classify(err)
	assert.Equal(t, linking.FailureNetwork, kind)
	assert.Equal(t, linking.MsgNetwork, msg)
}

func TestConnect_ContextCanceled(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Connect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, resilience.StateClosed, c.BreakerState())
}

func TestBreaker_OpensOnServerErrorsOnly(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusTooManyRequests)
	var calls atomic.Int32
	clk := clock.NewMock(time.Unix(0, 0))
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		code := int(status.Load())
		w.WriteHeader(code)
		if code == http.StatusOK {
			_, _ = io.WriteString(w, `{"status":"synced"}`)
		}
	}), WithClock(clk))

	for range 3 {
		_, _ = c.Connect(context.Background())
	}
	assert.Equal(t, resilience.StateClosed, c.BreakerState(), "429 does not trip the breaker")

	status.Store(http.StatusServiceUnavailable)
	_, _ = c.Connect(context.Background())
	_, _ = c.Connect(context.Background())
	assert.Equal(t, resilience.StateOpen, c.BreakerState())

	before := calls.Load()
	_, err := c.Connect(context.Background())
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, before, calls.Load(), "open circuit short-circuits")
	kind, _ := linking.Classify(err)
	assert.Equal(t, linking.FailureNetwork, kind)

	clk.Advance(31 * time.Second)
	status.Store(http.StatusOK)
	_, err = c.LinkStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resilience.StateClosed, c.BreakerState())
}

func TestLinkStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, PathLinkStatus, r.URL.Path)
		_, _ = io.WriteString(w, `{"status":"syncing","message":"Importing chats"}`)
	}))
	st, err := c.LinkStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, linking.StatusSyncing, st.State)
	assert.Equal(t, "Importing chats", st.Message)
}

func TestLinkStatus_MalformedBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":`)
	}))
	_, err := c.LinkStatus(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "malformed response")
}

func TestGroupsAndConnectors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathGroups, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, GroupsResponse{
			Groups: []rules.Chat{{WID: "a", ChatName: "Family", NumActiveRules: 2}},
			Chats:  []rules.Chat{{WID: "a", ChatName: "dup"}, {WID: "b", ChatName: "Bob"}},
		})
	})
	mux.HandleFunc(PathConnectors, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ConnectorsResponse{AvailableServices: []string{rules.ConnectorWhatsApp}})
	})
	c := newTestClient(t, mux)

	groups, err := c.Groups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []rules.Group{{ID: "a", Name: "Family", RulesCount: 2}, {ID: "b", Name: "Bob"}}, groups)

	connectors, err := c.Connectors(context.Background())
	require.NoError(t, err)
	require.Len(t, connectors, 4)
	for _, conn := range connectors {
		assert.Equal(t, conn.ID == rules.ConnectorWhatsApp, conn.Connected, conn.ID)
	}
}

func TestRulesCRUD(t *testing.T) {
	var (
		mu         sync.Mutex
		gotMethods []string
	)
	methods := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), gotMethods...)
	}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathRules, r.URL.Path)
		mu.Lock()
		gotMethods = append(gotMethods, r.Method)
		mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, `[
				{"rule_id":"r1","w_id":["g"],"raw_text":"one","status":"active","is_default":false},
				{"rule_id":"","w_id":["g"],"raw_text":"broken","status":"active","is_default":false},
				{"rule_id":"r3","w_id":[],"raw_text":"three","status":"inactive","interval":7,"trigger_time":"2026-03-01T09:00:00.000Z","is_default":true}
			]`)
		case http.MethodPost:
			var req rules.CreateRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "summarise", req.RawText)
			writeJSON(w, http.StatusOK, rules.MutationResponse{Success: "created", RuleID: "r9"})
		case http.MethodPut:
			var req rules.UpdateRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "r9", req.RuleID)
			writeJSON(w, http.StatusOK, rules.MutationResponse{Success: "updated", RuleID: req.RuleID})
		case http.MethodDelete:
			var req rules.DeleteRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			writeJSON(w, http.StatusOK, rules.MutationResponse{Success: "deleted", RuleID: req.RuleID})
		}
	}))
	ctx := context.Background()

	list, err := c.Rules(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r1", list[0].ID)
	assert.Equal(t, schedule.Weekly, list[1].Schedule(time.UTC).Interval)

	create := rules.CreateRequest{WIDs: []string{"g"}, RawText: "summarise"}
	resp, err := c.CreateRule(ctx, create)
	require.NoError(t, err)
	assert.Equal(t, "r9", resp.RuleID)

	resp, err = c.UpdateRule(ctx, rules.UpdateRequest{RuleID: "r9", CreateRequest: create})
	require.NoError(t, err)
	assert.Equal(t, "updated", resp.Success)

	resp, err = c.DeleteRule(ctx, "r9")
	require.NoError(t, err)
	assert.Equal(t, "deleted", resp.Success)

	assert.Equal(t, []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}, methods())

	_, err = c.CreateRule(ctx, rules.CreateRequest{})
	assert.Error(t, err)
	_, err = c.DeleteRule(ctx, "")
	assert.Error(t, err)
	assert.Len(t, methods(), 4, "invalid requests are not sent")
}

func TestProcessEventsPath(t *testing.T) {
	assert.Equal(t, "/api/v1/process/p-1/events", ProcessEventsPath("p-1"))
	assert.Equal(t, "/api/v1/process/a%2Fb/events", ProcessEventsPath("a/b"))
}

func TestCredentials_NoToken(t *testing.T) {
	c, err := New(Config{BaseURL: "http://localhost:8000"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c.Credentials(req)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestCountsAgainstBreaker(t *testing.T) {
	assert.True(t, countsAgainstBreaker(errors.New("boom")))
	assert.True(t, countsAgainstBreaker(networkError(context.DeadlineExceeded)))
	assert.True(t, countsAgainstBreaker(&APIError{Status: 503}))
	assert.False(t, countsAgainstBreaker(&APIError{Status: 429}))
	assert.False(t, countsAgainstBreaker(context.Canceled))
}
