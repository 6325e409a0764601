// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aira-org/aira-client-os/internal/cache"
	"github.com/aira-org/aira-client-os/internal/linking"
	"github.com/aira-org/aira-client-os/internal/prefs"
	"github.com/aira-org/aira-client-os/internal/resilience"
)

func fixed(status Status) Checker {
	return CheckerFunc(string(status), func(context.Context) CheckResult {
		return CheckResult{Status: status}
	})
}

func TestManager_NoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	resp := m.Health(context.Background())
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.Nil(t, resp.Checks)
}

func TestManager_WorstStatusWins(t *testing.T) {
	tests := []struct {
		name   string
		checks []Status
		want   Status
	}{
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy beats degraded", []Status{StatusDegraded, StatusUnhealthy}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("")
			for _, s := range tt.checks {
				m.RegisterChecker(fixed(s))
			}
			resp := m.Health(context.Background())
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

func TestManager_CheckTimeout(t *testing.T) {
	m := NewManager("")
	m.timeout = 20 * time.Millisecond
	m.RegisterChecker(CheckerFunc("slow", func(ctx context.Context) CheckResult {
		<-ctx.Done()
		return CheckResult{Status: StatusUnhealthy, Error: ctx.Err().Error()}
	}))

	resp := m.Health(context.Background())
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), resp.Checks["slow"].Error)
}

func TestServeHealth(t *testing.T) {
	m := NewManager("v2")
	m.RegisterChecker(fixed(StatusDegraded))

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StatusDegraded, body.Status)
	assert.Equal(t, []string{"degraded"}, body.Names())

	m.RegisterChecker(fixed(StatusUnhealthy))
	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBackendChecker(t *testing.T) {
	ok := BackendChecker(linking.StatusSourceFunc(func(context.Context) (linking.Status, error) {
		return linking.Status{State: linking.StatusPending}, nil
	}))
	res := ok.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, "link status: pending", res.Message)

	down := BackendChecker(linking.StatusSourceFunc(func(context.Context) (linking.Status, error) {
		return linking.Status{}, errors.New("network error: connection refused")
	}))
	res = down.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Contains(t, res.Error, "connection refused")
}

func TestBreakerChecker(t *testing.T) {
	for state, want := range map[resilience.State]Status{
		resilience.StateClosed:   StatusHealthy,
		resilience.StateHalfOpen: StatusDegraded,
		resilience.StateOpen:     StatusUnhealthy,
	} {
		c := BreakerChecker("backend_api", func() resilience.State { return state })
		assert.Equal(t, want, c.Check(context.Background()).Status, state)
	}
}

func TestPrefsChecker(t *testing.T) {
	store := prefs.NewMemoryStore()
	assert.Equal(t, StatusHealthy, PrefsChecker(store).Check(context.Background()).Status)

	require.NoError(t, store.Close())
	res := PrefsChecker(store).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, prefs.ErrClosed.Error(), res.Error)
}

func TestCacheChecker(t *testing.T) {
	mem := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = mem.Close() })
	res := CacheChecker(mem).Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.False(t, cache.Has(mem, cacheProbeKey), "probe is removed")

	res = CacheChecker(cache.NewNoOpCache()).Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
}
