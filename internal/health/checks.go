// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aira-org/aira-client-os/internal/cache"
	"github.com/aira-org/aira-client-os/internal/linking"
	"github.com/aira-org/aira-client-os/internal/prefs"
	"github.com/aira-org/aira-client-os/internal/resilience"
)

// BackendChecker asks the backend for the link status.
func BackendChecker(src linking.StatusSource) Checker {
	return CheckerFunc("backend", func(ctx context.Context) CheckResult {
		st, err := src.LinkStatus(ctx)
		if err != nil {
			return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
		}
		return CheckResult{Status: StatusHealthy, Message: "link status: " + string(st.State)}
	})
}

// BreakerChecker maps a circuit breaker state: half-open is degraded and
// open is unhealthy.
func BreakerChecker(name string, state func() resilience.State) Checker {
	return CheckerFunc(name, func(context.Context) CheckResult {
		switch s := state(); s {
		case resilience.StateClosed:
			return CheckResult{Status: StatusHealthy, Message: "circuit closed"}
		case resilience.StateHalfOpen:
			return CheckResult{Status: StatusDegraded, Message: "circuit half-open"}
		default:
			return CheckResult{Status: StatusUnhealthy, Message: "circuit " + string(s)}
		}
	})
}

// PrefsChecker reads a flag from the preference store.
func PrefsChecker(store prefs.Store) Checker {
	return CheckerFunc("prefs", func(ctx context.Context) CheckResult {
		if _, _, err := store.Get(ctx, prefs.KeyOnboardingCompleted); err != nil {
			return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
		}
		return CheckResult{Status: StatusHealthy, Message: "store readable"}
	})
}

const cacheProbeKey = "health_probe"

// CacheChecker writes and reads back a probe value. A miss is degraded:
// the client still works, it just forgets codes across restarts.
func CacheChecker(c cache.Cache) Checker {
	return CheckerFunc("cache", func(context.Context) CheckResult {
		want := strconv.FormatInt(time.Now().UnixNano(), 10)
		if err := cache.SetJSON(c, cacheProbeKey, want, 10*time.Second); err != nil {
			return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
		}
		defer c.Delete(cacheProbeKey)

		var got string
		ok, err := cache.GetJSON(c, cacheProbeKey, &got)
		switch {
		case err != nil:
			return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
		case !ok || got != want:
			return CheckResult{Status: StatusDegraded, Message: "probe value not read back"}
		}
		stats := c.Stats()
		return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d entries", stats.CurrentSize)}
	})
}
