// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"path/filepath"

	"github.com/aira-org/aira-client-os/internal/cache"
	"github.com/aira-org/aira-client-os/internal/prefs"
	"github.com/aira-org/aira-client-os/internal/telemetry"
	"github.com/aira-org/aira-client-os/internal/validate"
)

// Validate checks cfg and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
		v.AddError("logLevel", "must be one of debug, info, warn, error", cfg.LogLevel)
	}

	v.URL("api.baseURL", cfg.API.BaseURL, []string{"http", "https"})
	v.PositiveDuration("api.timeout", cfg.API.Timeout)
	v.Positive("api.breakerThreshold", cfg.API.BreakerThreshold)
	v.PositiveDuration("api.breakerReset", cfg.API.BreakerReset)

	v.PositiveDuration("sse.timeout", cfg.SSE.Timeout)
	v.NotEmpty("sse.completeEvent", cfg.SSE.CompleteEvent)

	v.Range("linking.maxRefreshes", cfg.Linking.MaxRefreshes, 1, 20)
	v.PositiveDuration("linking.pollInterval", cfg.Linking.PollInterval)

	v.OneOf("prefs.backend", cfg.Prefs.Backend,
		[]string{prefs.BackendFile, prefs.BackendSQLite, prefs.BackendMemory})
	if cfg.Prefs.Backend != prefs.BackendMemory {
		v.NotEmpty("prefs.path", cfg.Prefs.Path)
		if cfg.Prefs.Path != "" {
			v.Directory("prefs.path", filepath.Dir(cfg.Prefs.Path), false)
		}
	}

	v.OneOf("cache.backend", cfg.Cache.Backend,
		[]string{cache.BackendMemory, cache.BackendRedis, cache.BackendNone})
	if cfg.Cache.Backend == cache.BackendMemory {
		v.PositiveDuration("cache.cleanupInterval", cfg.Cache.CleanupInterval)
	}
	if cfg.Cache.Backend == cache.BackendRedis {
		v.NotEmpty("cache.redisAddr", cfg.Cache.RedisAddr)
		v.Range("cache.redisDB", cfg.Cache.RedisDB, 0, 15)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{telemetry.ExporterGRPC, telemetry.ExporterHTTP, telemetry.ExporterNoop})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		if r := cfg.Telemetry.SamplingRate; r < 0 || r > 1 {
			v.AddError("telemetry.samplingRate", fmt.Sprintf("must be within [0, 1], got %g", r), r)
		}
	}

	if cfg.Metrics.Enabled {
		v.NotEmpty("metrics.listenAddr", cfg.Metrics.ListenAddr)
	}

	return v.Err()
}
