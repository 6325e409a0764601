// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aira-org/aira-client-os/internal/log"
	"github.com/rs/zerolog"
)

// EnvPrefix namespaces every environment variable the loader reads.
const EnvPrefix = "AIRA_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// envReader resolves environment values and logs where each one came from.
type envReader struct {
	lookup   LookupFunc
	logger   zerolog.Logger
	consumed map[string]struct{}
}

func newEnvReader(lookup LookupFunc) *envReader {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &envReader{
		lookup:   lookup,
		logger:   log.WithComponent("config"),
		consumed: make(map[string]struct{}),
	}
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "token") || strings.Contains(lower, "password")
}

// raw returns the value when the variable is set and non-empty.
func (e *envReader) raw(key string) (string, bool) {
	e.consumed[key] = struct{}{}
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *envReader) fromEnv(key string, value any) {
	ev := e.logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitive(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Interface("value", value)
	}
	ev.Msg("using environment variable")
}

func (e *envReader) invalid(key, value, kind string) {
	e.logger.Warn().
		Str("key", key).
		Str("value", value).
		Msgf("invalid %s in environment variable, keeping current value", kind)
}

func (e *envReader) String(key, current string) string {
	v, ok := e.raw(key)
	if !ok {
		return current
	}
	e.fromEnv(key, v)
	return v
}

func (e *envReader) Int(key string, current int) int {
	v, ok := e.raw(key)
	if !ok {
		return current
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.invalid(key, v, "integer")
		return current
	}
	e.fromEnv(key, i)
	return i
}

func (e *envReader) Float(key string, current float64) float64 {
	v, ok := e.raw(key)
	if !ok {
		return current
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.invalid(key, v, "float")
		return current
	}
	e.fromEnv(key, f)
	return f
}

// Duration accepts Go duration syntax ("5s", "2m").
func (e *envReader) Duration(key string, current time.Duration) time.Duration {
	v, ok := e.raw(key)
	if !ok {
		return current
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.invalid(key, v, "duration")
		return current
	}
	e.fromEnv(key, d)
	return d
}

// Bool accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func (e *envReader) Bool(key string, current bool) bool {
	v, ok := e.raw(key)
	if !ok {
		return current
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		e.fromEnv(key, true)
		return true
	case "false", "0", "no":
		e.fromEnv(key, false)
		return false
	default:
		e.invalid(key, v, "boolean")
		return current
	}
}

// mergeEnv applies AIRA_* overrides on top of cfg.
func (e *envReader) mergeEnv(cfg *AppConfig) {
	cfg.LogLevel = e.String("AIRA_LOG_LEVEL", cfg.LogLevel)

	cfg.API.BaseURL = e.String("AIRA_API_BASE_URL", cfg.API.BaseURL)
	cfg.API.Token = e.String("AIRA_API_TOKEN", cfg.API.Token)
	cfg.API.Timeout = e.Duration("AIRA_API_TIMEOUT", cfg.API.Timeout)
	cfg.API.BreakerThreshold = e.Int("AIRA_API_BREAKER_THRESHOLD", cfg.API.BreakerThreshold)
	cfg.API.BreakerReset = e.Duration("AIRA_API_BREAKER_RESET", cfg.API.BreakerReset)

	cfg.SSE.Timeout = e.Duration("AIRA_SSE_TIMEOUT", cfg.SSE.Timeout)
	cfg.SSE.CompleteEvent = e.String("AIRA_SSE_COMPLETE_EVENT", cfg.SSE.CompleteEvent)

	cfg.Linking.MaxRefreshes = e.Int("AIRA_LINKING_MAX_REFRESHES", cfg.Linking.MaxRefreshes)
	cfg.Linking.PollInterval = e.Duration("AIRA_LINKING_POLL_INTERVAL", cfg.Linking.PollInterval)

	cfg.Prefs.Backend = e.String("AIRA_PREFS_BACKEND", cfg.Prefs.Backend)
	cfg.Prefs.Path = e.String("AIRA_PREFS_PATH", cfg.Prefs.Path)

	cfg.Cache.Backend = e.String("AIRA_CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.CleanupInterval = e.Duration("AIRA_CACHE_CLEANUP_INTERVAL", cfg.Cache.CleanupInterval)
	cfg.Cache.RedisAddr = e.String("AIRA_CACHE_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = e.String("AIRA_CACHE_REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = e.Int("AIRA_CACHE_REDIS_DB", cfg.Cache.RedisDB)
	cfg.Cache.KeyPrefix = e.String("AIRA_CACHE_KEY_PREFIX", cfg.Cache.KeyPrefix)

	cfg.Telemetry.Enabled = e.Bool("AIRA_TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = e.String("AIRA_TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = e.String("AIRA_TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Environment = e.String("AIRA_TELEMETRY_ENVIRONMENT", cfg.Telemetry.Environment)
	cfg.Telemetry.SamplingRate = e.Float("AIRA_TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)

	cfg.Metrics.Enabled = e.Bool("AIRA_METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.ListenAddr = e.String("AIRA_METRICS_LISTEN_ADDR", cfg.Metrics.ListenAddr)
}

// unknownKeys lists AIRA_* variables in environ that no setting consumed.
func (e *envReader) unknownKeys(environ []string) []string {
	var unknown []string
	for _, kv := range environ {
		key, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		if _, ok := e.consumed[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	return unknown
}
