// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the client configuration from defaults, an optional
// YAML file and AIRA_* environment variables, in that order of precedence.
package config

import (
	"time"

	"github.com/aira-org/aira-client-os/internal/cache"
	"github.com/aira-org/aira-client-os/internal/prefs"
	"github.com/aira-org/aira-client-os/internal/telemetry"
)

// AppConfig is the fully resolved configuration.
type AppConfig struct {
	LogLevel  string          `yaml:"logLevel"`
	API       APIConfig       `yaml:"api"`
	SSE       SSEConfig       `yaml:"sse"`
	Linking   LinkingConfig   `yaml:"linking"`
	Prefs     PrefsConfig     `yaml:"prefs"`
	Cache     CacheConfig     `yaml:"cache"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Metrics   MetricsConfig   `yaml:"metrics"`

	// Version is stamped by the binary, never read from file or env.
	Version string `yaml:"-"`
}

// APIConfig points the client at the backend.
type APIConfig struct {
	BaseURL          string        `yaml:"baseURL"`
	Token            string        `yaml:"token"`
	Timeout          time.Duration `yaml:"timeout"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
}

// SSEConfig tunes event-stream sessions.
type SSEConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	CompleteEvent string        `yaml:"completeEvent"`
}

// LinkingConfig tunes the pairing-code lifecycle.
type LinkingConfig struct {
	MaxRefreshes int           `yaml:"maxRefreshes"`
	PollInterval time.Duration `yaml:"pollInterval"`
}

// PrefsConfig selects the preference store.
type PrefsConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// CacheConfig selects the session cache. The cache also holds the live
// linking code; only the redis backend keeps it across CLI invocations.
type CacheConfig struct {
	Backend         string        `yaml:"backend"`
	CleanupInterval time.Duration `yaml:"cleanupInterval"`
	RedisAddr       string        `yaml:"redisAddr"`
	RedisPassword   string        `yaml:"redisPassword"`
	RedisDB         int           `yaml:"redisDB"`
	KeyPrefix       string        `yaml:"keyPrefix"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr"`
}

// CacheSettings converts the section into cache.New input.
func (c CacheConfig) CacheSettings() cache.Config {
	return cache.Config{
		Backend:         c.Backend,
		CleanupInterval: c.CleanupInterval,
		Redis: cache.RedisConfig{
			Addr:      c.RedisAddr,
			Password:  c.RedisPassword,
			DB:        c.RedisDB,
			KeyPrefix: c.KeyPrefix,
		},
	}
}

// OpenStore opens the configured preference store.
func (p PrefsConfig) OpenStore() (prefs.Store, error) {
	return prefs.Open(p.Backend, p.Path)
}

// TelemetrySettings converts the section into telemetry.NewProvider input.
func (c AppConfig) TelemetrySettings(service string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    service,
		ServiceVersion: c.Version,
		Environment:    c.Telemetry.Environment,
		ExporterType:   c.Telemetry.Exporter,
		Endpoint:       c.Telemetry.Endpoint,
		SamplingRate:   c.Telemetry.SamplingRate,
	}
}
