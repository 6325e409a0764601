// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aira-org/aira-client-os/internal/cache"
	"github.com/aira-org/aira-client-os/internal/linking"
	"github.com/aira-org/aira-client-os/internal/log"
	"github.com/aira-org/aira-client-os/internal/prefs"
	"github.com/aira-org/aira-client-os/internal/sse"
	"github.com/aira-org/aira-client-os/internal/telemetry"
	"gopkg.in/yaml.v3"
)

// Defaults applied before file and environment.
const (
	DefaultBaseURL          = "http://localhost:8000"
	DefaultAPITimeout       = 10 * time.Second
	DefaultBreakerThreshold = 5
	DefaultBreakerReset     = 30 * time.Second
	DefaultPrefsPath        = "aira-prefs.json"
	DefaultCacheCleanup     = time.Minute
	DefaultMetricsAddr      = "127.0.0.1:9464"
)

// Loader resolves configuration with precedence ENV > File > Defaults.
type Loader struct {
	configPath string
	version    string
	lookup     LookupFunc
	environ    func() []string
}

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

// WithLookup replaces os.LookupEnv and os.Environ. Used by tests.
func WithLookup(env map[string]string) LoaderOption {
	return func(l *Loader) {
		l.lookup = mapLookup(env)
		l.environ = func() []string {
			out := make([]string, 0, len(env))
			for k, v := range env {
				out = append(out, k+"="+v)
			}
			return out
		}
	}
}

func mapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// NewLoader creates a loader. An empty configPath skips the file stage.
func NewLoader(configPath, version string, opts ...LoaderOption) *Loader {
	l := &Loader{
		configPath: configPath,
		version:    version,
		lookup:     os.LookupEnv,
		environ:    os.Environ,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel: "info",
		API: APIConfig{
			BaseURL:          DefaultBaseURL,
			Timeout:          DefaultAPITimeout,
			BreakerThreshold: DefaultBreakerThreshold,
			BreakerReset:     DefaultBreakerReset,
		},
		SSE: SSEConfig{
			Timeout:       sse.DefaultTimeout,
			CompleteEvent: sse.DefaultCompleteEvent,
		},
		Linking: LinkingConfig{
			MaxRefreshes: linking.DefaultMaxRefreshes,
			PollInterval: linking.DefaultPollInterval,
		},
		Prefs: PrefsConfig{
			Backend: prefs.BackendFile,
			Path:    DefaultPrefsPath,
		},
		Cache: CacheConfig{
			Backend:         cache.BackendMemory,
			CleanupInterval: DefaultCacheCleanup,
		},
		Telemetry: TelemetryConfig{
			Exporter:     telemetry.ExporterGRPC,
			Endpoint:     "localhost:4317",
			Environment:  "development",
			SamplingRate: 1.0,
		},
		Metrics: MetricsConfig{
			ListenAddr: DefaultMetricsAddr,
		},
	}
}

// Load runs defaults, strict file parse, env overrides and validation.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	env := newEnvReader(l.lookup)
	env.mergeEnv(&cfg)
	if unknown := env.unknownKeys(l.environ()); len(unknown) > 0 {
		logger := log.WithComponent("config")
		logger.Warn().
			Str(log.FieldEvent, "config.unknown_env").
			Strs("keys", unknown).
			Msg("ignoring unknown AIRA_* environment variables")
	}

	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file onto cfg with unknown fields rejected.
func loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}
