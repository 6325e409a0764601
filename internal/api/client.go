// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api is the client for the AiRA backend REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aira-org/aira-client-os/internal/clock"
	xglog "github.com/aira-org/aira-client-os/internal/log"
	"github.com/aira-org/aira-client-os/internal/metrics"
	"github.com/aira-org/aira-client-os/internal/platform/httpx"
	platformnet "github.com/aira-org/aira-client-os/internal/platform/net"
	"github.com/aira-org/aira-client-os/internal/resilience"
)

// Backend routes.
const (
	PathConnect      = "/api/v1/whatsapp/connect"
	PathLinkStatus   = "/api/v1/whatsapp/status"
	PathGroups       = "/api/v1/whatsapp/groups"
	PathConnectors   = "/api/v1/connectors"
	PathRules        = "/api/v1/rules"
	PathProcessEvent = "/api/v1/process/%s/events"
)

const (
	defaultTimeout          = 10 * time.Second
	defaultBreakerThreshold = 5
	defaultBreakerReset     = 30 * time.Second
	maxErrorBody            = 64 << 10
)

// Config configures a Client.
type Config struct {
	// BaseURL is the backend origin, e.g. https://api.example.com.
	BaseURL string
	// Token is sent as a bearer token when set.
	Token string
	// Timeout bounds each call. Defaults to 10s.
	Timeout time.Duration

	BreakerThreshold int
	BreakerReset     time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock sets the clock used by the circuit breaker.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// Client calls the backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	clock   clock.Clock
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
}

// New validates cfg and returns a client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if _, ok := platformnet.ParseDirectHTTPURL(cfg.BaseURL); !ok {
		return nil, fmt.Errorf("api: base url %q must be an absolute http(s) url without credentials",
			platformnet.SanitizeURL(cfg.BaseURL))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = defaultBreakerThreshold
	}
	if cfg.BreakerReset <= 0 {
		cfg.BreakerReset = defaultBreakerReset
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		clock:   clock.Real{},
		logger:  xglog.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpx.Instrument(httpx.NewClient(cfg.Timeout), "aira-api")
	}
	c.breaker = resilience.NewCircuitBreaker("backend_api", cfg.BreakerThreshold, cfg.BreakerReset,
		resilience.WithClock(c.clock),
		resilience.WithFailurePredicate(countsAgainstBreaker),
	)
	return c, nil
}

// BaseURL returns the backend origin without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Credentials attaches the bearer token to req. It is shared with the
// event-stream dialer so both carry the same identity.
func (c *Client) Credentials(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// BreakerState exposes the circuit state for diagnostics.
func (c *Client) BreakerState() resilience.State { return c.breaker.State() }

// ProcessEventsPath is the event-stream path for a background process.
func ProcessEventsPath(processID string) string {
	return fmt.Sprintf(PathProcessEvent, url.PathEscape(processID))
}

// do sends one JSON request through the breaker and decodes a 2xx body
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, operation, method, path string, in, out any) error {
	start := time.Now()
	err := c.breaker.Execute(func() error {
		return c.roundTrip(ctx, method, path, in, out)
	})
	elapsed := time.Since(start)

	outcome := "success"
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		outcome = "circuit_open"
		err = circuitOpenError()
	case err != nil:
		outcome = "failure"
	}
	metrics.RecordAPIRequest(operation, outcome, elapsed)

	logger := xglog.WithContext(ctx, c.logger)
	if err != nil {
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "api.request_failed").
			Str("operation", operation).
			Dur("elapsed", elapsed).
			Msg("backend call failed")
		return err
	}
	logger.Debug().
		Str(xglog.FieldEvent, "api.request").
		Str("operation", operation).
		Dur("elapsed", elapsed).
		Msg("backend call")
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Credentials(req)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return networkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(resp.StatusCode, data)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err), Err: err}
	}
	return nil
}
