// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/aira-org/aira-client-os/internal/platform/httpx"
)

// HTTPDialer opens text/event-stream connections over HTTP.
type HTTPDialer struct {
	// Client must not set an overall timeout; the stream stays open until
	// a terminal event. Defaults to httpx.NewStreamingClient().
	Client *http.Client

	// Credentials attaches cookies or tokens to every request.
	Credentials func(*http.Request)
}

// NewHTTPDialer returns a dialer using the hardened streaming client.
func NewHTTPDialer(credentials func(*http.Request)) *HTTPDialer {
	return &HTTPDialer{
		Client:      httpx.NewStreamingClient(),
		Credentials: credentials,
	}
}

// Dial validates rawURL synchronously and then connects in the background.
func (d *HTTPDialer) Dial(ctx context.Context, rawURL string, h Handlers) (Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse stream url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported stream url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("stream url %q has no host", rawURL)
	}

	client := d.Client
	if client == nil {
		client = httpx.NewStreamingClient()
	}

	connCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(connCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if d.Credentials != nil {
		d.Credentials(req)
	}

	c := &httpConn{cancel: cancel, closed: make(chan struct{})}
	go c.run(client, req, h)
	return c, nil
}

type httpConn struct {
	cancel context.CancelFunc
	once   sync.Once
	closed chan struct{}
}

func (c *httpConn) Close() error {
	c.once.Do(func() {
		close(c.closed)
		c.cancel()
	})
	return nil
}

func (c *httpConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *httpConn) fail(h Handlers, err error) {
	if c.isClosed() || h.OnError == nil {
		return
	}
	h.OnError(err)
}

func (c *httpConn) run(client *http.Client, req *http.Request, h Handlers) {
	defer c.cancel()

	resp, err := client.Do(req)
	if err != nil {
		c.fail(h, fmt.Errorf("connect %s: %w", req.URL.Redacted(), err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.fail(h, fmt.Errorf("stream endpoint returned status %d", resp.StatusCode))
		return
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		c.fail(h, fmt.Errorf("unexpected stream content type %q", ct))
		return
	}

	if h.OnOpen != nil && !c.isClosed() {
		h.OnOpen()
	}

	dec := NewDecoder(resp.Body)
	for {
		ev, err := dec.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.fail(h, errors.New("stream closed by server"))
				return
			}
			c.fail(h, fmt.Errorf("read stream: %w", err))
			return
		}
		if c.isClosed() {
			return
		}
		if h.OnEvent != nil {
			h.OnEvent(ev)
		}
	}
}
