// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sse

import "context"

// Handlers receive the callbacks of one streaming connection. Any of them
// may be invoked from a goroutine owned by the transport.
type Handlers struct {
	OnOpen  func()
	OnEvent func(Event)
	OnError func(error)
}

// Conn is an open streaming connection.
type Conn interface {
	// Close terminates the connection. It must be idempotent and must
	// not trigger OnError.
	Close() error
}

// Dialer opens streaming connections. A returned error means the
// connection could not be constructed at all.
type Dialer interface {
	Dial(ctx context.Context, url string, h Handlers) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, url string, h Handlers) (Conn, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, url string, h Handlers) (Conn, error) {
	return f(ctx, url, h)
}
