// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sse implements a one-shot server-sent events completion listener
// and the text/event-stream transport it runs on.
package sse

import (
	"errors"
	"time"
)

const (
	// DefaultCompleteEvent is the event name that terminates a session.
	DefaultCompleteEvent = "process_complete"

	// DefaultTimeout is the hard ceiling for a session.
	DefaultTimeout = 5 * time.Minute

	// MessageEvent is the type of events sent without an "event:" field.
	MessageEvent = "message"

	// ErrorEvent is the event name treated as a connection error.
	ErrorEvent = "error"
)

var (
	// ErrConnection classifies connection construction failures and
	// connection-level error events.
	ErrConnection = errors.New("sse connection error")

	// ErrTimeout is returned when no terminal event arrived in time.
	ErrTimeout = errors.New("sse connection timeout")

	// ErrClosed is returned when the session was closed by its owner before
	// any terminal event.
	ErrClosed = errors.New("sse session closed")
)

// Event is one dispatched server-sent event.
type Event struct {
	ID    string
	Type  string
	Data  string
	Retry time.Duration
}
