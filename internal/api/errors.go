// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aira-org/aira-client-os/internal/resilience"
)

// APIError is a failed backend call. Message is what the user may see, so
// it keeps the words the linking classifier matches on: rate limiting
// mentions "limit" and transport failures mention "network".
type APIError struct {
	// Status is the HTTP status, or 0 when no response arrived.
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.Err }

// Temporary reports whether retrying later may succeed.
func (e *APIError) Temporary() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// countsAgainstBreaker is the breaker's failure predicate: transport and
// server errors count. Client errors and caller cancellation do not.
func countsAgainstBreaker(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == 0 || apiErr.Status >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func networkError(err error) *APIError {
	return &APIError{Message: fmt.Sprintf("network error: %v", err), Err: err}
}

func circuitOpenError() *APIError {
	return &APIError{
		Message: "network unavailable: backend circuit open",
		Err:     resilience.ErrCircuitOpen,
	}
}

type errorBody struct {
	Detail  string `json:"detail"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusError builds an APIError from a non-2xx response body.
func statusError(status int, body []byte) *APIError {
	var eb errorBody
	msg := ""
	if json.Unmarshal(body, &eb) == nil {
		switch {
		case eb.Detail != "":
			msg = eb.Detail
		case eb.Message != "":
			msg = eb.Message
		case eb.Error != "":
			msg = eb.Error
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	if status == http.StatusTooManyRequests && !strings.Contains(msg, "limit") {
		msg = "rate limit exceeded: " + msg
	}
	return &APIError{Status: status, Message: msg}
}
