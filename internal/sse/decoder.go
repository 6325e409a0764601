// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

const maxLineBytes = 1 << 20

// Decoder reads events from a text/event-stream body.
type Decoder struct {
	scanner *bufio.Scanner
	lastID  string
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	return &Decoder{scanner: scanner}
}

// Decode returns the next dispatched event. Blocks that carry no data
// line are not dispatched. It returns io.EOF when the stream ends; a
// partially received event at EOF is discarded.
func (d *Decoder) Decode() (Event, error) {
	var (
		eventType string
		data      strings.Builder
		hasData   bool
		retry     time.Duration
	)

	for d.scanner.Scan() {
		line := d.scanner.Text()

		if line == "" {
			if !hasData {
				eventType = ""
				retry = 0
				continue
			}
			payload := strings.TrimSuffix(data.String(), "\n")
			if eventType == "" {
				eventType = MessageEvent
			}
			return Event{ID: d.lastID, Type: eventType, Data: payload, Retry: retry}, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "event":
			eventType = value
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				d.lastID = value
			}
		case "retry":
			if ms, err := strconv.ParseUint(value, 10, 63); err == nil {
				retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := d.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}
