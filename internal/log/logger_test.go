// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestConfigure_ServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "aira-test", Version: "v0.0.1"})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithComponent("sse")
	l.Info().Str(FieldEvent, "sse.connect").Msg("connecting")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "aira-test", entry["service"])
	assert.Equal(t, "v0.0.1", entry["version"])
	assert.Equal(t, "sse", entry[FieldComponent])
	assert.Equal(t, "sse.connect", entry[FieldEvent])
}

func TestConfigure_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "loud", Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	l := Base()
	l.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
}

func TestWithContext(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want map[string]string
	}{
		{
			name: "no ids",
			ctx:  context.Background(),
			want: map[string]string{},
		},
		{
			name: "request and session",
			ctx:  ContextWithSessionID(ContextWithRequestID(context.Background(), "req-1"), "sess-1"),
			want: map[string]string{FieldRequestID: "req-1", FieldSessionID: "sess-1"},
		},
		{
			name: "flow only",
			ctx:  ContextWithFlowID(context.Background(), "flow-9"),
			want: map[string]string{FieldFlowID: "flow-9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := WithContext(tt.ctx, zerolog.New(&buf))
			l.Info().Msg("x")

			entry := decodeLine(t, &buf)
			for k, v := range tt.want {
				assert.Equal(t, v, entry[k])
			}
			for _, k := range []string{FieldRequestID, FieldSessionID, FieldFlowID} {
				if _, ok := tt.want[k]; !ok {
					assert.NotContains(t, entry, k)
				}
			}
		})
	}
}

func TestContextHelpers_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	assert.Equal(t, "", RequestIDFromContext(nil))
	//nolint:staticcheck
	ctx := ContextWithSessionID(nil, "s")
	assert.Equal(t, "s", SessionIDFromContext(ctx))
}

func TestFromContext_FallsBackToBase(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)

	var buf bytes.Buffer
	custom := zerolog.New(&buf)
	ctx := custom.WithContext(context.Background())
	got := FromContext(ctx)
	got.Info().Msg("via ctx")
	assert.Contains(t, buf.String(), "via ctx")
}
