// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_DisabledInstallsNoop(t *testing.T) {
	for _, cfg := range []Config{
		{Enabled: false, ServiceName: "aira", ExporterType: ExporterGRPC},
		{Enabled: true, ServiceName: "aira", ExporterType: ExporterNoop},
	} {
		p, err := NewProvider(context.Background(), cfg)
		require.NoError(t, err)
		assert.False(t, p.Enabled())

		_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
		assert.False(t, span.IsRecording())
		span.End()
		assert.NoError(t, p.Shutdown(context.Background()))
	}
}

func TestNewProvider_UnsupportedExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "aira",
		ExporterType: "zipkin",
	})
	require.Error(t, err)
	assert.Equal(t, "unsupported exporter type: zipkin (supported: grpc, http, noop)", err.Error())
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{3.0, "AlwaysOnSampler"},
		{0.0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sampler(tt.rate).Description(), "rate %v", tt.rate)
	}
}

func TestProvider_RecordsStreamSpan(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	p, err := NewProvider(context.Background(), Config{
		ServiceName:  "aira",
		SamplingRate: 1.0,
	}, WithExporter(exp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	require.True(t, p.Enabled())

	_, span := Tracer("aira/sse").Start(context.Background(), "sse.listen")
	span.SetAttributes(StreamAttributes("http://localhost:8000/api/v1/process/p1/events", "process_complete")...)
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "sse.listen", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.String(StreamCompleteEventKey, "process_complete"))

	res := spans[0].Resource.Attributes()
	assert.Contains(t, res, attribute.String("service.name", "aira"))
}

func TestProvider_ShutdownNilSafe(t *testing.T) {
	var p *Provider
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, (&Provider{}).Shutdown(ctx))
}
