// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry holds the OpenTelemetry instruments recorded by the gateway.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer and meter of the gateway.
const InstrumentationName = "github.com/go-a2a/a2a-gateway"

// Metrics records calls, stream frames and stream sessions.
type Metrics struct {
	calls    metric.Int64Counter
	latency  metric.Float64Histogram
	frames   metric.Int64Counter
	sessions metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on m. A nil m uses the global meter provider.
// Instruments that cannot be created are replaced by no-ops after the error is handed
// to [otel.Handle].
func NewMetrics(m metric.Meter) *Metrics {
	if m == nil {
		m = otel.GetMeterProvider().Meter(InstrumentationName)
	}

	var (
		ms  Metrics
		err error
	)

	ms.calls, err = m.Int64Counter("a2a.rpc.calls",
		metric.WithDescription("Count of dispatched JSON-RPC calls"),
	)
	if err != nil {
		otel.Handle(err)
		ms.calls = noop.Int64Counter{}
	}

	ms.latency, err = m.Float64Histogram("a2a.rpc.duration",
		metric.WithDescription("Duration of dispatched JSON-RPC calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
		ms.latency = noop.Float64Histogram{}
	}

	ms.frames, err = m.Int64Counter("a2a.stream.frames",
		metric.WithDescription("Count of frames emitted on streaming sessions"),
	)
	if err != nil {
		otel.Handle(err)
		ms.frames = noop.Int64Counter{}
	}

	ms.sessions, err = m.Int64UpDownCounter("a2a.stream.sessions",
		metric.WithDescription("Streaming sessions currently open"),
	)
	if err != nil {
		otel.Handle(err)
		ms.sessions = noop.Int64UpDownCounter{}
	}

	return &ms
}

// RecordCall records one dispatched call. code is 0 for a successful call.
func (m *Metrics) RecordCall(ctx context.Context, method string, code int, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("rpc.method", method),
		attribute.Int("rpc.jsonrpc.error_code", code),
	)
	m.calls.Add(ctx, 1, attrs)
	m.latency.Record(ctx, d.Seconds(), attrs)
}

// RecordFrame records one emitted stream frame of kind event.
func (m *Metrics) RecordFrame(ctx context.Context, event string) {
	m.frames.Add(ctx, 1, metric.WithAttributes(attribute.String("sse.event", event)))
}

// SessionOpened records a streaming session being opened.
func (m *Metrics) SessionOpened(ctx context.Context) {
	m.sessions.Add(ctx, 1)
}

// SessionClosed records a streaming session closing in state.
func (m *Metrics) SessionClosed(ctx context.Context, state string) {
	m.sessions.Add(ctx, -1, metric.WithAttributes(attribute.String("a2a.session.state", state)))
}

// Tracer returns the gateway tracer from the global tracer provider.
func Tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(InstrumentationName)
}

// NewPrometheusProvider returns a meter provider whose instruments are exported to the
// default Prometheus registry, and the handler serving that registry.
func NewPrometheusProvider() (*sdkmetric.MeterProvider, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	return provider, promhttp.Handler(), nil
}
