// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultRPCPath      = "/a2a"
	defaultStreamPath   = "/a2a/stream"
	defaultMaxBodyBytes = 4 << 20
)

type options struct {
	logger         *slog.Logger
	tracer         trace.Tracer
	meter          metric.Meter
	streamTimeout  time.Duration
	allowedOrigin  string
	metricsHandler http.Handler
	rpcPath        string
	streamPath     string
	maxBodyBytes   int64
}

func defaultOptions() *options {
	return &options{
		logger:        slog.Default(),
		allowedOrigin: "*",
		rpcPath:       defaultRPCPath,
		streamPath:    defaultStreamPath,
		maxBodyBytes:  defaultMaxBodyBytes,
	}
}

// Option configures a [Server] or a [Dispatcher].
type Option func(*options)

// WithLogger sets the [*slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer sets the [trace.Tracer] dispatched calls are traced with.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithMeter sets the [metric.Meter] the call and stream instruments are created on.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithStreamTimeout bounds how long a streaming session waits for the executor.
// Zero, the default, waits until the client goes away.
func WithStreamTimeout(d time.Duration) Option {
	return func(o *options) {
		o.streamTimeout = d
	}
}

// WithAllowedOrigin sets the Access-Control-Allow-Origin value of the agent card endpoints.
func WithAllowedOrigin(origin string) Option {
	return func(o *options) {
		o.allowedOrigin = origin
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(o *options) {
		o.metricsHandler = h
	}
}

// WithRPCPath sets the path of the synchronous endpoint.
func WithRPCPath(path string) Option {
	return func(o *options) {
		if path != "" {
			o.rpcPath = path
		}
	}
}

// WithStreamPath sets the path of the streaming endpoint.
func WithStreamPath(path string) Option {
	return func(o *options) {
		if path != "" {
			o.streamPath = path
		}
	}
}

// WithMaxBodyBytes limits the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}
