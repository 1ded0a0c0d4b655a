// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"log/slog"
	"net/http"
	"time"
)

// Option represents an option for configuring the [Client].
type Option func(*Client)

// WithHTTPClient sets the [*http.Client] for the [Client].
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithHeaders sets additional HTTP headers sent with every request.
func WithHeaders(headers http.Header) Option {
	return func(c *Client) {
		c.headers = headers.Clone()
	}
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithTimeout bounds every synchronous call. Streams are bounded by their context only.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the [*slog.Logger] for the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRPCPath sets the path of the synchronous endpoint, relative to the base URL.
func WithRPCPath(path string) Option {
	return func(c *Client) {
		c.rpcPath = path
	}
}

// WithStreamPath sets the path of the streaming endpoint, relative to the base URL.
func WithStreamPath(path string) Option {
	return func(c *Client) {
		c.streamPath = path
	}
}
