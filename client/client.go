// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package client calls an A2A agent served by the gateway.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"

	"github.com/go-a2a/a2a-gateway"
)

const (
	defaultRPCPath    = "/a2a"
	defaultStreamPath = "/a2a/stream"
	defaultUserAgent  = "a2a-gateway-client"
)

// Client calls the task methods of an agent over HTTP.
type Client struct {
	baseURL    string
	rpcPath    string
	streamPath string
	hc         *http.Client
	headers    http.Header
	userAgent  string
	timeout    time.Duration
	logger     *slog.Logger

	nextID atomic.Int64
}

// New returns a [Client] for the agent served at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		rpcPath:    defaultRPCPath,
		streamPath: defaultStreamPath,
		hc:         http.DefaultClient,
		userAgent:  defaultUserAgent,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SendTask sends params.Message to the task of params and returns the task once the
// agent is done with it. An empty params.ID is replaced by a new random ID.
func (c *Client) SendTask(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, error) {
	if params.ID == "" {
		params.ID = uuid.NewString()
	}
	var task a2a.Task
	if err := c.call(ctx, a2a.MethodTasksSend, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask returns the current state of a task.
func (c *Client) GetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	var task a2a.Task
	if err := c.call(ctx, a2a.MethodTasksGet, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CancelTask cancels a task and returns its canceled state.
func (c *Client) CancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error) {
	var task a2a.Task
	if err := c.call(ctx, a2a.MethodTasksCancel, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CheckAvailability reports whether the agent answers its health check.
func (c *Client) CheckAvailability(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	c.setHeaders(req, "text/plain")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode, Body: readSnippet(resp.Body)}
	}
	return nil
}

// newRequest returns a call of method with a fresh numeric id.
func (c *Client) newRequest(method string, params any) (*a2a.Request, error) {
	return a2a.NewRequest(a2a.MustID(c.nextID.Add(1)), method, params)
}

// call performs one synchronous call and decodes its result into result.
// A response carrying an error is returned as that [*a2a.Error].
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	rpcReq, err := c.newRequest(method, params)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(rpcReq)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.rpcPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req, "application/json")

	c.logger.DebugContext(ctx, "call", slog.String("method", method), slog.String("id", rpcReq.ID.String()))
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	var rpcResp a2a.Response
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Body: snippet(body)}
	}
	if rpcErr := rpcResp.Err(); rpcErr != nil {
		return rpcErr
	}
	if rpcResp.ID.String() != rpcReq.ID.String() {
		return fmt.Errorf("response id %s does not match request id %s", rpcResp.ID, rpcReq.ID)
	}

	return rpcResp.DecodeResult(result)
}

func (c *Client) setHeaders(req *http.Request, accept string) {
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
}

const maxSnippet = 512

func snippet(b []byte) string {
	if len(b) > maxSnippet {
		b = b[:maxSnippet]
	}
	return strings.TrimSpace(string(b))
}

func readSnippet(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxSnippet))
	if err != nil && !errors.Is(err, io.EOF) {
		return err.Error()
	}
	return snippet(b)
}
