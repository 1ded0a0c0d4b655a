// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"

	"github.com/go-a2a/a2a-gateway"
)

// Event names of the frames sent by the streaming endpoint.
const (
	EventUpdate = "update"
	EventError  = "error"
)

// StreamEvent is one frame received on a stream. Exactly one of Update or Err is set.
//
// Err is an [*a2a.Error] for an error frame, and any other error when the stream could
// not be read.
type StreamEvent struct {
	Update *a2a.TaskStatusUpdateEvent
	Err    error
}

// SendTaskStreaming sends params.Message over the streaming endpoint and returns the
// events of the stream. The channel is closed when the stream ends or ctx is done.
// An empty params.ID is replaced by a new random ID.
func (c *Client) SendTaskStreaming(ctx context.Context, params *a2a.TaskSendParams) (<-chan StreamEvent, error) {
	if params.ID == "" {
		params.ID = uuid.NewString()
	}

	rpcReq, err := c.newRequest(a2a.MethodTasksSend, params)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.streamPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	c.setHeaders(req, "text/event-stream")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send streaming request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: readSnippet(resp.Body)}
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/event-stream" {
		defer resp.Body.Close()
		return nil, fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	ch := make(chan StreamEvent)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		if err := readEvents(resp.Body, func(event string, data []byte) bool {
			ev := decodeEvent(event, data)
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}); err != nil && ctx.Err() == nil {
			c.logger.DebugContext(ctx, "stream read failed", slog.Any("error", err))
			select {
			case ch <- StreamEvent{Err: fmt.Errorf("read stream: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}

// decodeEvent decodes the data of one frame.
func decodeEvent(event string, data []byte) StreamEvent {
	var resp a2a.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return StreamEvent{Err: fmt.Errorf("decode %s frame: %w", event, err)}
	}
	if rpcErr := resp.Err(); rpcErr != nil {
		return StreamEvent{Err: rpcErr}
	}
	if event != EventUpdate {
		return StreamEvent{Err: fmt.Errorf("unexpected event %q", event)}
	}

	var update a2a.TaskStatusUpdateEvent
	if err := resp.DecodeResult(&update); err != nil {
		return StreamEvent{Err: fmt.Errorf("decode update: %w", err)}
	}
	return StreamEvent{Update: &update}
}

// readEvents reads Server-Sent Events from r and calls yield for each one until yield
// returns false or r is exhausted.
func readEvents(r io.Reader, yield func(event string, data []byte) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)

	var (
		event string
		data  []byte
	)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				if event == "" {
					event = "message"
				}
				if !yield(event, data) {
					return nil
				}
			}
			event, data = "", nil
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")...)
		}
	}
	return sc.Err()
}
