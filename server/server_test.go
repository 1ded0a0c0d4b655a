// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/a2a-gateway"
)

func newTestServer(t *testing.T, exec Executor, opts ...Option) *httptest.Server {
	t.Helper()

	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	srv, err := New(t.Context(), exec, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func TestServerRPC(t *testing.T) {
	t.Parallel()

	notFound := &fakeExecutor{get: func(_ context.Context, p *a2a.TaskQueryParams) (*a2a.Task, error) {
		return nil, a2a.NewTaskNotFoundError(p.ID)
	}}

	tests := map[string]struct {
		exec       *fakeExecutor
		opts       []Option
		body       string
		wantStatus int
		wantCode   int
		wantID     string
	}{
		"success": {
			body:       `{"jsonrpc":"2.0","id":7,"method":"tasks/get","params":{"id":"t1"}}`,
			wantStatus: http.StatusOK,
			wantID:     "7",
		},
		"parse error": {
			body:       `{"jsonrpc":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   a2a.ErrorCodeParseError,
			wantID:     "null",
		},
		"invalid request": {
			body:       `{"jsonrpc":"1.0","id":"x","method":"tasks/get","params":{"id":"t1"}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   a2a.ErrorCodeInvalidRequest,
			wantID:     `"x"`,
		},
		"method not found": {
			body:       `{"jsonrpc":"2.0","id":2,"method":"tasks/unknown"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   a2a.ErrorCodeMethodNotFound,
			wantID:     "2",
		},
		"invalid params": {
			body:       `{"jsonrpc":"2.0","id":3,"method":"tasks/get","params":{}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   a2a.ErrorCodeInvalidParams,
			wantID:     "3",
		},
		"executor error": {
			exec:       notFound,
			body:       `{"jsonrpc":"2.0","id":4,"method":"tasks/get","params":{"id":"t1"}}`,
			wantStatus: http.StatusOK,
			wantCode:   a2a.ErrorCodeTaskNotFound,
			wantID:     "4",
		},
		"invalid params from executor": {
			exec: &fakeExecutor{get: func(context.Context, *a2a.TaskQueryParams) (*a2a.Task, error) {
				return nil, a2a.NewInvalidParamsError("unknown skill")
			}},
			body:       `{"jsonrpc":"2.0","id":8,"method":"tasks/get","params":{"id":"t1"}}`,
			wantStatus: http.StatusOK,
			wantCode:   a2a.ErrorCodeInvalidParams,
			wantID:     "8",
		},
		"response not encodable": {
			exec: &fakeExecutor{get: func(_ context.Context, p *a2a.TaskQueryParams) (*a2a.Task, error) {
				return unencodableTask(p.ID), nil
			}},
			body:       `{"jsonrpc":"2.0","id":9,"method":"tasks/get","params":{"id":"t1"}}`,
			wantStatus: http.StatusInternalServerError,
			wantCode:   a2a.ErrorCodeInternalError,
			wantID:     "9",
		},
		"body too large": {
			opts:       []Option{WithMaxBodyBytes(16)},
			body:       `{"jsonrpc":"2.0","id":5,"method":"tasks/get","params":{"id":"t1"}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   a2a.ErrorCodeInvalidRequest,
			wantID:     "null",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			exec := tt.exec
			if exec == nil {
				exec = &fakeExecutor{}
			}
			ts := newTestServer(t, exec, tt.opts...)

			resp, data := post(t, ts.URL+defaultRPCPath, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}

			var got a2a.Response
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal %s: %v", data, err)
			}
			if id := got.ID.String(); id != tt.wantID {
				t.Errorf("id = %s, want %s", id, tt.wantID)
			}
			code := 0
			if rpcErr := got.Err(); rpcErr != nil {
				code = rpcErr.Code
			}
			if code != tt.wantCode {
				t.Errorf("error code = %d, want %d", code, tt.wantCode)
			}
		})
	}
}

func TestServerRPCPaths(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeExecutor{}, WithRPCPath("/rpc"))

	resp, _ := post(t, ts.URL+"/rpc", `{"jsonrpc":"2.0","id":1,"method":"tasks/get","params":{"id":"t1"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("POST /rpc status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp, _ = post(t, ts.URL+defaultRPCPath, `{}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("POST %s status = %d, want %d", defaultRPCPath, resp.StatusCode, http.StatusNotFound)
	}
}

// readFrames splits an event stream into its frames.
func readFrames(t *testing.T, data []byte) []Frame {
	t.Helper()

	var frames []Frame
	for _, block := range bytes.Split(bytes.TrimSpace(data), []byte("\n\n")) {
		var f Frame
		for _, line := range strings.Split(string(block), "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				f.Event = EventKind(strings.TrimPrefix(line, "event: "))
			case strings.HasPrefix(line, "data: "):
				f.Data = []byte(strings.TrimPrefix(line, "data: "))
			default:
				t.Fatalf("unexpected line %q", line)
			}
		}
		frames = append(frames, f)
	}
	return frames
}

func TestServerStream(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		exec *fakeExecutor
		body string
		want []frameSummary
	}{
		"success": {
			body: sendBody,
			want: []frameSummary{
				{Event: EventUpdate, State: a2a.TaskStateWorking},
				{Event: EventUpdate, State: a2a.TaskStateCompleted, Final: true},
			},
		},
		"executor error": {
			exec: &fakeExecutor{send: func(_ context.Context, p *a2a.TaskSendParams) (*a2a.Task, error) {
				return nil, errors.New("agent crashed")
			}},
			body: sendBody,
			want: []frameSummary{
				{Event: EventUpdate, State: a2a.TaskStateWorking},
				{Event: EventError, ErrorCode: a2a.ErrorCodeInternalError},
			},
		},
		"parse error": {
			body: `not json`,
			want: []frameSummary{{Event: EventError, ErrorCode: a2a.ErrorCodeParseError}},
		},
		"method not found": {
			body: `{"jsonrpc":"2.0","id":1,"method":"tasks/cancel","params":{"id":"t1"}}`,
			want: []frameSummary{{Event: EventError, ErrorCode: a2a.ErrorCodeMethodNotFound}},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			exec := tt.exec
			if exec == nil {
				exec = &fakeExecutor{}
			}
			ts := newTestServer(t, exec)

			resp, data := post(t, ts.URL+defaultStreamPath, tt.body)
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
				t.Errorf("Content-Type = %q, want text/event-stream", ct)
			}

			var got []frameSummary
			for _, f := range readFrames(t, data) {
				got = append(got, summarize(t, f))
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("frames mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestServerAgentCard(t *testing.T) {
	t.Parallel()

	card := &a2a.AgentCard{
		Name:         "echo",
		URL:          "http://localhost:8080",
		Version:      "1.0.0",
		Capabilities: a2a.AgentCapabilities{Streaming: true},
		Skills:       []a2a.AgentSkill{{ID: "echo", Name: "Echo"}},
	}
	ts := newTestServer(t, &fakeExecutor{card: card}, WithAllowedOrigin("https://example.com"))

	want, err := json.Marshal(card)
	if err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{AgentCardPath, LegacyAgentCardPath} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		got, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.Fatal(err)
		}

		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, resp.StatusCode, http.StatusOK)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("GET %s body = %s, want %s", path, got, want)
		}
		if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "https://example.com" {
			t.Errorf("GET %s Access-Control-Allow-Origin = %q", path, origin)
		}
	}

	req, err := http.NewRequestWithContext(t.Context(), http.MethodOptions, ts.URL+AgentCardPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
}

func TestServerHealthAndMetrics(t *testing.T) {
	t.Parallel()

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "a2a_rpc_calls_total 1\n")
	})
	ts := newTestServer(t, &fakeExecutor{}, WithMetricsHandler(metrics))

	tests := map[string]string{
		"/healthz": "ok\n",
		"/metrics": "a2a_rpc_calls_total 1\n",
	}
	for path, want := range tests {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		got, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusOK || string(got) != want {
			t.Errorf("GET %s = %d %q, want 200 %q", path, resp.StatusCode, got, want)
		}
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	if _, err := New(t.Context(), nil); err == nil {
		t.Error("New(nil) succeeded, want error")
	}

	errCard := errors.New("card unavailable")
	exec := &fakeExecutor{cardFn: func(context.Context) (*a2a.AgentCard, error) {
		return nil, errCard
	}}
	if _, err := New(t.Context(), exec); !errors.Is(err, errCard) {
		t.Errorf("New() error = %v, want %v", err, errCard)
	}
}
