// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/oklog/ulid/v2"

	"github.com/go-a2a/a2a-gateway"
)

// SessionState is the lifecycle state of a [Session].
type SessionState int32

const (
	// SessionOpen is the state of a session that has not emitted its initial update.
	SessionOpen SessionState = iota
	// SessionAwaitingResult is the state of a session waiting on the executor.
	SessionAwaitingResult
	// SessionClosedOK is the state of a session that emitted its final update.
	SessionClosedOK
	// SessionClosedError is the state of a session that emitted an error frame, or
	// whose client went away.
	SessionClosedError
)

// String implements [fmt.Stringer].
func (s SessionState) String() string {
	switch s {
	case SessionOpen:
		return "open"
	case SessionAwaitingResult:
		return "awaiting-result"
	case SessionClosedOK:
		return "closed-ok"
	case SessionClosedError:
		return "closed-error"
	default:
		return fmt.Sprintf("SessionState(%d)", int32(s))
	}
}

// EventKind names the kind of a [Frame].
type EventKind string

const (
	// EventUpdate is a frame carrying a task status update.
	EventUpdate EventKind = "update"
	// EventError is a frame carrying an error envelope.
	EventError EventKind = "error"
)

// Frame is one event of a streaming session. Data is a JSON-RPC response wrapping
// either an [a2a.TaskStatusUpdateEvent] or an [a2a.Error].
type Frame struct {
	Event EventKind
	Data  jsontext.Value
}

// maxFrames is the most frames a session emits: an initial update, then a final
// update or an error.
const maxFrames = 2

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// newSessionID returns a ULID, monotonic within the process.
func newSessionID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Session streams the processing of one tasks/send call as a sequence of frames.
//
// A session emits at most two frames. A successful call yields an update with final
// unset, then an update with final set. A call the executor fails yields the initial
// update, then one error frame. A call rejected before dispatch yields a single error
// frame. The frame channel is closed exactly once, when Run returns.
type Session struct {
	id         string
	req        *a2a.Request
	rejected   *a2a.Error
	dispatcher *Dispatcher
	logger     *slog.Logger

	frames chan Frame
	done   chan struct{}
	state  atomic.Int32
	run    atomic.Bool

	// owned by the goroutine calling Run
	emitted    int
	terminated bool
	err        *a2a.Error
	ctxErr     error
}

// NewSession returns a session streaming the processing of req.
func (d *Dispatcher) NewSession(req *a2a.Request) *Session {
	id := newSessionID()
	return &Session{
		id:         id,
		req:        req,
		dispatcher: d,
		logger:     d.logger.With(slog.String("session", id)),
		frames:     make(chan Frame, maxFrames),
		done:       make(chan struct{}),
	}
}

// newRejectedSession returns a session that only emits rejection as an error frame.
// It is used for bodies that do not decode into a call.
func (d *Dispatcher) newRejectedSession(rejection *a2a.Error) *Session {
	s := d.NewSession(&a2a.Request{})
	s.rejected = rejection
	return s
}

// ID returns the unique identifier of s.
func (s *Session) ID() string { return s.id }

// Frames returns the channel frames are emitted on. It is closed when Run returns.
func (s *Session) Frames() <-chan Frame { return s.frames }

// Done returns a channel closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current state of s.
func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

// Err returns the error s was closed with, or nil.
// It must not be called before Done is closed.
func (s *Session) Err() *a2a.Error { return s.err }

// Run processes the call and emits its frames. It returns once the session is closed.
//
// Run reports a non-nil error only when a frame could not be delivered because ctx was
// done. Canceling ctx also cancels the executor. Run must be called exactly once.
func (s *Session) Run(ctx context.Context) error {
	if !s.run.CompareAndSwap(false, true) {
		panic("server: Session.Run called more than once")
	}

	metrics := s.dispatcher.metrics
	metrics.SessionOpened(ctx)
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "session panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			s.fail(ctx, a2a.NewInternalError(fmt.Sprintf("session panicked: %v", r)))
		}
		if !s.terminated {
			s.state.Store(int32(SessionClosedError))
		}
		close(s.frames)
		close(s.done)
		metrics.SessionClosed(context.WithoutCancel(ctx), s.State().String())
		s.logger.DebugContext(ctx, "session closed", slog.String("state", s.State().String()))
	}()

	s.process(ctx)

	return s.ctxErr
}

func (s *Session) process(ctx context.Context) {
	if s.rejected != nil {
		s.fail(ctx, s.rejected)
		return
	}
	if rpcErr := Validate(s.req); rpcErr != nil {
		s.fail(ctx, rpcErr)
		return
	}
	if s.req.Method != a2a.MethodTasksSend {
		s.fail(ctx, a2a.NewMethodNotFoundError(s.req.Method))
		return
	}
	params, rpcErr := decodeParams[a2a.TaskSendParams](s.req)
	if rpcErr != nil {
		s.fail(ctx, rpcErr)
		return
	}

	initial := &a2a.TaskStatusUpdateEvent{
		ID:     params.ID,
		Status: a2a.NewTaskStatus(a2a.TaskStateWorking),
	}
	if !s.emit(ctx, EventUpdate, a2a.NewResponse(s.req.ID, initial)) {
		return
	}
	s.state.Store(int32(SessionAwaitingResult))

	dctx := ctx
	if d := s.dispatcher.opts.streamTimeout; d > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	resp := s.dispatcher.Dispatch(dctx, s.req)

	switch o := resp.Outcome.(type) {
	case *a2a.Error:
		s.fail(ctx, o)
	case a2a.Result:
		task, ok := o.Value.(*a2a.Task)
		if !ok {
			s.fail(ctx, a2a.NewInternalError(fmt.Sprintf("unexpected result type %T", o.Value)))
			return
		}
		final := &a2a.TaskStatusUpdateEvent{
			ID:       task.ID,
			Status:   task.Status,
			Final:    true,
			Metadata: task.Metadata,
		}
		if s.emit(ctx, EventUpdate, a2a.NewResponse(s.req.ID, final)) {
			s.close(SessionClosedOK)
		}
	}
}

// fail emits rpcErr as an error frame and closes s in the error state.
func (s *Session) fail(ctx context.Context, rpcErr *a2a.Error) {
	if s.terminated {
		s.logger.WarnContext(ctx, "dropped error after session closed", slog.Any("error", rpcErr))
		return
	}
	s.err = rpcErr
	s.emit(ctx, EventError, a2a.NewErrorResponse(s.req.ID, rpcErr))
	s.close(SessionClosedError)
}

func (s *Session) close(state SessionState) {
	s.terminated = true
	s.state.Store(int32(state))
}

// emit encodes resp and sends it as a frame of kind event. It reports whether the frame
// was delivered.
func (s *Session) emit(ctx context.Context, event EventKind, resp *a2a.Response) bool {
	if s.terminated {
		return false
	}
	if s.emitted == maxFrames {
		panic(fmt.Sprintf("server: session emitted more than %d frames", maxFrames))
	}

	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.ErrorContext(ctx, "encode frame", slog.String("event", string(event)), slog.Any("error", err))
		if event == EventError {
			data = fallbackError(s.req.ID)
		} else {
			s.fail(ctx, a2a.NewInternalError("encode update: "+err.Error()))
			return false
		}
	}

	select {
	case s.frames <- Frame{Event: event, Data: data}:
		s.emitted++
		s.dispatcher.metrics.RecordFrame(ctx, string(event))
		return true
	case <-ctx.Done():
		s.ctxErr = ctx.Err()
		s.close(SessionClosedError)
		return false
	}
}
