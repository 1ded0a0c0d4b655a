// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-a2a/a2a-gateway"
	"github.com/go-a2a/a2a-gateway/internal/telemetry"
)

// handlerFunc decodes the params of req and returns the executor call they bind.
type handlerFunc func(req *a2a.Request) (func(context.Context) (*a2a.Task, error), *a2a.Error)

// params is the constraint satisfied by pointers to method parameter types.
type params[P any] interface {
	*P
	Validate() error
}

// decodeParams decodes and validates the params of req.
func decodeParams[P any, PP params[P]](req *a2a.Request) (PP, *a2a.Error) {
	pp := PP(new(P))
	if err := req.DecodeParams(pp); err != nil {
		return nil, a2a.NewInvalidParamsError(err.Error())
	}
	if err := pp.Validate(); err != nil {
		return nil, a2a.NewInvalidParamsError(err.Error())
	}
	return pp, nil
}

// route adapts an executor operation taking P to a [handlerFunc].
func route[P any, PP params[P]](op func(context.Context, PP) (*a2a.Task, error)) handlerFunc {
	return func(req *a2a.Request) (func(context.Context) (*a2a.Task, error), *a2a.Error) {
		p, rpcErr := decodeParams[P, PP](req)
		if rpcErr != nil {
			return nil, rpcErr
		}
		return func(ctx context.Context) (*a2a.Task, error) {
			return op(ctx, p)
		}, nil
	}
}

// Dispatcher routes validated calls to an [Executor].
//
// Dispatch is synchronous and never retries. Every failure, including a panic in the
// executor, is returned as an error [*a2a.Response].
type Dispatcher struct {
	routes  map[string]handlerFunc
	opts    *options
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *telemetry.Metrics
}

// NewDispatcher returns a [Dispatcher] routing the task methods to exec.
func NewDispatcher(exec Executor, opts ...Option) *Dispatcher {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return newDispatcher(exec, o)
}

func newDispatcher(exec Executor, o *options) *Dispatcher {
	tracer := o.tracer
	if tracer == nil {
		tracer = telemetry.Tracer()
	}
	return &Dispatcher{
		routes: map[string]handlerFunc{
			a2a.MethodTasksSend:   route(exec.SendTask),
			a2a.MethodTasksGet:    route(exec.GetTask),
			a2a.MethodTasksCancel: route(exec.CancelTask),
		},
		opts:    o,
		logger:  o.logger,
		tracer:  tracer,
		metrics: telemetry.NewMetrics(o.meter),
	}
}

// Process validates req and dispatches it.
func (d *Dispatcher) Process(ctx context.Context, req *a2a.Request) *a2a.Response {
	resp, _ := d.process(ctx, req)
	return resp
}

// process is [Dispatcher.Process], also reporting whether the executor was called.
func (d *Dispatcher) process(ctx context.Context, req *a2a.Request) (*a2a.Response, bool) {
	if rpcErr := Validate(req); rpcErr != nil {
		var id a2a.ID
		if req != nil {
			id = req.ID
		}
		d.logger.DebugContext(ctx, "rejected call", slog.String("id", id.String()), slog.Any("error", rpcErr))
		return a2a.NewErrorResponse(id, rpcErr), false
	}
	return d.dispatch(ctx, req)
}

// Dispatch routes req by its method and returns the response to it.
// The response echoes the id of req.
func (d *Dispatcher) Dispatch(ctx context.Context, req *a2a.Request) *a2a.Response {
	resp, _ := d.dispatch(ctx, req)
	return resp
}

// dispatch is [Dispatcher.Dispatch], also reporting whether the executor was called.
func (d *Dispatcher) dispatch(ctx context.Context, req *a2a.Request) (resp *a2a.Response, executed bool) {
	h, ok := d.routes[req.Method]
	if !ok {
		return a2a.NewErrorResponse(req.ID, a2a.NewMethodNotFoundError(req.Method)), false
	}

	ctx, span := d.tracer.Start(ctx, "a2a/"+req.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", req.Method),
			attribute.String("rpc.jsonrpc.request_id", req.ID.String()),
		),
	)
	defer span.End()

	start := time.Now()
	var (
		task *a2a.Task
		err  error
	)
	if call, rpcErr := h(req); rpcErr != nil {
		err = rpcErr
	} else {
		executed = true
		task, err = d.invoke(ctx, call, req.Method)
		if err == nil && task == nil {
			err = a2a.NewInternalError("executor returned no task")
		}
	}

	code := 0
	if err != nil {
		rpcErr := a2a.AsError(err)
		code = rpcErr.Code
		span.SetStatus(codes.Error, rpcErr.Message)
		span.SetAttributes(attribute.Int("rpc.jsonrpc.error_code", rpcErr.Code))
		d.logger.WarnContext(ctx, "call failed",
			slog.String("method", req.Method),
			slog.String("id", req.ID.String()),
			slog.Any("error", err),
		)
		resp = a2a.NewErrorResponse(req.ID, rpcErr)
	} else {
		resp = a2a.NewResponse(req.ID, task)
	}
	d.metrics.RecordCall(ctx, req.Method, code, time.Since(start))

	return resp, executed
}

// invoke runs call, converting a panic into an internal error.
func (d *Dispatcher) invoke(ctx context.Context, call func(context.Context) (*a2a.Task, error), method string) (task *a2a.Task, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "executor panicked",
				slog.String("method", method),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			task, err = nil, a2a.NewInternalError(fmt.Sprintf("executor panicked: %v", r))
		}
	}()
	return call(ctx)
}

// decodeRequest decodes the body of an HTTP request into a call.
func decodeRequest(body []byte) (*a2a.Request, *a2a.Error) {
	if !jsontext.Value(body).IsValid() {
		return nil, a2a.NewParseError("")
	}
	var req a2a.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, a2a.NewInvalidRequestError(err.Error())
	}
	return &req, nil
}
