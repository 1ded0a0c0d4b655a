// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/go-a2a/a2a-gateway"
)

// fakeExecutor is an [Executor] whose operations can be replaced per test.
// Unset operations return a completed task with the requested id.
type fakeExecutor struct {
	calls atomic.Int32

	send   func(ctx context.Context, p *a2a.TaskSendParams) (*a2a.Task, error)
	get    func(ctx context.Context, p *a2a.TaskQueryParams) (*a2a.Task, error)
	cancel func(ctx context.Context, p *a2a.TaskIDParams) (*a2a.Task, error)
	card   *a2a.AgentCard
	cardFn func(ctx context.Context) (*a2a.AgentCard, error)
}

var _ Executor = (*fakeExecutor)(nil)

func completedTask(id string) *a2a.Task {
	return &a2a.Task{ID: id, Status: a2a.TaskStatus{State: a2a.TaskStateCompleted}}
}

// unencodableTask returns a task with id whose status message cannot be encoded as JSON.
func unencodableTask(id string) *a2a.Task {
	task := completedTask(id)
	task.Status.Message = &a2a.Message{
		Role:  a2a.MessageRoleAgent,
		Parts: []a2a.Part{{Type: a2a.PartTypeData, Data: map[string]any{"ch": make(chan int)}}},
	}
	return task
}

func (f *fakeExecutor) SendTask(ctx context.Context, p *a2a.TaskSendParams) (*a2a.Task, error) {
	f.calls.Add(1)
	if f.send != nil {
		return f.send(ctx, p)
	}
	return completedTask(p.ID), nil
}

func (f *fakeExecutor) GetTask(ctx context.Context, p *a2a.TaskQueryParams) (*a2a.Task, error) {
	f.calls.Add(1)
	if f.get != nil {
		return f.get(ctx, p)
	}
	return completedTask(p.ID), nil
}

func (f *fakeExecutor) CancelTask(ctx context.Context, p *a2a.TaskIDParams) (*a2a.Task, error) {
	f.calls.Add(1)
	if f.cancel != nil {
		return f.cancel(ctx, p)
	}
	return &a2a.Task{ID: p.ID, Status: a2a.TaskStatus{State: a2a.TaskStateCanceled}}, nil
}

func (f *fakeExecutor) AgentCard(ctx context.Context) (*a2a.AgentCard, error) {
	if f.cardFn != nil {
		return f.cardFn(ctx)
	}
	if f.card != nil {
		return f.card, nil
	}
	return &a2a.AgentCard{Name: "fake", URL: "http://localhost", Version: "1.0.0"}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// blockUntilDone is an executor operation that returns once ctx is done.
func blockUntilDone[P any](ctx context.Context, _ P) (*a2a.Task, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
