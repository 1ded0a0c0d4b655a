// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"

	"github.com/go-a2a/a2a-gateway"
)

// Executor owns task state and performs the task operations routed to it by the [Dispatcher].
//
// An error returned by an Executor is reported to the caller through [a2a.AsError], so an
// [*a2a.Error] chooses the code the failure is reported with.
type Executor interface {
	// SendTask starts or continues the task described by params and returns its state
	// once the agent is done with it.
	SendTask(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, error)

	// GetTask returns the current state of a task.
	GetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error)

	// CancelTask cancels a task and returns its canceled state.
	CancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error)

	// AgentCard returns the descriptor of the agent. It must have no side effects.
	AgentCard(ctx context.Context) (*a2a.AgentCard, error)
}
