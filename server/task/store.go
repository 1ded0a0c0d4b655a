// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package task provides the reference task executor of the gateway and the stores it
// keeps tasks in.
package task

import (
	"context"
	"errors"

	"github.com/go-a2a/a2a-gateway"
)

// Store defines the interface for task persistence operations.
//
// Get and Delete report a missing task with the [*a2a.Error] returned by
// [a2a.NewTaskNotFoundError].
type Store interface {
	// Save persists a task, replacing any task with the same ID.
	Save(ctx context.Context, task *a2a.Task) error

	// Get retrieves a task by its ID.
	Get(ctx context.Context, taskID string) (*a2a.Task, error)

	// Delete removes a task.
	Delete(ctx context.Context, taskID string) error

	// List retrieves tasks ordered by ID. A non-empty sessionID restricts the result to
	// the tasks of that session. A non-positive limit returns every task.
	List(ctx context.Context, sessionID string, limit, offset int) ([]*a2a.Task, error)

	// Count returns the number of tasks, restricted to sessionID when it is not empty.
	Count(ctx context.Context, sessionID string) (int64, error)

	// Initialize prepares the storage backend for use.
	Initialize(ctx context.Context) error

	// Close releases the storage backend.
	Close(ctx context.Context) error
}

// validateTask reports whether task can be stored.
func validateTask(task *a2a.Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}
	if task.ID == "" {
		return NewValidationError(task.ID, errors.New("task ID cannot be empty"))
	}
	if task.Status.State == "" {
		return NewValidationError(task.ID, errors.New("task state cannot be empty"))
	}
	return nil
}
