// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"fmt"
)

// StoreError represents an error from a [Store].
type StoreError struct {
	Operation string
	TaskID    string
	Err       error
}

// Error returns the error message.
func (e StoreError) Error() string {
	return fmt.Sprintf("task store %s operation failed for task %q: %v", e.Operation, e.TaskID, e.Err)
}

// Unwrap returns the underlying error.
func (e StoreError) Unwrap() error {
	return e.Err
}

// ValidationError represents an error when a task cannot be stored as given.
type ValidationError struct {
	TaskID string
	Err    error
}

// Error returns the error message.
func (e ValidationError) Error() string {
	return fmt.Sprintf("task %q validation failed: %v", e.TaskID, e.Err)
}

// Unwrap returns the underlying error.
func (e ValidationError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new [StoreError].
func NewStoreError(operation, taskID string, err error) StoreError {
	return StoreError{
		Operation: operation,
		TaskID:    taskID,
		Err:       err,
	}
}

// NewValidationError creates a new [ValidationError].
func NewValidationError(taskID string, err error) ValidationError {
	return ValidationError{
		TaskID: taskID,
		Err:    err,
	}
}
