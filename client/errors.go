// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"

	"github.com/go-a2a/a2a-gateway"
)

// HTTPError is returned when the agent answers with a body that is not a JSON-RPC response.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

// IsRPCError reports whether err carries an [*a2a.Error] with code.
func IsRPCError(err error, code int) bool {
	var rpcErr *a2a.Error
	return errors.As(err, &rpcErr) && rpcErr.Code == code
}

// IsTaskNotFoundError reports whether err is due to a task not being found.
func IsTaskNotFoundError(err error) bool {
	return IsRPCError(err, a2a.ErrorCodeTaskNotFound)
}

// IsTaskNotCancelableError reports whether err is due to a task not being cancelable.
func IsTaskNotCancelableError(err error) bool {
	return IsRPCError(err, a2a.ErrorCodeTaskNotCancelable)
}
