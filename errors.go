// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Standard JSON-RPC 2.0 error codes.
const (
	// ErrorCodeParseError indicates invalid JSON payload.
	ErrorCodeParseError = -32700
	// ErrorCodeInvalidRequest indicates request payload validation error.
	ErrorCodeInvalidRequest = -32600
	// ErrorCodeMethodNotFound indicates the method does not exist.
	ErrorCodeMethodNotFound = -32601
	// ErrorCodeInvalidParams indicates invalid method parameters.
	ErrorCodeInvalidParams = -32602
	// ErrorCodeInternalError indicates an internal server error.
	ErrorCodeInternalError = -32603
)

// A2A specific error codes.
const (
	// ErrorCodeTaskNotFound indicates the specified task ID was not found.
	ErrorCodeTaskNotFound = -32001
	// ErrorCodeTaskNotCancelable indicates the task is in a final state and cannot be canceled.
	ErrorCodeTaskNotCancelable = -32002
	// ErrorCodePushNotificationNotSupported indicates the agent does not support push notifications.
	ErrorCodePushNotificationNotSupported = -32003
	// ErrorCodeUnsupportedOperation indicates the requested operation is not supported.
	ErrorCodeUnsupportedOperation = -32004
	// ErrorCodeContentTypeNotSupported indicates a mismatch in supported content types.
	ErrorCodeContentTypeNotSupported = -32005
)

var defaultMessages = map[int]string{
	ErrorCodeParseError:                   "Invalid JSON payload",
	ErrorCodeInvalidRequest:               "Request payload validation error",
	ErrorCodeMethodNotFound:               "Method not found",
	ErrorCodeInvalidParams:                "Invalid parameters",
	ErrorCodeInternalError:                "Internal error",
	ErrorCodeTaskNotFound:                 "Task not found",
	ErrorCodeTaskNotCancelable:            "Task cannot be canceled",
	ErrorCodePushNotificationNotSupported: "Push Notification is not supported",
	ErrorCodeUnsupportedOperation:         "This operation is not supported",
	ErrorCodeContentTypeNotSupported:      "Content type not supported",
}

// Error is the JSON-RPC 2.0 error envelope. It is also a Go error, so executors can
// return it directly to choose the code a failure is reported with.
type Error struct {
	// Code is the error code.
	Code int `json:"code"`
	// Message is a short description of the error.
	Message string `json:"message"`
	// Data contains optional additional error details.
	Data any `json:"data,omitempty"`
}

var _ error = (*Error)(nil)

// NewError returns an [*Error] with code and message. An empty message is replaced
// by the standard message for code, if there is one.
func NewError(code int, message string) *Error {
	if message == "" {
		message = defaultMessages[code]
	}
	return &Error{Code: code, Message: message}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "jsonrpc error <nil>"
	}
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Is reports whether target is an [*Error] with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && e.Code == t.Code
}

// WithData returns a copy of e carrying data.
func (e *Error) WithData(data any) *Error {
	c := *e
	c.Data = data
	return &c
}

// NewParseError returns a parse error.
func NewParseError(detail string) *Error {
	return NewError(ErrorCodeParseError, detail)
}

// NewInvalidRequestError returns an invalid request error.
func NewInvalidRequestError(detail string) *Error {
	return NewError(ErrorCodeInvalidRequest, detail)
}

// NewMethodNotFoundError returns a method not found error for method.
func NewMethodNotFoundError(method string) *Error {
	return NewError(ErrorCodeMethodNotFound, "").WithData(map[string]string{"method": method})
}

// NewInvalidParamsError returns an invalid params error.
func NewInvalidParamsError(detail string) *Error {
	return NewError(ErrorCodeInvalidParams, detail)
}

// NewInternalError returns an internal error.
func NewInternalError(detail string) *Error {
	return NewError(ErrorCodeInternalError, detail)
}

// NewTaskNotFoundError returns a task not found error for the task with id.
func NewTaskNotFoundError(id string) *Error {
	return NewError(ErrorCodeTaskNotFound, "").WithData(map[string]string{"id": id})
}

// NewTaskNotCancelableError returns a task not cancelable error for the task with id.
func NewTaskNotCancelableError(id string) *Error {
	return NewError(ErrorCodeTaskNotCancelable, "").WithData(map[string]string{"id": id})
}

// NewUnsupportedOperationError returns an unsupported operation error.
func NewUnsupportedOperationError(detail string) *Error {
	return NewError(ErrorCodeUnsupportedOperation, detail)
}

// AsError maps err to the error envelope it is reported with.
//
// An [*Error] anywhere in the chain of err is returned unchanged, so codes chosen by
// an executor pass through. A nil [*Error] stored in a non-nil error is an internal
// error. Context cancellation and expiry become internal errors
// naming the cause. Anything else is an internal error carrying err's text.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		if e == nil {
			return NewInternalError("nil *Error reported as an error")
		}
		return e
	}

	switch {
	case errors.Is(err, context.Canceled):
		return NewInternalError("request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return NewInternalError("request timed out")
	default:
		return NewInternalError(err.Error())
	}
}

// HTTPStatus returns the HTTP status code for a synchronous response carrying e that was
// produced before the call reached the executor. Parse, request, method and params
// errors are client errors.
//
// A response to a call the executor handled is sent with 200 whatever its code.
func HTTPStatus(e *Error) int {
	if e == nil {
		return http.StatusOK
	}
	switch e.Code {
	case ErrorCodeParseError, ErrorCodeInvalidRequest, ErrorCodeMethodNotFound, ErrorCodeInvalidParams:
		return http.StatusBadRequest
	default:
		return http.StatusOK
	}
}
