// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAsError(t *testing.T) {
	t.Parallel()

	notFound := NewTaskNotFoundError("t1")

	tests := map[string]struct {
		err  error
		want *Error
	}{
		"nil": {
			err:  nil,
			want: nil,
		},
		"rpc error passes through": {
			err:  notFound,
			want: notFound,
		},
		"wrapped rpc error passes through": {
			err:  fmt.Errorf("get task: %w", notFound),
			want: notFound,
		},
		"executor chosen code passes through": {
			err:  &Error{Code: -32099, Message: "quota exceeded"},
			want: &Error{Code: -32099, Message: "quota exceeded"},
		},
		"typed nil rpc error": {
			err:  (*Error)(nil),
			want: &Error{Code: ErrorCodeInternalError, Message: "nil *Error reported as an error"},
		},
		"context canceled": {
			err:  fmt.Errorf("run agent: %w", context.Canceled),
			want: &Error{Code: ErrorCodeInternalError, Message: "request canceled"},
		},
		"deadline exceeded": {
			err:  context.DeadlineExceeded,
			want: &Error{Code: ErrorCodeInternalError, Message: "request timed out"},
		},
		"plain error": {
			err:  errors.New("boom"),
			want: &Error{Code: ErrorCodeInternalError, Message: "boom"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tt.want, AsError(tt.err)); diff != "" {
				t.Errorf("AsError() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  *Error
		want int
	}{
		"success":          {err: nil, want: http.StatusOK},
		"parse error":      {err: NewParseError(""), want: http.StatusBadRequest},
		"invalid request":  {err: NewInvalidRequestError(""), want: http.StatusBadRequest},
		"method not found": {err: NewMethodNotFoundError("tasks/nope"), want: http.StatusBadRequest},
		"invalid params":   {err: NewInvalidParamsError(""), want: http.StatusBadRequest},
		"internal error":   {err: NewInternalError(""), want: http.StatusOK},
		"task not found":   {err: NewTaskNotFoundError("t1"), want: http.StatusOK},
		"executor code":    {err: NewError(-32099, "custom"), want: http.StatusOK},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewErrorDefaultMessage(t *testing.T) {
	t.Parallel()

	if got, want := NewError(ErrorCodeMethodNotFound, "").Message, "Method not found"; got != want {
		t.Errorf("NewError().Message = %q, want %q", got, want)
	}
	if got, want := NewError(ErrorCodeMethodNotFound, "custom").Message, "custom"; got != want {
		t.Errorf("NewError().Message = %q, want %q", got, want)
	}
	if got := NewError(-1, "").Message; got != "" {
		t.Errorf("NewError(unknown code).Message = %q, want empty", got)
	}
}

func TestErrorIs(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("cancel: %w", NewTaskNotCancelableError("t1"))
	if !errors.Is(err, &Error{Code: ErrorCodeTaskNotCancelable}) {
		t.Error("errors.Is(err, TaskNotCancelable) = false, want true")
	}
	if errors.Is(err, &Error{Code: ErrorCodeTaskNotFound}) {
		t.Error("errors.Is(err, TaskNotFound) = true, want false")
	}
}

func TestWithDataCopies(t *testing.T) {
	t.Parallel()

	base := NewInternalError("x")
	withData := base.WithData("detail")
	if base.Data != nil {
		t.Errorf("WithData modified the receiver: Data = %v", base.Data)
	}
	if withData.Data != "detail" {
		t.Errorf("WithData().Data = %v, want %q", withData.Data, "detail")
	}
}
