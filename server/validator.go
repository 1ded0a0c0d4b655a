// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"github.com/go-a2a/a2a-gateway"
)

// Validate checks the protocol version of req before it is dispatched.
// It returns nil when req may be dispatched; the method is checked by the router.
func Validate(req *a2a.Request) *a2a.Error {
	if req == nil {
		return a2a.NewInvalidRequestError("request is required")
	}
	if req.JSONRPC != a2a.Version {
		return a2a.NewInvalidRequestError(`jsonrpc must be "` + a2a.Version + `"`)
	}
	return nil
}
