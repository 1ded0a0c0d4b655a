// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// A2A RPC method names.
const (
	// MethodTasksSend is the method name for sending a task.
	MethodTasksSend = "tasks/send"
	// MethodTasksGet is the method name for getting a task.
	MethodTasksGet = "tasks/get"
	// MethodTasksCancel is the method name for canceling a task.
	MethodTasksCancel = "tasks/cancel"
)

// ID is the JSON-RPC correlation token of a call: a string, a number or null.
//
// The original JSON text is kept so that a response echoes the id of its call exactly.
type ID struct {
	raw jsontext.Value
}

// NewID returns an ID holding v, which must be a string, an integer or nil.
func NewID(v any) (ID, error) {
	switch v.(type) {
	case nil, string, int, int32, int64, uint, uint32, uint64, float64:
	default:
		return ID{}, fmt.Errorf("invalid id type %T", v)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ID{}, err
	}
	return ID{raw: raw}, nil
}

// MustID is like [NewID] but panics on error.
func MustID(v any) ID {
	id, err := NewID(v)
	if err != nil {
		panic(err)
	}
	return id
}

// IsNull reports whether id is absent or JSON null.
func (id ID) IsNull() bool {
	return len(id.raw) == 0 || id.raw.Kind() == 'n'
}

// String returns the JSON text of id.
func (id ID) String() string {
	if len(id.raw) == 0 {
		return "null"
	}
	return string(id.raw)
}

// MarshalJSON implements [json.Marshaler].
func (id ID) MarshalJSON() ([]byte, error) {
	if len(id.raw) == 0 {
		return []byte("null"), nil
	}
	return id.raw, nil
}

// UnmarshalJSON implements [json.Unmarshaler].
func (id *ID) UnmarshalJSON(data []byte) error {
	raw := jsontext.Value(data).Clone()
	switch raw.Kind() {
	case 'n', '"', '0':
	default:
		return fmt.Errorf("id must be a string, number or null, got %s", raw.Kind())
	}
	id.raw = raw
	return nil
}

// Request is a JSON-RPC 2.0 call.
type Request struct {
	// JSONRPC is the protocol version; only [Version] is accepted.
	JSONRPC string `json:"jsonrpc"`
	// ID correlates the call with its response.
	ID ID `json:"id"`
	// Method identifies the operation to perform.
	Method string `json:"method"`
	// Params contains the undecoded parameters of the method.
	Params jsontext.Value `json:"params,omitzero"`
}

// NewRequest returns a call of method with params encoded as JSON.
func NewRequest(id ID, method string, params any) (*Request, error) {
	req := &Request{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		req.Params = raw
	}
	return req, nil
}

// DecodeParams decodes the params of r into v.
func (r *Request) DecodeParams(v any) error {
	if len(r.Params) == 0 {
		return errors.New("missing params")
	}
	return json.Unmarshal(r.Params, v)
}

// Outcome is the payload of a [Response]: either a [Result] or an [*Error].
//
// The set of implementations is closed, so a type switch over [Result] and [*Error]
// handles every response.
type Outcome interface {
	isOutcome()
}

// Result is the successful [Outcome] of a call.
type Result struct {
	// Value is the method result. On a decoded response it holds the raw
	// [jsontext.Value]; use [Response.DecodeResult] to decode it.
	Value any
}

func (Result) isOutcome() {}

func (*Error) isOutcome() {}

// Response is a JSON-RPC 2.0 response carrying exactly one [Outcome].
type Response struct {
	ID      ID
	Outcome Outcome
}

// NewResponse returns a successful response to the call with id.
func NewResponse(id ID, result any) *Response {
	return &Response{ID: id, Outcome: Result{Value: result}}
}

// NewErrorResponse returns a failed response to the call with id.
func NewErrorResponse(id ID, err *Error) *Response {
	if err == nil {
		err = NewInternalError("nil error")
	}
	return &Response{ID: id, Outcome: err}
}

// Err returns the error carried by r, or nil if r is successful.
func (r *Response) Err() *Error {
	if e, ok := r.Outcome.(*Error); ok {
		return e
	}
	return nil
}

// DecodeResult decodes the result carried by r into v.
// It returns the carried [*Error] if r is a failure.
func (r *Response) DecodeResult(v any) error {
	switch o := r.Outcome.(type) {
	case Result:
		raw, ok := o.Value.(jsontext.Value)
		if !ok {
			var err error
			if raw, err = json.Marshal(o.Value); err != nil {
				return fmt.Errorf("marshal result: %w", err)
			}
		}
		return json.Unmarshal(raw, v)
	case *Error:
		return o
	default:
		return errors.New("response has no outcome")
	}
}

type wireResponse struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      ID             `json:"id"`
	Result  jsontext.Value `json:"result,omitzero"`
	Error   *Error         `json:"error,omitzero"`
}

// MarshalJSON implements [json.Marshaler].
func (r Response) MarshalJSON() ([]byte, error) {
	w := wireResponse{
		JSONRPC: Version,
		ID:      r.ID,
	}
	switch o := r.Outcome.(type) {
	case Result:
		raw, err := json.Marshal(o.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal result: %w", err)
		}
		w.Result = raw
	case *Error:
		if o == nil {
			return nil, errors.New("response has a nil error")
		}
		w.Error = o
	default:
		return nil, errors.New("response has no outcome")
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements [json.Unmarshaler].
func (r *Response) UnmarshalJSON(data []byte) error {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Error != nil && len(w.Result) > 0:
		return errors.New("response carries both result and error")
	case w.Error != nil:
		r.Outcome = w.Error
	case len(w.Result) > 0:
		r.Outcome = Result{Value: w.Result}
	default:
		return errors.New("response carries neither result nor error")
	}
	r.ID = w.ID
	return nil
}
