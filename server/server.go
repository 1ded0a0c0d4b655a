// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package server implements the JSON-RPC front-end of an A2A agent: call validation,
// method dispatch to an [Executor], and streaming of task status events over
// Server-Sent Events.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-json-experiment/json"

	"github.com/go-a2a/a2a-gateway"
)

// Well-known paths the agent card is served from.
const (
	AgentCardPath       = "/.well-known/agent-card"
	LegacyAgentCardPath = "/.well-known/agent.json"
)

// fallbackError returns the internal error envelope sent with id when a response
// cannot be encoded.
func fallbackError(id a2a.ID) []byte {
	return []byte(`{"jsonrpc":"2.0","id":` + id.String() + `,"error":{"code":-32603,"message":"Internal error"}}`)
}

// Server serves the synchronous, streaming and agent card endpoints of an agent.
type Server struct {
	opts       *options
	logger     *slog.Logger
	dispatcher *Dispatcher
	card       []byte
	router     chi.Router
}

var _ http.Handler = (*Server)(nil)

// New returns a [Server] dispatching calls to exec.
//
// The agent card is fetched from exec and encoded once, so every read of the card
// endpoints returns the same bytes.
func New(ctx context.Context, exec Executor, opts ...Option) (*Server, error) {
	if exec == nil {
		return nil, errors.New("executor is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	card, err := exec.AgentCard(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch agent card: %w", err)
	}
	data, err := json.Marshal(card)
	if err != nil {
		return nil, fmt.Errorf("encode agent card: %w", err)
	}

	s := &Server{
		opts:       o,
		logger:     o.logger,
		dispatcher: newDispatcher(exec, o),
		card:       data,
	}
	s.router = s.routes()

	return s, nil
}

// Dispatcher returns the [Dispatcher] calls are routed through.
func (s *Server) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Post(s.opts.rpcPath, s.handleRPC)
	r.Post(s.opts.streamPath, s.handleStream)

	r.Group(func(r chi.Router) {
		r.Use(s.cors)
		for _, path := range []string{AgentCardPath, LegacyAgentCardPath} {
			r.Get(path, s.handleAgentCard)
			r.Options(path, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	if s.opts.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.metricsHandler)
	}

	return r
}

// handleRPC serves one synchronous call.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, rpcErr := s.readBody(w, r)
	if rpcErr != nil {
		s.writeResponse(w, r, a2a.HTTPStatus(rpcErr), a2a.NewErrorResponse(a2a.ID{}, rpcErr))
		return
	}
	req, rpcErr := decodeRequest(body)
	if rpcErr != nil {
		s.writeResponse(w, r, a2a.HTTPStatus(rpcErr), a2a.NewErrorResponse(a2a.ID{}, rpcErr))
		return
	}

	resp, executed := s.dispatcher.process(r.Context(), req)
	status := http.StatusOK
	if !executed {
		status = a2a.HTTPStatus(resp.Err())
	}
	s.writeResponse(w, r, status, resp)
}

// handleAgentCard serves the agent card.
func (s *Server) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(s.card)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, *a2a.Error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.maxBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, a2a.NewInvalidRequestError(fmt.Sprintf("request body exceeds %d bytes", mbe.Limit))
		}
		return nil, a2a.NewParseError("read request body: " + err.Error())
	}
	return body, nil
}

// writeResponse writes resp with status. A response that cannot be encoded is replaced
// by an internal error sent with 500.
func (s *Server) writeResponse(w http.ResponseWriter, r *http.Request, status int, resp *a2a.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "encode response", slog.String("id", resp.ID.String()), slog.Any("error", err))
		data, status = fallbackError(resp.ID), http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// cors allows any configured origin to read the agent card.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.opts.allowedOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

// logRequests logs every request once it is served.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.InfoContext(r.Context(), "request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
