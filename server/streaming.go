// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/go-a2a/a2a-gateway"
	"github.com/go-a2a/a2a-gateway/internal/pool"
)

// handleStream serves a tasks/send call as a Server-Sent Events stream.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeResponse(w, r, http.StatusInternalServerError, a2a.NewErrorResponse(a2a.ID{}, a2a.NewInternalError("streaming unsupported")))
		return
	}

	var sess *Session
	body, rpcErr := s.readBody(w, r)
	if rpcErr == nil {
		var req *a2a.Request
		req, rpcErr = decodeRequest(body)
		if rpcErr == nil {
			sess = s.dispatcher.NewSession(req)
		}
	}
	if rpcErr != nil {
		sess = s.dispatcher.newRejectedSession(rpcErr)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // For Nginx proxy
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		return sess.Run(ctx)
	})
	g.Go(func() error {
		return writeFrames(w, flusher, sess.Frames())
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WarnContext(r.Context(), "stream ended early", slog.String("session", sess.ID()), slog.Any("error", err))
	}
}

// writeFrames writes every frame received on frames until it is closed.
func writeFrames(w http.ResponseWriter, flusher http.Flusher, frames <-chan Frame) error {
	for f := range frames {
		buf := pool.Bytes.Get()
		buf.WriteString("event: ")
		buf.WriteString(string(f.Event))
		buf.WriteString("\ndata: ")
		buf.Write(f.Data)
		buf.WriteString("\n\n")

		_, err := w.Write(buf.Bytes())
		pool.Bytes.Put(buf)
		if err != nil {
			return err
		}
		flusher.Flush()
	}
	return nil
}
