// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/go-json-experiment/json"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
)

// SSEStream writes task stream events to an HTTP response as Server-Sent
// Events. The SSE id field carries the event index so a disconnected
// client can resubscribe from its cursor.
type SSEStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// NewSSEStream prepares the response for event streaming. It returns an
// error if the ResponseWriter does not support flushing.
func NewSSEStream(w http.ResponseWriter) (*SSEStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // For Nginx proxy
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEStream{w: w, flusher: flusher}, nil
}

// Send writes one stream event.
func (s *SSEStream) Send(ev *a2a.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Index, ev.Type, data)
	s.flusher.Flush()
	return nil
}

// SendError writes a terminal error frame, used when the subscriber is
// dropped mid-stream.
func (s *SSEStream) SendError(err error) {
	rpcErr := a2a.ToJSONRPCError(err)
	data, merr := json.Marshal(rpcErr)
	if merr != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.w, "event: error\ndata: %s\n\n", data)
	s.flusher.Flush()
}
