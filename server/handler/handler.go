// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package handler exposes the coordinator over HTTP: JSON-RPC 2.0 on the
// RPC endpoint, Server-Sent Events for the streaming methods, and the
// agent card on its well-known path.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-json-experiment/json"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server"
)

// AgentCardPath is the discovery document's well-known path.
const AgentCardPath = "/.well-known/agent.json"

// RPCPath is the JSON-RPC endpoint.
const RPCPath = "/"

// methodFunc handles one non-streaming JSON-RPC method.
type methodFunc func(ctx context.Context, req *a2a.JSONRPCRequest) (any, error)

// Handler is the client-facing HTTP surface. Streaming methods are routed
// to SSE; everything else gets a single JSON-RPC response.
type Handler struct {
	coord   *server.Coordinator
	card    a2a.AgentCard
	logger  *slog.Logger
	methods map[string]methodFunc
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New creates the HTTP handler for the coordinator.
func New(coord *server.Coordinator, card a2a.AgentCard, opts ...Option) *Handler {
	h := &Handler{
		coord:  coord,
		card:   card,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.methods = map[string]methodFunc{
		a2a.MethodTasksSend:   h.handleSend,
		a2a.MethodTasksGet:    h.handleGet,
		a2a.MethodTasksCancel: h.handleCancel,
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == AgentCardPath && r.Method == http.MethodGet:
		h.serveAgentCard(w, r)
	case r.URL.Path == RPCPath && r.Method == http.MethodPost:
		h.serveRPC(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) serveAgentCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.MarshalWrite(w, h.card); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write agent card", slog.Any("error", err))
	}
}

func (h *Handler) serveRPC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeResponse(ctx, w, a2a.NewErrorResponse(a2a.ID{}, &a2a.JSONParseError{Detail: err.Error()}))
		return
	}

	req, err := a2a.DecodeRequest(body)
	if err != nil {
		h.writeResponse(ctx, w, a2a.NewErrorResponse(a2a.ID{}, err))
		return
	}

	h.logger.InfoContext(ctx, "rpc request",
		slog.String("method", req.Method),
		slog.String("id", req.ID.String()),
	)

	switch req.Method {
	case a2a.MethodTasksSendSubscribe, a2a.MethodTasksResubscribe:
		h.serveStream(w, r, req)
		return
	}

	fn, ok := h.methods[req.Method]
	if !ok {
		h.writeResponse(ctx, w, a2a.NewErrorResponse(req.ID, &a2a.MethodNotFoundError{Method: req.Method}))
		return
	}

	result, err := fn(ctx, req)
	if err != nil {
		h.writeResponse(ctx, w, a2a.NewErrorResponse(req.ID, err))
		return
	}
	h.writeResponse(ctx, w, a2a.NewSuccessResponse(req.ID, result))
}

func (h *Handler) handleSend(ctx context.Context, req *a2a.JSONRPCRequest) (any, error) {
	var params a2a.TaskSendParams
	if err := a2a.DecodeParams(req, &params); err != nil {
		return nil, err
	}
	return h.coord.Submit(ctx, params)
}

func (h *Handler) handleGet(ctx context.Context, req *a2a.JSONRPCRequest) (any, error) {
	var params a2a.TaskQueryParams
	if err := a2a.DecodeParams(req, &params); err != nil {
		return nil, err
	}
	return h.coord.Get(ctx, params)
}

func (h *Handler) handleCancel(ctx context.Context, req *a2a.JSONRPCRequest) (any, error) {
	var params a2a.TaskIDParams
	if err := a2a.DecodeParams(req, &params); err != nil {
		return nil, err
	}
	return h.coord.Cancel(ctx, params)
}

// serveStream handles tasks/sendSubscribe and tasks/resubscribe. The
// JSON-RPC response is the SSE stream itself: each frame carries one
// stream event, and the stream ends after the terminal event.
func (h *Handler) serveStream(w http.ResponseWriter, r *http.Request, req *a2a.JSONRPCRequest) {
	ctx := r.Context()

	if !h.card.Capabilities.Streaming {
		h.writeResponse(ctx, w, a2a.NewErrorResponse(req.ID, &a2a.UnsupportedOperationError{Operation: req.Method}))
		return
	}

	var taskID string
	var from int64

	switch req.Method {
	case a2a.MethodTasksSendSubscribe:
		var params a2a.TaskSendParams
		if err := a2a.DecodeParams(req, &params); err != nil {
			h.writeResponse(ctx, w, a2a.NewErrorResponse(req.ID, err))
			return
		}
		t, err := h.coord.SubmitStreaming(ctx, params)
		if err != nil {
			h.writeResponse(ctx, w, a2a.NewErrorResponse(req.ID, err))
			return
		}
		taskID = t.ID

	case a2a.MethodTasksResubscribe:
		var params a2a.SubscribeParams
		if err := a2a.DecodeParams(req, &params); err != nil {
			h.writeResponse(ctx, w, a2a.NewErrorResponse(req.ID, err))
			return
		}
		if params.ID == "" {
			h.writeResponse(ctx, w, a2a.NewErrorResponse(req.ID, &a2a.InvalidParamsError{Detail: "task ID cannot be empty"}))
			return
		}
		taskID = params.ID
		from = params.From
	}

	sub, err := h.coord.Subscribe(ctx, taskID, from)
	if err != nil {
		h.writeResponse(ctx, w, a2a.NewErrorResponse(req.ID, err))
		return
	}
	defer func() {
		sub.Close()
		h.coord.SubscriberDone()
	}()

	stream, err := NewSSEStream(w)
	if err != nil {
		h.writeResponse(ctx, w, a2a.NewErrorResponse(req.ID, &a2a.InternalError{Detail: err.Error()}))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				if err := sub.Err(); err != nil {
					stream.SendError(err)
				}
				return
			}
			if err := stream.Send(ev); err != nil {
				h.logger.WarnContext(ctx, "sse write failed",
					slog.String("task_id", taskID), slog.Any("error", err))
				return
			}
		}
	}
}

func (h *Handler) writeResponse(ctx context.Context, w http.ResponseWriter, resp *a2a.JSONRPCResponse) {
	data, err := a2a.EncodeResponse(resp)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode response", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		h.logger.WarnContext(ctx, "failed to write response", slog.Any("error", err))
	}
}
