// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package worker runs task executors against the coordinator's worker
// gateway: claim, heartbeat, execute, report. Delivery is at-least-once,
// so executors must tolerate seeing a task again after a lease expiry;
// the full message history travels with every claim to make resumption
// possible.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/dispatch"
)

// DefaultHeartbeatInterval is how often the runner renews its leases. It
// must be comfortably below the lease TTL.
const DefaultHeartbeatInterval = 10 * time.Second

// ErrCanceled is returned by executors that stopped because the task was
// canceled. The runner acknowledges the cancellation instead of failing
// the task.
var ErrCanceled = errors.New("task canceled")

// Gateway is the worker-facing coordinator surface the runner talks to.
// *server.Gateway implements it; tests may substitute their own.
type Gateway interface {
	Claim(ctx context.Context, workerID string) (*server.WorkOrder, error)
	Heartbeat(ctx context.Context, taskID, workerID string) error
	ReportMessage(ctx context.Context, taskID, workerID string, msg a2a.Message) error
	ReportArtifact(ctx context.Context, taskID, workerID string, artifact a2a.Artifact) error
	RequireInput(ctx context.Context, taskID, workerID string) error
	Complete(ctx context.Context, taskID, workerID string) error
	Fail(ctx context.Context, taskID, workerID string, taskErr *a2a.TaskError) error
	AcknowledgeCancel(ctx context.Context, taskID, workerID string) error
}

var _ Gateway = (*server.Gateway)(nil)

// TaskHandle is the executor's view of one claimed task: report methods
// bound to the task and lease, plus the coordinator's cancel and input
// signals.
type TaskHandle struct {
	gateway  Gateway
	workerID string
	task     *a2a.Task
	lease    *dispatch.Lease
}

// Task returns the claimed task snapshot, including its full history.
func (h *TaskHandle) Task() *a2a.Task { return h.task }

// Canceled returns a channel closed when the client requests cancellation.
func (h *TaskHandle) Canceled() <-chan struct{} { return h.lease.Cancel() }

// ReportMessage appends an agent message to the task.
func (h *TaskHandle) ReportMessage(ctx context.Context, msg a2a.Message) error {
	return h.gateway.ReportMessage(ctx, h.task.ID, h.workerID, msg)
}

// ReportArtifact appends an artifact chunk to the task.
func (h *TaskHandle) ReportArtifact(ctx context.Context, artifact a2a.Artifact) error {
	return h.gateway.ReportArtifact(ctx, h.task.ID, h.workerID, artifact)
}

// AwaitInput parks the task in input-required and blocks until the client
// resumes it, cancellation is requested, or the context ends. On resume it
// returns the client's message.
func (h *TaskHandle) AwaitInput(ctx context.Context) (a2a.Message, error) {
	if err := h.gateway.RequireInput(ctx, h.task.ID, h.workerID); err != nil {
		return a2a.Message{}, err
	}

	select {
	case msg := <-h.lease.Input():
		return msg, nil
	case <-h.lease.Cancel():
		return a2a.Message{}, ErrCanceled
	case <-ctx.Done():
		return a2a.Message{}, ctx.Err()
	}
}

// Executor implements the agent's task logic. Execute runs to completion
// for one claimed task: a nil return completes the task, ErrCanceled
// acknowledges cancellation, and any other error fails it. The context is
// canceled when the client requests cancellation, so executors that only
// need cooperative cancel can simply honor ctx.
type Executor interface {
	Execute(ctx context.Context, handle *TaskHandle) error
}

// Runner claims tasks and drives an Executor. One Runner can run several
// claim loops concurrently.
type Runner struct {
	gateway     Gateway
	executor    Executor
	workerID    string
	concurrency int
	heartbeat   time.Duration
	logger      *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConcurrency sets the number of parallel claim loops.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithHeartbeatInterval sets the lease renewal interval.
func WithHeartbeatInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.heartbeat = d
		}
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner for the given worker identity.
func NewRunner(gateway Gateway, executor Executor, workerID string, opts ...RunnerOption) (*Runner, error) {
	if gateway == nil || executor == nil {
		return nil, fmt.Errorf("gateway and executor cannot be nil")
	}
	if workerID == "" {
		return nil, fmt.Errorf("worker ID cannot be empty")
	}

	r := &Runner{
		gateway:     gateway,
		executor:    executor,
		workerID:    workerID,
		concurrency: 1,
		heartbeat:   DefaultHeartbeatInterval,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run claims and executes tasks until the context ends.
func (r *Runner) Run(ctx context.Context) error {
	errc := make(chan error, r.concurrency)
	for i := range r.concurrency {
		go func(slot int) {
			errc <- r.claimLoop(ctx, slot)
		}(i)
	}

	var firstErr error
	for range r.concurrency {
		if err := <-errc; err != nil && firstErr == nil && !errors.Is(err, context.Canceled) {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Runner) claimLoop(ctx context.Context, slot int) error {
	for {
		order, err := r.gateway.Claim(ctx, r.workerID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("claim loop %d: %w", slot, err)
		}

		r.execute(ctx, order)
	}
}

// execute drives one claimed task: heartbeats in the background, the
// executor in the foreground, then the terminal report.
func (r *Runner) execute(ctx context.Context, order *server.WorkOrder) {
	taskID := order.Task.ID

	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	hbDone := make(chan struct{})
	go func() {
		defer close(hbDone)
		ticker := time.NewTicker(r.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-execCtx.Done():
				return
			case <-ticker.C:
				if err := r.gateway.Heartbeat(execCtx, taskID, r.workerID); err != nil {
					r.logger.WarnContext(execCtx, "heartbeat failed",
						slog.String("task_id", taskID), slog.Any("error", err))
					return
				}
			}
		}
	}()

	// Cancellation flows into the executor's context.
	go func() {
		select {
		case <-order.Lease.Cancel():
			cancel()
		case <-execCtx.Done():
		}
	}()

	handle := &TaskHandle{
		gateway:  r.gateway,
		workerID: r.workerID,
		task:     order.Task,
		lease:    order.Lease,
	}

	err := r.executor.Execute(execCtx, handle)
	cancel()
	<-hbDone

	// Terminal reports use the parent context: the execution context is
	// gone but the result still has to reach the coordinator.
	switch {
	case err == nil:
		if rerr := r.gateway.Complete(ctx, taskID, r.workerID); rerr != nil {
			r.logger.ErrorContext(ctx, "failed to report completion",
				slog.String("task_id", taskID), slog.Any("error", rerr))
		}
	case errors.Is(err, ErrCanceled) || (errors.Is(err, context.Canceled) && wasCanceled(order.Lease)):
		if rerr := r.gateway.AcknowledgeCancel(ctx, taskID, r.workerID); rerr != nil {
			r.logger.ErrorContext(ctx, "failed to acknowledge cancel",
				slog.String("task_id", taskID), slog.Any("error", rerr))
		}
	default:
		r.logger.WarnContext(ctx, "executor failed",
			slog.String("task_id", taskID), slog.Any("error", err))
		taskErr := &a2a.TaskError{Code: "execution_error", Message: err.Error()}
		if rerr := r.gateway.Fail(ctx, taskID, r.workerID, taskErr); rerr != nil {
			r.logger.ErrorContext(ctx, "failed to report failure",
				slog.String("task_id", taskID), slog.Any("error", rerr))
		}
	}
}

func wasCanceled(lease *dispatch.Lease) bool {
	select {
	case <-lease.Cancel():
		return true
	default:
		return false
	}
}
