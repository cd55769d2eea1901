// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/dispatch"
)

// WorkOrder is what a worker receives from a successful claim: the task
// snapshot to execute and the lease that scopes its authority.
type WorkOrder struct {
	Task  *a2a.Task
	Lease *dispatch.Lease
}

// Gateway is the worker-facing surface of the coordinator. Every report
// verifies the caller still holds the task's lease before it mutates
// anything, so a worker whose lease expired cannot corrupt a redelivered
// task.
type Gateway struct {
	coord *Coordinator
}

// NewGateway creates a Gateway over the coordinator.
func NewGateway(coord *Coordinator) *Gateway {
	return &Gateway{coord: coord}
}

// Claim blocks for the next dispatch notice, acquires the lease, and moves
// the task to working. Stale notices for tasks that finished or got
// canceled in the meantime are discarded and the claim loop continues.
func (g *Gateway) Claim(ctx context.Context, workerID string) (*WorkOrder, error) {
	c := g.coord
	for {
		notice, err := c.queue.Claim(ctx)
		if err != nil {
			return nil, err
		}

		order, err := g.tryClaim(ctx, workerID, notice)
		if err != nil {
			return nil, err
		}
		if order == nil {
			continue
		}
		return order, nil
	}
}

func (g *Gateway) tryClaim(ctx context.Context, workerID string, notice *dispatch.Notice) (*WorkOrder, error) {
	c := g.coord
	ctx, span := c.tracer.Start(ctx, "a2a.gateway.Claim",
		trace.WithAttributes(
			attribute.String("a2a.task_id", notice.TaskID),
			attribute.String("a2a.worker_id", workerID),
			attribute.Int("a2a.attempt", notice.Attempt),
		))
	defer span.End()

	unlock := c.lockTask(notice.TaskID)
	defer unlock()

	t, err := c.store.Get(ctx, notice.TaskID)
	if err != nil {
		c.logger.WarnContext(ctx, "discarding notice for unknown task",
			slog.String("task_id", notice.TaskID))
		return nil, nil
	}

	// Only a submitted task is claimable; anything else means the notice
	// is stale (canceled before claim, finished elsewhere, redelivered).
	if t.State != a2a.TaskStateSubmitted {
		c.logger.InfoContext(ctx, "discarding stale notice",
			slog.String("task_id", t.ID),
			slog.String("state", string(t.State)),
		)
		return nil, nil
	}

	lease, err := c.leases.Acquire(t.ID, workerID, notice.Attempt)
	if err != nil {
		// Another worker won the race for this task.
		c.logger.InfoContext(ctx, "claim lost",
			slog.String("task_id", t.ID),
			slog.String("worker_id", workerID),
		)
		return nil, nil
	}

	t.State = a2a.TaskStateWorking
	t.UpdatedAt = time.Now().UTC()
	if err := c.store.Save(ctx, t); err != nil {
		_ = c.leases.Release(t.ID, workerID)
		return nil, &a2a.UnavailableError{Detail: "task store", Err: err}
	}

	c.publish(ctx, &a2a.StreamEvent{
		TaskID: t.ID,
		Type:   a2a.EventTypeStatus,
		Status: &a2a.StatusPayload{State: a2a.TaskStateWorking},
	})

	c.metrics.ActiveLeases.Inc()
	c.logger.InfoContext(ctx, "task claimed",
		slog.String("task_id", t.ID),
		slog.String("worker_id", workerID),
		slog.Int("attempt", notice.Attempt),
	)
	return &WorkOrder{Task: t, Lease: lease}, nil
}

// Heartbeat renews the worker's lease.
func (g *Gateway) Heartbeat(ctx context.Context, taskID, workerID string) error {
	return g.coord.leases.Heartbeat(taskID, workerID)
}

// ReportMessage appends an agent message to the task and publishes it.
func (g *Gateway) ReportMessage(ctx context.Context, taskID, workerID string, msg a2a.Message) error {
	c := g.coord

	unlock := c.lockTask(taskID)
	defer unlock()

	// Checked under the task lock: expiry redelivery and a rival claim
	// both take this lock, so the holder cannot change under us.
	if err := g.verifyLease(taskID, workerID); err != nil {
		return err
	}

	t, err := c.store.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if t.State.IsTerminal() {
		return &a2a.TaskNotActionableError{TaskID: taskID, State: t.State}
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	t.Messages = append(t.Messages, msg)
	t.UpdatedAt = time.Now().UTC()

	if err := c.store.Save(ctx, t); err != nil {
		return &a2a.UnavailableError{Detail: "task store", Err: err}
	}

	c.publish(ctx, &a2a.StreamEvent{
		TaskID:  taskID,
		Type:    a2a.EventTypeMessage,
		Message: &t.Messages[len(t.Messages)-1],
	})
	return nil
}

// ReportArtifact appends an artifact chunk to the task and publishes it.
func (g *Gateway) ReportArtifact(ctx context.Context, taskID, workerID string, artifact a2a.Artifact) error {
	c := g.coord

	if err := artifact.Validate(); err != nil {
		return err
	}

	unlock := c.lockTask(taskID)
	defer unlock()

	if err := g.verifyLease(taskID, workerID); err != nil {
		return err
	}

	t, err := c.store.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if t.State.IsTerminal() {
		return &a2a.TaskNotActionableError{TaskID: taskID, State: t.State}
	}

	if artifact.ArtifactID == "" {
		artifact.ArtifactID = uuid.NewString()
	}
	if artifact.Timestamp.IsZero() {
		artifact.Timestamp = time.Now().UTC()
	}
	t.Artifacts = append(t.Artifacts, artifact)
	t.UpdatedAt = time.Now().UTC()

	if err := c.store.Save(ctx, t); err != nil {
		return &a2a.UnavailableError{Detail: "task store", Err: err}
	}

	c.publish(ctx, &a2a.StreamEvent{
		TaskID:   taskID,
		Type:     a2a.EventTypeArtifact,
		Artifact: &t.Artifacts[len(t.Artifacts)-1],
	})
	return nil
}

// RequireInput moves the task to input-required. The worker keeps its
// lease so a prompt resume reaches it directly.
func (g *Gateway) RequireInput(ctx context.Context, taskID, workerID string) error {
	c := g.coord

	unlock := c.lockTask(taskID)
	defer unlock()

	if err := g.verifyLease(taskID, workerID); err != nil {
		return err
	}

	t, err := c.store.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if err := ValidateTransition(taskID, t.State, a2a.TaskStateInputRequired); err != nil {
		return err
	}

	t.State = a2a.TaskStateInputRequired
	t.UpdatedAt = time.Now().UTC()
	if err := c.store.Save(ctx, t); err != nil {
		return &a2a.UnavailableError{Detail: "task store", Err: err}
	}

	c.publish(ctx, &a2a.StreamEvent{
		TaskID: taskID,
		Type:   a2a.EventTypeStatus,
		Status: &a2a.StatusPayload{State: a2a.TaskStateInputRequired},
	})

	c.logger.InfoContext(ctx, "task waiting for input",
		slog.String("task_id", taskID))
	return nil
}

// Complete finishes the task successfully and releases the lease.
func (g *Gateway) Complete(ctx context.Context, taskID, workerID string) error {
	return g.finish(ctx, taskID, workerID, a2a.TaskStateCompleted, nil)
}

// Fail finishes the task with a structured error and releases the lease.
func (g *Gateway) Fail(ctx context.Context, taskID, workerID string, taskErr *a2a.TaskError) error {
	return g.finish(ctx, taskID, workerID, a2a.TaskStateFailed, taskErr)
}

// AcknowledgeCancel records the worker's cooperative cancellation and
// releases the lease.
func (g *Gateway) AcknowledgeCancel(ctx context.Context, taskID, workerID string) error {
	return g.finish(ctx, taskID, workerID, a2a.TaskStateCanceled, nil)
}

func (g *Gateway) finish(ctx context.Context, taskID, workerID string, state a2a.TaskState, taskErr *a2a.TaskError) error {
	c := g.coord
	ctx, span := c.tracer.Start(ctx, "a2a.gateway.Finish",
		trace.WithAttributes(
			attribute.String("a2a.task_id", taskID),
			attribute.String("a2a.state", string(state)),
		))
	defer span.End()

	unlock := c.lockTask(taskID)
	defer unlock()

	if err := g.verifyLease(taskID, workerID); err != nil {
		return err
	}

	t, err := c.store.Get(ctx, taskID)
	if err != nil {
		return err
	}

	if _, err := c.finishLocked(ctx, t, state, taskErr); err != nil {
		return err
	}

	if err := c.leases.Release(taskID, workerID); err == nil {
		c.metrics.ActiveLeases.Dec()
	}
	return nil
}

// verifyLease rejects reports from workers whose lease lapsed or was
// taken over.
func (g *Gateway) verifyLease(taskID, workerID string) error {
	lease, ok := g.coord.leases.Holder(taskID)
	if !ok || lease.WorkerID != workerID {
		return &dispatch.LeaseNotHeldError{TaskID: taskID, WorkerID: workerID}
	}
	return nil
}
