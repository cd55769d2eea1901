// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package server implements the task coordinator: the single writer that
// owns task state, links sessions, feeds the dispatch queue, and publishes
// every externally visible event through the stream multiplexer.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/dispatch"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/event"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/task"
)

// TaskErrorCodeWorkerUnavailable is recorded on tasks that exhausted their
// delivery budget without a worker finishing them.
const TaskErrorCodeWorkerUnavailable = "worker_unavailable"

// DefaultCancelHardTimeout bounds how long a cancel request waits for the
// worker to acknowledge before the coordinator forces the transition.
const DefaultCancelHardTimeout = 30 * time.Second

// Coordinator owns the task lifecycle. All state transitions and history
// appends go through it, serialized per task, so stores and streams always
// agree on event order.
type Coordinator struct {
	store      task.TaskStore
	sessions   task.SessionStore
	queue      dispatch.Queue
	leases     *dispatch.LeaseTable
	mux        *event.Multiplexer
	relay      dispatch.CancelRelay
	eventRelay dispatch.EventRelay

	maxAttempts       int
	cancelHardTimeout time.Duration

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *Metrics

	locks sync.Map // task ID -> *sync.Mutex
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the coordinator tracer.
func WithTracer(tracer trace.Tracer) CoordinatorOption {
	return func(c *Coordinator) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithMetrics sets the coordinator metrics.
func WithMetrics(m *Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithCancelRelay sets the relay that carries cancel requests to worker
// processes with their own lease tables. Without one, cancels only reach
// leases held in this process.
func WithCancelRelay(relay dispatch.CancelRelay) CoordinatorOption {
	return func(c *Coordinator) {
		c.relay = relay
	}
}

// WithEventRelay sets the relay that carries stream events between
// processes. A coordinator whose multiplexer does not know a task forwards
// the event over the relay instead of dropping it, and events heard from
// the relay are fed to the local multiplexer through InjectEvent.
func WithEventRelay(relay dispatch.EventRelay) CoordinatorOption {
	return func(c *Coordinator) {
		c.eventRelay = relay
	}
}

// WithMaxAttempts sets the delivery budget per task.
func WithMaxAttempts(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithCancelHardTimeout sets how long a cancel waits for worker
// acknowledgment before the forced transition.
func WithCancelHardTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.cancelHardTimeout = d
		}
	}
}

// NewCoordinator creates a Coordinator. The lease table's expiry callback
// is wired here: an expired lease re-enqueues the task until the attempt
// budget runs out, then fails it.
func NewCoordinator(store task.TaskStore, sessions task.SessionStore, queue dispatch.Queue, leases *dispatch.LeaseTable, mux *event.Multiplexer, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:             store,
		sessions:          sessions,
		queue:             queue,
		leases:            leases,
		mux:               mux,
		maxAttempts:       dispatch.DefaultMaxAttempts,
		cancelHardTimeout: DefaultCancelHardTimeout,
		logger:            slog.Default(),
		tracer:            otel.GetTracerProvider().Tracer("github.com/rileyseaburg/A2A-Server-MCP-sub002/server"),
		metrics:           NewMetrics(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	leases.SetExpireFunc(c.handleLeaseExpiry)
	return c
}

// lockTask serializes writes to one task. The returned function releases
// the lock.
func (c *Coordinator) lockTask(taskID string) func() {
	v, _ := c.locks.LoadOrStore(taskID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Submit handles tasks/send. With no task ID, or an unknown one, it
// creates the task, links its session, and enqueues a dispatch notice.
// Addressing an existing task routes to resume or append semantics; a
// terminal task is not actionable.
func (c *Coordinator) Submit(ctx context.Context, params a2a.TaskSendParams) (*a2a.Task, error) {
	return c.submit(ctx, params, false)
}

// SubmitStreaming handles tasks/sendSubscribe submissions. It is Submit
// with the streaming origin recorded.
func (c *Coordinator) SubmitStreaming(ctx context.Context, params a2a.TaskSendParams) (*a2a.Task, error) {
	return c.submit(ctx, params, true)
}

func (c *Coordinator) submit(ctx context.Context, params a2a.TaskSendParams, streaming bool) (*a2a.Task, error) {
	ctx, span := c.tracer.Start(ctx, "a2a.coordinator.Submit",
		trace.WithAttributes(attribute.String("a2a.task_id", params.ID)))
	defer span.End()

	if err := params.Validate(); err != nil {
		return nil, err
	}

	if params.ID != "" {
		existing, err := c.store.Get(ctx, params.ID)
		if err == nil {
			return c.continueTask(ctx, existing, params.Message)
		}
		var notFound *a2a.TaskNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &a2a.UnavailableError{Detail: "task store", Err: err}
		}
	}

	t := a2a.NewTask(params.ID, params.SessionID, params.Message)

	unlock := c.lockTask(t.ID)
	defer unlock()

	if err := c.mux.Register(t.ID); err != nil {
		return nil, &a2a.InternalError{Detail: err.Error()}
	}

	// The task is durable before anything references it: store first, then
	// session link, then the dispatch notice.
	if err := c.store.Save(ctx, t); err != nil {
		// Drop the stream registration so a retry of the same explicit ID
		// does not collide with the orphan.
		c.mux.Unregister(t.ID)
		return nil, &a2a.UnavailableError{Detail: "task store", Err: err}
	}

	if t.SessionID != "" {
		if err := c.sessions.AppendTask(ctx, t.SessionID, t.ID); err != nil {
			return nil, &a2a.UnavailableError{Detail: "session registry", Err: err}
		}
	}

	c.publish(ctx, &a2a.StreamEvent{
		TaskID:  t.ID,
		Type:    a2a.EventTypeMessage,
		Message: &t.Messages[0],
	})

	if err := c.enqueue(ctx, t.ID, 1); err != nil {
		// The task stays in submitted; the client may retry, and the
		// stored task remains consistent with its stream.
		c.logger.ErrorContext(ctx, "dispatch enqueue failed",
			slog.String("task_id", t.ID), slog.Any("error", err))
		return nil, &a2a.UnavailableError{Detail: "dispatch queue", Err: err}
	}

	c.metrics.TasksSubmitted.WithLabelValues(strconv.FormatBool(streaming)).Inc()
	c.logger.InfoContext(ctx, "task submitted",
		slog.String("task_id", t.ID),
		slog.String("session_id", t.SessionID),
	)
	return t, nil
}

// continueTask handles tasks/send addressed to an existing task. The task
// lock is taken here, not in Submit, so the not-found fast path stays
// lock-free.
func (c *Coordinator) continueTask(ctx context.Context, t *a2a.Task, msg a2a.Message) (*a2a.Task, error) {
	unlock := c.lockTask(t.ID)
	defer unlock()

	// Re-read under the lock; the snapshot may be stale.
	t, err := c.store.Get(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	if t.State.IsTerminal() {
		return nil, &a2a.TaskNotActionableError{TaskID: t.ID, State: t.State}
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	t.Messages = append(t.Messages, msg)
	t.UpdatedAt = time.Now().UTC()

	// The claiming worker keeps its lease across input-required. If it is
	// still there the resume message reaches it directly and the task goes
	// back to working; otherwise the task returns to submitted for a fresh
	// claim.
	resume := t.State == a2a.TaskStateInputRequired
	signaled := false
	if resume {
		signaled = c.leases.SignalInput(t.ID, msg)
		if signaled {
			t.State = a2a.TaskStateWorking
		} else {
			t.State = a2a.TaskStateSubmitted
		}
	}

	if err := c.store.Save(ctx, t); err != nil {
		return nil, &a2a.UnavailableError{Detail: "task store", Err: err}
	}

	c.publish(ctx, &a2a.StreamEvent{
		TaskID:  t.ID,
		Type:    a2a.EventTypeMessage,
		Message: &t.Messages[len(t.Messages)-1],
	})

	if resume {
		c.publish(ctx, &a2a.StreamEvent{
			TaskID: t.ID,
			Type:   a2a.EventTypeStatus,
			Status: &a2a.StatusPayload{State: t.State},
		})

		if !signaled {
			if err := c.enqueue(ctx, t.ID, 1); err != nil {
				return nil, &a2a.UnavailableError{Detail: "dispatch queue", Err: err}
			}
		}

		c.logger.InfoContext(ctx, "task resumed",
			slog.String("task_id", t.ID),
			slog.Bool("lease_signaled", signaled),
		)
	} else if t.State == a2a.TaskStateSubmitted {
		// The task may have lost its notice to an earlier enqueue failure.
		// A fresh one is safe: claim discards notices for tasks that moved
		// on, and lease acquisition rejects the second of two claimers.
		if err := c.enqueue(ctx, t.ID, 1); err != nil {
			return nil, &a2a.UnavailableError{Detail: "dispatch queue", Err: err}
		}
	}

	return t, nil
}

// Get handles tasks/get, returning a snapshot. A positive history length
// limits the returned messages to the most recent N.
func (c *Coordinator) Get(ctx context.Context, params a2a.TaskQueryParams) (*a2a.Task, error) {
	ctx, span := c.tracer.Start(ctx, "a2a.coordinator.Get",
		trace.WithAttributes(attribute.String("a2a.task_id", params.ID)))
	defer span.End()

	if err := params.Validate(); err != nil {
		return nil, err
	}

	t, err := c.store.Get(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	if params.HistoryLength > 0 && len(t.Messages) > params.HistoryLength {
		t.Messages = t.Messages[len(t.Messages)-params.HistoryLength:]
	}
	return t, nil
}

// Cancel handles tasks/cancel. Cancellation is cooperative: the request
// marks the task, relays the signal to the lease holder, and arms the hard
// timeout. A task no worker has claimed yet cancels immediately. Canceling
// an already canceled task is an idempotent success; completed and failed
// tasks are not cancelable.
func (c *Coordinator) Cancel(ctx context.Context, params a2a.TaskIDParams) (*a2a.Task, error) {
	ctx, span := c.tracer.Start(ctx, "a2a.coordinator.Cancel",
		trace.WithAttributes(attribute.String("a2a.task_id", params.ID)))
	defer span.End()

	if err := params.Validate(); err != nil {
		return nil, err
	}

	unlock := c.lockTask(params.ID)
	defer unlock()

	t, err := c.store.Get(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	switch t.State {
	case a2a.TaskStateCanceled:
		return t, nil
	case a2a.TaskStateCompleted, a2a.TaskStateFailed:
		return nil, &a2a.TaskNotCancelableError{TaskID: t.ID, State: t.State}
	}

	if t.State == a2a.TaskStateSubmitted {
		// No worker holds it; the terminal transition is immediate. A
		// stale queue notice is discarded at claim time.
		return c.finishLocked(ctx, t, a2a.TaskStateCanceled, nil)
	}

	if !t.CancelRequested {
		t.CancelRequested = true
		t.UpdatedAt = time.Now().UTC()
		if err := c.store.Save(ctx, t); err != nil {
			return nil, &a2a.UnavailableError{Detail: "task store", Err: err}
		}

		c.leases.SignalCancel(t.ID)
		if c.relay != nil {
			if err := c.relay.Broadcast(ctx, t.ID); err != nil {
				c.logger.ErrorContext(ctx, "cancel broadcast failed",
					slog.String("task_id", t.ID), slog.Any("error", err))
			}
		}
		c.armCancelTimeout(t.ID)

		c.logger.InfoContext(ctx, "cancel requested",
			slog.String("task_id", t.ID),
			slog.String("state", string(t.State)),
		)
	}

	return t, nil
}

// armCancelTimeout forces the canceled transition if the worker has not
// acknowledged within the hard timeout.
func (c *Coordinator) armCancelTimeout(taskID string) {
	time.AfterFunc(c.cancelHardTimeout, func() {
		ctx := context.Background()

		unlock := c.lockTask(taskID)
		defer unlock()

		t, err := c.store.Get(ctx, taskID)
		if err != nil || t.State.IsTerminal() {
			return
		}
		if !ForceCancelable(t.State) {
			return
		}

		c.logger.WarnContext(ctx, "cancel hard timeout reached, forcing transition",
			slog.String("task_id", taskID),
			slog.String("state", string(t.State)),
		)
		if _, err := c.finishLocked(ctx, t, a2a.TaskStateCanceled, nil); err != nil {
			c.logger.ErrorContext(ctx, "forced cancel failed",
				slog.String("task_id", taskID), slog.Any("error", err))
		}
	})
}

// Subscribe attaches a stream subscription to a task, replaying from the
// cursor.
func (c *Coordinator) Subscribe(ctx context.Context, taskID string, from int64) (*event.Subscription, error) {
	ctx, span := c.tracer.Start(ctx, "a2a.coordinator.Subscribe",
		trace.WithAttributes(
			attribute.String("a2a.task_id", taskID),
			attribute.Int64("a2a.cursor", from),
		))
	defer span.End()

	if _, err := c.store.Get(ctx, taskID); err != nil {
		return nil, err
	}

	sub, err := c.mux.Subscribe(ctx, taskID, from)
	if err != nil {
		return nil, err
	}
	c.metrics.Subscribers.Inc()
	return sub, nil
}

// SubscriberDone records a closed subscription.
func (c *Coordinator) SubscriberDone() {
	c.metrics.Subscribers.Dec()
}

// handleLeaseExpiry is the lease table's expire callback. The expired
// attempt is redelivered until the budget runs out, then the task fails
// with worker_unavailable.
func (c *Coordinator) handleLeaseExpiry(taskID string, attempt int) {
	ctx := context.Background()

	unlock := c.lockTask(taskID)
	defer unlock()

	t, err := c.store.Get(ctx, taskID)
	if err != nil {
		c.logger.ErrorContext(ctx, "lease expiry for unknown task",
			slog.String("task_id", taskID), slog.Any("error", err))
		return
	}
	if t.State.IsTerminal() {
		return
	}

	// A task parked in input-required is not dispatchable; losing its
	// lease only means the eventual resume will go through the queue
	// instead of the lease channel.
	if t.State == a2a.TaskStateInputRequired {
		return
	}

	if attempt >= c.maxAttempts {
		c.logger.WarnContext(ctx, "delivery budget exhausted",
			slog.String("task_id", taskID),
			slog.Int("attempts", attempt),
		)
		taskErr := &a2a.TaskError{
			Code:    TaskErrorCodeWorkerUnavailable,
			Message: fmt.Sprintf("no worker completed the task after %d attempts", attempt),
		}
		if _, err := c.finishLocked(ctx, t, a2a.TaskStateFailed, taskErr); err != nil {
			c.logger.ErrorContext(ctx, "failed to fail task",
				slog.String("task_id", taskID), slog.Any("error", err))
		}
		return
	}

	// Redelivery restarts the claim cycle from submitted so the next
	// worker takes it through the normal working transition.
	if t.State != a2a.TaskStateSubmitted {
		t.State = a2a.TaskStateSubmitted
		t.UpdatedAt = time.Now().UTC()
		if err := c.store.Save(ctx, t); err != nil {
			c.logger.ErrorContext(ctx, "failed to reset expired task",
				slog.String("task_id", taskID), slog.Any("error", err))
			return
		}
		c.publish(ctx, &a2a.StreamEvent{
			TaskID: taskID,
			Type:   a2a.EventTypeStatus,
			Status: &a2a.StatusPayload{State: a2a.TaskStateSubmitted},
		})
	}

	if err := c.enqueue(ctx, taskID, attempt+1); err != nil {
		c.logger.ErrorContext(ctx, "failed to re-enqueue expired task",
			slog.String("task_id", taskID), slog.Any("error", err))
		return
	}

	c.metrics.Redeliveries.Inc()
	c.logger.InfoContext(ctx, "task redelivered after lease expiry",
		slog.String("task_id", taskID),
		slog.Int("attempt", attempt+1),
	)
}

// finishLocked moves the task to a terminal state, persists it, publishes
// the terminal status event, and releases bookkeeping. Caller holds the
// task lock.
func (c *Coordinator) finishLocked(ctx context.Context, t *a2a.Task, state a2a.TaskState, taskErr *a2a.TaskError) (*a2a.Task, error) {
	if err := ValidateTransition(t.ID, t.State, state); err != nil {
		if !(state == a2a.TaskStateCanceled && ForceCancelable(t.State)) {
			return nil, err
		}
	}

	t.State = state
	t.Error = taskErr
	t.UpdatedAt = time.Now().UTC()

	if err := c.store.Save(ctx, t); err != nil {
		return nil, &a2a.UnavailableError{Detail: "task store", Err: err}
	}

	c.publish(ctx, &a2a.StreamEvent{
		TaskID: t.ID,
		Type:   a2a.EventTypeStatus,
		Status: &a2a.StatusPayload{State: state, Final: true, Error: taskErr},
	})

	c.metrics.TasksFinished.WithLabelValues(string(state)).Inc()
	c.logger.InfoContext(ctx, "task finished",
		slog.String("task_id", t.ID),
		slog.String("state", string(state)),
	)
	return t, nil
}

// enqueue publishes a dispatch notice.
func (c *Coordinator) enqueue(ctx context.Context, taskID string, attempt int) error {
	return c.queue.Enqueue(ctx, dispatch.Notice{
		TaskID:     taskID,
		Attempt:    attempt,
		EnqueuedAt: time.Now().UTC(),
	})
}

// publish appends an event to the task's stream. A task this process has
// no stream for belongs to another coordinator; with an event relay the
// event is forwarded there instead of dropped. Stream failures do not fail
// the calling operation: the persisted task is the source of truth and a
// broken stream only degrades live delivery.
func (c *Coordinator) publish(ctx context.Context, ev *a2a.StreamEvent) {
	if _, err := c.mux.Publish(ctx, ev); err != nil {
		var notFound *a2a.TaskNotFoundError
		if errors.As(err, &notFound) && c.eventRelay != nil {
			rerr := c.eventRelay.Broadcast(ctx, ev)
			if rerr == nil {
				return
			}
			err = rerr
		}
		c.logger.ErrorContext(ctx, "event publish failed",
			slog.String("task_id", ev.TaskID),
			slog.String("type", string(ev.Type)),
			slog.Any("error", err),
		)
		return
	}
	c.metrics.EventsPublished.WithLabelValues(string(ev.Type)).Inc()
}

// InjectEvent feeds a relayed stream event to the local multiplexer. Events
// for tasks whose streams live in another process are ignored; relayed
// subjects are fan-out, so every coordinator hears every event.
func (c *Coordinator) InjectEvent(ctx context.Context, ev *a2a.StreamEvent) {
	if _, err := c.mux.Publish(ctx, ev); err != nil {
		var notFound *a2a.TaskNotFoundError
		if errors.As(err, &notFound) {
			return
		}
		c.logger.ErrorContext(ctx, "relayed event publish failed",
			slog.String("task_id", ev.TaskID),
			slog.String("type", string(ev.Type)),
			slog.Any("error", err),
		)
		return
	}
	c.metrics.EventsPublished.WithLabelValues(string(ev.Type)).Inc()
}

// Start wires the lease watcher to the coordinator and runs it.
func (c *Coordinator) Start(ctx context.Context) {
	c.leases.Start(ctx)
}

// Close shuts the coordinator down.
func (c *Coordinator) Close(ctx context.Context) error {
	c.leases.Stop()
	if c.relay != nil {
		if err := c.relay.Close(); err != nil {
			return err
		}
	}
	if c.eventRelay != nil {
		if err := c.eventRelay.Close(); err != nil {
			return err
		}
	}
	if err := c.mux.Close(); err != nil {
		return err
	}
	if err := c.queue.Close(); err != nil {
		return err
	}
	if err := c.sessions.Close(ctx); err != nil {
		return err
	}
	return c.store.Close(ctx)
}
