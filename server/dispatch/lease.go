// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
)

// DefaultLeaseTTL is the lease duration granted on claim and renewed by
// each heartbeat.
const DefaultLeaseTTL = 30 * time.Second

// LeaseHeldError indicates a claim against a task whose lease another
// worker already holds.
type LeaseHeldError struct {
	TaskID   string
	WorkerID string
}

// Error returns the error message.
func (e *LeaseHeldError) Error() string {
	return fmt.Sprintf("lease for task %s is held by worker %s", e.TaskID, e.WorkerID)
}

// LeaseNotHeldError indicates a heartbeat or release from a worker that
// does not hold the task's lease.
type LeaseNotHeldError struct {
	TaskID   string
	WorkerID string
}

// Error returns the error message.
func (e *LeaseNotHeldError) Error() string {
	return fmt.Sprintf("worker %s does not hold the lease for task %s", e.WorkerID, e.TaskID)
}

// Lease records one worker's exclusive claim on a task. The cancel and
// input channels carry coordinator signals to the lease holder: cancel is
// closed when the client requests cancellation, input delivers the client
// turn that resumes an input-required task.
type Lease struct {
	TaskID    string
	WorkerID  string
	Attempt   int
	ExpiresAt time.Time

	cancelCh   chan struct{}
	cancelOnce sync.Once
	inputCh    chan a2a.Message
}

// Cancel returns a channel closed when cancellation is requested.
func (l *Lease) Cancel() <-chan struct{} { return l.cancelCh }

// Input returns the channel resume messages are delivered on.
func (l *Lease) Input() <-chan a2a.Message { return l.inputCh }

// ExpireFunc is called when a lease expires without release. The attempt
// number is the one the expired lease was delivered with.
type ExpireFunc func(taskID string, attempt int)

// LeaseTable tracks which worker owns each in-flight task. Acquisition is
// first writer wins: under concurrent claims for the same task exactly one
// worker gets the lease and the rest get LeaseHeldError.
type LeaseTable struct {
	mu       sync.Mutex
	leases   map[string]*Lease
	ttl      time.Duration
	onExpire ExpireFunc
	logger   *slog.Logger
	done     chan struct{}
	stopOnce sync.Once
}

// LeaseTableOption configures a LeaseTable.
type LeaseTableOption func(*LeaseTable)

// WithLeaseTTL sets the lease duration.
func WithLeaseTTL(ttl time.Duration) LeaseTableOption {
	return func(t *LeaseTable) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithExpireFunc sets the callback invoked for each expired lease.
func WithExpireFunc(fn ExpireFunc) LeaseTableOption {
	return func(t *LeaseTable) {
		t.onExpire = fn
	}
}

// WithLeaseLogger sets the logger for lease lifecycle events.
func WithLeaseLogger(logger *slog.Logger) LeaseTableOption {
	return func(t *LeaseTable) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewLeaseTable creates a LeaseTable. Call Start to run the expiry watcher.
func NewLeaseTable(opts ...LeaseTableOption) *LeaseTable {
	t := &LeaseTable{
		leases: make(map[string]*Lease),
		ttl:    DefaultLeaseTTL,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TTL returns the configured lease duration.
func (t *LeaseTable) TTL() time.Duration { return t.ttl }

// SetExpireFunc replaces the expiry callback. It must be called before
// Start.
func (t *LeaseTable) SetExpireFunc(fn ExpireFunc) {
	t.onExpire = fn
}

// Acquire grants the worker an exclusive lease on the task. A live lease
// held by any worker, including the caller, rejects the claim.
func (t *LeaseTable) Acquire(taskID, workerID string, attempt int) (*Lease, error) {
	if taskID == "" || workerID == "" {
		return nil, fmt.Errorf("task ID and worker ID cannot be empty")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.leases[taskID]; ok {
		if time.Now().Before(existing.ExpiresAt) {
			return nil, &LeaseHeldError{TaskID: taskID, WorkerID: existing.WorkerID}
		}
		// Expired but not yet collected by the watcher; the new claim
		// supersedes it.
		delete(t.leases, taskID)
	}

	lease := &Lease{
		TaskID:    taskID,
		WorkerID:  workerID,
		Attempt:   attempt,
		ExpiresAt: time.Now().Add(t.ttl),
		cancelCh:  make(chan struct{}),
		inputCh:   make(chan a2a.Message, 1),
	}
	t.leases[taskID] = lease
	return lease, nil
}

// Heartbeat extends the lease held by the worker.
func (t *LeaseTable) Heartbeat(taskID, workerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	lease, ok := t.leases[taskID]
	if !ok || lease.WorkerID != workerID {
		return &LeaseNotHeldError{TaskID: taskID, WorkerID: workerID}
	}

	lease.ExpiresAt = time.Now().Add(t.ttl)
	return nil
}

// Release removes the lease held by the worker, normally on terminal
// completion of the task.
func (t *LeaseTable) Release(taskID, workerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	lease, ok := t.leases[taskID]
	if !ok || lease.WorkerID != workerID {
		return &LeaseNotHeldError{TaskID: taskID, WorkerID: workerID}
	}

	delete(t.leases, taskID)
	return nil
}

// Holder returns the live lease on the task, if any.
func (t *LeaseTable) Holder(taskID string) (*Lease, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	lease, ok := t.leases[taskID]
	if !ok || !time.Now().Before(lease.ExpiresAt) {
		return nil, false
	}
	return lease, true
}

// SignalCancel relays a cancellation request to the lease holder. It
// reports whether a live lease received the signal.
func (t *LeaseTable) SignalCancel(taskID string) bool {
	lease, ok := t.Holder(taskID)
	if !ok {
		return false
	}
	lease.cancelOnce.Do(func() { close(lease.cancelCh) })
	return true
}

// SignalInput delivers a resume message to the lease holder of an
// input-required task. It reports whether a live lease accepted the
// message.
func (t *LeaseTable) SignalInput(taskID string, msg a2a.Message) bool {
	lease, ok := t.Holder(taskID)
	if !ok {
		return false
	}
	select {
	case lease.inputCh <- msg:
		return true
	default:
		return false
	}
}

// Start runs the expiry watcher until the context ends or Stop is called.
// Expired leases are removed and reported through the expire callback, one
// call per lease.
func (t *LeaseTable) Start(ctx context.Context) {
	interval := t.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.done:
				return
			case <-ticker.C:
				t.collectExpired(ctx)
			}
		}
	}()
}

// Stop halts the expiry watcher.
func (t *LeaseTable) Stop() {
	t.stopOnce.Do(func() { close(t.done) })
}

func (t *LeaseTable) collectExpired(ctx context.Context) {
	now := time.Now()

	t.mu.Lock()
	var expired []*Lease
	for taskID, lease := range t.leases {
		if !now.Before(lease.ExpiresAt) {
			expired = append(expired, lease)
			delete(t.leases, taskID)
		}
	}
	t.mu.Unlock()

	for _, lease := range expired {
		t.logger.WarnContext(ctx, "lease expired",
			slog.String("task_id", lease.TaskID),
			slog.String("worker_id", lease.WorkerID),
			slog.Int("attempt", lease.Attempt),
		)
		if t.onExpire != nil {
			t.onExpire(lease.TaskID, lease.Attempt)
		}
	}
}
