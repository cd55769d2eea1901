// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch provides the work queue and lease tracking that hand
// submitted tasks to workers. Delivery is at-least-once: a notice may be
// redelivered after a lease expires, so workers must treat task execution
// as resumable.
package dispatch

import (
	"context"
	"time"
)

// DefaultMaxAttempts is the delivery budget for a task before the
// coordinator gives up and fails it.
const DefaultMaxAttempts = 3

// Notice tells a worker that a task is ready to be claimed. It carries no
// task payload; the claiming worker fetches the task snapshot through the
// worker gateway.
type Notice struct {
	// TaskID identifies the dispatchable task.
	TaskID string `json:"taskId"`

	// Attempt is the 1-based delivery attempt for this task.
	Attempt int `json:"attempt"`

	// EnqueuedAt records when the notice entered the queue.
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Queue is the transport that moves dispatch notices from the coordinator
// to workers. Implementations must be safe for concurrent use.
type Queue interface {
	// Enqueue publishes a notice. A transient transport failure is returned
	// to the caller; the notice is not buffered locally.
	Enqueue(ctx context.Context, notice Notice) error

	// Claim blocks until a notice is available or the context ends. Each
	// notice is delivered to exactly one claimer at a time, but the same
	// task may reappear after a lease expiry.
	Claim(ctx context.Context) (*Notice, error)

	// Close shuts the queue down. Blocked Claim calls return an error.
	Close() error
}
