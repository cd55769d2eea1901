// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"fmt"
	"sync"
)

// DefaultMemoryQueueSize is the default capacity of the in-process queue.
const DefaultMemoryQueueSize = 256

// MemoryQueue is a channel-backed Queue for single-process deployments and
// tests.
type MemoryQueue struct {
	notices chan Notice
	mu      sync.Mutex
	closed  bool
	done    chan struct{}
}

var _ Queue = (*MemoryQueue)(nil)

// NewMemoryQueue creates a MemoryQueue with the given capacity. A size of 0
// uses DefaultMemoryQueueSize.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = DefaultMemoryQueueSize
	}
	return &MemoryQueue{
		notices: make(chan Notice, size),
		done:    make(chan struct{}),
	}
}

// Enqueue publishes a notice. A full queue is reported as an error rather
// than blocking the coordinator.
func (q *MemoryQueue) Enqueue(ctx context.Context, notice Notice) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.Unlock()

	select {
	case q.notices <- notice:
		return nil
	case <-q.done:
		return fmt.Errorf("queue is closed")
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("queue is full")
	}
}

// Claim blocks until a notice is available.
func (q *MemoryQueue) Claim(ctx context.Context) (*Notice, error) {
	select {
	case notice := <-q.notices:
		return &notice, nil
	case <-q.done:
		return nil, fmt.Errorf("queue is closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the queue down.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	return nil
}
