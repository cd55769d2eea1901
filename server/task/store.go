// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
)

// TaskStore defines the interface for task persistence operations.
// This interface abstracts the storage mechanism to allow different
// implementations (database, in-memory, etc.) while maintaining a
// consistent API for the task coordinator.
//
// Stores hold task snapshots only. The coordinator owns all writes and
// serializes them per task, so implementations need last-write-wins
// semantics, not conflict resolution.
type TaskStore interface {
	// Save persists a task to the storage backend.
	// If the task already exists, it will be updated.
	Save(ctx context.Context, task *a2a.Task) error

	// Get retrieves a task by its ID from the storage backend.
	// Returns TaskNotFoundError if the task doesn't exist.
	Get(ctx context.Context, taskID string) (*a2a.Task, error)

	// Delete removes a task from the storage backend.
	// Returns TaskNotFoundError if the task doesn't exist.
	Delete(ctx context.Context, taskID string) error

	// List retrieves tasks with optional filtering.
	// The sessionID parameter can be used to filter tasks by session.
	// If sessionID is empty, all tasks are returned.
	List(ctx context.Context, sessionID string, limit, offset int) ([]*a2a.Task, error)

	// Count returns the total number of tasks in the storage backend.
	// The sessionID parameter can be used to count tasks by session.
	Count(ctx context.Context, sessionID string) (int64, error)

	// Initialize prepares the storage backend for use.
	// This may involve creating tables, indexes, or other setup operations.
	Initialize(ctx context.Context) error

	// Close cleanly shuts down the storage backend.
	Close(ctx context.Context) error
}

// SessionStore defines the interface for session registry persistence.
// Sessions group tasks into multi-turn conversations; task IDs are kept
// in insertion order.
type SessionStore interface {
	// Save persists a session to the storage backend.
	Save(ctx context.Context, session *a2a.Session) error

	// Get retrieves a session by its ID.
	// Returns SessionNotFoundError if the session doesn't exist.
	Get(ctx context.Context, sessionID string) (*a2a.Session, error)

	// AppendTask links a task into a session, creating the session when it
	// does not exist yet. Appending an already linked task is a no-op.
	AppendTask(ctx context.Context, sessionID, taskID string) error

	// Initialize prepares the storage backend for use.
	Initialize(ctx context.Context) error

	// Close cleanly shuts down the storage backend.
	Close(ctx context.Context) error
}
