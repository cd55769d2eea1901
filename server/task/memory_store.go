// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"sync"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
)

// InMemoryTaskStore is an in-memory implementation of TaskStore.
// Task data is lost when the server process stops.
// All operations are thread-safe using sync.RWMutex.
type InMemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*a2a.Task
	order []string
}

var _ TaskStore = (*InMemoryTaskStore)(nil)

// NewInMemoryTaskStore creates a new InMemoryTaskStore.
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks: make(map[string]*a2a.Task),
	}
}

// Save persists a task to the in-memory storage.
func (s *InMemoryTaskStore) Save(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	if err := task.Validate(); err != nil {
		return NewTaskValidationError(task.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; !exists {
		s.order = append(s.order, task.ID)
	}

	// Store a deep copy so later mutation by the caller cannot race readers.
	s.tasks[task.ID] = copyTask(task)

	return nil
}

// Get retrieves a task by its ID from the in-memory storage.
func (s *InMemoryTaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return nil, &a2a.TaskNotFoundError{TaskID: taskID}
	}

	return copyTask(task), nil
}

// Delete removes a task from the in-memory storage.
func (s *InMemoryTaskStore) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[taskID]; !exists {
		return &a2a.TaskNotFoundError{TaskID: taskID}
	}

	delete(s.tasks, taskID)
	for i, id := range s.order {
		if id == taskID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List retrieves tasks in insertion order with optional session filtering.
func (s *InMemoryTaskStore) List(ctx context.Context, sessionID string, limit, offset int) ([]*a2a.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []*a2a.Task
	skipped := 0

	for _, id := range s.order {
		task := s.tasks[id]
		if sessionID != "" && task.SessionID != sessionID {
			continue
		}

		if skipped < offset {
			skipped++
			continue
		}

		if limit > 0 && len(tasks) >= limit {
			break
		}

		tasks = append(tasks, copyTask(task))
	}

	return tasks, nil
}

// Count returns the total number of tasks in the in-memory storage.
func (s *InMemoryTaskStore) Count(ctx context.Context, sessionID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sessionID == "" {
		return int64(len(s.tasks)), nil
	}

	count := int64(0)
	for _, task := range s.tasks {
		if task.SessionID == sessionID {
			count++
		}
	}

	return count, nil
}

// Initialize prepares the in-memory storage for use.
func (s *InMemoryTaskStore) Initialize(ctx context.Context) error {
	return nil
}

// Close cleanly shuts down the in-memory storage.
func (s *InMemoryTaskStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*a2a.Task)
	s.order = nil
	return nil
}

// copyTask creates a deep copy of a task.
func copyTask(task *a2a.Task) *a2a.Task {
	if task == nil {
		return nil
	}

	out := *task

	if task.Messages != nil {
		out.Messages = make([]a2a.Message, len(task.Messages))
		copy(out.Messages, task.Messages)
	}
	if task.Artifacts != nil {
		out.Artifacts = make([]a2a.Artifact, len(task.Artifacts))
		copy(out.Artifacts, task.Artifacts)
	}
	if task.Error != nil {
		errCopy := *task.Error
		out.Error = &errCopy
	}

	return &out
}
