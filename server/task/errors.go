// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"fmt"
)

// TaskStoreError represents an error from the task store.
type TaskStoreError struct {
	Operation string
	TaskID    string
	Err       error
}

// Error returns the error message.
func (e TaskStoreError) Error() string {
	return fmt.Sprintf("task store %s operation failed for task %s: %v", e.Operation, e.TaskID, e.Err)
}

// Unwrap returns the underlying error.
func (e TaskStoreError) Unwrap() error {
	return e.Err
}

// NewTaskStoreError creates a new TaskStoreError.
func NewTaskStoreError(operation, taskID string, err error) TaskStoreError {
	return TaskStoreError{
		Operation: operation,
		TaskID:    taskID,
		Err:       err,
	}
}

// TaskValidationError represents an error when task validation fails.
type TaskValidationError struct {
	TaskID string
	Err    error
}

// Error returns the error message.
func (e TaskValidationError) Error() string {
	return fmt.Sprintf("task %s validation failed: %v", e.TaskID, e.Err)
}

// Unwrap returns the underlying error.
func (e TaskValidationError) Unwrap() error {
	return e.Err
}

// NewTaskValidationError creates a new TaskValidationError.
func NewTaskValidationError(taskID string, err error) TaskValidationError {
	return TaskValidationError{
		TaskID: taskID,
		Err:    err,
	}
}

// SessionStoreError represents an error from the session store.
type SessionStoreError struct {
	Operation string
	SessionID string
	Err       error
}

// Error returns the error message.
func (e SessionStoreError) Error() string {
	return fmt.Sprintf("session store %s operation failed for session %s: %v", e.Operation, e.SessionID, e.Err)
}

// Unwrap returns the underlying error.
func (e SessionStoreError) Unwrap() error {
	return e.Err
}

// NewSessionStoreError creates a new SessionStoreError.
func NewSessionStoreError(operation, sessionID string, err error) SessionStoreError {
	return SessionStoreError{
		Operation: operation,
		SessionID: sessionID,
		Err:       err,
	}
}
