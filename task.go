// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"time"

	"github.com/google/uuid"
)

// TaskError is the structured error recorded on a failed task. It is
// persisted with the task so tasks/get after the fact returns the same
// error a live subscriber observed.
type TaskError struct {
	// Code is a stable machine-readable identifier, e.g. "worker_unavailable".
	Code string `json:"code"`

	// Message is a human readable description.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return e.Code + ": " + e.Message
}

// Task represents one unit of agent work with its own lifecycle and
// event history. Messages and artifacts are append-only: no entry is ever
// edited or removed, and their creation order is the canonical event order
// replayed to subscribers. The task coordinator owns all writes.
type Task struct {
	// ID is the globally unique task identifier.
	ID string `json:"id"`

	// SessionID links the task to a multi-turn session, when present.
	SessionID string `json:"sessionId,omitzero"`

	// State is the current lifecycle state.
	State TaskState `json:"state"`

	// Messages is the ordered, append-only conversation history.
	Messages []Message `json:"messages"`

	// Artifacts is the ordered, append-only sequence of produced outputs.
	Artifacts []Artifact `json:"artifacts,omitzero"`

	// Error is set only when State is failed.
	Error *TaskError `json:"error,omitzero"`

	// CancelRequested is true once a cancel request has been accepted and
	// relayed to the worker.
	CancelRequested bool `json:"cancelRequested,omitzero"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate ensures the Task is valid.
func (t *Task) Validate() error {
	if t.ID == "" {
		return &InvalidParamsError{Detail: "task ID cannot be empty"}
	}
	if !t.State.IsValid() {
		return &InvalidParamsError{Detail: "invalid task state: " + string(t.State)}
	}
	if t.Error != nil && t.State != TaskStateFailed {
		return &InvalidParamsError{Detail: "task error may only be set in failed state"}
	}
	return nil
}

// NewTask creates a Task in the submitted state holding the initial message.
// The message must already be validated by the caller.
func NewTask(id, sessionID string, initial Message) *Task {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	if initial.Timestamp.IsZero() {
		initial.Timestamp = now
	}
	return &Task{
		ID:        id,
		SessionID: sessionID,
		State:     TaskStateSubmitted,
		Messages:  []Message{initial},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Session is an ordered grouping of tasks representing one multi-turn
// conversation. Task IDs appear in insertion order.
type Session struct {
	ID        string    `json:"id"`
	TaskIDs   []string  `json:"taskIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TaskSendParams are the parameters of tasks/send and tasks/sendSubscribe.
type TaskSendParams struct {
	// ID optionally addresses an existing task; when empty a new task is
	// created with a server-generated identifier.
	ID string `json:"id,omitzero"`

	// SessionID optionally links a new task into a session.
	SessionID string `json:"sessionId,omitzero"`

	// Message is the client turn to deliver. Must contain at least one part.
	Message Message `json:"message"`
}

// Validate ensures the TaskSendParams are valid.
func (p *TaskSendParams) Validate() error {
	return p.Message.Validate()
}

// TaskQueryParams are the parameters of tasks/get.
type TaskQueryParams struct {
	// ID is the task identifier.
	ID string `json:"id"`

	// HistoryLength optionally limits the number of most recent messages
	// returned; zero returns the full history.
	HistoryLength int `json:"historyLength,omitzero"`
}

// Validate ensures the TaskQueryParams are valid.
func (p *TaskQueryParams) Validate() error {
	if p.ID == "" {
		return &InvalidParamsError{Detail: "task ID cannot be empty"}
	}
	return nil
}

// TaskIDParams are the parameters of tasks/cancel.
type TaskIDParams struct {
	// ID is the task identifier.
	ID string `json:"id"`
}

// Validate ensures the TaskIDParams are valid.
func (p *TaskIDParams) Validate() error {
	if p.ID == "" {
		return &InvalidParamsError{Detail: "task ID cannot be empty"}
	}
	return nil
}

// SubscribeParams are the parameters of tasks/sendSubscribe when
// resubscribing to an existing task, carrying the replay cursor.
type SubscribeParams struct {
	// ID is the task identifier.
	ID string `json:"id"`

	// From is the event index to replay from; zero replays the full history.
	From int64 `json:"from,omitzero"`
}
