// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import "fmt"

// EventType discriminates the payload of a stream event envelope.
type EventType string

const (
	// EventTypeMessage carries an appended Message.
	EventTypeMessage EventType = "message"

	// EventTypeArtifact carries an appended Artifact chunk.
	EventTypeArtifact EventType = "artifact"

	// EventTypeStatus carries a state change. The terminal status event is
	// the last event of a task's stream.
	EventTypeStatus EventType = "status"
)

// StatusPayload is the payload of a status event.
type StatusPayload struct {
	State TaskState `json:"state"`

	// Final is true on the terminal status event; the stream closes after it.
	Final bool `json:"final,omitzero"`

	// Error is set when State is failed.
	Error *TaskError `json:"error,omitzero"`
}

// StreamEvent is one envelope in a task's append-only, monotonically-indexed
// event log. Message, Artifact and Status payloads are mutually exclusive,
// selected by Type. The index is the replay cursor position: a subscriber
// that processed event N resumes with cursor N+1.
type StreamEvent struct {
	// TaskID identifies the task the event belongs to.
	TaskID string `json:"taskId"`

	// Index is the event's position in the task's log, starting at 0.
	Index int64 `json:"index"`

	// Type discriminates the payload.
	Type EventType `json:"type"`

	Message  *Message       `json:"message,omitzero"`
	Artifact *Artifact      `json:"artifact,omitzero"`
	Status   *StatusPayload `json:"status,omitzero"`
}

// Validate ensures the envelope carries exactly the payload its type names.
func (e *StreamEvent) Validate() error {
	if e.TaskID == "" {
		return &InvalidParamsError{Detail: "stream event task ID cannot be empty"}
	}
	switch e.Type {
	case EventTypeMessage:
		if e.Message == nil {
			return &InvalidParamsError{Detail: "message event payload cannot be nil"}
		}
	case EventTypeArtifact:
		if e.Artifact == nil {
			return &InvalidParamsError{Detail: "artifact event payload cannot be nil"}
		}
	case EventTypeStatus:
		if e.Status == nil {
			return &InvalidParamsError{Detail: "status event payload cannot be nil"}
		}
	default:
		return &InvalidParamsError{Detail: fmt.Sprintf("unknown event type: %q", e.Type)}
	}
	return nil
}

// Final reports whether the event terminates the stream.
func (e *StreamEvent) Final() bool {
	return e.Type == EventTypeStatus && e.Status != nil && e.Status.Final
}

// String returns a compact representation for logging.
func (e *StreamEvent) String() string {
	return fmt.Sprintf("StreamEvent{Task: %s, Index: %d, Type: %s}", e.TaskID, e.Index, e.Type)
}
