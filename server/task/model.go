// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
)

// MessageSliceJSON provides JSON serialization for []Message in database
// columns.
type MessageSliceJSON struct {
	Messages []a2a.Message
}

// Value implements the driver.Valuer interface for database storage.
func (ms MessageSliceJSON) Value() (driver.Value, error) {
	if ms.Messages == nil {
		return nil, nil
	}
	data, err := json.Marshal(ms.Messages)
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

// Scan implements the sql.Scanner interface for database retrieval.
func (ms *MessageSliceJSON) Scan(value any) error {
	if value == nil {
		*ms = MessageSliceJSON{}
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan into MessageSliceJSON: %w", err)
	}

	var messages []a2a.Message
	if err := json.Unmarshal(bytes, &messages); err != nil {
		return fmt.Errorf("cannot unmarshal MessageSliceJSON: %w", err)
	}

	ms.Messages = messages
	return nil
}

// ArtifactSliceJSON provides JSON serialization for []Artifact in database
// columns.
type ArtifactSliceJSON struct {
	Artifacts []a2a.Artifact
}

// Value implements the driver.Valuer interface for database storage.
func (as ArtifactSliceJSON) Value() (driver.Value, error) {
	if as.Artifacts == nil {
		return nil, nil
	}
	data, err := json.Marshal(as.Artifacts)
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

// Scan implements the sql.Scanner interface for database retrieval.
func (as *ArtifactSliceJSON) Scan(value any) error {
	if value == nil {
		*as = ArtifactSliceJSON{}
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan into ArtifactSliceJSON: %w", err)
	}

	var artifacts []a2a.Artifact
	if err := json.Unmarshal(bytes, &artifacts); err != nil {
		return fmt.Errorf("cannot unmarshal ArtifactSliceJSON: %w", err)
	}

	as.Artifacts = artifacts
	return nil
}

// TaskErrorJSON provides JSON serialization for *TaskError in database
// columns.
type TaskErrorJSON struct {
	Err *a2a.TaskError
}

// Value implements the driver.Valuer interface for database storage.
func (te TaskErrorJSON) Value() (driver.Value, error) {
	if te.Err == nil {
		return nil, nil
	}
	data, err := json.Marshal(te.Err)
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

// Scan implements the sql.Scanner interface for database retrieval.
func (te *TaskErrorJSON) Scan(value any) error {
	if value == nil {
		*te = TaskErrorJSON{}
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan into TaskErrorJSON: %w", err)
	}

	var taskErr a2a.TaskError
	if err := json.Unmarshal(bytes, &taskErr); err != nil {
		return fmt.Errorf("cannot unmarshal TaskErrorJSON: %w", err)
	}

	te.Err = &taskErr
	return nil
}

func scanBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", value)
	}
}

// TaskModel is the GORM persistence model for tasks. Conversation history
// and artifacts are stored as JSON columns so the append-only event order
// survives round-trips unchanged.
type TaskModel struct {
	ID              string            `gorm:"primaryKey;size:64" json:"id"`
	SessionID       string            `gorm:"size:64;index" json:"sessionId"`
	State           string            `gorm:"size:16;not null" json:"state"`
	Messages        MessageSliceJSON  `gorm:"type:json" json:"messages"`
	Artifacts       ArtifactSliceJSON `gorm:"type:json" json:"artifacts"`
	Error           TaskErrorJSON     `gorm:"type:json" json:"error"`
	CancelRequested bool              `gorm:"not null;default:false" json:"cancelRequested"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// TableName returns the table name for the TaskModel.
func (TaskModel) TableName() string {
	return "tasks"
}

// NewTaskModelFromTask creates a TaskModel from a Task.
func NewTaskModelFromTask(task *a2a.Task) (*TaskModel, error) {
	if task == nil {
		return nil, fmt.Errorf("task cannot be nil")
	}

	return &TaskModel{
		ID:              task.ID,
		SessionID:       task.SessionID,
		State:           string(task.State),
		Messages:        MessageSliceJSON{Messages: task.Messages},
		Artifacts:       ArtifactSliceJSON{Artifacts: task.Artifacts},
		Error:           TaskErrorJSON{Err: task.Error},
		CancelRequested: task.CancelRequested,
		CreatedAt:       task.CreatedAt,
		UpdatedAt:       task.UpdatedAt,
	}, nil
}

// ToTask converts the TaskModel back to a Task.
func (m *TaskModel) ToTask() (*a2a.Task, error) {
	task := &a2a.Task{
		ID:              m.ID,
		SessionID:       m.SessionID,
		State:           a2a.TaskState(m.State),
		Messages:        m.Messages.Messages,
		Artifacts:       m.Artifacts.Artifacts,
		Error:           m.Error.Err,
		CancelRequested: m.CancelRequested,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}

	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("stored task is invalid: %w", err)
	}

	return task, nil
}

// SessionModel is the GORM persistence model for sessions. Task IDs are
// stored as a JSON array in insertion order.
type SessionModel struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	TaskIDs   []byte    `gorm:"type:json" json:"taskIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for the SessionModel.
func (SessionModel) TableName() string {
	return "sessions"
}

// NewSessionModelFromSession creates a SessionModel from a Session.
func NewSessionModelFromSession(session *a2a.Session) (*SessionModel, error) {
	if session == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}

	taskIDs, err := json.Marshal(session.TaskIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task IDs: %w", err)
	}

	return &SessionModel{
		ID:        session.ID,
		TaskIDs:   taskIDs,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}, nil
}

// ToSession converts the SessionModel back to a Session.
func (m *SessionModel) ToSession() (*a2a.Session, error) {
	session := &a2a.Session{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}

	if len(m.TaskIDs) > 0 {
		if err := json.Unmarshal(m.TaskIDs, &session.TaskIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task IDs: %w", err)
		}
	}

	return session, nil
}
