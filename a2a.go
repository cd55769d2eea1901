// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package a2a provides the protocol vocabulary for the A2A task coordination
// server: task lifecycle states, messages and their typed content parts,
// artifacts, agent metadata, and the JSON-RPC 2.0 envelope used on the wire.
package a2a

// Version is the current version of the A2A protocol surface this server speaks.
const Version = "0.2.0"

// TaskState represents the lifecycle state of a Task.
type TaskState string

const (
	// TaskStateSubmitted indicates the task has been accepted but no worker
	// has claimed it yet.
	TaskStateSubmitted TaskState = "submitted"

	// TaskStateWorking indicates a worker holds the task's lease and is
	// processing it.
	TaskStateWorking TaskState = "working"

	// TaskStateInputRequired indicates the worker is parked waiting for an
	// additional client message on the same task.
	TaskStateInputRequired TaskState = "input-required"

	// TaskStateCompleted indicates the task finished successfully. Terminal.
	TaskStateCompleted TaskState = "completed"

	// TaskStateFailed indicates the task finished with an unrecoverable
	// error. Terminal.
	TaskStateFailed TaskState = "failed"

	// TaskStateCanceled indicates the task was canceled. Terminal.
	TaskStateCanceled TaskState = "canceled"
)

// IsTerminal reports whether the state is a sink: no transition leaves it.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is one of the known task states.
func (s TaskState) IsValid() bool {
	switch s {
	case TaskStateSubmitted, TaskStateWorking, TaskStateInputRequired,
		TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	default:
		return false
	}
}

// AgentCapabilities defines optional capabilities advertised by the agent.
// The server must honor what it advertises: tasks/sendSubscribe is only
// served when Streaming is true.
type AgentCapabilities struct {
	// Streaming is true if the agent supports server-pushed event streams.
	Streaming bool `json:"streaming"`

	// PushNotifications is true if the agent can notify clients of updates.
	PushNotifications bool `json:"pushNotifications,omitzero"`

	// StateTransitionHistory is true if the agent exposes the full status
	// change history for tasks.
	StateTransitionHistory bool `json:"stateTransitionHistory,omitzero"`
}

// AgentSkill represents a unit of capability the agent can perform.
type AgentSkill struct {
	// ID is the unique identifier for the skill.
	ID string `json:"id"`

	// Name is the human readable name of the skill.
	Name string `json:"name"`

	// Description assists clients in understanding what the skill does.
	Description string `json:"description,omitzero"`

	// Tags categorize the skill.
	Tags []string `json:"tags,omitzero"`

	// Examples hint at how the skill can be invoked.
	Examples []string `json:"examples,omitzero"`
}

// AgentProvider represents the service provider of an agent.
type AgentProvider struct {
	Organization string `json:"organization"`
	URL          string `json:"url,omitzero"`
}

// AgentCard is the discovery document enumerating the agent's identity,
// capabilities and skills. It is served read-only to clients; the
// coordination core consumes only Capabilities.
type AgentCard struct {
	Name         string            `json:"name"`
	Description  string            `json:"description,omitzero"`
	URL          string            `json:"url"`
	Version      string            `json:"version"`
	Provider     *AgentProvider    `json:"provider,omitzero"`
	Capabilities AgentCapabilities `json:"capabilities"`
	Skills       []AgentSkill      `json:"skills,omitzero"`
}

// Validate ensures the AgentCard is valid.
func (c *AgentCard) Validate() error {
	if c.Name == "" {
		return &InvalidParamsError{Detail: "agent card name cannot be empty"}
	}
	if c.Version == "" {
		return &InvalidParamsError{Detail: "agent card version cannot be empty"}
	}
	for i := range c.Skills {
		if c.Skills[i].ID == "" {
			return &InvalidParamsError{Detail: "agent skill ID cannot be empty"}
		}
	}
	return nil
}
