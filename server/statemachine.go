// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
)

// transitions is the task lifecycle table. Terminal states have no
// outgoing edges; every other transition not listed here is invalid.
var transitions = map[a2a.TaskState][]a2a.TaskState{
	a2a.TaskStateSubmitted: {
		a2a.TaskStateWorking,
		a2a.TaskStateCanceled,
		a2a.TaskStateFailed,
	},
	a2a.TaskStateWorking: {
		a2a.TaskStateInputRequired,
		a2a.TaskStateCompleted,
		a2a.TaskStateFailed,
		a2a.TaskStateCanceled,
		// Redelivery after lease expiry returns the task to the queue.
		a2a.TaskStateSubmitted,
	},
	a2a.TaskStateInputRequired: {
		a2a.TaskStateWorking,
		a2a.TaskStateCanceled,
		a2a.TaskStateFailed,
		// Resume with no live lease goes back through the queue.
		a2a.TaskStateSubmitted,
	},
	a2a.TaskStateCompleted: {},
	a2a.TaskStateFailed:    {},
	a2a.TaskStateCanceled:  {},
}

// InvalidTransitionError indicates a lifecycle transition outside the
// state machine's edges.
type InvalidTransitionError struct {
	TaskID string
	From   a2a.TaskState
	To     a2a.TaskState
}

// Error returns the error message.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for task %s: %s -> %s", e.TaskID, e.From, e.To)
}

// CanTransition reports whether the edge from -> to exists in the
// lifecycle table.
func CanTransition(from, to a2a.TaskState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition checks the edge and returns a typed error naming the
// rejected pair.
func ValidateTransition(taskID string, from, to a2a.TaskState) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{TaskID: taskID, From: from, To: to}
	}
	return nil
}

// ForceCancelable reports whether the state admits the forced
// cancellation edge. It exists separately from the cooperative
// canceled transition: when a worker ignores the cancel signal past the
// hard timeout, the coordinator transitions the task itself regardless of
// which non-terminal state it sits in.
func ForceCancelable(state a2a.TaskState) bool {
	return !state.IsTerminal()
}
