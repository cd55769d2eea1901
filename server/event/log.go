// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package event provides the per-task event log and the stream multiplexer
// that fans task events out to subscribers with cursor-based replay.
package event

import (
	"fmt"
	"sync"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
)

// Log is the append-only, monotonically indexed event history of one task.
// Indices start at 0 and never change once assigned; the log is the source
// of truth for replay.
type Log struct {
	mu       sync.RWMutex
	taskID   string
	events   []*a2a.StreamEvent
	terminal bool
}

// NewLog creates an empty log for the given task.
func NewLog(taskID string) *Log {
	return &Log{taskID: taskID}
}

// TaskID returns the task the log belongs to.
func (l *Log) TaskID() string { return l.taskID }

// Append assigns the next index to the event and stores it. Appending after
// the terminal event is rejected: a closed stream never grows.
func (l *Log) Append(ev *a2a.StreamEvent) (int64, error) {
	if ev == nil {
		return 0, fmt.Errorf("event cannot be nil")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.terminal {
		return 0, fmt.Errorf("event log for task %s is terminal", l.taskID)
	}

	ev.TaskID = l.taskID
	ev.Index = int64(len(l.events))
	if err := ev.Validate(); err != nil {
		return 0, err
	}

	l.events = append(l.events, ev)
	if ev.Final() {
		l.terminal = true
	}
	return ev.Index, nil
}

// EventsFrom returns a snapshot of all events with index >= from, in index
// order. A cursor past the end returns an empty slice.
func (l *Log) EventsFrom(from int64) []*a2a.StreamEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if from < 0 {
		from = 0
	}
	if from >= int64(len(l.events)) {
		return nil
	}

	out := make([]*a2a.StreamEvent, len(l.events)-int(from))
	copy(out, l.events[from:])
	return out
}

// Len returns the number of events in the log.
func (l *Log) Len() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(len(l.events))
}

// Terminal reports whether the terminal status event has been appended.
func (l *Log) Terminal() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.terminal
}
