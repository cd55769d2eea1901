// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import "testing"

func TestStreamEventValidate(t *testing.T) {
	msg := NewAgentTextMessage("pong")

	tests := []struct {
		name    string
		event   StreamEvent
		wantErr bool
	}{
		{
			name:  "message event",
			event: StreamEvent{TaskID: "t1", Index: 0, Type: EventTypeMessage, Message: &msg},
		},
		{
			name:  "status event",
			event: StreamEvent{TaskID: "t1", Index: 1, Type: EventTypeStatus, Status: &StatusPayload{State: TaskStateWorking}},
		},
		{
			name:    "missing payload",
			event:   StreamEvent{TaskID: "t1", Index: 0, Type: EventTypeMessage},
			wantErr: true,
		},
		{
			name:    "payload type mismatch",
			event:   StreamEvent{TaskID: "t1", Index: 0, Type: EventTypeArtifact, Message: &msg},
			wantErr: true,
		},
		{
			name:    "unknown type",
			event:   StreamEvent{TaskID: "t1", Index: 0, Type: "ping"},
			wantErr: true,
		},
		{
			name:    "missing task ID",
			event:   StreamEvent{Index: 0, Type: EventTypeMessage, Message: &msg},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestStreamEventFinal(t *testing.T) {
	ev := StreamEvent{
		TaskID: "t1",
		Type:   EventTypeStatus,
		Status: &StatusPayload{State: TaskStateCompleted, Final: true},
	}
	if !ev.Final() {
		t.Error("expected terminal status event to be final")
	}

	ev.Status.Final = false
	if ev.Final() {
		t.Error("expected non-final status event")
	}

	msg := NewAgentTextMessage("hi")
	mev := StreamEvent{TaskID: "t1", Type: EventTypeMessage, Message: &msg}
	if mev.Final() {
		t.Error("message events are never final")
	}
}
