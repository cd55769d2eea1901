// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"testing"
)

func TestNewTask(t *testing.T) {
	task := NewTask("", "session-1", NewUserTextMessage("do the thing"))

	if task.ID == "" {
		t.Error("expected generated task ID")
	}
	if task.State != TaskStateSubmitted {
		t.Errorf("expected state %s, got %s", TaskStateSubmitted, task.State)
	}
	if len(task.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(task.Messages))
	}
	if task.SessionID != "session-1" {
		t.Errorf("expected session session-1, got %q", task.SessionID)
	}
	if err := task.Validate(); err != nil {
		t.Errorf("expected valid task, got %v", err)
	}
}

func TestNewTaskKeepsClientID(t *testing.T) {
	task := NewTask("client-chosen", "", NewUserTextMessage("hi"))
	if task.ID != "client-chosen" {
		t.Errorf("expected client ID preserved, got %q", task.ID)
	}
}

func TestTaskValidateErrorOnlyWhenFailed(t *testing.T) {
	task := NewTask("t1", "", NewUserTextMessage("hi"))
	task.Error = &TaskError{Code: "worker_unavailable", Message: "no worker claimed"}

	if err := task.Validate(); err == nil {
		t.Error("expected error for TaskError in non-failed state")
	}

	task.State = TaskStateFailed
	if err := task.Validate(); err != nil {
		t.Errorf("expected valid failed task, got %v", err)
	}
}

func TestTaskSendParamsValidate(t *testing.T) {
	p := TaskSendParams{Message: NewUserTextMessage("hi")}
	if err := p.Validate(); err != nil {
		t.Errorf("expected valid params, got %v", err)
	}

	p.Message.Parts = nil
	if err := p.Validate(); err == nil {
		t.Error("expected error for empty parts")
	}
}

func TestTaskQueryParamsValidate(t *testing.T) {
	p := TaskQueryParams{}
	if err := p.Validate(); err == nil {
		t.Error("expected error for empty task ID")
	}
	p.ID = "t1"
	if err := p.Validate(); err != nil {
		t.Errorf("expected valid params, got %v", err)
	}
}
