// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"testing"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
)

func TestInMemoryTaskStoreSaveGet(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryTaskStore()

	task := a2a.NewTask("t1", "s1", a2a.NewUserTextMessage("hello"))
	if err := store.Save(ctx, task); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "t1" || got.SessionID != "s1" {
		t.Errorf("unexpected task: %+v", got)
	}
	if got.State != a2a.TaskStateSubmitted {
		t.Errorf("expected state submitted, got %s", got.State)
	}
}

func TestInMemoryTaskStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryTaskStore()

	task := a2a.NewTask("t1", "", a2a.NewUserTextMessage("hello"))
	if err := store.Save(ctx, task); err != nil {
		t.Fatalf("save: %v", err)
	}

	first, _ := store.Get(ctx, "t1")
	first.State = a2a.TaskStateFailed
	first.Messages = append(first.Messages, a2a.NewAgentTextMessage("mutated"))

	second, _ := store.Get(ctx, "t1")
	if second.State != a2a.TaskStateSubmitted {
		t.Errorf("caller mutation leaked into store: state %s", second.State)
	}
	if len(second.Messages) != 1 {
		t.Errorf("caller mutation leaked into store: %d messages", len(second.Messages))
	}
}

func TestInMemoryTaskStoreGetNotFound(t *testing.T) {
	store := NewInMemoryTaskStore()

	_, err := store.Get(context.Background(), "missing")
	var notFound *a2a.TaskNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected TaskNotFoundError, got %v", err)
	}
	if notFound.TaskID != "missing" {
		t.Errorf("expected task ID missing, got %q", notFound.TaskID)
	}
}

func TestInMemoryTaskStoreSaveRejectsInvalid(t *testing.T) {
	store := NewInMemoryTaskStore()

	task := a2a.NewTask("t1", "", a2a.NewUserTextMessage("hello"))
	task.Error = &a2a.TaskError{Code: "boom", Message: "error outside failed state"}

	err := store.Save(context.Background(), task)
	var verr TaskValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected TaskValidationError, got %v", err)
	}
}

func TestInMemoryTaskStoreListBySession(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryTaskStore()

	for _, id := range []string{"a", "b", "c"} {
		task := a2a.NewTask(id, "s1", a2a.NewUserTextMessage("msg "+id))
		if err := store.Save(ctx, task); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	other := a2a.NewTask("d", "s2", a2a.NewUserTextMessage("other"))
	if err := store.Save(ctx, other); err != nil {
		t.Fatalf("save d: %v", err)
	}

	tasks, err := store.List(ctx, "s1", 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	// Insertion order is the canonical order.
	for i, want := range []string{"a", "b", "c"} {
		if tasks[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, tasks[i].ID)
		}
	}

	count, err := store.Count(ctx, "s1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
}

func TestInMemoryTaskStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryTaskStore()

	task := a2a.NewTask("t1", "", a2a.NewUserTextMessage("hello"))
	if err := store.Save(ctx, task); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.Delete(ctx, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var notFound *a2a.TaskNotFoundError
	if err := store.Delete(ctx, "t1"); !errors.As(err, &notFound) {
		t.Errorf("expected TaskNotFoundError on second delete, got %v", err)
	}
}
