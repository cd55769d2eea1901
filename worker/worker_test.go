// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/dispatch"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/event"
	"github.com/rileyseaburg/A2A-Server-MCP-sub002/server/task"
)

type fixture struct {
	coord   *server.Coordinator
	gateway *server.Gateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	coord := server.NewCoordinator(
		task.NewInMemoryTaskStore(),
		task.NewInMemorySessionStore(),
		dispatch.NewMemoryQueue(64),
		dispatch.NewLeaseTable(dispatch.WithLeaseTTL(5*time.Second)),
		event.NewMultiplexer(),
	)
	t.Cleanup(func() { _ = coord.Close(context.Background()) })

	return &fixture{coord: coord, gateway: server.NewGateway(coord)}
}

func (f *fixture) submit(t *testing.T, text string) *a2a.Task {
	t.Helper()
	created, err := f.coord.Submit(context.Background(), a2a.TaskSendParams{
		Message: a2a.NewUserTextMessage(text),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return created
}

func (f *fixture) waitState(t *testing.T, taskID string, want a2a.TaskState) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, err := f.coord.Get(context.Background(), a2a.TaskQueryParams{ID: taskID})
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.State == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached %s", taskID, want)
}

type executorFunc func(ctx context.Context, handle *TaskHandle) error

func (f executorFunc) Execute(ctx context.Context, handle *TaskHandle) error {
	return f(ctx, handle)
}

func runRunner(t *testing.T, f *fixture, exec Executor, opts ...RunnerOption) context.CancelFunc {
	t.Helper()
	runner, err := NewRunner(f.gateway, exec, "worker-1", opts...)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = runner.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestRunnerCompletesTask(t *testing.T) {
	f := newFixture(t)

	runRunner(t, f, executorFunc(func(ctx context.Context, handle *TaskHandle) error {
		text := handle.Task().Messages[0].TextContent()
		if err := handle.ReportMessage(ctx, a2a.NewAgentTextMessage("echo: "+text)); err != nil {
			return err
		}
		return handle.ReportArtifact(ctx, a2a.NewTextArtifact("result", text))
	}))

	created := f.submit(t, "hello")
	f.waitState(t, created.ID, a2a.TaskStateCompleted)

	got, err := f.coord.Get(context.Background(), a2a.TaskQueryParams{ID: created.ID})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got.Messages))
	}
	if got.Messages[1].TextContent() != "echo: hello" {
		t.Errorf("unexpected agent message: %q", got.Messages[1].TextContent())
	}
	if len(got.Artifacts) != 1 {
		t.Errorf("expected 1 artifact, got %d", len(got.Artifacts))
	}
}

func TestRunnerFailsTaskOnExecutorError(t *testing.T) {
	f := newFixture(t)

	runRunner(t, f, executorFunc(func(ctx context.Context, handle *TaskHandle) error {
		return fmt.Errorf("model backend unreachable")
	}))

	created := f.submit(t, "doomed")
	f.waitState(t, created.ID, a2a.TaskStateFailed)

	got, err := f.coord.Get(context.Background(), a2a.TaskQueryParams{ID: created.ID})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Error == nil || got.Error.Code != "execution_error" {
		t.Errorf("expected execution_error, got %+v", got.Error)
	}
}

func TestRunnerAcknowledgesCancel(t *testing.T) {
	f := newFixture(t)

	started := make(chan struct{})
	runRunner(t, f, executorFunc(func(ctx context.Context, handle *TaskHandle) error {
		close(started)
		select {
		case <-handle.Canceled():
			return ErrCanceled
		case <-ctx.Done():
			return ctx.Err()
		}
	}))

	created := f.submit(t, "long job")
	<-started

	if _, err := f.coord.Cancel(context.Background(), a2a.TaskIDParams{ID: created.ID}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.waitState(t, created.ID, a2a.TaskStateCanceled)
}

func TestRunnerContextCanceledByClientCancel(t *testing.T) {
	f := newFixture(t)

	started := make(chan struct{})
	runRunner(t, f, executorFunc(func(ctx context.Context, handle *TaskHandle) error {
		close(started)
		// Executor only honors ctx; the runner maps the cancellation to
		// an acknowledgement because the lease saw the cancel signal.
		<-ctx.Done()
		return ctx.Err()
	}))

	created := f.submit(t, "ctx job")
	<-started

	if _, err := f.coord.Cancel(context.Background(), a2a.TaskIDParams{ID: created.ID}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.waitState(t, created.ID, a2a.TaskStateCanceled)
}

func TestRunnerAwaitInputResume(t *testing.T) {
	f := newFixture(t)

	runRunner(t, f, executorFunc(func(ctx context.Context, handle *TaskHandle) error {
		msg, err := handle.AwaitInput(ctx)
		if err != nil {
			return err
		}
		return handle.ReportMessage(ctx, a2a.NewAgentTextMessage("got: "+msg.TextContent()))
	}))

	created := f.submit(t, "need details")
	f.waitState(t, created.ID, a2a.TaskStateInputRequired)

	if _, err := f.coord.Submit(context.Background(), a2a.TaskSendParams{
		ID:      created.ID,
		Message: a2a.NewUserTextMessage("here you go"),
	}); err != nil {
		t.Fatalf("resume: %v", err)
	}
	f.waitState(t, created.ID, a2a.TaskStateCompleted)

	got, err := f.coord.Get(context.Background(), a2a.TaskQueryParams{ID: created.ID})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	last := got.Messages[len(got.Messages)-1]
	if last.TextContent() != "got: here you go" {
		t.Errorf("unexpected resume message: %q", last.TextContent())
	}
}

func TestRunnerConcurrencyProcessesManyTasks(t *testing.T) {
	f := newFixture(t)

	runRunner(t, f, executorFunc(func(ctx context.Context, handle *TaskHandle) error {
		return nil
	}), WithConcurrency(4))

	ids := make([]string, 0, 8)
	for i := range 8 {
		created := f.submit(t, fmt.Sprintf("job %d", i))
		ids = append(ids, created.ID)
	}
	for _, id := range ids {
		f.waitState(t, id, a2a.TaskStateCompleted)
	}
}

func TestNewRunnerValidation(t *testing.T) {
	f := newFixture(t)
	exec := executorFunc(func(ctx context.Context, handle *TaskHandle) error { return nil })

	if _, err := NewRunner(nil, exec, "w"); err == nil {
		t.Error("expected error for nil gateway")
	}
	if _, err := NewRunner(f.gateway, nil, "w"); err == nil {
		t.Error("expected error for nil executor")
	}
	if _, err := NewRunner(f.gateway, exec, ""); err == nil {
		t.Error("expected error for empty worker ID")
	}
	if _, err := NewRunner(f.gateway, exec, "w"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
