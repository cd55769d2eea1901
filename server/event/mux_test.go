// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"errors"
	"fmt"
	"testing"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
)

func publishMessage(t *testing.T, mux *Multiplexer, taskID, text string) int64 {
	t.Helper()
	msg := a2a.NewAgentTextMessage(text)
	index, err := mux.Publish(context.Background(), &a2a.StreamEvent{
		TaskID:  taskID,
		Type:    a2a.EventTypeMessage,
		Message: &msg,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	return index
}

func publishTerminal(t *testing.T, mux *Multiplexer, taskID string, state a2a.TaskState) {
	t.Helper()
	_, err := mux.Publish(context.Background(), &a2a.StreamEvent{
		TaskID: taskID,
		Type:   a2a.EventTypeStatus,
		Status: &a2a.StatusPayload{State: state, Final: true},
	})
	if err != nil {
		t.Fatalf("publish terminal: %v", err)
	}
}

func TestMultiplexerIndicesAreMonotonic(t *testing.T) {
	mux := NewMultiplexer()
	if err := mux.Register("t1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	for want := int64(0); want < 5; want++ {
		got := publishMessage(t, mux, "t1", fmt.Sprintf("event %d", want))
		if got != want {
			t.Errorf("expected index %d, got %d", want, got)
		}
	}
}

func TestMultiplexerLiveDelivery(t *testing.T) {
	ctx := context.Background()
	mux := NewMultiplexer()
	if err := mux.Register("t1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	sub, err := mux.Subscribe(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	publishMessage(t, mux, "t1", "first")
	publishMessage(t, mux, "t1", "second")

	ev := <-sub.Events()
	if ev.Index != 0 || ev.Message.TextContent() != "first" {
		t.Errorf("unexpected first event: %v", ev)
	}
	ev = <-sub.Events()
	if ev.Index != 1 || ev.Message.TextContent() != "second" {
		t.Errorf("unexpected second event: %v", ev)
	}
}

func TestMultiplexerReplayMatchesLiveOrder(t *testing.T) {
	ctx := context.Background()
	mux := NewMultiplexer()
	if err := mux.Register("t1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	live, err := mux.Subscribe(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("subscribe live: %v", err)
	}

	for i := range 4 {
		publishMessage(t, mux, "t1", fmt.Sprintf("event %d", i))
	}
	publishTerminal(t, mux, "t1", a2a.TaskStateCompleted)

	var liveOrder []int64
	for ev := range live.Events() {
		liveOrder = append(liveOrder, ev.Index)
	}

	// A cursor-0 subscriber attached after completion must observe the
	// exact same sequence the live subscriber saw.
	replay, err := mux.Subscribe(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("subscribe replay: %v", err)
	}

	var replayOrder []int64
	for ev := range replay.Events() {
		replayOrder = append(replayOrder, ev.Index)
	}

	if len(liveOrder) != len(replayOrder) {
		t.Fatalf("length mismatch: live %v, replay %v", liveOrder, replayOrder)
	}
	for i := range liveOrder {
		if liveOrder[i] != replayOrder[i] {
			t.Errorf("position %d: live %d, replay %d", i, liveOrder[i], replayOrder[i])
		}
	}
}

func TestMultiplexerCursorSkipsProcessedEvents(t *testing.T) {
	ctx := context.Background()
	mux := NewMultiplexer()
	if err := mux.Register("t1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	for i := range 5 {
		publishMessage(t, mux, "t1", fmt.Sprintf("event %d", i))
	}
	publishTerminal(t, mux, "t1", a2a.TaskStateCompleted)

	sub, err := mux.Subscribe(ctx, "t1", 3)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	var got []int64
	for ev := range sub.Events() {
		got = append(got, ev.Index)
	}

	want := []int64{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("expected indices %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestMultiplexerTerminalClosesStream(t *testing.T) {
	ctx := context.Background()
	mux := NewMultiplexer()
	if err := mux.Register("t1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	sub, err := mux.Subscribe(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	publishTerminal(t, mux, "t1", a2a.TaskStateCompleted)

	ev, ok := <-sub.Events()
	if !ok {
		t.Fatal("expected terminal event before close")
	}
	if !ev.Final() {
		t.Errorf("expected final event, got %v", ev)
	}

	if _, ok := <-sub.Events(); ok {
		t.Error("expected channel closed after terminal event")
	}
	if err := sub.Err(); err != nil {
		t.Errorf("expected clean close, got %v", err)
	}
}

func TestMultiplexerSubscribeAfterTerminal(t *testing.T) {
	ctx := context.Background()
	mux := NewMultiplexer()
	if err := mux.Register("t1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	publishMessage(t, mux, "t1", "only")
	publishTerminal(t, mux, "t1", a2a.TaskStateCompleted)

	sub, err := mux.Subscribe(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	count := 0
	for range sub.Events() {
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 replayed events, got %d", count)
	}
}

func TestMultiplexerOverflowDropsSlowSubscriber(t *testing.T) {
	ctx := context.Background()
	mux := NewMultiplexer(WithBufferSize(10))
	if err := mux.Register("t1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	sub, err := mux.Subscribe(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// The subscriber never drains. Ten events fill its buffer; the
	// eleventh must drop it rather than block the producer.
	for i := range 11 {
		publishMessage(t, mux, "t1", fmt.Sprintf("event %d", i))
	}

	drained := 0
	for range sub.Events() {
		drained++
	}
	if drained != 10 {
		t.Errorf("expected 10 buffered events, got %d", drained)
	}

	var overflow *a2a.StreamOverflowError
	if err := sub.Err(); !errors.As(err, &overflow) {
		t.Fatalf("expected StreamOverflowError, got %v", err)
	}
	if overflow.Index != 10 {
		t.Errorf("expected overflow at index 10, got %d", overflow.Index)
	}

	// The stream itself is unaffected: the log kept every event.
	events, err := mux.Replay("t1", 0)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(events) != 11 {
		t.Errorf("expected 11 logged events, got %d", len(events))
	}
}

func TestMultiplexerAppendAfterTerminalRejected(t *testing.T) {
	mux := NewMultiplexer()
	if err := mux.Register("t1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	publishTerminal(t, mux, "t1", a2a.TaskStateCanceled)

	msg := a2a.NewAgentTextMessage("late")
	_, err := mux.Publish(context.Background(), &a2a.StreamEvent{
		TaskID:  "t1",
		Type:    a2a.EventTypeMessage,
		Message: &msg,
	})
	if err == nil {
		t.Error("expected error appending after terminal event")
	}
}

func TestMultiplexerUnknownTask(t *testing.T) {
	mux := NewMultiplexer()

	_, err := mux.Subscribe(context.Background(), "nope", 0)
	var notFound *a2a.TaskNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected TaskNotFoundError, got %v", err)
	}
}

func TestMultiplexerRegisterTwice(t *testing.T) {
	mux := NewMultiplexer()
	if err := mux.Register("t1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := mux.Register("t1"); err == nil {
		t.Error("expected error registering the same task twice")
	}
}

func TestMultiplexerUnregisterFreesTaskID(t *testing.T) {
	ctx := context.Background()
	mux := NewMultiplexer()
	if err := mux.Register("t1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	sub, err := mux.Subscribe(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	mux.Unregister("t1")

	if _, open := <-sub.Events(); open {
		t.Error("expected subscription closed by unregister")
	}

	// The ID is free again and the new stream starts from a fresh log.
	if err := mux.Register("t1"); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if got := publishMessage(t, mux, "t1", "fresh"); got != 0 {
		t.Errorf("expected fresh log to start at index 0, got %d", got)
	}

	// Unregistering an unknown task is a no-op.
	mux.Unregister("nope")
}
