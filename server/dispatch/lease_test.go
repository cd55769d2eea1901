// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
)

func TestLeaseTableAcquireFirstWriterWins(t *testing.T) {
	table := NewLeaseTable()

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			_, err := table.Acquire("t1", string(rune('a'+worker)), 1)
			if err == nil {
				acquired.Add(1)
				return
			}
			var held *LeaseHeldError
			if !errors.As(err, &held) {
				t.Errorf("expected LeaseHeldError, got %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := acquired.Load(); got != 1 {
		t.Errorf("expected exactly one successful claim, got %d", got)
	}
}

func TestLeaseTableHeartbeatExtends(t *testing.T) {
	table := NewLeaseTable(WithLeaseTTL(50 * time.Millisecond))

	lease, err := table.Acquire("t1", "w1", 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	before := lease.ExpiresAt

	time.Sleep(10 * time.Millisecond)
	if err := table.Heartbeat("t1", "w1"); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	holder, ok := table.Holder("t1")
	if !ok {
		t.Fatal("expected live lease")
	}
	if !holder.ExpiresAt.After(before) {
		t.Error("expected heartbeat to extend expiry")
	}
}

func TestLeaseTableHeartbeatWrongWorker(t *testing.T) {
	table := NewLeaseTable()

	if _, err := table.Acquire("t1", "w1", 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	var notHeld *LeaseNotHeldError
	if err := table.Heartbeat("t1", "w2"); !errors.As(err, &notHeld) {
		t.Errorf("expected LeaseNotHeldError, got %v", err)
	}
	if err := table.Release("t1", "w2"); !errors.As(err, &notHeld) {
		t.Errorf("expected LeaseNotHeldError, got %v", err)
	}
}

func TestLeaseTableReleaseFreesTask(t *testing.T) {
	table := NewLeaseTable()

	if _, err := table.Acquire("t1", "w1", 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := table.Release("t1", "w1"); err != nil {
		t.Fatalf("release: %v", err)
	}

	if _, err := table.Acquire("t1", "w2", 2); err != nil {
		t.Errorf("expected acquire after release, got %v", err)
	}
}

func TestLeaseTableExpiredLeaseSuperseded(t *testing.T) {
	table := NewLeaseTable(WithLeaseTTL(10 * time.Millisecond))

	if _, err := table.Acquire("t1", "w1", 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	// The watcher has not run; a fresh claim still supersedes the dead
	// lease.
	lease, err := table.Acquire("t1", "w2", 2)
	if err != nil {
		t.Fatalf("expected acquire over expired lease, got %v", err)
	}
	if lease.WorkerID != "w2" {
		t.Errorf("expected w2 to hold the lease, got %s", lease.WorkerID)
	}
}

func TestLeaseTableExpiryCallback(t *testing.T) {
	expired := make(chan string, 1)
	table := NewLeaseTable(
		WithLeaseTTL(10*time.Millisecond),
		WithExpireFunc(func(taskID string, attempt int) {
			expired <- taskID
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	table.Start(ctx)
	defer table.Stop()

	if _, err := table.Acquire("t1", "w1", 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	select {
	case taskID := <-expired:
		if taskID != "t1" {
			t.Errorf("expected expiry for t1, got %s", taskID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for expiry callback")
	}

	if _, ok := table.Holder("t1"); ok {
		t.Error("expected expired lease removed from table")
	}
}

func TestLeaseTableSignalCancel(t *testing.T) {
	table := NewLeaseTable()

	lease, err := table.Acquire("t1", "w1", 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if !table.SignalCancel("t1") {
		t.Fatal("expected cancel signal delivered")
	}

	select {
	case <-lease.Cancel():
	default:
		t.Error("expected cancel channel closed")
	}

	// Signaling twice must not panic.
	if !table.SignalCancel("t1") {
		t.Error("expected second cancel signal to succeed")
	}

	if table.SignalCancel("unleased") {
		t.Error("expected no signal for unleased task")
	}
}

func TestLeaseTableSignalInput(t *testing.T) {
	table := NewLeaseTable()

	lease, err := table.Acquire("t1", "w1", 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	msg := a2a.NewUserTextMessage("resume")
	if !table.SignalInput("t1", msg) {
		t.Fatal("expected input signal delivered")
	}

	select {
	case got := <-lease.Input():
		if got.TextContent() != "resume" {
			t.Errorf("unexpected resume message: %q", got.TextContent())
		}
	default:
		t.Error("expected buffered input message")
	}

	if table.SignalInput("unleased", msg) {
		t.Error("expected no signal for unleased task")
	}
}
