// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()

	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random port
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestNATSQueueEnqueueClaim(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	q, err := NewNATSQueue(NATSQueueConfig{Conn: nc})
	require.NoError(t, err)
	defer q.Close()

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, Notice{TaskID: "t1", Attempt: 1, EnqueuedAt: time.Now().UTC()}))

	claimCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	notice, err := q.Claim(claimCtx)
	require.NoError(t, err)
	assert.Equal(t, "t1", notice.TaskID)
	assert.Equal(t, 1, notice.Attempt)
}

func TestNATSQueueGroupDeliversToOneClaimer(t *testing.T) {
	server := startTestNATSServer(t)

	ctx := context.Background()

	// Two workers on the same queue group: each notice goes to exactly one.
	var queues []*NATSQueue
	for range 2 {
		nc, err := nats.Connect(server.ClientURL())
		require.NoError(t, err)
		t.Cleanup(nc.Close)

		q, err := NewNATSQueue(NATSQueueConfig{Conn: nc})
		require.NoError(t, err)
		t.Cleanup(func() { _ = q.Close() })
		queues = append(queues, q)
	}

	const total = 10
	for i := range total {
		require.NoError(t, queues[0].Enqueue(ctx, Notice{TaskID: string(rune('a' + i)), Attempt: 1}))
	}

	claimed := make(chan string, total*3)
	for _, q := range queues {
		go func(q *NATSQueue) {
			for {
				claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
				notice, err := q.Claim(claimCtx)
				cancel()
				if err != nil {
					return
				}
				claimed <- notice.TaskID
			}
		}(q)
	}

	seen := make(map[string]int)
	for range total {
		select {
		case id := <-claimed:
			seen[id]++
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for claims")
		}
	}

	assert.Len(t, seen, total)
	for id, count := range seen {
		assert.Equalf(t, 1, count, "task %s delivered %d times", id, count)
	}
}
