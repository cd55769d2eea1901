// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/nats-io/nats.go"
)

// DefaultSubject is the NATS subject dispatch notices are published on.
const DefaultSubject = "tasks.dispatch"

// DefaultQueueGroup is the NATS queue group workers claim from. All workers
// share one group so each notice is delivered to a single claimer.
const DefaultQueueGroup = "workers"

// NATSQueue is a Queue backed by a NATS subject with a queue-group
// subscription, for deployments where workers run in separate processes.
type NATSQueue struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	group   string
}

var _ Queue = (*NATSQueue)(nil)

// NATSQueueConfig holds configuration for NATSQueue.
type NATSQueueConfig struct {
	Conn    *nats.Conn
	Subject string // Optional, defaults to DefaultSubject
	Group   string // Optional, defaults to DefaultQueueGroup
}

// NewNATSQueue creates a NATSQueue and opens its queue-group subscription.
func NewNATSQueue(config NATSQueueConfig) (*NATSQueue, error) {
	if config.Conn == nil {
		return nil, fmt.Errorf("NATS connection cannot be nil")
	}

	subject := config.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	group := config.Group
	if group == "" {
		group = DefaultQueueGroup
	}

	sub, err := config.Conn.QueueSubscribeSync(subject, group)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	return &NATSQueue{
		nc:      config.Conn,
		sub:     sub,
		subject: subject,
		group:   group,
	}, nil
}

// Enqueue publishes a notice to the dispatch subject.
func (q *NATSQueue) Enqueue(ctx context.Context, notice Notice) error {
	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	if err := q.nc.Publish(q.subject, data); err != nil {
		return fmt.Errorf("publish notice for task %s: %w", notice.TaskID, err)
	}
	return nil
}

// Claim blocks until a notice arrives on the queue group.
func (q *NATSQueue) Claim(ctx context.Context) (*Notice, error) {
	msg, err := q.sub.NextMsgWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("claim notice: %w", err)
	}

	var notice Notice
	if err := json.Unmarshal(msg.Data, &notice); err != nil {
		return nil, fmt.Errorf("unmarshal notice: %w", err)
	}
	return &notice, nil
}

// Close drains the subscription.
func (q *NATSQueue) Close() error {
	if err := q.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}
