// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// DefaultCancelSubject is the NATS subject cancel requests are broadcast
// on. Unlike dispatch notices this is plain fan-out: every worker process
// hears every cancel, and only the one holding the lease reacts.
const DefaultCancelSubject = "tasks.cancel"

// CancelRelay carries cancel requests from the coordinator to worker
// processes that hold leases in other lease tables.
type CancelRelay interface {
	// Broadcast announces a cancel request for the task.
	Broadcast(ctx context.Context, taskID string) error
	// Close tears the relay down.
	Close() error
}

// NATSCancelRelay broadcasts cancel requests over a NATS subject and
// invokes a handler for every request heard, its own included.
type NATSCancelRelay struct {
	nc      *nats.Conn
	subject string
	sub     *nats.Subscription
}

var _ CancelRelay = (*NATSCancelRelay)(nil)

// NewNATSCancelRelay opens the relay. The handler is called with the task
// ID of every broadcast cancel; pass the lease table's SignalCancel.
// Subject defaults to DefaultCancelSubject when empty.
func NewNATSCancelRelay(nc *nats.Conn, subject string, handler func(taskID string)) (*NATSCancelRelay, error) {
	if nc == nil {
		return nil, fmt.Errorf("NATS connection cannot be nil")
	}
	if handler == nil {
		return nil, fmt.Errorf("cancel handler cannot be nil")
	}
	if subject == "" {
		subject = DefaultCancelSubject
	}

	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(string(msg.Data))
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe cancel relay: %w", err)
	}

	return &NATSCancelRelay{nc: nc, subject: subject, sub: sub}, nil
}

// Broadcast implements CancelRelay.
func (r *NATSCancelRelay) Broadcast(ctx context.Context, taskID string) error {
	if err := r.nc.Publish(r.subject, []byte(taskID)); err != nil {
		return fmt.Errorf("broadcast cancel: %w", err)
	}
	return nil
}

// Close implements CancelRelay.
func (r *NATSCancelRelay) Close() error {
	if err := r.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("unsubscribe cancel relay: %w", err)
	}
	return nil
}
