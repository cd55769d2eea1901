// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/nats-io/nats.go"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
)

// DefaultEventSubject is the NATS subject worker-side stream events are
// relayed on. Like the cancel subject this is plain fan-out: the process
// that registered the task's stream picks the event up and feeds its own
// multiplexer.
const DefaultEventSubject = "tasks.events"

// EventRelay carries stream events from the process holding a task's lease
// back to the process that owns the task's stream. In single-process
// deployments no relay is needed.
type EventRelay interface {
	// Broadcast announces a stream event for delivery elsewhere.
	Broadcast(ctx context.Context, ev *a2a.StreamEvent) error
	// Close tears the relay down.
	Close() error
}

// NATSEventRelay broadcasts stream events over a NATS subject. Worker
// processes use it publish-only; the stream-owning process also calls
// Listen to hear the events workers report.
type NATSEventRelay struct {
	nc      *nats.Conn
	subject string
	sub     *nats.Subscription
}

var _ EventRelay = (*NATSEventRelay)(nil)

// NewNATSEventRelay opens the relay. Subject defaults to
// DefaultEventSubject when empty.
func NewNATSEventRelay(nc *nats.Conn, subject string) (*NATSEventRelay, error) {
	if nc == nil {
		return nil, fmt.Errorf("NATS connection cannot be nil")
	}
	if subject == "" {
		subject = DefaultEventSubject
	}
	return &NATSEventRelay{nc: nc, subject: subject}, nil
}

// Listen subscribes to the relay subject and invokes the handler for every
// event heard. Events that fail to decode are dropped; the persisted task
// remains the source of truth.
func (r *NATSEventRelay) Listen(handler func(ev *a2a.StreamEvent)) error {
	if handler == nil {
		return fmt.Errorf("event handler cannot be nil")
	}
	if r.sub != nil {
		return fmt.Errorf("event relay is already listening")
	}

	sub, err := r.nc.Subscribe(r.subject, func(msg *nats.Msg) {
		var ev a2a.StreamEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return
		}
		handler(&ev)
	})
	if err != nil {
		return fmt.Errorf("subscribe event relay: %w", err)
	}
	r.sub = sub
	return nil
}

// Broadcast implements EventRelay.
func (r *NATSEventRelay) Broadcast(ctx context.Context, ev *a2a.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode stream event: %w", err)
	}
	if err := r.nc.Publish(r.subject, data); err != nil {
		return fmt.Errorf("broadcast stream event: %w", err)
	}
	return nil
}

// Close implements EventRelay.
func (r *NATSEventRelay) Close() error {
	if r.sub == nil {
		return nil
	}
	if err := r.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("unsubscribe event relay: %w", err)
	}
	return nil
}
