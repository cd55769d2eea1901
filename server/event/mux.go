// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
)

// DefaultBufferSize is the per-subscriber live buffer capacity.
const DefaultBufferSize = 64

// Multiplexer fans one event stream per task out to any number of
// subscribers. Every published event is appended to the task's log first,
// then delivered to live subscribers; a new subscriber replays the log from
// its cursor before receiving live events, so cursor 0 always observes the
// exact sequence an original subscriber saw.
type Multiplexer struct {
	mu         sync.RWMutex
	streams    map[string]*stream
	bufferSize int
	logger     *slog.Logger
	closed     bool
}

// stream is the per-task fan-out state. Its mutex serializes index
// assignment with subscriber delivery, which is what makes replay and live
// delivery agree on event order.
type stream struct {
	mu   sync.Mutex
	log  *Log
	subs map[*Subscription]struct{}
}

// MultiplexerOption configures a Multiplexer.
type MultiplexerOption func(*Multiplexer)

// WithBufferSize sets the per-subscriber live buffer capacity.
func WithBufferSize(n int) MultiplexerOption {
	return func(m *Multiplexer) {
		if n > 0 {
			m.bufferSize = n
		}
	}
}

// WithLogger sets the logger used for subscriber lifecycle events.
func WithLogger(logger *slog.Logger) MultiplexerOption {
	return func(m *Multiplexer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMultiplexer creates a new Multiplexer.
func NewMultiplexer(opts ...MultiplexerOption) *Multiplexer {
	m := &Multiplexer{
		streams:    make(map[string]*stream),
		bufferSize: DefaultBufferSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register creates the event log for a new task. It is called once at task
// submission, before any event can be published.
func (m *Multiplexer) Register(taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("multiplexer is closed")
	}
	if _, exists := m.streams[taskID]; exists {
		return fmt.Errorf("stream for task %s already registered", taskID)
	}

	m.streams[taskID] = &stream{
		log:  NewLog(taskID),
		subs: make(map[*Subscription]struct{}),
	}
	return nil
}

// Unregister removes the task's stream and closes any open subscriptions.
// It undoes a Register whose task never became durable; a later Register
// for the same ID starts a fresh log.
func (m *Multiplexer) Unregister(taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, exists := m.streams[taskID]
	if !exists {
		return
	}
	delete(m.streams, taskID)

	st.mu.Lock()
	for sub := range st.subs {
		delete(st.subs, sub)
		close(sub.ch)
		sub.closed = true
	}
	st.mu.Unlock()
}

// Publish appends the event to the task's log and delivers it to all live
// subscribers. The event's index is assigned here; any caller-set index is
// overwritten. Publishing the terminal status event closes every
// subscription cleanly after delivery.
//
// Delivery never blocks: a subscriber whose buffer is full is dropped with
// a StreamOverflowError rather than stalling the stream.
func (m *Multiplexer) Publish(ctx context.Context, ev *a2a.StreamEvent) (int64, error) {
	if ev == nil {
		return 0, fmt.Errorf("event cannot be nil")
	}

	st, err := m.stream(ev.TaskID)
	if err != nil {
		return 0, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	index, err := st.log.Append(ev)
	if err != nil {
		return 0, err
	}

	final := ev.Final()
	for sub := range st.subs {
		select {
		case sub.ch <- ev:
		default:
			// Subscriber fell behind its buffer. Drop it with an explicit
			// error instead of blocking the producer.
			sub.err = &a2a.StreamOverflowError{TaskID: ev.TaskID, Index: index}
			delete(st.subs, sub)
			close(sub.ch)
			sub.closed = true
			m.logger.WarnContext(ctx, "dropped slow subscriber",
				slog.String("task_id", ev.TaskID),
				slog.Int64("index", index),
			)
		}
	}

	if final {
		for sub := range st.subs {
			delete(st.subs, sub)
			close(sub.ch)
			sub.closed = true
		}
	}

	return index, nil
}

// Subscribe attaches a subscriber to the task's stream, replaying all logged
// events with index >= from before any live event. Subscribing to a task
// whose stream is already terminal returns the replay followed by an
// immediately closed channel.
func (m *Multiplexer) Subscribe(ctx context.Context, taskID string, from int64) (*Subscription, error) {
	st, err := m.stream(taskID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	backlog := st.log.EventsFrom(from)

	// The channel holds the full replay plus a live buffer, so the backlog
	// prefill below can never block.
	sub := &Subscription{
		taskID: taskID,
		mux:    m,
		ch:     make(chan *a2a.StreamEvent, len(backlog)+m.bufferSize),
	}
	for _, ev := range backlog {
		sub.ch <- ev
	}

	if st.log.Terminal() {
		close(sub.ch)
		sub.closed = true
		return sub, nil
	}

	st.subs[sub] = struct{}{}
	return sub, nil
}

// Replay returns a snapshot of the task's logged events from the cursor
// without attaching a live subscriber.
func (m *Multiplexer) Replay(taskID string, from int64) ([]*a2a.StreamEvent, error) {
	st, err := m.stream(taskID)
	if err != nil {
		return nil, err
	}
	return st.log.EventsFrom(from), nil
}

// Terminal reports whether the task's stream has ended.
func (m *Multiplexer) Terminal(taskID string) bool {
	st, err := m.stream(taskID)
	if err != nil {
		return false
	}
	return st.log.Terminal()
}

// Close drops all streams and closes every open subscription.
func (m *Multiplexer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for _, st := range m.streams {
		st.mu.Lock()
		for sub := range st.subs {
			delete(st.subs, sub)
			close(sub.ch)
			sub.closed = true
		}
		st.mu.Unlock()
	}
	m.streams = make(map[string]*stream)
	return nil
}

func (m *Multiplexer) stream(taskID string) (*stream, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("multiplexer is closed")
	}
	st, exists := m.streams[taskID]
	if !exists {
		return nil, &a2a.TaskNotFoundError{TaskID: taskID}
	}
	return st, nil
}

// Subscription is one subscriber's view of a task stream. Events arrive on
// Events() in index order; after the channel closes, Err() reports whether
// the stream ended cleanly or the subscriber was dropped.
type Subscription struct {
	taskID string
	mux    *Multiplexer
	ch     chan *a2a.StreamEvent
	err    error
	closed bool
}

// Events returns the channel events are delivered on. The channel is closed
// after the terminal event, on overflow, or when the subscription is closed.
func (s *Subscription) Events() <-chan *a2a.StreamEvent {
	return s.ch
}

// Err returns the reason the channel closed. It is nil on clean termination
// and a StreamOverflowError when the subscriber was dropped for falling
// behind. Only valid after the Events channel is closed.
func (s *Subscription) Err() error {
	st, err := s.mux.stream(s.taskID)
	if err != nil {
		return s.err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return s.err
}

// Close detaches the subscription from the stream. It is safe to call more
// than once.
func (s *Subscription) Close() {
	st, err := s.mux.stream(s.taskID)
	if err != nil {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if s.closed {
		return
	}
	delete(st.subs, s)
	close(s.ch)
	s.closed = true
}
