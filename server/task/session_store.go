// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"gorm.io/gorm"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
)

// InMemorySessionStore is an in-memory implementation of SessionStore.
// All operations are thread-safe using sync.RWMutex.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*a2a.Session
}

var _ SessionStore = (*InMemorySessionStore)(nil)

// NewInMemorySessionStore creates a new InMemorySessionStore.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[string]*a2a.Session),
	}
}

// Save persists a session to the in-memory storage.
func (s *InMemorySessionStore) Save(ctx context.Context, session *a2a.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if session.ID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = copySession(session)
	return nil
}

// Get retrieves a session by its ID from the in-memory storage.
func (s *InMemorySessionStore) Get(ctx context.Context, sessionID string) (*a2a.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, &a2a.SessionNotFoundError{SessionID: sessionID}
	}

	return copySession(session), nil
}

// AppendTask links a task into a session, creating the session on first use.
func (s *InMemorySessionStore) AppendTask(ctx context.Context, sessionID, taskID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	session, exists := s.sessions[sessionID]
	if !exists {
		session = &a2a.Session{ID: sessionID, CreatedAt: now}
		s.sessions[sessionID] = session
	}

	if slices.Contains(session.TaskIDs, taskID) {
		return nil
	}

	session.TaskIDs = append(session.TaskIDs, taskID)
	session.UpdatedAt = now
	return nil
}

// Initialize prepares the in-memory storage for use.
func (s *InMemorySessionStore) Initialize(ctx context.Context) error {
	return nil
}

// Close cleanly shuts down the in-memory storage.
func (s *InMemorySessionStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]*a2a.Session)
	return nil
}

func copySession(session *a2a.Session) *a2a.Session {
	if session == nil {
		return nil
	}

	out := *session
	if session.TaskIDs != nil {
		out.TaskIDs = make([]string, len(session.TaskIDs))
		copy(out.TaskIDs, session.TaskIDs)
	}
	return &out
}

// DatabaseSessionStore is a database implementation of SessionStore using
// GORM.
type DatabaseSessionStore struct {
	db          *gorm.DB
	createTable bool
}

var _ SessionStore = (*DatabaseSessionStore)(nil)

// NewDatabaseSessionStore creates a new DatabaseSessionStore.
func NewDatabaseSessionStore(db *gorm.DB, createTable bool) (*DatabaseSessionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}

	return &DatabaseSessionStore{db: db, createTable: createTable}, nil
}

// Save persists a session to the database.
func (s *DatabaseSessionStore) Save(ctx context.Context, session *a2a.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if session.ID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	model, err := NewSessionModelFromSession(session)
	if err != nil {
		return NewSessionStoreError("save", session.ID, err)
	}

	if err := s.db.WithContext(ctx).Save(model).Error; err != nil {
		return NewSessionStoreError("save", session.ID, err)
	}

	return nil
}

// Get retrieves a session by its ID from the database.
func (s *DatabaseSessionStore) Get(ctx context.Context, sessionID string) (*a2a.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}

	var model SessionModel
	if err := s.db.WithContext(ctx).Where("id = ?", sessionID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &a2a.SessionNotFoundError{SessionID: sessionID}
		}
		return nil, NewSessionStoreError("get", sessionID, err)
	}

	return model.ToSession()
}

// AppendTask links a task into a session, creating the session on first use.
// Read-modify-write is safe because the coordinator serializes session
// writes per session.
func (s *DatabaseSessionStore) AppendTask(ctx context.Context, sessionID, taskID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	session, err := s.Get(ctx, sessionID)
	if err != nil {
		var notFound *a2a.SessionNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		session = &a2a.Session{ID: sessionID, CreatedAt: time.Now().UTC()}
	}

	if slices.Contains(session.TaskIDs, taskID) {
		return nil
	}

	session.TaskIDs = append(session.TaskIDs, taskID)
	session.UpdatedAt = time.Now().UTC()

	return s.Save(ctx, session)
}

// Initialize prepares the database for use.
func (s *DatabaseSessionStore) Initialize(ctx context.Context) error {
	if !s.createTable {
		return nil
	}

	if err := s.db.WithContext(ctx).AutoMigrate(&SessionModel{}); err != nil {
		return NewSessionStoreError("initialize", "", err)
	}

	return nil
}

// Close cleanly shuts down the database store.
func (s *DatabaseSessionStore) Close(ctx context.Context) error {
	return nil
}
