// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	a2a "github.com/rileyseaburg/A2A-Server-MCP-sub002"
)

// DatabaseTaskStore is a database implementation of TaskStore using GORM.
type DatabaseTaskStore struct {
	db          *gorm.DB
	createTable bool
}

var _ TaskStore = (*DatabaseTaskStore)(nil)

// DatabaseTaskStoreConfig holds configuration for DatabaseTaskStore.
type DatabaseTaskStoreConfig struct {
	DB          *gorm.DB
	CreateTable bool // Whether to create the table if it doesn't exist
}

// NewDatabaseTaskStore creates a new DatabaseTaskStore.
func NewDatabaseTaskStore(config DatabaseTaskStoreConfig) (*DatabaseTaskStore, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}

	return &DatabaseTaskStore{
		db:          config.DB,
		createTable: config.CreateTable,
	}, nil
}

// Save persists a task to the database.
func (s *DatabaseTaskStore) Save(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	if err := task.Validate(); err != nil {
		return NewTaskValidationError(task.ID, err)
	}

	model, err := NewTaskModelFromTask(task)
	if err != nil {
		return NewTaskStoreError("save", task.ID, err)
	}

	if err := s.db.WithContext(ctx).Save(model).Error; err != nil {
		return NewTaskStoreError("save", task.ID, err)
	}

	return nil
}

// Get retrieves a task by its ID from the database.
func (s *DatabaseTaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	var model TaskModel
	if err := s.db.WithContext(ctx).Where("id = ?", taskID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &a2a.TaskNotFoundError{TaskID: taskID}
		}
		return nil, NewTaskStoreError("get", taskID, err)
	}

	task, err := model.ToTask()
	if err != nil {
		return nil, NewTaskStoreError("get", taskID, err)
	}

	return task, nil
}

// Delete removes a task from the database.
func (s *DatabaseTaskStore) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	result := s.db.WithContext(ctx).Where("id = ?", taskID).Delete(&TaskModel{})
	if result.Error != nil {
		return NewTaskStoreError("delete", taskID, result.Error)
	}

	if result.RowsAffected == 0 {
		return &a2a.TaskNotFoundError{TaskID: taskID}
	}

	return nil
}

// List retrieves tasks with optional session filtering, ordered by creation
// time.
func (s *DatabaseTaskStore) List(ctx context.Context, sessionID string, limit, offset int) ([]*a2a.Task, error) {
	var models []TaskModel
	db := s.db.WithContext(ctx)

	if sessionID != "" {
		db = db.Where("session_id = ?", sessionID)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}

	if err := db.Order("created_at").Find(&models).Error; err != nil {
		return nil, NewTaskStoreError("list", "", err)
	}

	tasks := make([]*a2a.Task, len(models))
	for i, model := range models {
		task, err := model.ToTask()
		if err != nil {
			return nil, NewTaskStoreError("list", model.ID, err)
		}
		tasks[i] = task
	}

	return tasks, nil
}

// Count returns the total number of tasks in the database.
func (s *DatabaseTaskStore) Count(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	query := s.db.WithContext(ctx).Model(&TaskModel{})

	if sessionID != "" {
		query = query.Where("session_id = ?", sessionID)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, NewTaskStoreError("count", "", err)
	}

	return count, nil
}

// Initialize prepares the database for use.
func (s *DatabaseTaskStore) Initialize(ctx context.Context) error {
	if !s.createTable {
		return nil
	}

	if err := s.db.WithContext(ctx).AutoMigrate(&TaskModel{}); err != nil {
		return NewTaskStoreError("initialize", "", err)
	}

	return nil
}

// Close cleanly shuts down the database store. The underlying connection is
// managed by GORM and shared with other stores, so nothing is closed here.
func (s *DatabaseTaskStore) Close(ctx context.Context) error {
	return nil
}
