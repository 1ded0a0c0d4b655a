// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/go-a2a/a2a-gateway"
)

// DatabaseStore is a database implementation of [Store] using GORM.
type DatabaseStore struct {
	db          *gorm.DB
	createTable bool
}

var _ Store = (*DatabaseStore)(nil)

// DatabaseStoreConfig holds configuration for [DatabaseStore].
type DatabaseStoreConfig struct {
	DB          *gorm.DB
	CreateTable bool // Whether Initialize migrates the tasks table
}

// NewDatabaseStore creates a new [DatabaseStore].
func NewDatabaseStore(config DatabaseStoreConfig) (*DatabaseStore, error) {
	if config.DB == nil {
		return nil, errors.New("database connection cannot be nil")
	}

	return &DatabaseStore{
		db:          config.DB,
		createTable: config.CreateTable,
	}, nil
}

// Save persists task, replacing the stored row with the same ID.
func (s *DatabaseStore) Save(ctx context.Context, task *a2a.Task) error {
	if err := validateTask(task); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Save(newTaskModel(task)).Error; err != nil {
		return NewStoreError("save", task.ID, err)
	}
	return nil
}

// Get retrieves the task with taskID.
func (s *DatabaseStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	if taskID == "" {
		return nil, errors.New("task ID cannot be empty")
	}

	var model TaskModel
	if err := s.db.WithContext(ctx).Where("id = ?", taskID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, a2a.NewTaskNotFoundError(taskID)
		}
		return nil, NewStoreError("get", taskID, err)
	}

	return model.toTask(), nil
}

// Delete removes the task with taskID.
func (s *DatabaseStore) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return errors.New("task ID cannot be empty")
	}

	result := s.db.WithContext(ctx).Where("id = ?", taskID).Delete(&TaskModel{})
	if result.Error != nil {
		return NewStoreError("delete", taskID, result.Error)
	}
	if result.RowsAffected == 0 {
		return a2a.NewTaskNotFoundError(taskID)
	}
	return nil
}

// List retrieves tasks ordered by ID.
func (s *DatabaseStore) List(ctx context.Context, sessionID string, limit, offset int) ([]*a2a.Task, error) {
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

	var models []TaskModel
	if err := db.Order("id").Find(&models).Error; err != nil {
		return nil, NewStoreError("list", "", err)
	}

	tasks := make([]*a2a.Task, len(models))
	for i := range models {
		tasks[i] = models[i].toTask()
	}
	return tasks, nil
}

// Count returns the number of stored tasks.
func (s *DatabaseStore) Count(ctx context.Context, sessionID string) (int64, error) {
	query := s.db.WithContext(ctx).Model(&TaskModel{})
	if sessionID != "" {
		query = query.Where("session_id = ?", sessionID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, NewStoreError("count", "", err)
	}
	return count, nil
}

// ListByState retrieves the tasks in state.
func (s *DatabaseStore) ListByState(ctx context.Context, state a2a.TaskState) ([]*a2a.Task, error) {
	var models []TaskModel
	if err := s.db.WithContext(ctx).Where("state = ?", string(state)).Order("id").Find(&models).Error; err != nil {
		return nil, NewStoreError("list_by_state", "", err)
	}

	tasks := make([]*a2a.Task, len(models))
	for i := range models {
		tasks[i] = models[i].toTask()
	}
	return tasks, nil
}

// Initialize migrates the tasks table when the store was configured to create it.
func (s *DatabaseStore) Initialize(ctx context.Context) error {
	if !s.createTable {
		return nil
	}
	if err := s.db.WithContext(ctx).AutoMigrate(&TaskModel{}); err != nil {
		return NewStoreError("initialize", "", err)
	}
	return nil
}

// Close closes the underlying database connection pool.
func (s *DatabaseStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return NewStoreError("close", "", err)
	}
	if err := sqlDB.Close(); err != nil {
		return NewStoreError("close", "", fmt.Errorf("close connection pool: %w", err))
	}
	return nil
}

// Transaction runs fn with a store whose operations share one database transaction.
// The transaction is rolled back when fn returns an error, which Transaction returns.
func (s *DatabaseStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DatabaseStore{db: tx, createTable: s.createTable})
	})
}
