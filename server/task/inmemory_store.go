// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/go-a2a/a2a-gateway"
)

// InMemoryStore is an in-memory implementation of [Store].
// Task data is lost when the process stops.
type InMemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*a2a.Task
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates a new [InMemoryStore].
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tasks: make(map[string]*a2a.Task),
	}
}

// Save persists a copy of task.
func (s *InMemoryStore) Save(_ context.Context, task *a2a.Task) error {
	if err := validateTask(task); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.ID] = task.Clone()
	return nil
}

// Get returns a copy of the task with taskID.
func (s *InMemoryStore) Get(_ context.Context, taskID string) (*a2a.Task, error) {
	if taskID == "" {
		return nil, errors.New("task ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, a2a.NewTaskNotFoundError(taskID)
	}
	return task.Clone(), nil
}

// Delete removes the task with taskID.
func (s *InMemoryStore) Delete(_ context.Context, taskID string) error {
	if taskID == "" {
		return errors.New("task ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return a2a.NewTaskNotFoundError(taskID)
	}
	delete(s.tasks, taskID)
	return nil
}

// List returns copies of the stored tasks ordered by ID.
func (s *InMemoryStore) List(_ context.Context, sessionID string, limit, offset int) ([]*a2a.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(s.tasks))

	var tasks []*a2a.Task
	skipped := 0
	for _, id := range ids {
		task := s.tasks[id]
		if sessionID != "" && task.SessionID != sessionID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && len(tasks) >= limit {
			break
		}
		tasks = append(tasks, task.Clone())
	}

	return tasks, nil
}

// Count returns the number of stored tasks.
func (s *InMemoryStore) Count(_ context.Context, sessionID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sessionID == "" {
		return int64(len(s.tasks)), nil
	}

	var n int64
	for _, task := range s.tasks {
		if task.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

// Initialize implements [Store]. The in-memory store needs no preparation.
func (s *InMemoryStore) Initialize(context.Context) error {
	return nil
}

// Close drops every stored task.
func (s *InMemoryStore) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*a2a.Task)
	return nil
}
