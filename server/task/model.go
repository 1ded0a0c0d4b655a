// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/go-a2a/a2a-gateway"
)

// JSONColumn stores a value of type T as JSON text in a database column.
type JSONColumn[T any] struct {
	V T
}

// GormDataType implements gorm's schema.GormDataTypeInterface.
func (JSONColumn[T]) GormDataType() string {
	return "json"
}

// Value implements the [driver.Valuer] interface for database storage.
func (c JSONColumn[T]) Value() (driver.Value, error) {
	data, err := json.Marshal(c.V)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", c.V, err)
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface for database retrieval.
func (c *JSONColumn[T]) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		var zero T
		c.V = zero
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into %T", value, c)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("cannot unmarshal %T: %w", c, err)
	}
	c.V = v
	return nil
}

// TaskModel is the database row of a task.
type TaskModel struct {
	ID        string                        `gorm:"primaryKey;type:varchar(255)"`
	SessionID string                        `gorm:"index;type:varchar(255)"`
	State     string                        `gorm:"index;type:varchar(32)"`
	Status    JSONColumn[a2a.TaskStatus]    `gorm:"not null"`
	History   JSONColumn[[]a2a.Message]     `gorm:"column:history"`
	Artifacts JSONColumn[[]a2a.Artifact]    `gorm:"column:artifacts"`
	Metadata  JSONColumn[map[string]string] `gorm:"column:metadata"`
	UpdatedAt time.Time                     `gorm:"autoUpdateTime"`
}

// TableName returns the default table name of [TaskModel].
func (TaskModel) TableName() string {
	return "tasks"
}

// newTaskModel converts task to its row.
func newTaskModel(task *a2a.Task) *TaskModel {
	return &TaskModel{
		ID:        task.ID,
		SessionID: task.SessionID,
		State:     string(task.Status.State),
		Status:    JSONColumn[a2a.TaskStatus]{V: task.Status},
		History:   JSONColumn[[]a2a.Message]{V: task.History},
		Artifacts: JSONColumn[[]a2a.Artifact]{V: task.Artifacts},
		Metadata:  JSONColumn[map[string]string]{V: task.Metadata},
	}
}

// toTask converts m back to a task.
func (m *TaskModel) toTask() *a2a.Task {
	return &a2a.Task{
		ID:        m.ID,
		SessionID: m.SessionID,
		Status:    m.Status.V,
		History:   nilIfEmpty(m.History.V),
		Artifacts: nilIfEmpty(m.Artifacts.V),
		Metadata:  nilMapIfEmpty(m.Metadata.V),
	}
}

func nilIfEmpty[S ~[]E, E any](s S) S {
	if len(s) == 0 {
		return nil
	}
	return s
}

func nilMapIfEmpty[M ~map[K]V, K comparable, V any](m M) M {
	if len(m) == 0 {
		return nil
	}
	return m
}
