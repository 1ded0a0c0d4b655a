// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/go-a2a/a2a-gateway"
)

func newTestDatabaseStore(t *testing.T) *DatabaseStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "tasks.db")), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	store, err := NewDatabaseStore(DatabaseStoreConfig{DB: db, CreateTable: true})
	if err != nil {
		t.Fatalf("NewDatabaseStore() error = %v", err)
	}
	if err := store.Initialize(t.Context()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close(t.Context()) })
	return store
}

func testStores(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()

	return map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewInMemoryStore() },
		"sqlite": func(t *testing.T) Store { return newTestDatabaseStore(t) },
	}
}

func sampleTask(id, sessionID string) *a2a.Task {
	msg := a2a.NewTextMessage(a2a.MessageRoleUser, "hello "+id)
	return &a2a.Task{
		ID:        id,
		SessionID: sessionID,
		Status:    a2a.NewTaskStatus(a2a.TaskStateWorking),
		History:   []a2a.Message{msg},
		Artifacts: []a2a.Artifact{a2a.NewTextArtifact("result " + id)},
		Metadata:  map[string]string{"source": "test"},
	}
}

func isTaskNotFound(err error) bool {
	return errors.Is(err, &a2a.Error{Code: a2a.ErrorCodeTaskNotFound})
}

func TestStoreSaveGet(t *testing.T) {
	t.Parallel()

	for name, newStore := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := newStore(t)
			want := sampleTask("t1", "s1")
			if err := store.Save(t.Context(), want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			got, err := store.Get(t.Context(), "t1")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Get() mismatch (-want +got):\n%s", diff)
			}

			updated := want.UpdateStatus(a2a.NewTaskStatus(a2a.TaskStateCompleted))
			updated.History = nil
			updated.Metadata = nil
			if err := store.Save(t.Context(), updated); err != nil {
				t.Fatalf("Save() update error = %v", err)
			}
			got, err = store.Get(t.Context(), "t1")
			if err != nil {
				t.Fatalf("Get() after update error = %v", err)
			}
			if diff := cmp.Diff(updated, got); diff != "" {
				t.Errorf("Get() after update mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	t.Parallel()

	for name, newStore := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := newStore(t)
			task := sampleTask("t1", "s1")
			if err := store.Save(t.Context(), task); err != nil {
				t.Fatal(err)
			}
			task.Metadata["source"] = "changed"

			got, err := store.Get(t.Context(), "t1")
			if err != nil {
				t.Fatal(err)
			}
			got.History[0].Parts[0].Text = "changed"

			again, err := store.Get(t.Context(), "t1")
			if err != nil {
				t.Fatal(err)
			}
			if v := again.Metadata["source"]; v != "test" {
				t.Errorf("stored metadata = %q, want %q", v, "test")
			}
			if text := again.History[0].Text(); text != "hello t1" {
				t.Errorf("stored history = %q, want %q", text, "hello t1")
			}
		})
	}
}

func TestStoreErrors(t *testing.T) {
	t.Parallel()

	for name, newStore := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := newStore(t)
			ctx := t.Context()

			if _, err := store.Get(ctx, "missing"); !isTaskNotFound(err) {
				t.Errorf("Get(missing) error = %v, want task not found", err)
			}
			if err := store.Delete(ctx, "missing"); !isTaskNotFound(err) {
				t.Errorf("Delete(missing) error = %v, want task not found", err)
			}
			if _, err := store.Get(ctx, ""); err == nil {
				t.Error("Get(\"\") succeeded, want error")
			}

			var verr ValidationError
			if err := store.Save(ctx, &a2a.Task{Status: a2a.NewTaskStatus(a2a.TaskStateWorking)}); !errors.As(err, &verr) {
				t.Errorf("Save(no id) error = %v, want ValidationError", err)
			}
			if err := store.Save(ctx, &a2a.Task{ID: "t1"}); !errors.As(err, &verr) {
				t.Errorf("Save(no state) error = %v, want ValidationError", err)
			}
			if err := store.Save(ctx, nil); err == nil {
				t.Error("Save(nil) succeeded, want error")
			}
		})
	}
}

func TestStoreListCountDelete(t *testing.T) {
	t.Parallel()

	for name, newStore := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := newStore(t)
			ctx := t.Context()
			for _, task := range []*a2a.Task{
				sampleTask("t3", "s1"),
				sampleTask("t1", "s1"),
				sampleTask("t2", "s2"),
				sampleTask("t4", "s1"),
			} {
				if err := store.Save(ctx, task); err != nil {
					t.Fatal(err)
				}
			}

			tests := map[string]struct {
				sessionID     string
				limit, offset int
				want          []string
			}{
				"all":           {want: []string{"t1", "t2", "t3", "t4"}},
				"session":       {sessionID: "s1", want: []string{"t1", "t3", "t4"}},
				"limit":         {limit: 2, want: []string{"t1", "t2"}},
				"limit offset":  {sessionID: "s1", limit: 1, offset: 1, want: []string{"t3"}},
				"offset beyond": {sessionID: "s2", limit: 10, offset: 1, want: nil},
			}
			for name, tt := range tests {
				tasks, err := store.List(ctx, tt.sessionID, tt.limit, tt.offset)
				if err != nil {
					t.Fatalf("%s: List() error = %v", name, err)
				}
				var got []string
				for _, task := range tasks {
					got = append(got, task.ID)
				}
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Errorf("%s: List() ids mismatch (-want +got):\n%s", name, diff)
				}
			}

			if n, err := store.Count(ctx, ""); err != nil || n != 4 {
				t.Errorf("Count(\"\") = %d, %v, want 4", n, err)
			}
			if n, err := store.Count(ctx, "s1"); err != nil || n != 3 {
				t.Errorf("Count(s1) = %d, %v, want 3", n, err)
			}

			if err := store.Delete(ctx, "t3"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := store.Get(ctx, "t3"); !isTaskNotFound(err) {
				t.Errorf("Get(deleted) error = %v, want task not found", err)
			}
			if n, err := store.Count(ctx, "s1"); err != nil || n != 2 {
				t.Errorf("Count(s1) after delete = %d, %v, want 2", n, err)
			}
		})
	}
}

func TestDatabaseStoreListByState(t *testing.T) {
	t.Parallel()

	store := newTestDatabaseStore(t)
	ctx := t.Context()

	done := sampleTask("t2", "s1").UpdateStatus(a2a.NewTaskStatus(a2a.TaskStateCompleted))
	for _, task := range []*a2a.Task{sampleTask("t1", "s1"), done, sampleTask("t3", "s1")} {
		if err := store.Save(ctx, task); err != nil {
			t.Fatal(err)
		}
	}

	tasks, err := store.ListByState(ctx, a2a.TaskStateWorking)
	if err != nil {
		t.Fatalf("ListByState() error = %v", err)
	}
	var got []string
	for _, task := range tasks {
		got = append(got, task.ID)
	}
	if diff := cmp.Diff([]string{"t1", "t3"}, got); diff != "" {
		t.Errorf("ListByState() ids mismatch (-want +got):\n%s", diff)
	}
}

func TestDatabaseStoreTransaction(t *testing.T) {
	t.Parallel()

	store := newTestDatabaseStore(t)
	ctx := t.Context()
	errRollback := errors.New("rollback")

	err := store.Transaction(ctx, func(tx Store) error {
		if err := tx.Save(ctx, sampleTask("t1", "s1")); err != nil {
			return err
		}
		return errRollback
	})
	if !errors.Is(err, errRollback) {
		t.Fatalf("Transaction() error = %v, want %v", err, errRollback)
	}
	if _, err := store.Get(ctx, "t1"); !isTaskNotFound(err) {
		t.Errorf("Get() after rollback error = %v, want task not found", err)
	}

	err = store.Transaction(ctx, func(tx Store) error {
		return tx.Save(ctx, sampleTask("t2", "s1"))
	})
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}
	if _, err := store.Get(ctx, "t2"); err != nil {
		t.Errorf("Get() after commit error = %v", err)
	}
}

func TestNewDatabaseStoreRequiresDB(t *testing.T) {
	t.Parallel()

	if _, err := NewDatabaseStore(DatabaseStoreConfig{}); err == nil {
		t.Error("NewDatabaseStore() without DB succeeded, want error")
	}
}
