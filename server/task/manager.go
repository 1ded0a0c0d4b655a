// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/go-a2a/a2a-gateway"
	"github.com/go-a2a/a2a-gateway/server"
)

// AgentFunc runs one turn of the agent. It receives the task in the working state with
// msg appended to its history, and returns the task in the state the turn left it in.
//
// The context of an AgentFunc is canceled when the task is canceled.
type AgentFunc func(ctx context.Context, task *a2a.Task, msg a2a.Message) (*a2a.Task, error)

// Echo is an [AgentFunc] that completes the task with the text of msg.
func Echo(_ context.Context, task *a2a.Task, msg a2a.Message) (*a2a.Task, error) {
	reply := a2a.NewTextMessage(a2a.MessageRoleAgent, msg.Text())
	status := a2a.NewTaskStatus(a2a.TaskStateCompleted)
	status.Message = &reply
	return task.UpdateStatus(status).AddArtifacts(a2a.NewTextArtifact(msg.Text())), nil
}

// errCanceled is the cancellation cause of a run stopped by CancelTask.
var errCanceled = errors.New("task canceled")

// Manager is an [server.Executor] that keeps tasks in a [Store] and runs an [AgentFunc]
// for every message sent to a task.
type Manager struct {
	store  Store
	card   *a2a.AgentCard
	agent  AgentFunc
	logger *slog.Logger

	// mu serializes state transitions of running tasks.
	mu      sync.Mutex
	running map[string]context.CancelCauseFunc
}

var _ server.Executor = (*Manager)(nil)

// ManagerOption configures a [Manager].
type ManagerOption func(*Manager)

// WithAgent sets the [AgentFunc] run for every message. The default is [Echo].
func WithAgent(agent AgentFunc) ManagerOption {
	return func(m *Manager) {
		m.agent = agent
	}
}

// WithLogger sets the [*slog.Logger] for the [Manager].
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager returns a [Manager] storing tasks in store and describing itself with card.
func NewManager(store Store, card *a2a.AgentCard, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:   store,
		card:    card,
		agent:   Echo,
		logger:  slog.Default(),
		running: make(map[string]context.CancelCauseFunc),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SendTask runs the agent on params.Message and returns the task once the turn is done.
//
// A task that does not exist yet is created. A task canceled while the agent runs is
// returned in the canceled state.
func (m *Manager) SendTask(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, error) {
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	task, err := m.begin(ctx, params, cancel)
	if err != nil {
		return nil, err
	}
	defer m.finish(task.ID)

	m.logger.DebugContext(ctx, "running agent", slog.String("task", task.ID), slog.String("session", task.SessionID))
	result, runErr := m.agent(runCtx, task.Clone(), params.Message)

	// The outcome of the turn is stored even when the caller went away.
	saveCtx := context.WithoutCancel(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if errors.Is(context.Cause(runCtx), errCanceled) {
		canceled, err := m.store.Get(saveCtx, task.ID)
		if err != nil {
			return nil, err
		}
		return canceled.LimitHistory(params.HistoryLength), nil
	}

	if runErr != nil {
		failed := task.Failed()
		reply := a2a.NewTextMessage(a2a.MessageRoleAgent, runErr.Error())
		failed.Status.Message = &reply
		if err := m.store.Save(saveCtx, failed); err != nil {
			m.logger.ErrorContext(ctx, "save failed task", slog.String("task", task.ID), slog.Any("error", err))
		}
		return nil, runErr
	}
	if result == nil {
		return nil, a2a.NewInternalError(fmt.Sprintf("agent returned no task for %s", task.ID))
	}

	if result.Status.Message != nil {
		result.History = append(result.History, *result.Status.Message)
	}
	if err := m.store.Save(saveCtx, result); err != nil {
		return nil, err
	}

	return result.LimitHistory(params.HistoryLength), nil
}

// begin loads or creates the task of params, moves it to the working state and registers
// cancel as the way to stop its run.
func (m *Manager) begin(ctx context.Context, params *a2a.TaskSendParams, cancel context.CancelCauseFunc) (*a2a.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.running[params.ID]; ok {
		return nil, a2a.NewUnsupportedOperationError(fmt.Sprintf("task %s is already running", params.ID))
	}

	var working *a2a.Task
	err := m.inTransaction(ctx, func(store Store) error {
		task, err := store.Get(ctx, params.ID)
		var rpcErr *a2a.Error
		switch {
		case errors.As(err, &rpcErr) && rpcErr.Code == a2a.ErrorCodeTaskNotFound:
			sessionID := params.SessionID
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			task = &a2a.Task{
				ID:        params.ID,
				SessionID: sessionID,
				Status:    a2a.NewTaskStatus(a2a.TaskStateSubmitted),
				Metadata:  params.Metadata,
			}
		case err != nil:
			return err
		case task.Status.State.IsTerminal():
			return a2a.NewUnsupportedOperationError(fmt.Sprintf("task %s is %s", task.ID, task.Status.State))
		}

		working = task.Working()
		working.History = append(working.History, params.Message)
		return store.Save(ctx, working)
	})
	if err != nil {
		return nil, err
	}
	m.running[working.ID] = cancel

	return working, nil
}

// transactor is implemented by stores that can run several operations atomically.
type transactor interface {
	Transaction(ctx context.Context, fn func(Store) error) error
}

// inTransaction runs fn in one transaction of the store, or directly on the store when
// it has no transactions.
func (m *Manager) inTransaction(ctx context.Context, fn func(Store) error) error {
	if tx, ok := m.store.(transactor); ok {
		return tx.Transaction(ctx, fn)
	}
	return fn(m.store)
}

func (m *Manager) finish(taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.running, taskID)
}

// GetTask returns the stored task with at most params.HistoryLength history messages.
func (m *Manager) GetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	task, err := m.store.Get(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	return task.LimitHistory(params.HistoryLength), nil
}

// CancelTask moves the task to the canceled state and stops its running agent, if any.
// A task in a terminal state cannot be canceled.
func (m *Manager) CancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var canceled *a2a.Task
	err := m.inTransaction(ctx, func(store Store) error {
		task, err := store.Get(ctx, params.ID)
		if err != nil {
			return err
		}
		if task.Status.State.IsTerminal() {
			return a2a.NewTaskNotCancelableError(task.ID)
		}
		canceled = task.UpdateStatus(a2a.NewTaskStatus(a2a.TaskStateCanceled))
		return store.Save(ctx, canceled)
	})
	if err != nil {
		return nil, err
	}
	if cancel, ok := m.running[canceled.ID]; ok {
		cancel(errCanceled)
		m.logger.InfoContext(ctx, "canceled running task", slog.String("task", canceled.ID))
	}

	return canceled.LimitHistory(nil), nil
}

// AgentCard returns a copy of the agent card.
func (m *Manager) AgentCard(context.Context) (*a2a.AgentCard, error) {
	if m.card == nil {
		return nil, errors.New("agent card is not configured")
	}
	c := *m.card
	return &c, nil
}
