// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package a2a provides the Agent-to-Agent task protocol types served by the gateway:
// tasks and their statuses, the JSON-RPC 2.0 envelope and the error envelope.
package a2a

import (
	"errors"
	"time"
)

// Version is the JSON-RPC protocol version accepted by the gateway.
const Version = "2.0"

// TaskState represents the state of a Task.
type TaskState string

const (
	// TaskStateSubmitted indicates the task has been submitted.
	TaskStateSubmitted TaskState = "submitted"

	// TaskStateWorking indicates the task is being worked on.
	TaskStateWorking TaskState = "working"

	// TaskStateInputRequired indicates the task needs more input to continue.
	TaskStateInputRequired TaskState = "input-required"

	// TaskStateCompleted indicates the task has been completed.
	TaskStateCompleted TaskState = "completed"

	// TaskStateCanceled indicates the task has been canceled.
	TaskStateCanceled TaskState = "canceled"

	// TaskStateFailed indicates the task has failed.
	TaskStateFailed TaskState = "failed"

	// TaskStateUnknown indicates the task state is not known.
	TaskStateUnknown TaskState = "unknown"
)

// IsTerminal reports whether no further transitions are possible from s.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed:
		return true
	default:
		return false
	}
}

// TaskStatus is the status of a task at a point in time.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// NewTaskStatus returns a [TaskStatus] in state with the current UTC time and no message.
func NewTaskStatus(state TaskState) TaskStatus {
	return TaskStatus{
		State:     state,
		Timestamp: time.Now().UTC(),
	}
}

// Task represents a unit of work in the A2A protocol.
type Task struct {
	ID        string            `json:"id"`
	SessionID string            `json:"sessionId,omitempty"`
	Status    TaskStatus        `json:"status"`
	History   []Message         `json:"history,omitempty"`
	Artifacts []Artifact        `json:"artifacts,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// TaskStatusUpdateEvent is sent on a stream when a task's status changes.
//
// Final is set on the last event of a stream and on no other.
type TaskStatusUpdateEvent struct {
	ID       string            `json:"id"`
	Status   TaskStatus        `json:"status"`
	Final    bool              `json:"final"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TaskSendParams are the parameters of tasks/send.
type TaskSendParams struct {
	ID            string            `json:"id"`
	SessionID     string            `json:"sessionId,omitempty"`
	Message       Message           `json:"message"`
	HistoryLength *int              `json:"historyLength,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// TaskQueryParams are the parameters of tasks/get.
type TaskQueryParams struct {
	ID            string            `json:"id"`
	HistoryLength *int              `json:"historyLength,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// TaskIDParams are the parameters of tasks/cancel.
type TaskIDParams struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AgentCapabilities describes the optional protocol features an agent supports.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming"`
	PushNotifications      bool `json:"pushNotifications"`
	StateTransitionHistory bool `json:"stateTransitionHistory"`
}

// AgentProvider identifies the organization that runs an agent.
type AgentProvider struct {
	Organization string `json:"organization"`
	URL          string `json:"url,omitempty"`
}

// AgentSkill is a unit of capability an agent advertises.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// AgentCard is the static descriptor of an agent, served from the well-known path.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description,omitempty"`
	URL                string            `json:"url"`
	Version            string            `json:"version"`
	DocumentationURL   string            `json:"documentationUrl,omitempty"`
	Provider           *AgentProvider    `json:"provider,omitempty"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	DefaultInputModes  []string          `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string          `json:"defaultOutputModes,omitempty"`
	Skills             []AgentSkill      `json:"skills,omitempty"`
}

// Validate reports whether p carries the fields tasks/send requires.
func (p *TaskSendParams) Validate() error {
	if p.ID == "" {
		return errors.New("task id is required")
	}
	if len(p.Message.Parts) == 0 {
		return errors.New("message must have at least one part")
	}
	return nil
}

// Validate reports whether p carries the fields tasks/get requires.
func (p *TaskQueryParams) Validate() error {
	if p.ID == "" {
		return errors.New("task id is required")
	}
	if p.HistoryLength != nil && *p.HistoryLength < 0 {
		return errors.New("historyLength must not be negative")
	}
	return nil
}

// Validate reports whether p carries the fields tasks/cancel requires.
func (p *TaskIDParams) Validate() error {
	if p.ID == "" {
		return errors.New("task id is required")
	}
	return nil
}
