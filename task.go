// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"maps"
	"slices"
)

// Clone returns a copy of t whose history, artifacts and metadata can be modified
// without affecting t.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}

	c := *t
	if t.Status.Message != nil {
		msg := cloneMessage(*t.Status.Message)
		c.Status.Message = &msg
	}
	if t.History != nil {
		c.History = make([]Message, len(t.History))
		for i, m := range t.History {
			c.History[i] = cloneMessage(m)
		}
	}
	if t.Artifacts != nil {
		c.Artifacts = make([]Artifact, len(t.Artifacts))
		for i, a := range t.Artifacts {
			a.Parts = slices.Clone(a.Parts)
			a.Metadata = maps.Clone(a.Metadata)
			c.Artifacts[i] = a
		}
	}
	c.Metadata = maps.Clone(t.Metadata)

	return &c
}

func cloneMessage(m Message) Message {
	m.Parts = slices.Clone(m.Parts)
	m.Metadata = maps.Clone(m.Metadata)
	return m
}

// Working returns a copy of t in the working state.
func (t *Task) Working() *Task {
	return t.UpdateStatus(NewTaskStatus(TaskStateWorking))
}

// Completed returns a copy of t in the completed state holding text as its only artifact.
func (t *Task) Completed(text string) *Task {
	c := t.UpdateStatus(NewTaskStatus(TaskStateCompleted))
	c.Artifacts = []Artifact{NewTextArtifact(text)}
	return c
}

// Failed returns a copy of t in the failed state.
func (t *Task) Failed() *Task {
	return t.UpdateStatus(NewTaskStatus(TaskStateFailed))
}

// UpdateStatus returns a copy of t with status applied.
//
// When the new status carries a message, the message of the current status is moved to
// the history.
func (t *Task) UpdateStatus(status TaskStatus) *Task {
	c := t.Clone()
	if status.Message != nil && c.Status.Message != nil {
		c.History = append(c.History, *c.Status.Message)
	}
	c.Status = status
	return c
}

// AddArtifacts returns a copy of t with artifacts appended.
func (t *Task) AddArtifacts(artifacts ...Artifact) *Task {
	c := t.Clone()
	c.Artifacts = append(c.Artifacts, artifacts...)
	return c
}

// LimitHistory returns a copy of t holding at most the n most recent history messages.
// A nil or non-positive n drops the history entirely.
func (t *Task) LimitHistory(n *int) *Task {
	c := t.Clone()
	if n == nil || *n <= 0 {
		c.History = nil
		return c
	}
	if len(c.History) > *n {
		c.History = c.History[len(c.History)-*n:]
	}
	return c
}
