// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"strings"
)

// MessageRole is the sender of a [Message].
type MessageRole string

const (
	// MessageRoleUser is a message sent by the client.
	MessageRoleUser MessageRole = "user"

	// MessageRoleAgent is a message sent by the agent.
	MessageRoleAgent MessageRole = "agent"
)

// PartType discriminates the content held by a [Part].
type PartType string

const (
	// PartTypeText is a plain text part.
	PartTypeText PartType = "text"

	// PartTypeFile is a file part, inline or by reference.
	PartTypeFile PartType = "file"

	// PartTypeData is a structured data part.
	PartTypeData PartType = "data"
)

// FileContent is the payload of a file [Part]. Exactly one of Bytes or URI is set.
type FileContent struct {
	Name     string `json:"name,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Bytes    string `json:"bytes,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// Part represents a part of a message or artifact. It can be text, a file, or data.
type Part struct {
	Type     PartType          `json:"type"`
	Text     string            `json:"text,omitempty"`
	File     *FileContent      `json:"file,omitempty"`
	Data     map[string]any    `json:"data,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewTextPart returns a text [Part].
func NewTextPart(text string) Part {
	return Part{Type: PartTypeText, Text: text}
}

// Message is a single turn exchanged between a client and an agent.
type Message struct {
	Role     MessageRole       `json:"role"`
	Parts    []Part            `json:"parts"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewTextMessage returns a message from role holding a single text part.
func NewTextMessage(role MessageRole, text string) Message {
	return Message{
		Role:  role,
		Parts: []Part{NewTextPart(text)},
	}
}

// Text concatenates the text parts of m, separated by newlines.
func (m Message) Text() string {
	var texts []string
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Artifact is an output generated by a task.
type Artifact struct {
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Parts       []Part            `json:"parts"`
	Index       int               `json:"index"`
	Append      bool              `json:"append,omitempty"`
	LastChunk   bool              `json:"lastChunk,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewTextArtifact returns an artifact holding a single text part.
func NewTextArtifact(text string) Artifact {
	return Artifact{
		Parts: []Part{NewTextPart(text)},
	}
}
