// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model holds the conversation state: chats, messages, and the
// transitions a stream applies to an in-flight assistant message.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/jarvis-tui/internal/sources"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message. While an assistant message streams, its
// content accumulates in a builder; Content is set on finalize. All
// mutation goes through State, never directly.
type Message struct {
	ID          string
	Role        Role
	Content     string
	Timestamp   time.Time
	Sources     []sources.Source
	IsStreaming bool

	streamContent strings.Builder
}

// NewUserMessage creates a finalized user message.
func NewUserMessage(content string) *Message {
	return &Message{
		ID:        "msg-" + uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantPlaceholder creates an empty assistant message ready to
// receive streamed chunks.
func NewAssistantPlaceholder() *Message {
	return &Message{
		ID:          "msg-" + uuid.NewString(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		Sources:     []sources.Source{},
		IsStreaming: true,
	}
}

// appendChunk adds streamed content in arrival order.
func (m *Message) appendChunk(chunk string) {
	m.streamContent.WriteString(chunk)
}

// replaceSources swaps the source set wholesale. Never merged.
func (m *Message) replaceSources(srcs []sources.Source) {
	m.Sources = srcs
}

// finalize moves the accumulated stream content into Content.
func (m *Message) finalize() {
	m.Content = m.streamContent.String()
	m.IsStreaming = false
}

// fail replaces the message content entirely, discarding the accumulator.
func (m *Message) fail(content string) {
	m.streamContent.Reset()
	m.Content = content
	m.IsStreaming = false
}

// MessageView is a point-in-time copy of a message for rendering. Snapshots
// are taken under the state mutex, so a live message's accumulator can be
// read while the stream goroutine appends to it.
type MessageView struct {
	ID        string
	Role      Role
	Content   string
	Sources   []sources.Source
	Streaming bool
}

// Preview returns the first maxRunes of the content on one line.
func (v MessageView) Preview(maxRunes int) string {
	content := strings.ReplaceAll(v.Content, "\n", " ")
	r := []rune(content)
	if len(r) <= maxRunes {
		return content
	}
	return string(r[:maxRunes]) + "..."
}

// snapshot copies the message for rendering. Callers hold the state mutex.
func (m *Message) snapshot() MessageView {
	content := m.Content
	if m.IsStreaming {
		content = m.streamContent.String()
	}
	return MessageView{
		ID:        m.ID,
		Role:      m.Role,
		Content:   content,
		Sources:   m.Sources,
		Streaming: m.IsStreaming,
	}
}
