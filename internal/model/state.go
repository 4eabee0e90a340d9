// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"sync"
	"time"

	"github.com/jeranaias/jarvis-tui/internal/sources"
)

var (
	// ErrChatNotFound indicates an operation against an unknown chat id.
	ErrChatNotFound = errors.New("chat not found")

	// ErrMessageNotFound indicates an operation against an unknown message id.
	ErrMessageNotFound = errors.New("message not found")

	// ErrStreamBusy indicates a send was attempted on a chat that already
	// has a stream in flight.
	ErrStreamBusy = errors.New("a response is already streaming for this chat")
)

// State is the single mutable store of chats and the current selection.
//
// It is the sole writer of message slices; the stream goroutine and the UI
// loop both reach the same messages, so every transition takes the mutex.
// Chunk appends are applied strictly in call order.
type State struct {
	mu       sync.Mutex
	chats    []*Chat
	current  *Chat
	inFlight map[string]bool // chat id -> stream in flight
}

// NewState creates an empty conversation state.
func NewState() *State {
	return &State{
		inFlight: make(map[string]bool),
	}
}

// =============================================================================
// CHAT LIST
// =============================================================================

// SetChats replaces the chat list wholesale, keeping the current selection
// when it survives.
func (s *State) SetChats(chats []*Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats = chats
	if s.current == nil {
		return
	}
	for _, c := range chats {
		if c.ID == s.current.ID {
			s.current = c
			return
		}
	}
	s.current = nil
}

// Chats returns a snapshot of the chat list.
func (s *State) Chats() []*Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Chat, len(s.chats))
	copy(out, s.chats)
	return out
}

// CurrentChat returns the selected chat, or nil.
func (s *State) CurrentChat() *Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetCurrent selects a chat by id.
func (s *State) SetCurrent(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findChat(chatID)
	if c == nil {
		return ErrChatNotFound
	}
	s.current = c
	return nil
}

// ClearCurrent drops the selection.
func (s *State) ClearCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// AddChat prepends a chat and selects it.
func (s *State) AddChat(c *Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append([]*Chat{c}, s.chats...)
	s.current = c
}

// RemoveChat deletes a chat. Removing the selected chat clears the selection.
func (s *State) RemoveChat(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.chats {
		if c.ID == chatID {
			s.chats = append(s.chats[:i], s.chats[i+1:]...)
			if s.current != nil && s.current.ID == chatID {
				s.current = nil
			}
			delete(s.inFlight, chatID)
			return nil
		}
	}
	return ErrChatNotFound
}

// RenameChat sets a chat's title.
func (s *State) RenameChat(chatID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findChat(chatID)
	if c == nil {
		return ErrChatNotFound
	}
	c.Title = title
	c.UpdatedAt = time.Now()
	return nil
}

// ReplaceChatID rebinds a local optimistic chat to its backend-assigned id.
func (s *State) ReplaceChatID(oldID, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findChat(oldID)
	if c == nil {
		return ErrChatNotFound
	}
	c.ID = newID
	c.Local = false
	if s.inFlight[oldID] {
		delete(s.inFlight, oldID)
		s.inFlight[newID] = true
	}
	return nil
}

// ReplaceMessages hydrates a chat with its fetched message history.
func (s *State) ReplaceMessages(chatID string, msgs []*Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findChat(chatID)
	if c == nil {
		return ErrChatNotFound
	}
	c.Messages = msgs
	c.Hydrated = true
	return nil
}

// =============================================================================
// MESSAGE TRANSITIONS
// =============================================================================

// AppendUserMessage adds a user message to a chat.
func (s *State) AppendUserMessage(chatID, content string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findChat(chatID)
	if c == nil {
		return nil, ErrChatNotFound
	}
	m := NewUserMessage(content)
	c.Messages = append(c.Messages, m)
	c.UpdatedAt = time.Now()
	return m, nil
}

// BeginAssistantMessage appends an empty assistant placeholder and marks the
// chat's stream as in flight. A second call before finalize fails with
// ErrStreamBusy.
func (s *State) BeginAssistantMessage(chatID string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findChat(chatID)
	if c == nil {
		return nil, ErrChatNotFound
	}
	if s.inFlight[chatID] {
		return nil, ErrStreamBusy
	}

	m := NewAssistantPlaceholder()
	c.Messages = append(c.Messages, m)
	c.UpdatedAt = time.Now()
	s.inFlight[chatID] = true
	return m, nil
}

// AppendChunk adds streamed content to an in-flight assistant message.
// Appends are applied in the order called.
func (s *State) AppendChunk(chatID, msgID, chunk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.findMessage(chatID, msgID)
	if err != nil {
		return err
	}
	m.appendChunk(chunk)
	return nil
}

// ReplaceSources swaps the in-flight message's sources wholesale.
func (s *State) ReplaceSources(chatID, msgID string, srcs []sources.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.findMessage(chatID, msgID)
	if err != nil {
		return err
	}
	m.replaceSources(srcs)
	return nil
}

// FinalizeAssistant completes an in-flight message and releases the chat's
// stream slot.
func (s *State) FinalizeAssistant(chatID, msgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.findMessage(chatID, msgID)
	if err != nil {
		return err
	}
	m.finalize()
	delete(s.inFlight, chatID)
	return nil
}

// FailAssistant replaces an in-flight message's content with an error text
// and releases the chat's stream slot.
func (s *State) FailAssistant(chatID, msgID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.findMessage(chatID, msgID)
	if err != nil {
		return err
	}
	m.fail(content)
	delete(s.inFlight, chatID)
	return nil
}

// =============================================================================
// RENDER SNAPSHOTS
// =============================================================================

// ChatEntry is a point-in-time copy of a chat list row, safe to render while
// a stream retitles or rebinds the underlying chat.
type ChatEntry struct {
	ID        string
	Title     string
	UpdatedAt time.Time
	Current   bool
}

// ChatEntries returns render copies of the chat list rows.
func (s *State) ChatEntries() []ChatEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ChatEntry, len(s.chats))
	for i, c := range s.chats {
		out[i] = ChatEntry{
			ID:        c.ID,
			Title:     c.Title,
			UpdatedAt: c.UpdatedAt,
			Current:   s.current != nil && c.ID == s.current.ID,
		}
	}
	return out
}

// CurrentTranscript returns render copies of the selected chat's messages.
// ok is false when no chat is selected. Live stream content is copied under
// the lock; this is the only safe way to read an in-flight message from
// another goroutine.
func (s *State) CurrentTranscript() (msgs []MessageView, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, false
	}
	msgs = make([]MessageView, len(s.current.Messages))
	for i, m := range s.current.Messages {
		msgs[i] = m.snapshot()
	}
	return msgs, true
}

// Entry returns a chat's list row by id.
func (s *State) Entry(chatID string) (ChatEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findChat(chatID)
	if c == nil {
		return ChatEntry{}, false
	}
	return ChatEntry{
		ID:        c.ID,
		Title:     c.Title,
		UpdatedAt: c.UpdatedAt,
		Current:   s.current != nil && c.ID == s.current.ID,
	}, true
}

// IsLocal reports whether a chat exists and has not been persisted to the
// backend yet.
func (s *State) IsLocal(chatID string) (local, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findChat(chatID)
	if c == nil {
		return false, false
	}
	return c.Local, true
}

// MessageCount returns the number of messages in a chat, 0 for unknown ids.
func (s *State) MessageCount(chatID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findChat(chatID)
	if c == nil {
		return 0
	}
	return len(c.Messages)
}

// IsStreaming reports whether the chat has a stream in flight.
func (s *State) IsStreaming(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[chatID]
}

// =============================================================================
// INTERNALS (callers hold the mutex)
// =============================================================================

func (s *State) findChat(chatID string) *Chat {
	for _, c := range s.chats {
		if c.ID == chatID {
			return c
		}
	}
	return nil
}

func (s *State) findMessage(chatID, msgID string) (*Message, error) {
	c := s.findChat(chatID)
	if c == nil {
		return nil, ErrChatNotFound
	}
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].ID == msgID {
			return c.Messages[i], nil
		}
	}
	return nil, ErrMessageNotFound
}
