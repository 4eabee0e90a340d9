// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/jarvis-tui/internal/util"
)

// UntitledChatTitle is the fallback when no title can be derived.
const UntitledChatTitle = "Untitled Conversation"

// Chat is one conversation. Messages are append-mostly and ordered; for
// chats loaded from a listing they are populated lazily on selection.
type Chat struct {
	ID        string
	Title     string
	UserID    string
	Messages  []*Message
	CreatedAt time.Time
	UpdatedAt time.Time

	// Hydrated is false for chats built from a listing summary whose
	// messages have not been fetched yet.
	Hydrated bool

	// Local is true until the chat has been persisted to the backend and
	// rebound to its backend id.
	Local bool
}

// NewLocalChat creates an optimistic local chat that has not been persisted
// to the backend yet.
func NewLocalChat(userID string) *Chat {
	now := time.Now()
	return &Chat{
		ID:        "chat-" + uuid.NewString(),
		Title:     "New Chat",
		UserID:    userID,
		Messages:  []*Message{},
		CreatedAt: now,
		UpdatedAt: now,
		Hydrated:  true,
		Local:     true,
	}
}

// DeriveTitle builds a chat title from the first user message: the leading
// maxWords words, capped at maxChars runes with an ellipsis, first rune
// capitalized. Empty input yields the untitled fallback.
func DeriveTitle(firstUserMessage string, maxWords, maxChars int) string {
	words := util.FirstWords(firstUserMessage, maxWords)
	title := util.Capitalize(util.TruncateRunes(words, maxChars))
	if title == "" {
		return UntitledChatTitle
	}
	return title
}
