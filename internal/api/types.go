// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the chat CRUD client for the Jarvis backend.
package api

// ChatSummary is a chat listing entry, without messages.
type ChatSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UserID    string `json:"user_id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ChatMessage is a persisted message as stored by the backend.
type ChatMessage struct {
	ID        string                 `json:"id"`
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Timestamp string                 `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ChatData is a full chat with its message history.
type ChatData struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	UserID    string        `json:"user_id"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

// CreateChatRequest is the body for POST /chats.
type CreateChatRequest struct {
	Title        string `json:"title"`
	FirstMessage string `json:"first_message,omitempty"`
}

// AddMessageRequest is the body for POST /chats/{id}/messages.
type AddMessageRequest struct {
	Role     string                 `json:"role"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// UpdateChatRequest is the body for PUT /chats/{id}.
type UpdateChatRequest struct {
	Title string `json:"title"`
}
