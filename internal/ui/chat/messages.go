// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the TUI.
//
// This file defines the Bubble Tea message types used by the view. Streaming
// messages arrive from the send goroutine via program.Send; everything else
// is produced by commands on the main loop.
package chat

import (
	"time"

	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/model"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamSourcesMsg signals that the source list for the in-flight answer was
// replaced.
type StreamSourcesMsg struct {
	ChatID string
	Count  int
}

// StreamStatusMsg carries a transient backend progress line.
type StreamStatusMsg struct {
	Message string
}

// StreamDoneMsg signals the end of a send, successful or not. A non-nil
// error with kept partial content still carries the finished message id.
type StreamDoneMsg struct {
	ChatID    string
	MessageID string
	Err       error
}

// StreamTickMsg drives the render throttle while a stream is live.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// CHAT LIST MESSAGES
// =============================================================================

// ChatsLoadedMsg delivers the refreshed chat list.
type ChatsLoadedMsg struct {
	Chats []*model.Chat
}

// ChatOpenedMsg confirms a chat selection and hydration.
type ChatOpenedMsg struct {
	ChatID string
	Err    error
}

// ChatDeletedMsg confirms a chat deletion.
type ChatDeletedMsg struct {
	ChatID string
	Err    error
}

// =============================================================================
// UI STATE MESSAGES
// =============================================================================

// ConfigReloadedMsg delivers a freshly loaded configuration after the file
// changed on disk.
type ConfigReloadedMsg struct {
	Cfg *config.Config
}

// ClearErrorMsg dismisses the error line.
type ClearErrorMsg struct{}
