// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/jarvis-tui/internal/core"
)

const commandTimeout = 15 * time.Second

// loadChatsCmd refreshes the chat list from the backend.
func loadChatsCmd(svc *core.ChatService) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return ChatsLoadedMsg{Chats: svc.LoadChats(ctx)}
	}
}

// openChatCmd selects and hydrates a chat.
func openChatCmd(svc *core.ChatService, chatID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		_, err := svc.OpenChat(ctx, chatID)
		return ChatOpenedMsg{ChatID: chatID, Err: err}
	}
}

// deleteChatCmd removes a chat.
func deleteChatCmd(svc *core.ChatService, chatID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return ChatDeletedMsg{ChatID: chatID, Err: svc.DeleteChat(ctx, chatID)}
	}
}

// clearErrorCmd dismisses the error line after a short delay.
func clearErrorCmd() tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return ClearErrorMsg{}
	})
}
