// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package core orchestrates a question/answer turn: chat persistence,
// streaming, state transitions, and title derivation.
package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/jeranaias/jarvis-tui/internal/api"
	"github.com/jeranaias/jarvis-tui/internal/auth"
	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/model"
	"github.com/jeranaias/jarvis-tui/internal/sources"
	"github.com/jeranaias/jarvis-tui/internal/stream"
)

var (
	// ErrEmptyMessage indicates a send with no content after trimming.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong indicates a send over the configured length cap.
	ErrMessageTooLong = errors.New("message exceeds the maximum length")
)

// Asker streams one answer. Satisfied by stream.Consumer.
type Asker interface {
	Ask(ctx context.Context, streamURL string, cb stream.Callbacks) error
}

// ChatStore is the backend chat persistence surface. Satisfied by api.Client.
type ChatStore interface {
	ListChats(ctx context.Context, limit int) []api.ChatSummary
	GetChat(ctx context.Context, chatID string) *api.ChatData
	CreateChat(ctx context.Context, title, firstMessage string) *api.ChatData
	AddMessage(ctx context.Context, chatID, role, content string, metadata map[string]interface{}) *api.ChatMessage
	UpdateChatTitle(ctx context.Context, chatID, title string) *api.ChatData
	DeleteChat(ctx context.Context, chatID string) bool
	StreamURL(query string, k int, alpha float64) string
}

// QueryGate decides whether another query may be sent. Satisfied by
// auth.Service.
type QueryGate interface {
	AllowQuery() bool
	CachedUser() *auth.User
}

// SendCallbacks receive live updates during a streaming turn, after the
// conversation state has already been updated. All fields are optional.
type SendCallbacks struct {
	OnChunk   func(chunk string)
	OnSources func(srcs []sources.Source)
	OnStatus  func(message string)
}

// ChatService ties the conversation state to the backend.
type ChatService struct {
	state    *model.State
	store    ChatStore
	consumer Asker
	gate     QueryGate
	cfg      *config.Config
	logger   *log.Logger
}

// ServiceOption configures a ChatService.
type ServiceOption func(*ChatService)

// WithServiceLogger sets a custom logger.
func WithServiceLogger(l *log.Logger) ServiceOption {
	return func(s *ChatService) { s.logger = l }
}

// NewChatService wires the orchestrator.
func NewChatService(state *model.State, store ChatStore, consumer Asker, gate QueryGate, cfg *config.Config, opts ...ServiceOption) *ChatService {
	s := &ChatService{
		state:    state,
		store:    store,
		consumer: consumer,
		gate:     gate,
		cfg:      cfg,
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State exposes the conversation state for read access by the UI.
func (s *ChatService) State() *model.State {
	return s.state
}

func (s *ChatService) github() sources.GitHub {
	return sources.GitHub{
		BaseURL:       s.cfg.GitHub.BaseURL,
		DefaultOrg:    s.cfg.GitHub.DefaultOrg,
		DefaultBranch: s.cfg.GitHub.DefaultBranch,
	}
}

// =============================================================================
// CHAT LIFECYCLE
// =============================================================================

// LoadChats refreshes the chat list from the backend. Listing entries carry
// no messages; chats hydrate lazily on open.
func (s *ChatService) LoadChats(ctx context.Context) []*model.Chat {
	summaries := s.store.ListChats(ctx, s.cfg.Chat.ListLimit)

	chats := make([]*model.Chat, 0, len(summaries))
	for _, sum := range summaries {
		chats = append(chats, &model.Chat{
			ID:        sum.ID,
			Title:     sum.Title,
			UserID:    sum.UserID,
			CreatedAt: parseTime(sum.CreatedAt),
			UpdatedAt: parseTime(sum.UpdatedAt),
		})
	}
	s.state.SetChats(chats)
	return chats
}

// OpenChat selects a chat and fetches its messages if not yet hydrated.
func (s *ChatService) OpenChat(ctx context.Context, chatID string) (*model.Chat, error) {
	if err := s.state.SetCurrent(chatID); err != nil {
		return nil, err
	}
	c := s.state.CurrentChat()
	if c.Hydrated {
		return c, nil
	}

	data := s.store.GetChat(ctx, chatID)
	if data == nil {
		// Keep the summary view; history just stays empty.
		s.logger.Printf("core: hydrate chat %s failed", chatID)
		return c, nil
	}

	msgs := make([]*model.Message, 0, len(data.Messages))
	for _, m := range data.Messages {
		msgs = append(msgs, messageFromAPI(m))
	}
	if err := s.state.ReplaceMessages(chatID, msgs); err != nil {
		return nil, err
	}
	if data.Title != "" {
		_ = s.state.RenameChat(chatID, data.Title)
	}
	return c, nil
}

// NewChat starts a fresh local conversation and selects it. Nothing is
// persisted until the first message is sent.
func (s *ChatService) NewChat() *model.Chat {
	var userID string
	if u := s.gate.CachedUser(); u != nil {
		userID = u.ID
	}
	c := model.NewLocalChat(userID)
	s.state.AddChat(c)
	return c
}

// DeleteChat removes a chat locally and, for persisted chats, on the backend.
func (s *ChatService) DeleteChat(ctx context.Context, chatID string) error {
	local, ok := s.state.IsLocal(chatID)
	if !ok {
		return model.ErrChatNotFound
	}
	if !local && !s.store.DeleteChat(ctx, chatID) {
		return fmt.Errorf("backend refused to delete chat %s", chatID)
	}
	return s.state.RemoveChat(chatID)
}

// RenameChat retitles a chat locally and, for persisted chats, on the
// backend.
func (s *ChatService) RenameChat(ctx context.Context, chatID, title string) error {
	local, ok := s.state.IsLocal(chatID)
	if !ok {
		return model.ErrChatNotFound
	}
	if !local && s.store.UpdateChatTitle(ctx, chatID, title) == nil {
		return fmt.Errorf("backend refused to rename chat %s", chatID)
	}
	return s.state.RenameChat(chatID, title)
}

// =============================================================================
// SEND
// =============================================================================

// SendMessage runs one full question/answer turn against the current chat,
// creating one if none is selected.
//
// The user message is appended and persisted first, then an assistant
// placeholder starts streaming. On success the answer and its sources are
// persisted and, for the first exchange, the chat title is derived from the
// question. A stream that dies after partial content keeps the partial text
// and reports the error. A stream that produces nothing replaces the
// placeholder with the fixed connection error message.
func (s *ChatService) SendMessage(ctx context.Context, text string, cb SendCallbacks) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if max := s.cfg.Chat.MaxMessageLength; max > 0 && len([]rune(text)) > max {
		return nil, ErrMessageTooLong
	}
	if !s.gate.AllowQuery() {
		return nil, auth.ErrQueryLimit
	}

	chat := s.state.CurrentChat()
	if chat == nil {
		chat = s.NewChat()
	}
	firstExchange := s.state.MessageCount(chat.ID) == 0

	if chat.Local {
		// Title is read through the lock; a concurrent hydration may retitle
		// the chat on the UI loop.
		entry, _ := s.state.Entry(chat.ID)
		if created := s.store.CreateChat(ctx, entry.Title, ""); created != nil {
			if err := s.state.ReplaceChatID(chat.ID, created.ID); err == nil {
				chat = s.state.CurrentChat()
			}
		} else {
			// Stay local; the turn still runs, persistence is skipped.
			s.logger.Printf("core: create chat failed, continuing unpersisted")
		}
	}

	if _, err := s.state.AppendUserMessage(chat.ID, text); err != nil {
		return nil, err
	}
	if !chat.Local {
		if s.store.AddMessage(ctx, chat.ID, string(model.RoleUser), text, nil) == nil {
			s.logger.Printf("core: persist user message failed for chat %s", chat.ID)
		}
	}

	assistant, err := s.state.BeginAssistantMessage(chat.ID)
	if err != nil {
		return nil, err
	}

	streamURL := s.store.StreamURL(text, s.cfg.Search.K, s.cfg.Search.Alpha)
	gh := s.github()

	streamErr := s.consumer.Ask(ctx, streamURL, stream.Callbacks{
		OnChunk: func(chunk string) {
			if err := s.state.AppendChunk(chat.ID, assistant.ID, chunk); err != nil {
				return
			}
			if cb.OnChunk != nil {
				cb.OnChunk(chunk)
			}
		},
		OnSources: func(raw []stream.RawSource) {
			srcs := sources.Transform(raw, gh)
			if err := s.state.ReplaceSources(chat.ID, assistant.ID, srcs); err != nil {
				return
			}
			if cb.OnSources != nil {
				cb.OnSources(srcs)
			}
		},
		OnStatus: func(message string) {
			if cb.OnStatus != nil {
				cb.OnStatus(message)
			}
		},
	})

	var partialErr *stream.StreamError
	switch {
	case streamErr == nil:
		// Full answer.

	case errors.As(streamErr, &partialErr):
		// Keep what arrived; the turn is finalized below with the partial
		// text as the answer.
		s.logger.Printf("core: stream truncated: %v", streamErr)

	default:
		_ = s.state.FailAssistant(chat.ID, assistant.ID,
			stream.ConnectionErrorMessage(s.cfg.API.BaseURL))
		return assistant, streamErr
	}

	if err := s.state.FinalizeAssistant(chat.ID, assistant.ID); err != nil {
		return assistant, err
	}

	if !chat.Local {
		s.persistAssistant(ctx, chat.ID, assistant)
	}
	if firstExchange {
		s.applyDerivedTitle(ctx, chat, text)
	}
	return assistant, streamErr
}

// persistAssistant stores the finished answer with its sources as metadata.
func (s *ChatService) persistAssistant(ctx context.Context, chatID string, m *model.Message) {
	var metadata map[string]interface{}
	if len(m.Sources) > 0 {
		metadata = map[string]interface{}{"sources": m.Sources}
	}
	if s.store.AddMessage(ctx, chatID, string(model.RoleAssistant), m.Content, metadata) == nil {
		s.logger.Printf("core: persist assistant message failed for chat %s", chatID)
	}
}

// applyDerivedTitle titles a chat after its first exchange.
func (s *ChatService) applyDerivedTitle(ctx context.Context, chat *model.Chat, firstUserMessage string) {
	title := model.DeriveTitle(firstUserMessage, s.cfg.Chat.MaxTitleWords, s.cfg.Chat.TitleMaxChars)
	if err := s.state.RenameChat(chat.ID, title); err != nil {
		return
	}
	if !chat.Local {
		if s.store.UpdateChatTitle(ctx, chat.ID, title) == nil {
			s.logger.Printf("core: persist title failed for chat %s", chat.ID)
		}
	}
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// messageFromAPI converts a persisted backend message, restoring sources from
// assistant metadata.
func messageFromAPI(m api.ChatMessage) *model.Message {
	msg := &model.Message{
		ID:        m.ID,
		Role:      model.Role(m.Role),
		Content:   m.Content,
		Timestamp: parseTime(m.Timestamp),
	}
	if raw, ok := m.Metadata["sources"]; ok {
		msg.Sources = decodeSources(raw)
	}
	return msg
}

// decodeSources recovers a source list from untyped metadata via a JSON
// round trip.
func decodeSources(raw interface{}) []sources.Source {
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var out []sources.Source
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil
	}
	return out
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
