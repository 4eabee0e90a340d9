// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Doer issues authenticated HTTP requests. Satisfied by auth.Service.
type Doer interface {
	AuthenticatedDo(ctx context.Context, method, url string, body io.Reader) (*http.Response, error)
}

// Client talks to the backend chat store.
//
// Every method follows a sentinel-return contract: failures are logged and
// reported as an empty slice, nil, or false. Callers never see an error from
// this layer; a missing chat and a failed request look the same by design of
// the backend contract.
type Client struct {
	baseURL string
	doer    Doer
	logger  *log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets a custom logger.
func WithClientLogger(l *log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a chat client against the given backend base URL.
func NewClient(baseURL string, doer Doer, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
		logger:  log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// CHAT CRUD
// =============================================================================

// ListChats returns the user's chats, most recent first per the backend
// ordering. Returns an empty slice on any failure.
func (c *Client) ListChats(ctx context.Context, limit int) []ChatSummary {
	u := fmt.Sprintf("%s/chats?limit=%d", c.baseURL, limit)

	var chats []ChatSummary
	if err := c.getJSON(ctx, u, &chats); err != nil {
		c.logger.Printf("api: list chats: %v", err)
		return []ChatSummary{}
	}
	if chats == nil {
		chats = []ChatSummary{}
	}
	return chats
}

// GetChat returns a full chat with messages, or nil on any failure.
func (c *Client) GetChat(ctx context.Context, chatID string) *ChatData {
	u := fmt.Sprintf("%s/chats/%s", c.baseURL, url.PathEscape(chatID))

	var chat ChatData
	if err := c.getJSON(ctx, u, &chat); err != nil {
		c.logger.Printf("api: get chat %s: %v", chatID, err)
		return nil
	}
	return &chat
}

// CreateChat creates a chat, optionally seeding it with a first message.
// Returns nil on any failure.
func (c *Client) CreateChat(ctx context.Context, title, firstMessage string) *ChatData {
	var chat ChatData
	err := c.sendJSON(ctx, http.MethodPost, c.baseURL+"/chats",
		CreateChatRequest{Title: title, FirstMessage: firstMessage}, &chat)
	if err != nil {
		c.logger.Printf("api: create chat: %v", err)
		return nil
	}
	return &chat
}

// AddMessage appends a message to a chat. Returns nil on any failure.
func (c *Client) AddMessage(ctx context.Context, chatID, role, content string, metadata map[string]interface{}) *ChatMessage {
	u := fmt.Sprintf("%s/chats/%s/messages", c.baseURL, url.PathEscape(chatID))

	var msg ChatMessage
	err := c.sendJSON(ctx, http.MethodPost, u,
		AddMessageRequest{Role: role, Content: content, Metadata: metadata}, &msg)
	if err != nil {
		c.logger.Printf("api: add message to %s: %v", chatID, err)
		return nil
	}
	return &msg
}

// UpdateChatTitle renames a chat. Returns nil on any failure.
func (c *Client) UpdateChatTitle(ctx context.Context, chatID, title string) *ChatData {
	u := fmt.Sprintf("%s/chats/%s", c.baseURL, url.PathEscape(chatID))

	var chat ChatData
	err := c.sendJSON(ctx, http.MethodPut, u, UpdateChatRequest{Title: title}, &chat)
	if err != nil {
		c.logger.Printf("api: update chat %s: %v", chatID, err)
		return nil
	}
	return &chat
}

// DeleteChat removes a chat. Returns false on any failure.
func (c *Client) DeleteChat(ctx context.Context, chatID string) bool {
	u := fmt.Sprintf("%s/chats/%s", c.baseURL, url.PathEscape(chatID))

	resp, err := c.doer.AuthenticatedDo(ctx, http.MethodDelete, u, nil)
	if err != nil {
		c.logger.Printf("api: delete chat %s: %v", chatID, err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Printf("api: delete chat %s: status %d", chatID, resp.StatusCode)
		return false
	}
	return true
}

// =============================================================================
// STREAM URL
// =============================================================================

// StreamURL builds the /ask/stream URL for a query with the given retrieval
// parameters. detailed_response is always requested.
func (c *Client) StreamURL(query string, k int, alpha float64) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("k", strconv.Itoa(k))
	params.Set("alpha", strconv.FormatFloat(alpha, 'f', -1, 64))
	params.Set("detailed_response", "true")
	return c.baseURL + "/ask/stream?" + params.Encode()
}

// =============================================================================
// INTERNALS
// =============================================================================

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	resp, err := c.doer.AuthenticatedDo(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) sendJSON(ctx context.Context, method, url string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	resp, err := c.doer.AuthenticatedDo(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
