// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultFallbackTimeout is how long the fallback transport waits for a
// completed event before self-terminating.
const DefaultFallbackTimeout = 30 * time.Second

// connectionErrorText is the user-facing message shown when every transport
// failed without producing content.
const connectionErrorText = "I apologize, but I'm having trouble connecting to the backend service. Please ensure the backend server is running."

// ConnectionErrorMessage renders the fixed both-transports-failed message
// naming the configured backend.
func ConnectionErrorMessage(baseURL string) string {
	return connectionErrorText + " " + baseURL + "."
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoToken indicates streaming was attempted without a valid token.
	ErrNoToken = errors.New("no valid authentication token available")

	// ErrFallbackTimeout indicates the fallback transport self-terminated
	// without receiving a completed event.
	ErrFallbackTimeout = errors.New("stream timed out waiting for completion")
)

// HTTPError is an application-level non-2xx response from the stream
// endpoint. It never triggers the fallback transport; the backend answered,
// it just said no.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("stream request failed with status %d: %s", e.Status, e.Body)
}

// StreamError wraps a transport failure that happened after content was
// already delivered. The partial content has been handed to the callbacks
// and must be preserved by the caller.
type StreamError struct {
	Partial string // Content received before the error
	Err     error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CONSUMER
// =============================================================================

// TokenSource yields the current bearer token. Satisfied by auth.TokenStore.
type TokenSource interface {
	Token() (string, bool)
}

// Callbacks receive decoded events in transport order, on the goroutine that
// called Ask.
type Callbacks struct {
	OnSources func([]RawSource)
	OnChunk   func(string)
	OnStatus  func(string)
}

// Consumer streams answers from /ask/stream.
//
// The primary transport is an authenticated chunked GET. When it fails
// before delivering any chunk content, a fallback connection is opened that
// carries the token as a query parameter (the endpoint's documented
// exception to header auth) and listens on named event channels. Once any
// chunk content has arrived, no fallback happens; the partial answer wins.
type Consumer struct {
	tokens          TokenSource
	httpClient      *http.Client
	fallbackTimeout time.Duration
	logger          *log.Logger
	onUnauthorized  func()
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithFallbackTimeout overrides the fallback self-termination timeout.
func WithFallbackTimeout(d time.Duration) ConsumerOption {
	return func(c *Consumer) { c.fallbackTimeout = d }
}

// WithConsumerLogger sets a custom logger.
func WithConsumerLogger(l *log.Logger) ConsumerOption {
	return func(c *Consumer) { c.logger = l }
}

// WithStreamClient sets a custom HTTP client. The client must not carry a
// global timeout; streams are long-lived and bounded by context instead.
func WithStreamClient(client *http.Client) ConsumerOption {
	return func(c *Consumer) { c.httpClient = client }
}

// WithUnauthorizedHook registers a callback fired when the stream endpoint
// rejects the token with a 401 or 403, so the session can be evicted the
// same way the CRUD calls do.
func WithUnauthorizedHook(fn func()) ConsumerOption {
	return func(c *Consumer) { c.onUnauthorized = fn }
}

// NewConsumer creates a stream consumer.
func NewConsumer(tokens TokenSource, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		tokens:          tokens,
		httpClient:      &http.Client{},
		fallbackTimeout: DefaultFallbackTimeout,
		logger:          log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask streams the answer for a prepared stream URL, dispatching decoded
// events to cb in arrival order.
//
// Failure contract:
//   - primary succeeds: nil
//   - primary fails after chunk content: *StreamError, no fallback
//   - primary fails with zero content on a transport error: fallback runs
//   - backend rejects the request (non-2xx): *HTTPError, no fallback
//   - both transports fail: error naming both causes; caller shows
//     ConnectionErrorMessage
func (c *Consumer) Ask(ctx context.Context, streamURL string, cb Callbacks) error {
	var partial strings.Builder

	wrapped := Callbacks{
		OnSources: cb.OnSources,
		OnStatus:  cb.OnStatus,
		OnChunk: func(chunk string) {
			partial.WriteString(chunk)
			if cb.OnChunk != nil {
				cb.OnChunk(chunk)
			}
		},
	}

	primaryErr := c.primary(ctx, streamURL, wrapped)
	if primaryErr == nil {
		return nil
	}

	// Content already delivered: the partial answer is preserved and the
	// fallback never runs.
	if partial.Len() > 0 {
		return &StreamError{Partial: partial.String(), Err: primaryErr}
	}

	// Application-level rejections are final.
	var httpErr *HTTPError
	if errors.As(primaryErr, &httpErr) {
		return primaryErr
	}
	if errors.Is(primaryErr, context.Canceled) {
		return primaryErr
	}

	c.logger.Printf("stream: primary transport failed (%v), trying fallback", primaryErr)

	fallbackErr := c.fallback(ctx, streamURL, wrapped)
	if fallbackErr == nil {
		return nil
	}
	if partial.Len() > 0 {
		return &StreamError{Partial: partial.String(), Err: fallbackErr}
	}
	return fmt.Errorf("fallback failed (%v) after primary error: %w", fallbackErr, primaryErr)
}

// =============================================================================
// PRIMARY TRANSPORT
// =============================================================================

// primary opens an authenticated chunked GET and reads SSE lines. Event type
// framing is ignored here; payload shape decides dispatch. EOF completes the
// stream.
func (c *Consumer) primary(ctx context.Context, streamURL string, cb Callbacks) error {
	token, ok := c.tokens.Token()
	if !ok {
		return ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.httpError(resp)
	}

	reader := NewSSEReader(resp.Body)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
		if len(data) == 0 {
			continue
		}

		events, err := DecodeEvents(data)
		if err != nil {
			// One bad line never aborts the stream.
			c.logger.Printf("stream: %v", err)
			continue
		}
		for _, ev := range events {
			if c.dispatch(ev, cb) {
				return nil
			}
		}
	}
}

// =============================================================================
// FALLBACK TRANSPORT
// =============================================================================

// fallback opens the named-channel connection. The token rides in the query
// string because this transport cannot carry headers. The connection
// self-terminates when no completed event arrives within the timeout.
func (c *Consumer) fallback(ctx context.Context, streamURL string, cb Callbacks) error {
	token, ok := c.tokens.Token()
	if !ok {
		return ErrNoToken
	}

	u, err := url.Parse(streamURL)
	if err != nil {
		return fmt.Errorf("parse stream URL: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.fallbackTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build fallback request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrFallbackTimeout
		}
		return fmt.Errorf("open fallback stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.httpError(resp)
	}

	reader := NewSSEReader(resp.Body)
	for {
		eventType, data, err := reader.ReadEvent()
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrFallbackTimeout
			}
			if err == io.EOF {
				return errors.New("fallback stream ended without completion")
			}
			return fmt.Errorf("read fallback stream: %w", err)
		}

		done, err := c.dispatchNamed(eventType, data, cb)
		if err != nil {
			c.logger.Printf("stream: %v", err)
			continue
		}
		if done {
			return nil
		}
	}
}

// httpError drains a non-2xx response into an *HTTPError. A 401 or 403
// fires the unauthorized hook first; the stored token is no good.
func (c *Consumer) httpError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	}
	return &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// dispatchNamed routes a fallback event by its channel name. Events on the
// default channel carry no name and fall through to shape-based decoding.
func (c *Consumer) dispatchNamed(eventType string, data []byte, cb Callbacks) (done bool, err error) {
	switch eventType {
	case "completed":
		return true, nil

	case "sources":
		var p struct {
			Sources []RawSource `json:"sources"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return false, fmt.Errorf("malformed sources event: %w", err)
		}
		if p.Sources != nil && cb.OnSources != nil {
			cb.OnSources(p.Sources)
		}
		return false, nil

	case "answer_chunk":
		var p struct {
			Chunk string `json:"chunk"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return false, fmt.Errorf("malformed answer_chunk event: %w", err)
		}
		if p.Chunk != "" && cb.OnChunk != nil {
			cb.OnChunk(p.Chunk)
		}
		return false, nil

	case "status":
		var p struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return false, fmt.Errorf("malformed status event: %w", err)
		}
		if p.Message != "" && cb.OnStatus != nil {
			cb.OnStatus(p.Message)
		}
		return false, nil

	case "", "message":
		if len(data) == 0 {
			return false, nil
		}
		events, err := DecodeEvents(data)
		if err != nil {
			return false, err
		}
		for _, ev := range events {
			if c.dispatch(ev, cb) {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, fmt.Errorf("unknown stream channel %q", eventType)
	}
}

// dispatch delivers one typed event. Returns true on completion.
func (c *Consumer) dispatch(ev Event, cb Callbacks) (done bool) {
	switch ev.Kind {
	case EventSources:
		if cb.OnSources != nil {
			cb.OnSources(ev.Sources)
		}
	case EventChunk:
		if cb.OnChunk != nil {
			cb.OnChunk(ev.Chunk)
		}
	case EventStatus:
		if cb.OnStatus != nil {
			cb.OnStatus(ev.Status)
		}
	case EventCompleted:
		return true
	}
	return false
}
