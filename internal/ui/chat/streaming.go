// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the TUI.
//
// This file implements the streaming render throttle. Chunks arrive far
// faster than a terminal can usefully repaint, so they are batched in a
// buffer and drained at a capped frame rate by the tick loop.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/jarvis-tui/internal/core"
	"github.com/jeranaias/jarvis-tui/internal/sources"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches streamed chunks for rendering. Chunks accumulate
// until either the batch size or the frame interval is reached.
//
// Writes come from the send goroutine while draining happens on the Bubble
// Tea loop, so all operations take the mutex.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	chunkCount int
	lastFlush  time.Time

	batchSize     int
	flushInterval time.Duration
}

const (
	defaultBatchSize = 15
	defaultMaxFPS    = 30
)

// NewStreamingBuffer creates a buffer with the default batch size and frame
// rate.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{
		batchSize:     defaultBatchSize,
		flushInterval: time.Second / defaultMaxFPS,
		lastFlush:     time.Now(),
	}
}

// Write adds a chunk. Called from the send goroutine.
func (sb *StreamingBuffer) Write(chunk string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.WriteString(chunk)
	sb.chunkCount++
}

// Flush returns the accumulated content when a threshold has been reached.
// Called from the tick handler on the main loop.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	if sb.chunkCount < sb.batchSize && time.Since(sb.lastFlush) < sb.flushInterval {
		return "", false
	}
	return sb.drainLocked()
}

// ForceFlush drains everything regardless of thresholds. Used when a stream
// completes so the tail is never lost.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.drainLocked()
}

// Reset clears the buffer without flushing. Used when a new send starts.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.Reset()
	sb.chunkCount = 0
	sb.lastFlush = time.Now()
}

// Pending returns the number of chunks waiting to be flushed.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.chunkCount
}

func (sb *StreamingBuffer) drainLocked() (string, bool) {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.chunkCount = 0
	sb.lastFlush = time.Now()
	return content, true
}

// streamTickCmd drives the throttled repaint while a stream is live.
func streamTickCmd() tea.Cmd {
	return tea.Tick(time.Second/defaultMaxFPS, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}

// =============================================================================
// SEND RUNNER
// =============================================================================

// Runner executes sends off the Bubble Tea loop and feeds results back
// through program.Send.
type Runner struct {
	program *tea.Program
	svc     *core.ChatService
	buffer  *StreamingBuffer

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewRunner creates a send runner. SetProgram must be called before Send.
func NewRunner(svc *core.ChatService, buffer *StreamingBuffer) *Runner {
	return &Runner{svc: svc, buffer: buffer}
}

// SetProgram binds the runner to a running program.
func (r *Runner) SetProgram(p *tea.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.program = p
}

// Send runs one question/answer turn in a goroutine. Chunks go to the render
// buffer; everything else is reported as messages.
func (r *Runner) Send(text string) {
	r.mu.Lock()
	p := r.program
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.mu.Unlock()

	if p == nil {
		return
	}

	go func() {
		defer cancel()

		msg, err := r.svc.SendMessage(ctx, text, core.SendCallbacks{
			OnChunk: func(chunk string) {
				r.buffer.Write(chunk)
			},
			OnSources: func(srcs []sources.Source) {
				p.Send(StreamSourcesMsg{ChatID: currentChatID(r.svc), Count: len(srcs)})
			},
			OnStatus: func(message string) {
				p.Send(StreamStatusMsg{Message: message})
			},
		})

		done := StreamDoneMsg{ChatID: currentChatID(r.svc), Err: err}
		if msg != nil {
			done.MessageID = msg.ID
		}
		p.Send(done)
	}()
}

// Cancel aborts the in-flight send, if any.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func currentChatID(svc *core.ChatService) string {
	if c := svc.State().CurrentChat(); c != nil {
		return c.ID
	}
	return ""
}
