// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/jeranaias/jarvis-tui/internal/sources"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"long question keeps first five words",
			"how does the authentication middleware validate requests",
			"How does the authentication middleware",
		},
		{"short message kept whole", "fix the build", "Fix the build"},
		{"empty falls back", "", UntitledChatTitle},
		{"whitespace only falls back", "   \n\t ", UntitledChatTitle},
		{"already capitalized", "Where is main?", "Where is main?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.input, 5, 50); got != tt.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDeriveTitleCharCap(t *testing.T) {
	long := strings.Repeat("verylongword ", 5)
	got := DeriveTitle(long, 5, 50)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis, got %q", got)
	}
	if n := len([]rune(strings.TrimSuffix(got, "..."))); n > 50 {
		t.Errorf("title body is %d runes, want <= 50", n)
	}
}

func TestMessagePreview(t *testing.T) {
	v := MessageView{Content: "line one\nline two that keeps going for a while"}
	got := v.Preview(12)
	if strings.Contains(got, "\n") {
		t.Errorf("preview contains newline: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncation marker: %q", got)
	}
}

func withChat(t *testing.T) (*State, *Chat) {
	t.Helper()
	s := NewState()
	c := NewLocalChat("user-1")
	s.AddChat(c)
	return s, c
}

func TestStreamLifecycle(t *testing.T) {
	s, c := withChat(t)

	if _, err := s.AppendUserMessage(c.ID, "hello"); err != nil {
		t.Fatalf("AppendUserMessage: %v", err)
	}

	m, err := s.BeginAssistantMessage(c.ID)
	if err != nil {
		t.Fatalf("BeginAssistantMessage: %v", err)
	}
	if !s.IsStreaming(c.ID) {
		t.Error("chat should be streaming")
	}

	for _, chunk := range []string{"Hel", "lo, ", "world"} {
		if err := s.AppendChunk(c.ID, m.ID, chunk); err != nil {
			t.Fatalf("AppendChunk: %v", err)
		}
	}
	if msgs, ok := s.CurrentTranscript(); !ok || msgs[len(msgs)-1].Content != "Hello, world" {
		t.Errorf("transcript = %+v, want live content %q", msgs, "Hello, world")
	}

	if err := s.FinalizeAssistant(c.ID, m.ID); err != nil {
		t.Fatalf("FinalizeAssistant: %v", err)
	}
	if m.IsStreaming {
		t.Error("message still marked streaming")
	}
	if m.Content != "Hello, world" {
		t.Errorf("Content = %q", m.Content)
	}
	if s.IsStreaming(c.ID) {
		t.Error("stream slot not released")
	}
}

func TestBeginAssistantMessageBusy(t *testing.T) {
	s, c := withChat(t)

	if _, err := s.BeginAssistantMessage(c.ID); err != nil {
		t.Fatalf("first begin: %v", err)
	}
	if _, err := s.BeginAssistantMessage(c.ID); !errors.Is(err, ErrStreamBusy) {
		t.Errorf("second begin err = %v, want ErrStreamBusy", err)
	}
}

func TestBusyIsPerChat(t *testing.T) {
	s, a := withChat(t)
	b := NewLocalChat("user-1")
	s.AddChat(b)

	if _, err := s.BeginAssistantMessage(a.ID); err != nil {
		t.Fatalf("begin on a: %v", err)
	}
	if _, err := s.BeginAssistantMessage(b.ID); err != nil {
		t.Errorf("begin on b err = %v, want nil", err)
	}
}

func TestFailAssistantReplacesContent(t *testing.T) {
	s, c := withChat(t)

	m, _ := s.BeginAssistantMessage(c.ID)
	_ = s.AppendChunk(c.ID, m.ID, "partial answer that will be discarded")

	if err := s.FailAssistant(c.ID, m.ID, "connection lost"); err != nil {
		t.Fatalf("FailAssistant: %v", err)
	}
	if m.Content != "connection lost" {
		t.Errorf("Content = %q", m.Content)
	}
	if s.IsStreaming(c.ID) {
		t.Error("stream slot not released after failure")
	}

	// Slot freed, a new send can start.
	if _, err := s.BeginAssistantMessage(c.ID); err != nil {
		t.Errorf("begin after fail: %v", err)
	}
}

func TestReplaceSourcesWholesale(t *testing.T) {
	s, c := withChat(t)
	m, _ := s.BeginAssistantMessage(c.ID)

	_ = s.ReplaceSources(c.ID, m.ID, []sources.Source{{ID: "source-0", Title: "a.go"}, {ID: "source-1", Title: "b.go"}})
	_ = s.ReplaceSources(c.ID, m.ID, []sources.Source{{ID: "source-0", Title: "c.go"}})

	if len(m.Sources) != 1 || m.Sources[0].Title != "c.go" {
		t.Errorf("Sources = %#v, want only c.go", m.Sources)
	}
}

func TestReplaceChatIDKeepsInFlight(t *testing.T) {
	s, c := withChat(t)
	m, _ := s.BeginAssistantMessage(c.ID)

	oldID := c.ID
	if err := s.ReplaceChatID(oldID, "backend-42"); err != nil {
		t.Fatalf("ReplaceChatID: %v", err)
	}
	if s.IsStreaming(oldID) {
		t.Error("old id still in flight")
	}
	if !s.IsStreaming("backend-42") {
		t.Error("new id not in flight")
	}
	if err := s.AppendChunk("backend-42", m.ID, "x"); err != nil {
		t.Errorf("AppendChunk after rebind: %v", err)
	}
}

func TestRemoveChatClearsSelection(t *testing.T) {
	s, c := withChat(t)

	if err := s.RemoveChat(c.ID); err != nil {
		t.Fatalf("RemoveChat: %v", err)
	}
	if s.CurrentChat() != nil {
		t.Error("selection should be cleared")
	}
	if err := s.RemoveChat(c.ID); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("second remove err = %v", err)
	}
}

func TestSetChatsKeepsSurvivingSelection(t *testing.T) {
	s, c := withChat(t)

	replacement := &Chat{ID: c.ID, Title: "refreshed"}
	s.SetChats([]*Chat{replacement, NewLocalChat("u")})

	if cur := s.CurrentChat(); cur == nil || cur.Title != "refreshed" {
		t.Errorf("current = %#v, want refreshed copy", cur)
	}

	s.SetChats([]*Chat{NewLocalChat("u")})
	if s.CurrentChat() != nil {
		t.Error("selection should drop when chat disappears")
	}
}

// Reading a live transcript while chunks stream in must go through the state
// lock; run with -race.
func TestTranscriptReadDuringStream(t *testing.T) {
	s, c := withChat(t)
	m, err := s.BeginAssistantMessage(c.ID)
	if err != nil {
		t.Fatalf("BeginAssistantMessage: %v", err)
	}

	const chunks = 200
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < chunks; i++ {
			_ = s.AppendChunk(c.ID, m.ID, "chunk ")
		}
		_ = s.FinalizeAssistant(c.ID, m.ID)
	}()

	for i := 0; i < chunks; i++ {
		if msgs, ok := s.CurrentTranscript(); ok && len(msgs) > 0 {
			_ = msgs[len(msgs)-1].Content
		}
		_ = s.ChatEntries()
		_ = s.MessageCount(c.ID)
	}
	<-done

	msgs, ok := s.CurrentTranscript()
	if !ok || len(msgs) != 1 {
		t.Fatalf("transcript = %+v", msgs)
	}
	final := msgs[0]
	if final.Streaming {
		t.Error("message still marked streaming after finalize")
	}
	if got := len(final.Content); got != chunks*len("chunk ") {
		t.Errorf("content length = %d, want %d", got, chunks*len("chunk "))
	}
}

func TestConcurrentChunks(t *testing.T) {
	s, c := withChat(t)
	m, _ := s.BeginAssistantMessage(c.ID)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.AppendChunk(c.ID, m.ID, fmt.Sprintf("[%d]", i))
		}(i)
	}
	wg.Wait()

	if err := s.FinalizeAssistant(c.ID, m.ID); err != nil {
		t.Fatalf("FinalizeAssistant: %v", err)
	}
	if n := strings.Count(m.Content, "["); n != 50 {
		t.Errorf("got %d chunks, want 50", n)
	}
}
