// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"io"
	"strings"
	"testing"
)

// slowReader yields its input in tiny increments to exercise read-boundary
// handling.
type slowReader struct {
	data []byte
	pos  int
	step int
}

func (r *slowReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	end := r.pos + r.step
	if end > len(r.data) {
		end = len(r.data)
	}
	n := copy(p, r.data[r.pos:end])
	r.pos += n
	return n, nil
}

func TestReadEventBasic(t *testing.T) {
	input := "data: {\"chunk\":\"hello\"}\n\n"
	r := NewSSEReader(strings.NewReader(input))

	eventType, data, err := r.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if eventType != "" {
		t.Errorf("eventType = %q, want empty", eventType)
	}
	if string(data) != `{"chunk":"hello"}` {
		t.Errorf("data = %q", data)
	}

	if _, _, err := r.ReadEvent(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestReadEventNamed(t *testing.T) {
	input := "event: answer_chunk\ndata: {\"chunk\":\"x\"}\n\n"
	r := NewSSEReader(strings.NewReader(input))

	eventType, data, err := r.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if eventType != "answer_chunk" {
		t.Errorf("eventType = %q", eventType)
	}
	if string(data) != `{"chunk":"x"}` {
		t.Errorf("data = %q", data)
	}
}

func TestReadEventTypeOnly(t *testing.T) {
	input := "event: completed\n\n"
	r := NewSSEReader(strings.NewReader(input))

	eventType, data, err := r.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if eventType != "completed" {
		t.Errorf("eventType = %q", eventType)
	}
	if data != nil {
		t.Errorf("data = %q, want nil", data)
	}
}

func TestReadEventMultipleEvents(t *testing.T) {
	input := "data: one\n\ndata: two\n\ndata: three\n\n"
	r := NewSSEReader(strings.NewReader(input))

	var got []string
	for {
		_, data, err := r.ReadEvent()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadEvent: %v", err)
		}
		got = append(got, string(data))
	}
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReadEventPartialLinesAcrossReads(t *testing.T) {
	// One byte at a time: no line may be split into separate events.
	input := "data: {\"chunk\":\"Hel\"}\n\ndata: {\"chunk\":\"lo, \"}\n\ndata: {\"chunk\":\"world\"}\n\n"
	r := NewSSEReader(&slowReader{data: []byte(input), step: 1})

	var got []string
	for {
		_, data, err := r.ReadEvent()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadEvent: %v", err)
		}
		got = append(got, string(data))
	}
	if len(got) != 3 {
		t.Fatalf("got %d events: %v", len(got), got)
	}
	if got[0] != `{"chunk":"Hel"}` || got[2] != `{"chunk":"world"}` {
		t.Errorf("events = %v", got)
	}
}

func TestReadEventCRLF(t *testing.T) {
	input := "data: payload\r\n\r\n"
	r := NewSSEReader(strings.NewReader(input))

	_, data, err := r.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("data = %q", data)
	}
}

func TestReadEventFinalEventWithoutTrailingBlank(t *testing.T) {
	input := "data: last"
	r := NewSSEReader(strings.NewReader(input))

	_, data, err := r.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if string(data) != "last" {
		t.Errorf("data = %q", data)
	}
}

func TestReadEventIgnoresCommentsAndIDs(t *testing.T) {
	input := ": keepalive\nid: 42\nretry: 1000\ndata: real\n\n"
	r := NewSSEReader(strings.NewReader(input))

	_, data, err := r.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if string(data) != "real" {
		t.Errorf("data = %q", data)
	}
}

func TestReadEventMultiLineData(t *testing.T) {
	input := "data: line1\ndata: line2\n\n"
	r := NewSSEReader(strings.NewReader(input))

	_, data, err := r.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if string(data) != "line1\nline2" {
		t.Errorf("data = %q", data)
	}
}
