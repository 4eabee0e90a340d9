// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"testing"
)

func TestDecodeEventsChunk(t *testing.T) {
	events, err := DecodeEvents([]byte(`{"chunk":"Hello"}`))
	if err != nil {
		t.Fatalf("DecodeEvents: %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventChunk || events[0].Chunk != "Hello" {
		t.Errorf("events = %+v", events)
	}
}

func TestDecodeEventsSources(t *testing.T) {
	data := []byte(`{"sources":[{"repo_name":"org/repo","path":"a.go","relevance_score":0.9}]}`)
	events, err := DecodeEvents(data)
	if err != nil {
		t.Fatalf("DecodeEvents: %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventSources {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Sources[0].RepoName != "org/repo" {
		t.Errorf("source = %+v", events[0].Sources[0])
	}
}

func TestDecodeEventsEmptySourcesArray(t *testing.T) {
	// An explicit empty array still replaces sources wholesale.
	events, err := DecodeEvents([]byte(`{"sources":[]}`))
	if err != nil {
		t.Fatalf("DecodeEvents: %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventSources || len(events[0].Sources) != 0 {
		t.Errorf("events = %+v", events)
	}
}

func TestDecodeEventsSourcesAndChunkOrdered(t *testing.T) {
	data := []byte(`{"sources":[{"path":"x.go"}],"chunk":"text"}`)
	events, err := DecodeEvents(data)
	if err != nil {
		t.Fatalf("DecodeEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len = %d", len(events))
	}
	if events[0].Kind != EventSources || events[1].Kind != EventChunk {
		t.Errorf("order = %v, %v", events[0].Kind, events[1].Kind)
	}
}

func TestDecodeEventsStatus(t *testing.T) {
	events, err := DecodeEvents([]byte(`{"message":"Searching through files"}`))
	if err != nil {
		t.Fatalf("DecodeEvents: %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventStatus || events[0].Status != "Searching through files" {
		t.Errorf("events = %+v", events)
	}
}

func TestDecodeEventsCompleted(t *testing.T) {
	for _, raw := range []string{`{"is_final":true}`, `{"status":"completed"}`} {
		events, err := DecodeEvents([]byte(raw))
		if err != nil {
			t.Fatalf("DecodeEvents(%s): %v", raw, err)
		}
		last := events[len(events)-1]
		if last.Kind != EventCompleted {
			t.Errorf("DecodeEvents(%s) last = %+v", raw, last)
		}
	}
}

func TestDecodeEventsMalformed(t *testing.T) {
	if _, err := DecodeEvents([]byte(`{not json`)); err == nil {
		t.Error("malformed JSON accepted")
	}
}

func TestDecodeEventsUnknownShape(t *testing.T) {
	if _, err := DecodeEvents([]byte(`{"foo":"bar"}`)); err == nil {
		t.Error("unknown shape accepted")
	}
}
