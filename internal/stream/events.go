// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream consumes the backend's /ask/stream endpoint over two
// transports and decodes the wire payloads into typed events.
package stream

import (
	"encoding/json"
	"fmt"
)

// RawSource is a source record exactly as it appears on the wire.
type RawSource struct {
	RepoName       string  `json:"repo_name"`
	Path           string  `json:"path"`
	Preview        string  `json:"preview"`
	Language       string  `json:"language"`
	FileType       string  `json:"file_type"`
	RelevanceScore float64 `json:"relevance_score"`
}

// EventKind discriminates stream events.
type EventKind int

const (
	// EventSources carries a full replacement set of source records.
	EventSources EventKind = iota
	// EventChunk carries an answer fragment to append.
	EventChunk
	// EventStatus carries a transient progress message.
	EventStatus
	// EventCompleted marks the end of the answer.
	EventCompleted
)

// Event is one decoded stream event. Exactly the fields for its Kind are set.
type Event struct {
	Kind    EventKind
	Chunk   string
	Sources []RawSource
	Status  string
}

// wirePayload is the superset of fields a stream message may carry. The
// backend multiplexes shapes over one channel; decoding inspects which
// fields are present and emits explicit events instead of letting callers
// probe fields.
type wirePayload struct {
	Sources []RawSource `json:"sources"`
	Chunk   string      `json:"chunk"`
	Message string      `json:"message"`
	Status  string      `json:"status"`
	IsFinal bool        `json:"is_final"`
}

// DecodeEvents converts one JSON wire message into typed events.
//
// A message may legitimately carry both sources and a chunk; sources are
// emitted first so replacement lands before the append. Unknown shapes
// return an error so the caller can log and skip the message.
func DecodeEvents(data []byte) ([]Event, error) {
	var p wirePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("malformed stream payload: %w", err)
	}

	var events []Event
	if p.Sources != nil {
		events = append(events, Event{Kind: EventSources, Sources: p.Sources})
	}
	if p.Chunk != "" {
		events = append(events, Event{Kind: EventChunk, Chunk: p.Chunk})
	}
	if p.Message != "" {
		events = append(events, Event{Kind: EventStatus, Status: p.Message})
	} else if p.Status != "" && p.Status != "completed" {
		events = append(events, Event{Kind: EventStatus, Status: p.Status})
	}
	if p.IsFinal || p.Status == "completed" {
		events = append(events, Event{Kind: EventCompleted})
	}

	if len(events) == 0 {
		return nil, fmt.Errorf("unrecognized stream payload shape: %.80s", string(data))
	}
	return events, nil
}
