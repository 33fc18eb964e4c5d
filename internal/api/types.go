// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP gateway to the chatgate backend: ordinary
// authenticated calls, the streaming chat call, and the decoder that turns
// the chunked stream body into discrete events.
package api

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// RESPONSE ENVELOPE
// =============================================================================

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIError represents a non-success response from the backend.
type APIError struct {
	Code    int
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("api error [%d] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("api error (HTTP %d): %s", e.Status, e.Message)
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// EventKind classifies a decoded stream event.
type EventKind string

const (
	// EventMessage carries an answer fragment to append.
	EventMessage EventKind = "message"
	// EventMessageEnd marks the end of generation and carries the
	// conversation identifier.
	EventMessageEnd EventKind = "message_end"
	// EventError is a backend-reported stream failure. Terminal.
	EventError EventKind = "error"
	// EventOther is any recognized-shape record with an unknown
	// discriminator (workflow_started, node_finished, ...). Forwarded as
	// a no-op.
	EventOther EventKind = "other"
)

// Event is one decoded record from the chat stream.
type Event struct {
	Kind EventKind

	// Message fields
	Answer         string
	ConversationID string

	// MessageEnd fields
	Metadata map[string]any

	// Error fields
	ErrorCode    string
	ErrorMessage string

	// Other: the raw discriminator value
	RawEvent string
}

// IsTerminal reports whether no further events follow this one.
func (e Event) IsTerminal() bool {
	return e.Kind == EventError
}

// eventPayload is the wire shape of a record payload before classification.
type eventPayload struct {
	Event          string         `json:"event"`
	Answer         string         `json:"answer"`
	ConversationID string         `json:"conversation_id"`
	Metadata       map[string]any `json:"metadata"`
	Code           string         `json:"code"`
	Message        string         `json:"message"`
}

// classify maps a parsed payload onto an Event variant.
func (p *eventPayload) classify() Event {
	switch p.Event {
	case "message":
		return Event{
			Kind:           EventMessage,
			Answer:         p.Answer,
			ConversationID: p.ConversationID,
		}
	case "message_end":
		return Event{
			Kind:           EventMessageEnd,
			ConversationID: p.ConversationID,
			Metadata:       p.Metadata,
		}
	case "error":
		return Event{
			Kind:         EventError,
			ErrorCode:    p.Code,
			ErrorMessage: p.Message,
		}
	default:
		return Event{Kind: EventOther, RawEvent: p.Event}
	}
}
