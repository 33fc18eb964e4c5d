// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds an in-memory chat conversation.
//
// The ID is assigned by the backend when the first stream completes and stays
// stable until the conversation is explicitly cleared. Messages are kept in
// insertion order, which is chronological order; they are never reordered.
type Conversation struct {
	// ID is the server-assigned conversation identifier.
	// Empty until the first successful stream completion.
	ID string `json:"id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages in chronological order.
	Messages []*Message `json:"messages"`
}

// NewConversation creates a new empty conversation with no server ID.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message to the conversation.
func (c *Conversation) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
}

// AddUserMessage creates and appends a user message.
func (c *Conversation) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.AddMessage(msg)
	return msg
}

// AddAssistantMessage creates and appends a streaming assistant placeholder.
func (c *Conversation) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	c.AddMessage(msg)
	return msg
}

// MessageAt returns the message at the given index, or nil if out of range.
func (c *Conversation) MessageAt(idx int) *Message {
	if idx < 0 || idx >= len(c.Messages) {
		return nil
	}
	return c.Messages[idx]
}

// GetLastMessage returns the most recent message, or nil if empty.
func (c *Conversation) GetLastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// SetID records the server-assigned conversation identifier.
// First assignment or overwrite-on-change; both are total replacements.
func (c *Conversation) SetID(id string) {
	c.ID = id
	c.UpdatedAt = time.Now()
}

// Reset clears the server ID and all messages together.
// The two are never reset independently.
func (c *Conversation) Reset() {
	c.ID = ""
	c.Messages = make([]*Message, 0)
	c.UpdatedAt = time.Now()
}
