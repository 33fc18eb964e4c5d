// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the conversation session: the state machine that
// drives a streaming send and folds decoded events into message state.
package chat

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/chatgate-tui/internal/api"
	"github.com/jeranaias/chatgate-tui/internal/model"
)

// User-facing fallback strings written into the assistant slot. Errors are
// absorbed into message content, never thrown at the caller.
const (
	// apologyMessage replaces the assistant content on a backend-reported
	// stream error.
	apologyMessage = "Sorry, something went wrong. Please try again later."

	// networkErrorMessage replaces the assistant content when the
	// transport itself fails.
	networkErrorMessage = "Network error. Please check your connection and try again."
)

// State is the session send state.
type State int

const (
	// StateIdle means no stream is in flight.
	StateIdle State = iota
	// StateSending means a streaming call is active. At most one per
	// session; further sends are no-ops until the stream terminates.
	StateSending
)

// Gateway is the backend surface the session needs. Implemented by
// api.Client.
type Gateway interface {
	OpenChatStream(ctx context.Context, query, conversationID string) (*api.Stream, error)
	SaveConversation(ctx context.Context, conversationID string) error
}

// Entry is a read-only snapshot of one transcript message.
type Entry struct {
	ID        string
	Role      model.Role
	Content   string
	Streaming bool
}

// =============================================================================
// SESSION
// =============================================================================

// Session owns one conversation and at most one in-flight stream.
//
// The open assistant placeholder is addressed by index plus a generation
// counter rather than a shared pointer: Clear during a stream bumps the
// generation, so the stream's remaining folds target a detached message and
// become unobservable no-ops. No cancellation primitive is needed.
type Session struct {
	mu   sync.Mutex
	conv *model.Conversation

	state      State
	openIdx    int
	generation uint64

	gateway Gateway

	// streamDeadline bounds the total lifetime of one send. Zero means the
	// caller's context governs alone.
	streamDeadline time.Duration

	// onUpdate, when set, is called after every observable fold so the UI
	// can redraw. Called without the session lock held.
	onUpdate func()
}

// NewSession creates an idle session with an empty conversation.
func NewSession(gateway Gateway) *Session {
	return &Session{
		conv:    model.NewConversation(),
		openIdx: -1,
		gateway: gateway,
	}
}

// SetStreamDeadline sets the per-send stream lifetime bound.
func (s *Session) SetStreamDeadline(d time.Duration) {
	s.mu.Lock()
	s.streamDeadline = d
	s.mu.Unlock()
}

// SetUpdateHook registers the redraw callback.
func (s *Session) SetUpdateHook(fn func()) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

func (s *Session) notifyUpdate() {
	s.mu.Lock()
	fn := s.onUpdate
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the current send state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConversationID returns the server-assigned identifier, or "".
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.ID
}

// MessageCount returns the number of messages in the conversation.
func (s *Session) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.MessageCount()
}

// Transcript returns a snapshot of the conversation in chronological order.
// Safe to render from another goroutine while a stream folds.
func (s *Session) Transcript() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0, s.conv.MessageCount())
	for _, msg := range s.conv.Messages {
		entries = append(entries, Entry{
			ID:        msg.ID,
			Role:      msg.Role,
			Content:   msg.GetDisplayContent(),
			Streaming: msg.IsStreaming,
		})
	}
	return entries
}

// =============================================================================
// SEND
// =============================================================================

// Send submits content and folds the resulting stream until it terminates.
//
// Blank content (after trimming) and sends while already sending are no-ops:
// not queued, not errored. Blocks until the stream ends; run it in its own
// goroutine and watch the update hook.
func (s *Session) Send(ctx context.Context, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}

	s.mu.Lock()
	if s.state == StateSending {
		s.mu.Unlock()
		return
	}
	s.state = StateSending
	s.conv.AddUserMessage(content)
	s.conv.AddAssistantMessage()
	s.openIdx = s.conv.MessageCount() - 1
	s.generation++
	gen := s.generation
	conversationID := s.conv.ID
	deadline := s.streamDeadline
	s.mu.Unlock()

	s.notifyUpdate()

	if deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	// The finalize step runs on every exit path: state returns to idle and
	// the placeholder is sealed, no matter how the stream terminated.
	defer s.finalize(gen)

	stream, err := s.gateway.OpenChatStream(ctx, content, conversationID)
	if err != nil {
		log.Printf("chat: failed to open stream: %v", err)
		s.replaceOpen(gen, networkErrorMessage)
		return
	}
	defer stream.Close()

	for {
		event, err := stream.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Printf("chat: stream read failed: %v", err)
			s.replaceOpen(gen, networkErrorMessage)
			return
		}

		s.fold(ctx, gen, event)

		if event.IsTerminal() {
			return
		}
	}
}

// fold applies one decoded event to the conversation, in arrival order.
// Folds against a stale generation are silently dropped.
func (s *Session) fold(ctx context.Context, gen uint64, event api.Event) {
	switch event.Kind {
	case api.EventMessage:
		s.appendOpen(gen, event.Answer)

	case api.EventMessageEnd:
		s.recordConversationID(gen, event.ConversationID)
		// The identifier is already recorded; a failed save changes
		// nothing in memory.
		if event.ConversationID != "" {
			if err := s.gateway.SaveConversation(ctx, event.ConversationID); err != nil {
				log.Printf("chat: failed to save conversation %s: %v", event.ConversationID, err)
			}
		}

	case api.EventError:
		log.Printf("chat: stream error [%s]: %s", event.ErrorCode, event.ErrorMessage)
		s.replaceOpen(gen, apologyMessage)

	case api.EventOther:
		// Forwarded as a no-op.
	}
}

// appendOpen appends a fragment to the open placeholder. Monotonic append,
// never replacement.
func (s *Session) appendOpen(gen uint64, fragment string) {
	s.mu.Lock()
	if msg := s.openMessage(gen); msg != nil {
		msg.AppendFragment(fragment)
	}
	s.mu.Unlock()
	s.notifyUpdate()
}

// replaceOpen swaps the open placeholder's content for a fixed error string.
func (s *Session) replaceOpen(gen uint64, content string) {
	s.mu.Lock()
	if msg := s.openMessage(gen); msg != nil {
		msg.ReplaceContent(content)
	}
	s.mu.Unlock()
	s.notifyUpdate()
}

// recordConversationID stores the server-assigned identifier.
func (s *Session) recordConversationID(gen uint64, id string) {
	s.mu.Lock()
	if gen == s.generation && id != "" {
		s.conv.SetID(id)
	}
	s.mu.Unlock()
}

// openMessage returns the open placeholder for the given generation, or nil
// when it has been detached. Caller holds the lock.
func (s *Session) openMessage(gen uint64) *model.Message {
	if gen != s.generation {
		return nil
	}
	return s.conv.MessageAt(s.openIdx)
}

// finalize is the single termination step: the placeholder becomes immutable
// and the session returns to idle, regardless of which path got here.
func (s *Session) finalize(gen uint64) {
	s.mu.Lock()
	if msg := s.openMessage(gen); msg != nil {
		msg.FinalizeStream()
	}
	if gen == s.generation {
		s.openIdx = -1
	}
	s.state = StateIdle
	s.mu.Unlock()
	s.notifyUpdate()
}

// =============================================================================
// CLEAR
// =============================================================================

// Clear resets the conversation identifier and the message sequence together.
// Safe while sending: the in-flight stream is not aborted, but its remaining
// folds target a detached message and have no observable effect.
func (s *Session) Clear() {
	s.mu.Lock()
	s.conv.Reset()
	s.generation++
	s.openIdx = -1
	s.mu.Unlock()
	s.notifyUpdate()
}
