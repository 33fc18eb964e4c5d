// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatgate-tui/internal/api"
	"github.com/jeranaias/chatgate-tui/internal/model"
)

// fakeGateway serves a canned stream body and records calls.
type fakeGateway struct {
	mu sync.Mutex

	streamBody string
	openErr    error
	saveErr    error

	opened []string // queries
	saved  []string // conversation ids
}

func (g *fakeGateway) OpenChatStream(ctx context.Context, query, conversationID string) (*api.Stream, error) {
	g.mu.Lock()
	g.opened = append(g.opened, query)
	g.mu.Unlock()
	if g.openErr != nil {
		return nil, g.openErr
	}
	return api.NewStream(io.NopCloser(strings.NewReader(g.streamBody))), nil
}

func (g *fakeGateway) SaveConversation(ctx context.Context, conversationID string) error {
	g.mu.Lock()
	g.saved = append(g.saved, conversationID)
	g.mu.Unlock()
	return g.saveErr
}

func (g *fakeGateway) savedIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.saved...)
}

// pipeGateway hands out a stream fed by a pipe, so tests can interleave
// events with session operations.
type pipeGateway struct {
	fakeGateway
	reader *io.PipeReader
}

func (g *pipeGateway) OpenChatStream(ctx context.Context, query, conversationID string) (*api.Stream, error) {
	return api.NewStream(g.reader), nil
}

func record(event string) string {
	return "data: " + event + "\n\n"
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestSendBlankContentIsNoop(t *testing.T) {
	session := NewSession(&fakeGateway{})

	session.Send(context.Background(), "")
	session.Send(context.Background(), "   ")

	assert.Equal(t, 0, session.MessageCount())
	assert.Equal(t, StateIdle, session.State())
}

func TestSendAppendsFragmentsInOrder(t *testing.T) {
	gateway := &fakeGateway{
		streamBody: record(`{"event":"message","answer":"He"}`) +
			record(`{"event":"message","answer":"llo"}`) +
			record(`{"event":"message_end","conversation_id":"abc"}`),
	}
	session := NewSession(gateway)

	session.Send(context.Background(), "  hi there  ")

	transcript := session.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, model.RoleUser, transcript[0].Role)
	assert.Equal(t, "hi there", transcript[0].Content, "user content is trimmed")
	assert.Equal(t, model.RoleAssistant, transcript[1].Role)
	assert.Equal(t, "Hello", transcript[1].Content)
	assert.False(t, transcript[1].Streaming, "placeholder sealed after stream end")

	assert.Equal(t, "abc", session.ConversationID())
	assert.Equal(t, []string{"abc"}, gateway.savedIDs())
	assert.Equal(t, StateIdle, session.State())
}

// The identifier is recorded even when the persistence call fails; the
// failure is logged, not folded into state.
func TestConversationIDRecordedDespiteSaveFailure(t *testing.T) {
	gateway := &fakeGateway{
		streamBody: record(`{"event":"message","answer":"ok"}`) +
			record(`{"event":"message_end","conversation_id":"abc"}`),
		saveErr: errors.New("backend down"),
	}
	session := NewSession(gateway)

	session.Send(context.Background(), "hi")

	assert.Equal(t, "abc", session.ConversationID())
	transcript := session.Transcript()
	assert.Equal(t, "ok", transcript[1].Content, "message content untouched by save failure")
}

func TestStreamErrorReplacesContent(t *testing.T) {
	gateway := &fakeGateway{
		streamBody: record(`{"event":"message","answer":"partial "}`) +
			record(`{"event":"error","code":"500","message":"upstream failed"}`) +
			record(`{"event":"message","answer":"never folded"}`),
	}
	session := NewSession(gateway)

	session.Send(context.Background(), "hi")

	transcript := session.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, apologyMessage, transcript[1].Content)
	assert.Equal(t, StateIdle, session.State())
}

func TestTransportFailureWritesNetworkError(t *testing.T) {
	gateway := &fakeGateway{openErr: errors.New("connection refused")}
	session := NewSession(gateway)

	session.Send(context.Background(), "hi")

	transcript := session.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, networkErrorMessage, transcript[1].Content)
	assert.Equal(t, StateIdle, session.State())
}

func TestUnknownEventsAreIgnored(t *testing.T) {
	gateway := &fakeGateway{
		streamBody: record(`{"event":"workflow_started"}`) +
			record(`{"event":"message","answer":"hi"}`) +
			record(`{"event":"node_finished"}`) +
			record(`{"event":"message_end","conversation_id":"c"}`),
	}
	session := NewSession(gateway)

	session.Send(context.Background(), "q")

	assert.Equal(t, "hi", session.Transcript()[1].Content)
}

func TestSendWhileSendingIsNoop(t *testing.T) {
	reader, writer := io.Pipe()
	session := NewSession(&pipeGateway{reader: reader})

	done := make(chan struct{})
	go func() {
		session.Send(context.Background(), "first")
		close(done)
	}()

	waitFor(t, func() bool { return session.State() == StateSending })
	require.Equal(t, 2, session.MessageCount())

	// Second send during the stream: not queued, not errored.
	session.Send(context.Background(), "second")
	assert.Equal(t, 2, session.MessageCount())

	io.WriteString(writer, record(`{"event":"message_end","conversation_id":"c1"}`))
	writer.Close()
	<-done

	assert.Equal(t, StateIdle, session.State())
	assert.Equal(t, 2, session.MessageCount())
}

// Clear during a stream detaches the placeholder: the stream keeps folding,
// but nothing it does is observable afterwards.
func TestClearDuringStreamDetaches(t *testing.T) {
	reader, writer := io.Pipe()
	session := NewSession(&pipeGateway{reader: reader})

	done := make(chan struct{})
	go func() {
		session.Send(context.Background(), "first")
		close(done)
	}()

	io.WriteString(writer, record(`{"event":"message","answer":"early"}`))
	waitFor(t, func() bool {
		transcript := session.Transcript()
		return len(transcript) == 2 && transcript[1].Content == "early"
	})

	session.Clear()
	assert.Equal(t, 0, session.MessageCount())

	// Late folds land on the detached message.
	io.WriteString(writer, record(`{"event":"message","answer":" late"}`))
	io.WriteString(writer, record(`{"event":"message_end","conversation_id":"stale"}`))
	writer.Close()
	<-done

	assert.Equal(t, 0, session.MessageCount())
	assert.Empty(t, session.ConversationID(), "stale stream must not assign the id")
	assert.Equal(t, StateIdle, session.State())
}

func TestClearThenSendStartsFresh(t *testing.T) {
	gateway := &fakeGateway{
		streamBody: record(`{"event":"message","answer":"one"}`) +
			record(`{"event":"message_end","conversation_id":"conv-1"}`),
	}
	session := NewSession(gateway)

	session.Send(context.Background(), "first")
	require.Equal(t, "conv-1", session.ConversationID())

	session.Clear()
	assert.Empty(t, session.ConversationID())
	assert.Equal(t, 0, session.MessageCount())

	session.Send(context.Background(), "second")
	transcript := session.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "second", transcript[0].Content)
	assert.Equal(t, "one", transcript[1].Content, "no leftover content from before the clear")
}

// message_end with no prior message events is valid: the assistant message
// stays empty and the id is still recorded.
func TestMessageEndWithoutFragments(t *testing.T) {
	gateway := &fakeGateway{
		streamBody: record(`{"event":"message_end","conversation_id":"c2"}`),
	}
	session := NewSession(gateway)

	session.Send(context.Background(), "q")

	transcript := session.Transcript()
	require.Len(t, transcript, 2)
	assert.Empty(t, transcript[1].Content)
	assert.Equal(t, "c2", session.ConversationID())
	assert.Equal(t, []string{"c2"}, gateway.savedIDs())
}
