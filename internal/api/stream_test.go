// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader yields at most size bytes per Read, forcing the decoder to see
// arbitrary chunk boundaries, including mid-record and mid-UTF-8 splits.
type chunkReader struct {
	data []byte
	size int
	pos  int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := r.size
	if n > len(p) {
		n = len(p)
	}
	if r.pos+n > len(r.data) {
		n = len(r.data) - r.pos
	}
	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	return n, nil
}

// drain reads every event until EOF.
func drain(t *testing.T, r io.Reader) []Event {
	t.Helper()
	reader := NewEventReader(r)
	var events []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		events = append(events, event)
	}
}

func TestDecodeSingleMessage(t *testing.T) {
	input := "data: {\"event\":\"message\",\"answer\":\"Hi\",\"conversation_id\":\"c1\"}\n\n"

	events := drain(t, strings.NewReader(input))

	require.Len(t, events, 1)
	assert.Equal(t, EventMessage, events[0].Kind)
	assert.Equal(t, "Hi", events[0].Answer)
	assert.Equal(t, "c1", events[0].ConversationID)
}

func TestDecodePrefixWithoutSpace(t *testing.T) {
	input := "data:{\"event\":\"message\",\"answer\":\"Hi\"}\n\n"

	events := drain(t, strings.NewReader(input))

	require.Len(t, events, 1)
	assert.Equal(t, "Hi", events[0].Answer)
}

func TestDecodeEventSequence(t *testing.T) {
	input := "data: {\"event\":\"message\",\"answer\":\"He\"}\n\n" +
		"data: {\"event\":\"message\",\"answer\":\"llo\"}\n\n" +
		"data: {\"event\":\"workflow_finished\"}\n\n" +
		"data: {\"event\":\"message_end\",\"conversation_id\":\"abc\",\"metadata\":{\"usage\":1}}\n\n"

	events := drain(t, strings.NewReader(input))

	require.Len(t, events, 4)
	assert.Equal(t, "He", events[0].Answer)
	assert.Equal(t, "llo", events[1].Answer)
	assert.Equal(t, EventOther, events[2].Kind)
	assert.Equal(t, "workflow_finished", events[2].RawEvent)
	assert.Equal(t, EventMessageEnd, events[3].Kind)
	assert.Equal(t, "abc", events[3].ConversationID)
	assert.NotNil(t, events[3].Metadata)
}

// A record that fails to parse is dropped; its neighbors still decode.
func TestDecodeMalformedRecordBetweenValidOnes(t *testing.T) {
	input := "data: {\"event\":\"message\",\"answer\":\"a\"}\n\n" +
		"data: {not json at all\n\n" +
		"data: {\"event\":\"message\",\"answer\":\"b\"}\n\n"

	events := drain(t, strings.NewReader(input))

	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Answer)
	assert.Equal(t, "b", events[1].Answer)
}

// Lines without the data prefix carry no payload and never abort decoding.
func TestDecodeIgnoresNonDataLines(t *testing.T) {
	input := ": keepalive comment\n\n" +
		"id: 7\nretry: 100\ndata: {\"event\":\"message\",\"answer\":\"x\"}\n\n" +
		"event: ping\n\n"

	events := drain(t, strings.NewReader(input))

	require.Len(t, events, 1)
	assert.Equal(t, "x", events[0].Answer)
}

// A stream truncated without a trailing separator still yields its last
// record: the non-empty remainder at EOF is one final record.
func TestDecodeTrailingRecordWithoutSeparator(t *testing.T) {
	input := "data: {\"event\":\"message\",\"answer\":\"a\"}\n\n" +
		"data: {\"event\":\"message_end\",\"conversation_id\":\"z9\"}"

	events := drain(t, strings.NewReader(input))

	require.Len(t, events, 2)
	assert.Equal(t, EventMessageEnd, events[1].Kind)
	assert.Equal(t, "z9", events[1].ConversationID)
}

func TestDecodeErrorEvent(t *testing.T) {
	input := "data: {\"event\":\"error\",\"code\":\"rate_limited\",\"message\":\"slow down\"}\n\n"

	events := drain(t, strings.NewReader(input))

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Kind)
	assert.True(t, events[0].IsTerminal())
	assert.Equal(t, "rate_limited", events[0].ErrorCode)
	assert.Equal(t, "slow down", events[0].ErrorMessage)
}

func TestDecodeCRLFLines(t *testing.T) {
	input := "data: {\"event\":\"message\",\"answer\":\"hi\"}\r\n\ndata: {\"event\":\"message\",\"answer\":\"там\"}\r\n\n"

	events := drain(t, strings.NewReader(input))

	require.Len(t, events, 2)
	assert.Equal(t, "hi", events[0].Answer)
	assert.Equal(t, "там", events[1].Answer)
}

// For every byte chunking of the same stream, including splits inside
// multi-byte UTF-8 sequences, the decoded event sequence is identical.
func TestDecodeChunkingInvariance(t *testing.T) {
	input := []byte("data: {\"event\":\"message\",\"answer\":\"héllo \"}\n\n" +
		"data: {\"event\":\"message\",\"answer\":\"wörld 世界\"}\n\n" +
		"data: {\"event\":\"message_end\",\"conversation_id\":\"conv-7\"}\n\n")

	want := drain(t, &chunkReader{data: input, size: len(input)})
	require.Len(t, want, 3)

	for size := 1; size < len(input); size++ {
		got := drain(t, &chunkReader{data: input, size: size})
		require.Equal(t, want, got, "chunk size %d", size)
	}
}

func TestDecodeEmptyStream(t *testing.T) {
	events := drain(t, strings.NewReader(""))
	assert.Empty(t, events)
}

func TestDecodeBlankRecords(t *testing.T) {
	events := drain(t, strings.NewReader("\n\n\n\n\n\n"))
	assert.Empty(t, events)
}
