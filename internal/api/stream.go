// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
)

// =============================================================================
// STREAM DECODING
// =============================================================================

// recordSeparator is the blank line between records: two consecutive line
// terminators.
var recordSeparator = []byte("\n\n")

// dataPrefix marks a payload line. An optional single space after the colon
// is tolerated; TrimSpace on the remainder covers both forms.
var dataPrefix = []byte("data:")

// readBufferSize is the size of the chunk read buffer.
const readBufferSize = 4 * 1024

// EventReader decodes a byte stream into discrete events.
//
// Chunks arrive at arbitrary boundaries: a chunk may end mid-record, mid-line,
// or mid-UTF-8 sequence, or contain several records. Bytes are carried over
// between reads and records are only cut at the blank-line separator, so the
// decoded event sequence is identical for every chunking of the same stream.
//
// A reader is good for exactly one stream. Create a fresh one per call.
type EventReader struct {
	r       io.Reader
	scratch []byte

	// carry holds bytes after the last complete record separator.
	carry []byte

	// pending holds complete records not yet handed out.
	pending [][]byte

	eof bool
}

// NewEventReader creates a decoder over the given byte source.
func NewEventReader(r io.Reader) *EventReader {
	return &EventReader{
		r:       r,
		scratch: make([]byte, readBufferSize),
	}
}

// Next returns the next decoded event in stream order.
//
// Records whose payload cannot be parsed are dropped (logged, not fatal) and
// decoding continues. Returns io.EOF when the source is exhausted, or the
// source's own error if a read fails.
func (er *EventReader) Next() (Event, error) {
	for {
		// Drain already-framed records first.
		for len(er.pending) > 0 {
			record := er.pending[0]
			er.pending = er.pending[1:]

			if event, ok := parseRecord(record); ok {
				return event, nil
			}
		}

		if er.eof {
			// End of stream: a non-empty remainder is one final record.
			if len(er.carry) > 0 {
				record := er.carry
				er.carry = nil
				if event, ok := parseRecord(record); ok {
					return event, nil
				}
			}
			return Event{}, io.EOF
		}

		if err := er.fill(); err != nil {
			return Event{}, err
		}
	}
}

// fill reads one chunk from the source and cuts complete records out of the
// carry buffer. The trailing incomplete fragment stays buffered for the next
// chunk.
func (er *EventReader) fill() error {
	n, err := er.r.Read(er.scratch)
	if n > 0 {
		er.carry = append(er.carry, er.scratch[:n]...)

		parts := bytes.Split(er.carry, recordSeparator)
		if len(parts) > 1 {
			for _, part := range parts[:len(parts)-1] {
				er.pending = append(er.pending, part)
			}
			// bytes.Split aliases the carry buffer; copy the remainder so
			// the next append cannot overwrite pending records.
			er.carry = append([]byte(nil), parts[len(parts)-1]...)
		}
	}

	if err == io.EOF {
		er.eof = true
		return nil
	}
	return err
}

// parseRecord extracts the payload of one record and classifies it.
// Returns ok=false for records that carry no event: no data line, or a
// payload that is not valid JSON.
func parseRecord(record []byte) (Event, bool) {
	payload := recordPayload(record)
	if len(payload) == 0 {
		return Event{}, false
	}

	var parsed eventPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		log.Printf("api: dropping unparseable stream record: %v (raw: %.100s)", err, payload)
		return Event{}, false
	}

	return parsed.classify(), true
}

// recordPayload joins the data lines of a record. Lines without the data
// prefix (comments, id:, event:, retry:) are ignored. Multiple data lines in
// one record are joined with a newline.
func recordPayload(record []byte) []byte {
	var payload [][]byte

	for _, line := range bytes.Split(record, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if !bytes.HasPrefix(line, dataPrefix) {
			if len(bytes.TrimSpace(line)) > 0 {
				log.Printf("api: ignoring stream line: %.100s", line)
			}
			continue
		}
		payload = append(payload, bytes.TrimSpace(line[len(dataPrefix):]))
	}

	switch len(payload) {
	case 0:
		return nil
	case 1:
		return payload[0]
	default:
		return bytes.Join(payload, []byte("\n"))
	}
}

// =============================================================================
// STREAM HANDLE
// =============================================================================

// Stream is an open streaming chat call. The caller must Close it on every
// exit path; Close is idempotent.
type Stream struct {
	reader *EventReader
	body   io.ReadCloser
	closed bool
}

// NewStream wraps an already-open stream body in a decoding handle.
func NewStream(body io.ReadCloser) *Stream {
	return &Stream{
		reader: NewEventReader(body),
		body:   body,
	}
}

// Next returns the next event from the stream.
func (s *Stream) Next() (Event, error) {
	return s.reader.Next()
}

// Close releases the underlying response body.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
