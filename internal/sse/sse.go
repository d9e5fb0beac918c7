// Package sse decodes the line-oriented server-sent-event protocol used by
// the completion and chat endpoints: a stream of "data: {json}\r\n" records,
// each carrying zero or one token plus terminal flags.
//
// The decoder is a byte-at-a-time automaton rather than a bufio.Scanner
// split on newlines, because a record can span arbitrary chunk boundaries —
// the http.Response body may hand us "da", then "ta: {\"tok", then the rest,
// and we still need to emit exactly one Event per complete record.
package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPreamble is returned by Feed when a byte doesn't match the
// expected "data:" preamble. It's fatal for the stream: the caller should
// tear the request down, there is no way to resynchronize mid-preamble.
var ErrMalformedPreamble = errors.New("sse: malformed preamble")

// ErrDecoderClosed is returned by Feed once the decoder has already hit a
// fatal error or been closed. A Decoder is single-use; construct a new one
// per request.
var ErrDecoderClosed = errors.New("sse: decoder closed")

// Event is one decoded "data: {...}" record. Missing JSON fields decode to
// their zero values (Token stays nil, the bools stay false).
type Event struct {
	Token  *string
	Stop   bool
	Error  bool
	Cancel bool
}

// Sink receives one Event per completed record. Implementations are
// expected to be cheap and non-blocking — the decoder calls Sink
// synchronously from inside Feed.
type Sink func(Event)

type state int

const (
	statePreambleD state = iota
	statePreambleA1
	statePreambleT
	statePreambleA2
	statePreambleColon
	stateWS
	statePayload
	stateInit
)

// Decoder holds the automaton's state across calls to Feed. It is not safe
// for concurrent use.
type Decoder struct {
	state  state
	buf    bytes.Buffer
	sink   Sink
	closed bool
}

// New returns a Decoder that calls sink once per decoded record.
func New(sink Sink) *Decoder {
	return &Decoder{state: statePreambleD, sink: sink}
}

// Feed advances the automaton over chunk, one byte at a time. It may call
// sink zero or more times before returning. A malformed preamble is fatal:
// Feed returns ErrMalformedPreamble and the Decoder will refuse further
// input. A malformed JSON payload inside an otherwise well-formed record is
// not fatal — that record is silently dropped and decoding continues.
func (d *Decoder) Feed(chunk []byte) error {
	if d.closed {
		return ErrDecoderClosed
	}

	for i := 0; i < len(chunk); i++ {
		c := chunk[i]

		switch d.state {
		case statePreambleD:
			if c != 'd' {
				d.closed = true
				return ErrMalformedPreamble
			}
			d.state = statePreambleA1

		case statePreambleA1:
			if c != 'a' {
				d.closed = true
				return ErrMalformedPreamble
			}
			d.state = statePreambleT

		case statePreambleT:
			if c != 't' {
				d.closed = true
				return ErrMalformedPreamble
			}
			d.state = statePreambleA2

		case statePreambleA2:
			if c != 'a' {
				d.closed = true
				return ErrMalformedPreamble
			}
			d.state = statePreambleColon

		case statePreambleColon:
			if c != ':' {
				d.closed = true
				return ErrMalformedPreamble
			}
			d.state = stateWS

		case stateWS:
			if c == ' ' {
				continue
			}
			d.state = statePayload
			fallthrough

		case statePayload:
			if c != '\r' && c != '\n' {
				d.buf.WriteByte(c)
				continue
			}
			d.emit()
			d.buf.Reset()
			d.state = stateInit
			fallthrough

		case stateInit:
			if c != '\r' && c != '\n' {
				d.state = statePreambleD
				i--
			}
		}
	}

	return nil
}

// Close marks the decoder as finished. Feed after Close returns
// ErrDecoderClosed. Close is idempotent.
func (d *Decoder) Close() {
	d.closed = true
}

func (d *Decoder) emit() {
	var raw struct {
		Token  *string `json:"token"`
		Stop   bool    `json:"stop"`
		Error  bool    `json:"error"`
		Cancel bool    `json:"cancel"`
	}

	if err := json.Unmarshal(d.buf.Bytes(), &raw); err != nil {
		// A malformed JSON record is non-fatal: skip it and keep going.
		return
	}

	d.sink(Event{
		Token:  raw.Token,
		Stop:   raw.Stop,
		Error:  raw.Error,
		Cancel: raw.Cancel,
	})
}

// Record renders an Event back into wire form, used by the httptest
// fixtures in internal/transport's tests to build synthetic completion
// bodies without hand-assembling "data: ...\r\n" strings.
func Record(ev Event) (string, error) {
	body, err := json.Marshal(struct {
		Token  *string `json:"token,omitempty"`
		Stop   bool    `json:"stop,omitempty"`
		Error  bool    `json:"error,omitempty"`
		Cancel bool    `json:"cancel,omitempty"`
	}{Token: ev.Token, Stop: ev.Stop, Error: ev.Error, Cancel: ev.Cancel})
	if err != nil {
		return "", fmt.Errorf("marshaling sse record: %w", err)
	}
	return fmt.Sprintf("data: %s\r\n", body), nil
}
