package lineedit

import (
	"fmt"
	"io"
)

// Simple is a minimal Editor good enough to drive a demo end-to-end: an
// append-only buffer with no cursor motion, no history, no raw-mode key
// handling. It writes its redisplay directly to out.
type Simple struct {
	out    io.Writer
	buffer []byte
}

// NewSimple returns a Simple editor that redraws to out.
func NewSimple(out io.Writer) *Simple {
	return &Simple{out: out}
}

// Line returns the buffer and a cursor always pinned to its end.
func (s *Simple) Line() (string, int) {
	return string(s.buffer), len(s.buffer)
}

// Redisplay writes a carriage return followed by the current buffer, the
// same one-line-in-place redraw a raw-mode editor does after every
// keystroke.
func (s *Simple) Redisplay() {
	fmt.Fprintf(s.out, "\r\x1b[2K> %s", s.buffer)
}

// InsertAtCursor appends text to the buffer (Simple has no cursor motion,
// so "at cursor" always means "at the end").
func (s *Simple) InsertAtCursor(text string) {
	s.buffer = append(s.buffer, text...)
}

// Reset clears the buffer, used between prompts.
func (s *Simple) Reset() {
	s.buffer = s.buffer[:0]
}
