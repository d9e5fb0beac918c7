// Package controller implements the per-keystroke completion state machine:
// it buffers the current input, decides whether a change calls for a prime
// request, a completion request, or just a cancellation of in-flight work,
// accumulates streamed tokens, and tells the caller when a redraw is due.
//
// All state is guarded by a single mutex shared by the editor's callback
// goroutine and the transport worker goroutine. The generation counter is
// additionally atomic so the worker can read it without contending on that
// mutex.
package controller

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pxlapp/sqlcopilot/internal/session"
	"github.com/pxlapp/sqlcopilot/internal/sse"
)

// Mode identifies what kind of request, if any, the worker should issue for
// the current generation.
type Mode int

const (
	// ModeCancel means "tear down any in-flight request, issue nothing."
	ModeCancel Mode = iota
	// ModePrime means "max_tokens=0, warm the server's session."
	ModePrime
	// ModeCompletion means "max_tokens>0, stream a real suggestion."
	ModeCompletion
)

// DefaultPrimeThreshold is the cursor-position heuristic: completions are
// only worth issuing once the user has typed more than this many
// characters. The exact value is an arbitrary historical choice — kept as
// the default, but configurable.
const DefaultPrimeThreshold = 5

// Request is a consistent snapshot of what the worker should send, taken
// under the controller's mutex.
type Request struct {
	SessionID  string
	Prompt     string // JSON-string-escaped, ready to embed in a request body
	Mode       Mode
	Generation uint64
}

// Controller owns the input buffer, the suggestion buffer, and the priming
// state for one Session. Construct one per prompt / per schema refresh.
type Controller struct {
	mu   sync.Mutex
	cond *sync.Cond
	gen  atomic.Uint64

	sess           *session.Session
	primeThreshold int

	input         string
	text          []byte
	writtenMarker int
	mode          Mode
}

// New returns a Controller bound to sess. primeThreshold <= 0 falls back to
// DefaultPrimeThreshold.
func New(sess *session.Session, primeThreshold int) *Controller {
	if primeThreshold <= 0 {
		primeThreshold = DefaultPrimeThreshold
	}
	c := &Controller{sess: sess, primeThreshold: primeThreshold}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// isSlashCommand reports whether line, after skipping leading whitespace,
// begins with a backslash — psql's own slash-command syntax, handled by the
// editor, never by the completion engine.
func isSlashCommand(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, "\\")
}

// OnEvent is invoked by the editor's event hook on every keystroke with the
// current buffer contents and cursor position; a call with unchanged input
// is what moves a prime request on to a completion request. It returns true
// when the caller should force a redraw.
func (c *Controller) OnEvent(line string, cursorEnd int) bool {
	if isSlashCommand(line) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if line != c.input {
		c.input = line
		c.text = c.text[:0]
		c.writtenMarker = 0

		if !c.sess.Primed || cursorEnd > c.primeThreshold {
			c.sess.Primed = true
			c.mode = ModePrime
		} else {
			c.mode = ModeCancel
		}
		c.bumpLocked()
	} else if c.mode == ModePrime && cursorEnd > c.primeThreshold {
		c.mode = ModeCompletion
		c.bumpLocked()
	}

	if len(c.text) != c.writtenMarker {
		c.writtenMarker = len(c.text)
		return true
	}
	return false
}

// OnToken is invoked by the transport worker (via the SSE decoder's sink)
// for every decoded record. gen is the generation the worker was acting on
// when it made the request; if it no longer matches the controller's
// current generation the token is silently discarded as stale.
func (c *Controller) OnToken(gen uint64, ev sse.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen.Load() {
		return
	}
	if ev.Token != nil {
		c.text = append(c.text, *ev.Token...)
	}
}

// GetRequest returns a consistent snapshot for the worker to act on.
func (c *Controller) GetRequest() Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Request{
		SessionID:  c.sess.ID,
		Prompt:     escapeJSONString(c.input),
		Mode:       c.mode,
		Generation: c.gen.Load(),
	}
}

// Accept returns the accumulated suggestion, for the caller to splice into
// the editor's input line, and clears the suggestion buffer. The stored
// input is left unchanged. It does not bump the generation: accepting a
// suggestion is not itself a new intent.
func (c *Controller) Accept() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := string(c.text)
	c.text = c.text[:0]
	c.writtenMarker = 0
	return out
}

// Generation returns the current generation without blocking.
func (c *Controller) Generation() uint64 {
	return c.gen.Load()
}

// WaitForGeneration blocks until the generation differs from last, or ctx
// is done. This is the worker's "sleep on the generation condition until
// woken" step.
func (c *Controller) WaitForGeneration(ctx context.Context, last uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.gen.Load() == last {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		c.cond.Wait()
	}
	return c.gen.Load(), nil
}

// Wake unblocks any WaitForGeneration call, used to let the worker observe
// ctx cancellation promptly during shutdown even with no new generation.
func (c *Controller) Wake() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cond.Broadcast()
}

func (c *Controller) bumpLocked() {
	c.gen.Add(1)
	c.cond.Signal()
}

// escapeJSONString uses the standard library's JSON string escaping instead
// of a hand-rolled one: json.Marshal on a Go string produces the classical
// \b \f \n \r \t \" \\ and \u00XX escapes, we just strip the surrounding
// quotes it adds.
func escapeJSONString(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}
