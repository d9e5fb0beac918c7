package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"

	"github.com/pxlapp/sqlcopilot/internal/lineedit"
)

func noopRaw(fd int) (*term.State, error)        { return &term.State{}, nil }
func noopRestore(fd int, state *term.State) error { return nil }

func newTestRenderer(out *bytes.Buffer, in *bytes.Buffer, editor lineedit.Editor) *Renderer {
	r := New(out, in, 0, editor)
	r.makeRaw = noopRaw
	r.restoreRaw = noopRestore
	return r
}

// cursorReport builds the wire form of a "\x1b[<row>;<col>R" report.
func cursorReport(row, col int) string {
	return "\x1b[" + itoa(row) + ";" + itoa(col) + "R"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestRedisplay_EmptySuggestionOnlyRedrawsEditorLine(t *testing.T) {
	out := &bytes.Buffer{}
	editor := &lineedit.Mock{LineText: "SELECT", CursorPos: 6}
	r := newTestRenderer(out, &bytes.Buffer{}, editor)

	require.NoError(t, r.Redisplay(""))
	assert.Equal(t, 1, editor.Redraws)
	assert.Equal(t, 0, r.completionLines)
}

func TestRedisplay_SuggestionDrawsGhostTextAndRepositionsCursor(t *testing.T) {
	out := &bytes.Buffer{}
	in := &bytes.Buffer{}
	// screen width 80, start col 7 (after "SELECT"), end row 3 after
	// printing a one-line suggestion.
	in.WriteString(cursorReport(1, 80))
	in.WriteString(cursorReport(3, 7))
	in.WriteString(cursorReport(3, 19))

	editor := &lineedit.Mock{LineText: "SELECT", CursorPos: 6}
	r := newTestRenderer(out, in, editor)

	require.NoError(t, r.Redisplay(" * FROM users"))

	assert.Equal(t, 1, editor.Redraws)
	assert.Contains(t, out.String(), " * FROM users")
	assert.Contains(t, out.String(), "\x1b[90m") // dim gray
	assert.Contains(t, out.String(), "\x1b[3;7H")
	assert.Equal(t, 0, r.completionLines) // single-line suggestion wraps 0 extra rows
}

func TestRedisplay_WrappedSuggestionTracksCompletionLines(t *testing.T) {
	out := &bytes.Buffer{}
	in := &bytes.Buffer{}
	// screen width 10; a 25-char suggestion wraps across multiple rows,
	// so endRow ends up well past startRow.
	in.WriteString(cursorReport(1, 10))
	in.WriteString(cursorReport(5, 7))
	in.WriteString(cursorReport(8, 5))

	editor := &lineedit.Mock{LineText: "SELECT", CursorPos: 6}
	r := newTestRenderer(out, in, editor)

	require.NoError(t, r.Redisplay(strings.Repeat("x", 25)))
	assert.Greater(t, r.completionLines, 0)
}

func TestRedisplay_SecondCallErasesPreviousGhostText(t *testing.T) {
	out := &bytes.Buffer{}
	in := &bytes.Buffer{}
	in.WriteString(cursorReport(1, 80))
	in.WriteString(cursorReport(3, 7))
	in.WriteString(cursorReport(3, 19))

	editor := &lineedit.Mock{LineText: "SELECT", CursorPos: 6}
	r := newTestRenderer(out, in, editor)
	require.NoError(t, r.Redisplay(" * FROM users"))

	out.Reset()
	require.NoError(t, r.Redisplay(""))
	assert.Contains(t, out.String(), "\x1b[2K")
}

func TestRedisplay_CursorReadFailureReturnsErrorWithoutPanicking(t *testing.T) {
	out := &bytes.Buffer{}
	in := &bytes.Buffer{} // empty: reading a cursor report hits EOF immediately

	editor := &lineedit.Mock{LineText: "SELECT", CursorPos: 6}
	r := newTestRenderer(out, in, editor)

	err := r.Redisplay("suggestion")
	assert.Error(t, err)
}
