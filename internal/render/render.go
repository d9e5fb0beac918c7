// Package render draws the ghost-text suggestion under the line editor's
// own redisplay: erase whatever ghost text is currently on screen, let the
// editor redraw its own input line, then if a suggestion is pending, print
// it dimmed, work out how many terminal rows it wrapped across by reading
// the cursor position back from the terminal, and return the cursor to
// where the editor left it.
package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"

	"github.com/pxlapp/sqlcopilot/internal/lineedit"
)

const (
	csiSaveCursor       = "\x1b[s"
	csiMoveToCol9999    = "\x1b[;9999H"
	csiRequestPosition  = "\x1b[6n"
	csiRestoreCursor    = "\x1b[u"
	csiDimGray          = "\x1b[90m"
	csiReset            = "\x1b[0m"
	csiClearLine        = "\x1b[2K"
	csiCursorUp         = "\x1b[A"
	csiCarriageClear    = "\x1b[2K\r"
)

// Renderer owns the terminal file descriptors and the count of rows the
// previous redraw's ghost text occupied, so the next redraw knows how much
// to erase first.
type Renderer struct {
	out   io.Writer
	in    *bufio.Reader
	outFd int

	editor lineedit.Editor

	completionLines int

	// makeRaw/restoreRaw default to golang.org/x/term's MakeRaw/Restore;
	// tests substitute no-op versions since entering raw mode requires a
	// real tty file descriptor.
	makeRaw    func(fd int) (*term.State, error)
	restoreRaw func(fd int, state *term.State) error
}

// New returns a Renderer that writes to out, reads cursor-position reports
// from in, and delegates line redraws to editor. outFd is the file
// descriptor backing out, used to enter and restore raw terminal mode.
func New(out io.Writer, in io.Reader, outFd int, editor lineedit.Editor) *Renderer {
	return &Renderer{
		out:        out,
		in:         bufio.NewReader(in),
		outFd:      outFd,
		editor:     editor,
		makeRaw:    term.MakeRaw,
		restoreRaw: term.Restore,
	}
}

// Redisplay erases any ghost text left over from the previous call,
// delegates to the line editor's own redisplay, and if suggestion is
// non-empty, prints it dimmed below/after the cursor and repositions the
// cursor back to where the editor left it.
//
// Every return path restores terminal attributes if raw mode was entered;
// a read failure while waiting for a cursor-position report aborts cleanly
// without leaving the terminal in raw mode.
func (r *Renderer) Redisplay(suggestion string) error {
	r.eraseGhostText()

	r.editor.Redisplay()

	if suggestion == "" {
		return nil
	}

	return r.drawGhostText(suggestion)
}

func (r *Renderer) eraseGhostText() {
	if r.completionLines > 0 {
		fmt.Fprintf(r.out, "\x1b[%dB", r.completionLines)
	}
	for r.completionLines > 0 {
		fmt.Fprint(r.out, csiClearLine+csiCursorUp)
		r.completionLines--
	}
	fmt.Fprint(r.out, csiCarriageClear)
	r.completionLines = 0
}

func (r *Renderer) drawGhostText(suggestion string) error {
	state, err := r.makeRaw(r.outFd)
	if err != nil {
		return fmt.Errorf("render: entering raw mode: %w", err)
	}
	defer r.restoreRaw(r.outFd, state)

	fmt.Fprint(r.out, csiSaveCursor+csiMoveToCol9999+csiRequestPosition+csiRestoreCursor+csiRequestPosition+csiDimGray)
	fmt.Fprint(r.out, suggestion)
	fmt.Fprint(r.out, csiReset+csiRequestPosition)

	var screenWidth, startCol, endRow int
	for i := 0; i < 3; i++ {
		col, row, err := r.readCursorPosition()
		if err != nil {
			// Terminal didn't answer; bail out without leaving raw mode
			// active (the deferred Restore above still runs).
			return fmt.Errorf("render: reading cursor position: %w", err)
		}
		switch i {
		case 0:
			screenWidth = col
		case 1:
			startCol = col
		case 2:
			endRow = row
		}
	}

	wrappedRows := wrappedRowCount(suggestion, screenWidth)
	targetRow := endRow - wrappedRows
	if targetRow < 1 {
		targetRow = 1
	}
	r.completionLines = endRow - targetRow

	fmt.Fprintf(r.out, "\x1b[%d;%dH", targetRow, startCol)
	return nil
}

// readCursorPosition parses one "\x1b[<row>;<col>R" cursor position report
// off r.in, byte by byte, matching the automaton the editor's own
// terminal driver uses to answer a "\x1b[6n" query.
func (r *Renderer) readCursorPosition() (col, row int, err error) {
	const (
		stateEsc = iota
		stateBracket
		stateRow
		stateCol
	)

	state := stateEsc
	for {
		b, err := r.in.ReadByte()
		if err != nil {
			return 0, 0, err
		}

		switch state {
		case stateEsc:
			if b != '\x1b' {
				return 0, 0, fmt.Errorf("render: unexpected byte %q awaiting cursor report", b)
			}
			state = stateBracket
		case stateBracket:
			if b != '[' {
				return 0, 0, fmt.Errorf("render: unexpected byte %q awaiting cursor report", b)
			}
			state = stateRow
		case stateRow:
			switch {
			case b >= '0' && b <= '9':
				row = row*10 + int(b-'0')
			case b == ';':
				state = stateCol
			default:
				return 0, 0, fmt.Errorf("render: malformed cursor report")
			}
		case stateCol:
			switch {
			case b >= '0' && b <= '9':
				col = col*10 + int(b-'0')
			case b == 'R':
				return col, row, nil
			default:
				return 0, 0, fmt.Errorf("render: malformed cursor report")
			}
		}
	}
}

// wrappedRowCount counts how many terminal rows text occupies at the given
// screen width, walking backwards the same way copilot_redisplay does:
// each run of characters since the last newline contributes
// len(run)/width extra wrapped rows, plus one row for the run itself.
func wrappedRowCount(text string, width int) int {
	if width <= 0 {
		width = 1
	}
	lines := strings.Split(text, "\n")
	rows := 0
	for _, line := range lines {
		rows += len(line) / width
	}
	rows += len(lines) - 1 // newlines themselves each start a fresh row
	return rows
}
