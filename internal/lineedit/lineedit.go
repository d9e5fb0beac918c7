// Package lineedit models the line editor as a minimal external
// collaborator: the completion engine only needs to read the current
// buffer and cursor, trigger a redraw, and splice accepted text back in.
// The real interactive editing loop (raw mode key handling, history,
// word-wise motions) lives entirely outside this package.
package lineedit

// Editor is the surface internal/render needs from whatever is actually
// reading keystrokes.
type Editor interface {
	// Line returns the current buffer contents and the cursor's byte
	// offset within it.
	Line() (line string, cursor int)

	// Redisplay repaints the editor's own view of the input line. It does
	// not touch any ghost text; internal/render calls it as one step of
	// its own larger redraw.
	Redisplay()

	// InsertAtCursor splices text into the buffer at the current cursor
	// position, used when a suggestion is accepted.
	InsertAtCursor(text string)
}
