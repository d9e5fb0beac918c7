package lineedit

// Mock is a test-only Editor that records every call instead of touching a
// real terminal, used by internal/render's tests.
type Mock struct {
	LineText    string
	CursorPos   int
	Redraws     int
	Insertions  []string
}

func (m *Mock) Line() (string, int) { return m.LineText, m.CursorPos }

func (m *Mock) Redisplay() { m.Redraws++ }

func (m *Mock) InsertAtCursor(text string) {
	m.Insertions = append(m.Insertions, text)
	m.LineText = m.LineText[:m.CursorPos] + text + m.LineText[m.CursorPos:]
	m.CursorPos += len(text)
}
