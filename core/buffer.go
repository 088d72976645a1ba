package core

// LineBuffer is a single-line edit buffer with a rune cursor.
// Mutating methods report whether the buffer content changed.
type LineBuffer struct {
	buf    []rune
	cursor int
}

func (e *LineBuffer) String() string {
	return string(e.buf)
}

// Len returns the buffer length in runes.
func (e *LineBuffer) Len() int {
	return len(e.buf)
}

// Cursor returns the caret offset in runes.
func (e *LineBuffer) Cursor() int {
	return e.cursor
}

// AtEnd reports whether the caret sits after the last rune.
func (e *LineBuffer) AtEnd() bool {
	return e.cursor == len(e.buf)
}

// BeforeCursor returns the text left of the caret.
func (e *LineBuffer) BeforeCursor() string {
	return string(e.buf[:e.cursor])
}

func (e *LineBuffer) Clear() bool {
	changed := len(e.buf) > 0
	e.buf = nil
	e.cursor = 0
	return changed
}

// SetString replaces the content and places the caret at the end.
func (e *LineBuffer) SetString(value string) {
	e.Set(value, -1)
}

// Set replaces the content and places the caret at cursor; a cursor outside the
// buffer is clamped to the end.
func (e *LineBuffer) Set(value string, cursor int) {
	if value == "" {
		e.buf = nil
		e.cursor = 0
		return
	}
	e.buf = []rune(value)
	if cursor < 0 || cursor > len(e.buf) {
		cursor = len(e.buf)
	}
	e.cursor = cursor
}

// Insert inserts text at the caret.
func (e *LineBuffer) Insert(text string) bool {
	if text == "" {
		return false
	}
	e.clampCursor()
	runes := []rune(text)
	next := make([]rune, 0, len(e.buf)+len(runes))
	next = append(next, e.buf[:e.cursor]...)
	next = append(next, runes...)
	next = append(next, e.buf[e.cursor:]...)
	e.buf = next
	e.cursor += len(runes)
	return true
}

func (e *LineBuffer) Backspace() bool {
	if e.cursor <= 0 {
		return false
	}
	e.buf = append(e.buf[:e.cursor-1], e.buf[e.cursor:]...)
	e.cursor--
	return true
}

func (e *LineBuffer) Delete() bool {
	if e.cursor < 0 || e.cursor >= len(e.buf) {
		return false
	}
	e.buf = append(e.buf[:e.cursor], e.buf[e.cursor+1:]...)
	return true
}

func (e *LineBuffer) MoveLeft() bool {
	if e.cursor > 0 {
		e.cursor--
		return true
	}
	return false
}

func (e *LineBuffer) MoveRight() bool {
	if e.cursor < len(e.buf) {
		e.cursor++
		return true
	}
	return false
}

func (e *LineBuffer) MoveStart() {
	e.cursor = 0
}

func (e *LineBuffer) MoveEnd() {
	e.cursor = len(e.buf)
}

// DeleteWordBackward removes the word left of the caret, including trailing blanks.
func (e *LineBuffer) DeleteWordBackward() bool {
	if e.cursor <= 0 {
		return false
	}
	start := e.cursor
	for start > 0 && isBlank(e.buf[start-1]) {
		start--
	}
	for start > 0 && !isBlank(e.buf[start-1]) {
		start--
	}
	e.buf = append(e.buf[:start], e.buf[e.cursor:]...)
	e.cursor = start
	return true
}

// KillToStart removes everything left of the caret.
func (e *LineBuffer) KillToStart() bool {
	if e.cursor <= 0 {
		return false
	}
	e.buf = append([]rune(nil), e.buf[e.cursor:]...)
	e.cursor = 0
	return true
}

// KillToEnd removes everything right of the caret.
func (e *LineBuffer) KillToEnd() bool {
	if e.cursor >= len(e.buf) {
		return false
	}
	e.buf = e.buf[:e.cursor]
	return true
}

func (e *LineBuffer) clampCursor() {
	if e.cursor < 0 {
		e.cursor = 0
	}
	if e.cursor > len(e.buf) {
		e.cursor = len(e.buf)
	}
}

func isBlank(r rune) bool {
	return r == ' ' || r == '\t'
}
