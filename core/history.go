package core

// History records submitted lines in order, duplicates included, with a recall
// cursor in [0, Len()]. A cursor equal to Len() means "past the newest entry".
type History struct {
	entries []string
	cursor  int
	max     int
}

// NewHistory returns an empty history bounded to max entries.
func NewHistory(max int) *History {
	if max <= 0 {
		max = defaultHistoryMax
	}
	return &History{max: max}
}

const defaultHistoryMax = 500

// Push appends a line and resets the cursor to the end.
func (h *History) Push(line string) {
	h.entries = append(h.entries, line)
	if len(h.entries) > h.max {
		h.entries = append([]string(nil), h.entries[len(h.entries)-h.max:]...)
	}
	h.cursor = len(h.entries)
}

// Step moves the cursor by direction (-1 older, +1 newer), clamped to [0, Len()].
// It returns the recalled value and whether the cursor moved; at Len() the recalled
// value is the empty string. Stepping past either end does nothing.
func (h *History) Step(direction int) (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	next := h.cursor + direction
	if next < 0 {
		next = 0
	}
	if next > len(h.entries) {
		next = len(h.entries)
	}
	if next == h.cursor {
		return "", false
	}
	h.cursor = next
	if next == len(h.entries) {
		return "", true
	}
	return h.entries[next], true
}

// Reset moves the cursor back to the end.
func (h *History) Reset() {
	h.cursor = len(h.entries)
}

func (h *History) Len() int {
	return len(h.entries)
}

func (h *History) Cursor() int {
	return h.cursor
}

// Entries returns a copy of the recorded lines, oldest first.
func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}
