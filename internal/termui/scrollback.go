package termui

import "pkt.systems/qult/schema"

// view is a snapshot of the scrollback's visible state.
type view struct {
	Lines        []string
	TotalLines   int
	ScrollOffset int
	AtBottom     bool
}

const defaultMaxBlocks = 1000

// entry is one output block and its rendered lines.
type entry struct {
	block schema.BlockEvent
	lines []string
}

// scrollback stores rendered output blocks and scroll state.
// scrollOffset is the number of lines from the bottom; 0 means at bottom.
type scrollback struct {
	entries      []*entry
	index        map[schema.BlockID]*entry
	flat         []string
	dirty        bool
	scrollOffset int
	maxBlocks    int
}

func newScrollback(maxBlocks int) *scrollback {
	if maxBlocks <= 0 {
		maxBlocks = defaultMaxBlocks
	}
	return &scrollback{index: make(map[schema.BlockID]*entry), maxBlocks: maxBlocks}
}

// Put appends a block, or replaces the lines of a block already present. If
// the view is scrolled up, appends increase the scroll offset to keep the view
// anchored.
func (b *scrollback) Put(block schema.BlockEvent, lines []string) {
	if e, ok := b.index[block.ID]; ok {
		e.block = block
		e.lines = lines
		b.dirty = true
		return
	}
	e := &entry{block: block, lines: lines}
	b.entries = append(b.entries, e)
	b.index[block.ID] = e
	b.dirty = true
	if b.scrollOffset > 0 {
		b.scrollOffset += len(lines)
	}
	if len(b.entries) > b.maxBlocks {
		trim := len(b.entries) - b.maxBlocks
		for _, old := range b.entries[:trim] {
			delete(b.index, old.block.ID)
		}
		b.entries = append([]*entry(nil), b.entries[trim:]...)
		if total := len(b.all()); b.scrollOffset > total {
			b.scrollOffset = total
		}
	}
}

// Get returns the block with id.
func (b *scrollback) Get(id schema.BlockID) (*entry, bool) {
	e, ok := b.index[id]
	return e, ok
}

// Last returns the newest block.
func (b *scrollback) Last() (*entry, bool) {
	if len(b.entries) == 0 {
		return nil, false
	}
	return b.entries[len(b.entries)-1], true
}

// Each visits blocks oldest first; fn returns the block's new lines.
func (b *scrollback) Each(fn func(*entry) []string) {
	for _, e := range b.entries {
		e.lines = fn(e)
	}
	b.dirty = true
}

// Clear drops every block.
func (b *scrollback) Clear() {
	b.entries = nil
	b.index = make(map[schema.BlockID]*entry)
	b.flat = nil
	b.dirty = false
	b.scrollOffset = 0
}

// Len reports the number of blocks held.
func (b *scrollback) Len() int {
	return len(b.entries)
}

// ResetScroll returns the view to the bottom.
func (b *scrollback) ResetScroll() {
	b.scrollOffset = 0
}

// Scroll adjusts the scroll offset by delta. Positive delta scrolls up (older lines),
// negative delta scrolls down. Limit is the viewport height.
func (b *scrollback) Scroll(delta, limit int) {
	b.scrollOffset = clampScroll(b.scrollOffset+delta, len(b.all()), limit)
}

// ScrollToBlock positions the view so the block's first line is at the top of
// the viewport, or as close as the scrollback allows.
func (b *scrollback) ScrollToBlock(id schema.BlockID, limit int) {
	start := 0
	found := false
	for _, e := range b.entries {
		if e.block.ID == id {
			found = true
			break
		}
		start += len(e.lines)
	}
	if !found {
		return
	}
	total := len(b.all())
	b.scrollOffset = clampScroll(total-start-limit, total, limit)
}

// Snapshot returns a view of the scrollback for the given viewport limit.
func (b *scrollback) Snapshot(limit int) view {
	lines := b.all()
	total := len(lines)
	if limit <= 0 || limit > total {
		limit = total
	}

	maxScroll := maxScroll(total, limit)
	if b.scrollOffset > maxScroll {
		b.scrollOffset = maxScroll
	}

	end := total - b.scrollOffset
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	visible := make([]string, end-start)
	copy(visible, lines[start:end])

	return view{
		Lines:        visible,
		TotalLines:   total,
		ScrollOffset: b.scrollOffset,
		AtBottom:     b.scrollOffset == 0,
	}
}

func (b *scrollback) all() []string {
	if !b.dirty {
		return b.flat
	}
	b.flat = b.flat[:0]
	for _, e := range b.entries {
		b.flat = append(b.flat, e.lines...)
	}
	b.dirty = false
	return b.flat
}

func maxScroll(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	if total <= limit {
		return 0
	}
	return total - limit
}

func clampScroll(offset, total, limit int) int {
	max := maxScroll(total, limit)
	if offset < 0 {
		return 0
	}
	if offset > max {
		return max
	}
	return offset
}
