package core

import (
	"time"

	"pkt.systems/qult/schema"
)

// Block is a plain output block as submitted to an OutputSink.
type Block struct {
	HTML    string
	Variant schema.Variant
	Scroll  schema.ScrollHint
}

// OutputSink is the rendering surface handlers write to.
type OutputSink interface {
	Append(block Block) schema.BlockID
	AppendPaged(pages []string) (*PagedBlock, error)
	ShowPage(block *PagedBlock)
	Clear()
}

// InputView mirrors the edit line: buffer, prompt label and input mode.
type InputView interface {
	ShowInput(input schema.InputEvent)
	ShowPrompt(label string)
	ShowMode(mode schema.Mode)
}

// EmitFunc receives every event a session produces.
type EmitFunc func(schema.Event)

const defaultTranscriptMax = 1000

type transcriptEntry struct {
	id      schema.BlockID
	block   Block
	paged   *PagedBlock
	emitted time.Time
}

// Transcript is the OutputSink and InputView of a session. It turns every change
// into a schema.Event and keeps enough state to replay the surface on reconnect.
type Transcript struct {
	emit    EmitFunc
	now     func() time.Time
	max     int
	nextID  schema.BlockID
	entries []transcriptEntry
	paged   map[schema.BlockID]*PagedBlock

	input  schema.InputEvent
	prompt string
	mode   schema.Mode
}

// NewTranscript returns a transcript emitting to emit. A nil emit discards events.
func NewTranscript(emit EmitFunc) *Transcript {
	if emit == nil {
		emit = func(schema.Event) {}
	}
	return &Transcript{
		emit:  emit,
		now:   time.Now,
		max:   defaultTranscriptMax,
		paged: make(map[schema.BlockID]*PagedBlock),
	}
}

// Append adds a plain block. An empty scroll hint means ScrollBottom.
func (t *Transcript) Append(block Block) schema.BlockID {
	if block.Scroll == "" {
		block.Scroll = schema.ScrollBottom
	}
	t.nextID++
	id := t.nextID
	entry := transcriptEntry{id: id, block: block, emitted: t.now()}
	t.push(entry)
	t.send(schema.Event{Type: schema.EventBlock, Block: blockEvent(entry), Timestamp: entry.emitted})
	return id
}

// AppendPaged adds a paged block showing its first page. Pages must hold at least
// two entries.
func (t *Transcript) AppendPaged(pages []string) (*PagedBlock, error) {
	paged, err := newPagedBlock(t.nextID+1, pages)
	if err != nil {
		return nil, err
	}
	t.nextID++
	entry := transcriptEntry{
		id:      paged.ID(),
		block:   Block{Scroll: schema.ScrollAfterImages},
		paged:   paged,
		emitted: t.now(),
	}
	t.push(entry)
	t.paged[paged.ID()] = paged
	t.send(schema.Event{Type: schema.EventPaged, Block: blockEvent(entry), Timestamp: entry.emitted})
	return paged, nil
}

// ShowPage publishes the visible page of block.
func (t *Transcript) ShowPage(block *PagedBlock) {
	if block == nil {
		return
	}
	page := block.PageEvent()
	t.send(schema.Event{Type: schema.EventPage, Page: &page, Timestamp: t.now()})
}

// Clear wipes the surface and forgets every tracked paged block.
func (t *Transcript) Clear() {
	t.entries = nil
	t.paged = make(map[schema.BlockID]*PagedBlock)
	t.send(schema.Event{Type: schema.EventClear, Timestamp: t.now()})
}

// Paged looks up a tracked paged block.
func (t *Transcript) Paged(id schema.BlockID) (*PagedBlock, bool) {
	block, ok := t.paged[id]
	return block, ok
}

// Len returns the number of blocks on the surface.
func (t *Transcript) Len() int {
	return len(t.entries)
}

func (t *Transcript) ShowInput(input schema.InputEvent) {
	if input == t.input {
		return
	}
	t.input = input
	t.send(schema.Event{Type: schema.EventInput, Input: &input, Timestamp: t.now()})
}

func (t *Transcript) ShowPrompt(label string) {
	if label == t.prompt {
		return
	}
	t.prompt = label
	t.send(schema.Event{Type: schema.EventPrompt, Prompt: label, Timestamp: t.now()})
}

func (t *Transcript) ShowMode(mode schema.Mode) {
	if mode == t.mode {
		return
	}
	t.mode = mode
	m := mode
	t.send(schema.Event{Type: schema.EventMode, Mode: &m, Timestamp: t.now()})
}

// Snapshot returns the events that rebuild the current surface from scratch:
// a clear, every block with its visible page, then prompt, mode and input.
func (t *Transcript) Snapshot() []schema.Event {
	now := t.now()
	events := make([]schema.Event, 0, len(t.entries)+4)
	events = append(events, schema.Event{Type: schema.EventClear, Timestamp: now})
	for _, entry := range t.entries {
		typ := schema.EventBlock
		if entry.paged != nil {
			typ = schema.EventPaged
		}
		events = append(events, schema.Event{Type: typ, Block: blockEvent(entry), Timestamp: entry.emitted})
	}
	mode := t.mode
	input := t.input
	events = append(events,
		schema.Event{Type: schema.EventPrompt, Prompt: t.prompt, Timestamp: now},
		schema.Event{Type: schema.EventMode, Mode: &mode, Timestamp: now},
		schema.Event{Type: schema.EventInput, Input: &input, Timestamp: now},
	)
	return events
}

func (t *Transcript) push(entry transcriptEntry) {
	t.entries = append(t.entries, entry)
	if t.max > 0 && len(t.entries) > t.max {
		trim := len(t.entries) - t.max
		for _, dropped := range t.entries[:trim] {
			if dropped.paged != nil {
				delete(t.paged, dropped.id)
			}
		}
		t.entries = append([]transcriptEntry(nil), t.entries[trim:]...)
	}
}

func (t *Transcript) send(event schema.Event) {
	t.emit(event)
}

func blockEvent(entry transcriptEntry) *schema.BlockEvent {
	ev := &schema.BlockEvent{
		ID:      entry.id,
		HTML:    entry.block.HTML,
		Variant: entry.block.Variant,
		Scroll:  entry.block.Scroll,
	}
	if entry.paged != nil {
		page := entry.paged.PageEvent()
		ev.Pages = entry.paged.Pages()
		ev.Page = &page
	}
	return ev
}
