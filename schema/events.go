package schema

import "time"

// EventType identifies a session event payload.
type EventType string

const (
	// EventBlock carries a new plain output block.
	EventBlock EventType = "block"
	// EventPaged carries a new paged output block.
	EventPaged EventType = "paged"
	// EventPage carries the new active page of a paged block.
	EventPage EventType = "page"
	// EventClear wipes the output surface.
	EventClear EventType = "clear"
	// EventInput carries the edit buffer state.
	EventInput EventType = "input"
	// EventPrompt carries a refreshed prompt label.
	EventPrompt EventType = "prompt"
	// EventMode carries an input mode change.
	EventMode EventType = "mode"
)

// Event is emitted by a session to its surfaces.
type Event struct {
	Seq       uint64      `json:"seq,omitempty"`
	Type      EventType   `json:"type"`
	Block     *BlockEvent `json:"block,omitempty"`
	Page      *PageEvent  `json:"page,omitempty"`
	Input     *InputEvent `json:"input,omitempty"`
	Prompt    string      `json:"prompt,omitempty"`
	Mode      *Mode       `json:"mode,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// BlockEvent describes an output block. Pages is set for paged blocks only.
type BlockEvent struct {
	ID      BlockID    `json:"id"`
	HTML    string     `json:"html,omitempty"`
	Pages   []string   `json:"pages,omitempty"`
	Variant Variant    `json:"variant,omitempty"`
	Scroll  ScrollHint `json:"scroll,omitempty"`
	Page    *PageEvent `json:"page,omitempty"`
}

// PageEvent describes the visible page of a paged block.
type PageEvent struct {
	Block   BlockID `json:"block"`
	Index   int     `json:"index"`
	Count   int     `json:"count"`
	Counter string  `json:"counter"`
	CanPrev bool    `json:"can_prev"`
	CanNext bool    `json:"can_next"`
}

// InputEvent describes the edit buffer. Suggestion is the pending completion, if any.
type InputEvent struct {
	Value      string `json:"value"`
	Cursor     int    `json:"cursor"`
	Masked     bool   `json:"masked,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}
