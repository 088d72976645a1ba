package core

import (
	"testing"

	"pkt.systems/qult/schema"
)

func TestTranscriptClearForgetsPagedBlocks(t *testing.T) {
	rec := &eventRecorder{}
	tr := NewTranscript(rec.emit)
	tr.Append(Block{HTML: "<p>a</p>"})
	paged, err := tr.AppendPaged([]string{"1", "2"})
	if err != nil {
		t.Fatalf("AppendPaged: %v", err)
	}
	if _, ok := tr.Paged(paged.ID()); !ok {
		t.Fatalf("expected paged block to be tracked")
	}

	tr.Clear()
	if _, ok := tr.Paged(paged.ID()); ok {
		t.Fatalf("expected paged block to be forgotten")
	}
	if tr.Len() != 0 || rec.last().Type != schema.EventClear {
		t.Fatalf("expected empty transcript and clear event, got len=%d last=%s", tr.Len(), rec.last().Type)
	}
}

func TestTranscriptRejectsSinglePage(t *testing.T) {
	tr := NewTranscript(nil)
	if _, err := tr.AppendPaged([]string{"only"}); err == nil {
		t.Fatalf("expected a single page to be rejected")
	}
	if tr.Len() != 0 {
		t.Fatalf("expected nothing appended, got %d", tr.Len())
	}
}

func TestTranscriptSnapshot(t *testing.T) {
	tr := NewTranscript(nil)
	tr.ShowPrompt("nobody@qult>")
	tr.Append(Block{HTML: "<p>a</p>", Variant: schema.VariantSystem})
	paged, err := tr.AppendPaged([]string{"1", "2", "3"})
	if err != nil {
		t.Fatalf("AppendPaged: %v", err)
	}
	paged.Step(1)
	tr.ShowInput(schema.InputEvent{Value: "ab", Cursor: 2})

	events := tr.Snapshot()
	if len(events) != 6 {
		t.Fatalf("expected 6 snapshot events, got %d", len(events))
	}
	if events[0].Type != schema.EventClear {
		t.Fatalf("expected snapshot to start with clear, got %s", events[0].Type)
	}
	if events[1].Type != schema.EventBlock || events[1].Block.Variant != schema.VariantSystem {
		t.Fatalf("unexpected block event %+v", events[1])
	}
	if events[2].Type != schema.EventPaged || events[2].Block.Page.Index != 1 {
		t.Fatalf("expected paged block on its second page, got %+v", events[2])
	}
	if events[3].Prompt != "nobody@qult>" {
		t.Fatalf("unexpected prompt %q", events[3].Prompt)
	}
	if events[4].Mode == nil || *events[4].Mode != schema.ModeNormal {
		t.Fatalf("expected normal mode, got %+v", events[4].Mode)
	}
	if events[5].Input == nil || events[5].Input.Value != "ab" {
		t.Fatalf("unexpected input event %+v", events[5].Input)
	}
}

func TestTranscriptSuppressesUnchangedInput(t *testing.T) {
	rec := &eventRecorder{}
	tr := NewTranscript(rec.emit)
	tr.ShowInput(schema.InputEvent{Value: "a", Cursor: 1})
	tr.ShowInput(schema.InputEvent{Value: "a", Cursor: 1})
	tr.ShowPrompt("x@qult>")
	tr.ShowPrompt("x@qult>")
	if got := len(rec.all()); got != 2 {
		t.Fatalf("expected 2 events, got %d", got)
	}
}

func TestTranscriptTrimsOldBlocks(t *testing.T) {
	tr := NewTranscript(nil)
	tr.max = 2
	paged, err := tr.AppendPaged([]string{"1", "2"})
	if err != nil {
		t.Fatalf("AppendPaged: %v", err)
	}
	tr.Append(Block{HTML: "b"})
	tr.Append(Block{HTML: "c"})
	if tr.Len() != 2 {
		t.Fatalf("expected 2 blocks, got %d", tr.Len())
	}
	if _, ok := tr.Paged(paged.ID()); ok {
		t.Fatalf("expected trimmed paged block to be forgotten")
	}
}
