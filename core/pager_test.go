package core

import (
	"reflect"
	"testing"

	"pkt.systems/qult/schema"
)

func TestSplitPages(t *testing.T) {
	pages := SplitPages("<p>one</p>\n<hr>\n<p>two</p><HR class=\"x\"/>  <p>three</p>")
	if want := []string{"<p>one</p>", "<p>two</p>", "<p>three</p>"}; !reflect.DeepEqual(pages, want) {
		t.Fatalf("SplitPages = %q, want %q", pages, want)
	}
	if pages := SplitPages("<hr><p>solo</p><hr/>"); !reflect.DeepEqual(pages, []string{"<p>solo</p>"}) {
		t.Fatalf("expected empty segments dropped, got %q", pages)
	}
	if pages := SplitPages("<hr>  <hr>"); len(pages) != 0 {
		t.Fatalf("expected no pages, got %q", pages)
	}
	cases := map[string]bool{
		"<p>hrm</p>": false,
		"<hr />":     true,
		"<hreflang>": false,
	}
	for fragment, want := range cases {
		if got := HasPageBreak(fragment); got != want {
			t.Fatalf("HasPageBreak(%q) = %v, want %v", fragment, got, want)
		}
	}
}

func TestPagedBlockSteps(t *testing.T) {
	if _, err := newPagedBlock(1, []string{"only"}); err == nil {
		t.Fatalf("expected a single page to be rejected")
	}

	block, err := newPagedBlock(7, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("newPagedBlock: %v", err)
	}
	if block.Counter() != "1 / 3" || block.CanPrev() || !block.CanNext() {
		t.Fatalf("unexpected initial state %+v", block.PageEvent())
	}

	steps := []struct {
		direction int
		moved     bool
	}{{-1, false}, {1, true}, {1, true}, {1, false}}
	for i, step := range steps {
		if got := block.Step(step.direction); got != step.moved {
			t.Fatalf("step %d (%+d) moved = %v, want %v", i, step.direction, got, step.moved)
		}
	}
	if block.Active() != 2 {
		t.Fatalf("expected last page active, got %d", block.Active())
	}
	want := schema.PageEvent{
		Block:   7,
		Index:   2,
		Count:   3,
		Counter: "3 / 3",
		CanPrev: true,
		CanNext: false,
	}
	if got := block.PageEvent(); got != want {
		t.Fatalf("PageEvent = %+v, want %+v", got, want)
	}
}

func TestRenderContentPaginates(t *testing.T) {
	rec := &eventRecorder{}
	tr := NewTranscript(rec.emit)
	state := NewState()
	env := NewEnv(EnvConfig{State: state, Output: tr})

	env.RenderContent("<p>plain</p>")
	if last := rec.last(); last.Type != schema.EventBlock || last.Block.Scroll != schema.ScrollBlockTop {
		t.Fatalf("expected plain block scrolled to top, got %+v", last)
	}
	if _, active := state.PageNav(); active {
		t.Fatalf("plain content must not enter page navigation")
	}

	env.RenderContent("<hr><p>single</p>")
	if last := rec.last(); last.Block.HTML != "<hr><p>single</p>" || last.Block.Scroll != schema.ScrollBottom {
		t.Fatalf("expected single page rendered as is, got %+v", last.Block)
	}

	before := len(rec.all())
	env.RenderContent("")
	if got := len(rec.all()); got != before {
		t.Fatalf("empty fragments render nothing, got %d new events", got-before)
	}

	env.RenderContent("<p>1</p><hr><p>2</p><hr><p>3</p>")
	ev := rec.last()
	if ev.Type != schema.EventPaged || len(ev.Block.Pages) != 3 {
		t.Fatalf("expected three-page block, got %+v", ev)
	}
	if ev.Block.Page.Counter != "1 / 3" || ev.Block.Scroll != schema.ScrollAfterImages {
		t.Fatalf("unexpected paged block %+v", ev.Block)
	}
	nav, active := state.PageNav()
	if !active || nav.ID() != ev.Block.ID {
		t.Fatalf("expected block %d to be the page-nav target", ev.Block.ID)
	}
}
