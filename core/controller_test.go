package core

import (
	"reflect"
	"strings"
	"sync"
	"testing"

	"pkt.systems/qult/schema"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []schema.Event
}

func (r *eventRecorder) emit(ev schema.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) all() []schema.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]schema.Event(nil), r.events...)
}

func (r *eventRecorder) last() schema.Event {
	events := r.all()
	if len(events) == 0 {
		return schema.Event{}
	}
	return events[len(events)-1]
}

func (r *eventRecorder) ofType(typ schema.EventType) []schema.Event {
	var out []schema.Event
	for _, ev := range r.all() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (r *eventRecorder) blockHTML() []string {
	var out []string
	for _, ev := range r.ofType(schema.EventBlock) {
		out = append(out, ev.Block.HTML)
	}
	return out
}

type controllerHarness struct {
	c          *Controller
	state      *State
	transcript *Transcript
	events     *eventRecorder
	lines      []string
}

func newControllerHarness() *controllerHarness {
	h := &controllerHarness{events: &eventRecorder{}, state: NewState()}
	h.transcript = NewTranscript(h.events.emit)
	h.c = NewController(ControllerConfig{
		State:     h.state,
		History:   NewHistory(0),
		Completer: testCompleter(),
		Output:    h.transcript,
		Dispatch:  func(line string) { h.lines = append(h.lines, line) },
	})
	return h
}

func (h *controllerHarness) typeText(text string) {
	for _, r := range text {
		h.c.HandleKey(schema.Runes(string(r)))
	}
}

func (h *controllerHarness) press(kinds ...schema.KeyKind) {
	for _, kind := range kinds {
		h.c.HandleKey(schema.Key{Kind: kind})
	}
}

func (h *controllerHarness) value() string {
	value, _ := h.c.Buffer()
	return value
}

func (h *controllerHarness) expectValue(t *testing.T, want string) {
	t.Helper()
	if got := h.value(); got != want {
		t.Fatalf("buffer = %q, want %q", got, want)
	}
}

// expectRecall checks a history recall: the value is restored and the caret
// sits after its last rune.
func (h *controllerHarness) expectRecall(t *testing.T, want string) {
	t.Helper()
	value, cursor := h.c.Buffer()
	if value != want {
		t.Fatalf("recalled %q, want %q", value, want)
	}
	if n := len([]rune(want)); cursor != n {
		t.Fatalf("caret after recalling %q = %d, want %d", want, cursor, n)
	}
}

func (h *controllerHarness) expectSuggestion(t *testing.T, want string) {
	t.Helper()
	suggestion, ok := h.state.Suggestion()
	if want == "" {
		if ok {
			t.Fatalf("expected no suggestion, got %+v", suggestion)
		}
		return
	}
	if !ok || suggestion.Value != want {
		t.Fatalf("suggestion = %+v (ok=%v), want %q", suggestion, ok, want)
	}
}

func TestControllerSuggestionPreviewAndCommit(t *testing.T) {
	h := newControllerHarness()
	h.typeText("Cr")
	h.expectSuggestion(t, "Creds")
	if got := h.events.last().Input.Suggestion; got != "Creds" {
		t.Fatalf("expected input event to carry the suggestion, got %q", got)
	}

	h.press(schema.KeyTab)
	h.expectValue(t, "Creds")
	h.expectSuggestion(t, "")
}

func TestControllerSuggestionClearedOnEdit(t *testing.T) {
	h := newControllerHarness()
	h.typeText("ab")
	h.expectSuggestion(t, "about")

	h.typeText("x")
	h.expectSuggestion(t, "")

	h.press(schema.KeyBackspace)
	h.expectSuggestion(t, "about")

	// No suggestion while the caret is not at the end.
	h.press(schema.KeyLeft)
	h.expectSuggestion(t, "")
}

func TestControllerArgumentCompletion(t *testing.T) {
	h := newControllerHarness()
	h.typeText("svc sec")
	h.press(schema.KeyTab)
	h.expectValue(t, "svc security")

	h.press(schema.KeyEscape)
	h.typeText("svc ")
	h.press(schema.KeyTab)
	h.expectValue(t, "svc ")
}

func TestControllerTabCompletesTokenBeforeCaret(t *testing.T) {
	h := newControllerHarness()
	h.typeText("who")
	h.press(schema.KeyLeft, schema.KeyTab)
	if value, cursor := h.c.Buffer(); value != "whoami" || cursor != 6 {
		t.Fatalf("buffer = %q cursor %d, want whoami cursor 6", value, cursor)
	}
}

func TestControllerTabIgnoredInPasswordMode(t *testing.T) {
	h := newControllerHarness()
	h.state.EnterPasswordPrompt()
	h.typeText("ab")
	h.press(schema.KeyTab)
	h.expectValue(t, "ab")
	if !h.events.last().Input.Masked {
		t.Fatalf("expected masked input in password mode")
	}
}

func TestControllerHistoryRecall(t *testing.T) {
	h := newControllerHarness()
	for _, line := range []string{"a", "bb", "ccc"} {
		h.typeText(line)
		h.press(schema.KeyEnter)
	}
	if !reflect.DeepEqual(h.lines, []string{"a", "bb", "ccc"}) {
		t.Fatalf("unexpected dispatched lines %v", h.lines)
	}

	steps := []struct {
		key  schema.KeyKind
		want string
	}{
		{schema.KeyUp, "ccc"},
		{schema.KeyUp, "bb"},
		{schema.KeyUp, "a"},
		{schema.KeyUp, "a"},
		{schema.KeyDown, "bb"},
		{schema.KeyDown, "ccc"},
		{schema.KeyDown, ""},
	}
	for _, step := range steps {
		h.press(step.key)
		h.expectRecall(t, step.want)
	}

	// Stepping past the newest entry leaves the buffer alone.
	h.typeText("draft")
	h.press(schema.KeyDown)
	h.expectValue(t, "draft")

	h.press(schema.KeyHome, schema.KeyUp)
	h.expectRecall(t, "ccc")
}

func TestControllerSubmitEchoesAndTrims(t *testing.T) {
	h := newControllerHarness()
	h.typeText("  echo <b>  ")
	h.press(schema.KeyEnter)

	if !reflect.DeepEqual(h.lines, []string{"echo <b>"}) {
		t.Fatalf("unexpected dispatched lines %q", h.lines)
	}
	want := []string{`<p><span class="prompt-label">nobody@qult&gt;</span> echo &lt;b&gt;</p>`}
	if got := h.events.blockHTML(); !reflect.DeepEqual(got, want) {
		t.Fatalf("echo blocks = %q, want %q", got, want)
	}
	h.expectValue(t, "")
}

func TestControllerBlankSubmitIsNoOp(t *testing.T) {
	h := newControllerHarness()
	h.typeText("   ")
	h.press(schema.KeyEnter)
	if len(h.lines) != 0 || len(h.events.blockHTML()) != 0 {
		t.Fatalf("expected blank submit to do nothing, got lines=%q blocks=%q", h.lines, h.events.blockHTML())
	}
}

func TestControllerPasswordAttemptAlwaysFails(t *testing.T) {
	h := newControllerHarness()
	env := NewEnv(EnvConfig{State: h.state, Output: h.transcript, ResetInput: h.c.ClearInput})
	env.EnterPasswordPrompt()
	if h.state.Mode() != schema.ModePasswordPrompt {
		t.Fatalf("expected password mode, got %s", h.state.Mode())
	}
	modes := h.events.ofType(schema.EventMode)
	if len(modes) == 0 || *modes[0].Mode != schema.ModePasswordPrompt {
		t.Fatalf("expected a password mode event, got %+v", modes)
	}

	h.typeText("hunter2")
	h.press(schema.KeyUp)
	// History recall is disabled while masked.
	h.expectValue(t, "hunter2")
	h.press(schema.KeyEnter)

	if h.state.Mode() != schema.ModeNormal {
		t.Fatalf("expected normal mode after the attempt, got %s", h.state.Mode())
	}
	if len(h.lines) != 0 {
		t.Fatalf("password must not be dispatched, got %q", h.lines)
	}
	blocks := h.events.ofType(schema.EventBlock)
	if len(blocks) != 1 {
		t.Fatalf("expected one block, got %d", len(blocks))
	}
	if blocks[0].Block.Variant != schema.VariantError || !strings.Contains(blocks[0].Block.HTML, "Incorrect password") {
		t.Fatalf("unexpected block %+v", blocks[0].Block)
	}
	h.expectValue(t, "")
	if h.events.last().Input.Masked {
		t.Fatalf("expected input unmasked after the attempt")
	}
}

func TestControllerEscapeResets(t *testing.T) {
	h := newControllerHarness()
	h.typeText("a")
	h.press(schema.KeyEnter)
	h.press(schema.KeyUp)
	h.typeText("bo")
	h.press(schema.KeyEscape)

	h.expectValue(t, "")
	h.expectSuggestion(t, "")
	// The history cursor is back at the end.
	h.press(schema.KeyUp)
	h.expectRecall(t, "a")
}

func TestControllerPageNavigation(t *testing.T) {
	h := newControllerHarness()
	env := NewEnv(EnvConfig{State: h.state, Output: h.transcript})
	env.RenderContent("<p>1</p><hr><p>2</p><hr><p>3</p>")
	paged := h.events.ofType(schema.EventPaged)
	if len(paged) != 1 {
		t.Fatalf("expected a paged block, got %d", len(paged))
	}

	h.press(schema.KeyRight)
	pages := h.events.ofType(schema.EventPage)
	if len(pages) != 1 || pages[0].Page.Counter != "2 / 3" || !pages[0].Page.CanPrev {
		t.Fatalf("unexpected page events %+v", pages)
	}

	// A clamped step emits nothing.
	h.press(schema.KeyRight, schema.KeyRight)
	if got := len(h.events.ofType(schema.EventPage)); got != 2 {
		t.Fatalf("expected 2 page events, got %d", got)
	}

	h.press(schema.KeyLeft)
	pages = h.events.ofType(schema.EventPage)
	if got := pages[len(pages)-1].Page.Counter; got != "2 / 3" {
		t.Fatalf("expected 2 / 3, got %q", got)
	}

	h.typeText("x")
	if _, active := h.state.PageNav(); active {
		t.Fatalf("typing must exit page navigation")
	}
	h.press(schema.KeyLeft)
	if got := len(h.events.ofType(schema.EventPage)); got != 3 {
		t.Fatalf("expected Left to move the caret, got %d page events", got)
	}
	if _, cursor := h.c.Buffer(); cursor != 0 {
		t.Fatalf("expected caret at 0, got %d", cursor)
	}

	block, ok := h.transcript.Paged(paged[0].Block.ID)
	if !ok {
		t.Fatalf("expected paged block to be tracked")
	}
	h.c.ClickPage(block, -1)
	pages = h.events.ofType(schema.EventPage)
	if got := pages[len(pages)-1].Page.Counter; got != "1 / 3" {
		t.Fatalf("expected 1 / 3 after click, got %q", got)
	}
	if _, active := h.state.PageNav(); !active {
		t.Fatalf("clicking a control must re-activate page navigation")
	}
}

func TestControllerEditingKeys(t *testing.T) {
	h := newControllerHarness()
	h.typeText("echo one two")
	h.press(schema.KeyCtrlW)
	h.expectValue(t, "echo one ")
	h.press(schema.KeyCtrlA)
	h.press(schema.KeyCtrlK)
	h.expectValue(t, "")

	h.c.HandleKey(schema.Runes("paste\twith\nbreaks\x07"))
	h.expectValue(t, "paste with breaks")
	h.press(schema.KeyHome, schema.KeyDelete)
	h.expectValue(t, "aste with breaks")
	h.press(schema.KeyEnd, schema.KeyCtrlU)
	h.expectValue(t, "")
}
