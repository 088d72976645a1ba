package core

import (
	"context"
	"errors"
	"testing"
	"reflect"
	"time"

	"pkt.systems/qult/schema"
)

type stubRouter struct {
	delays  map[string]time.Duration
	welcome string
}

func (r stubRouter) Welcome(ctx context.Context, env *Env) {
	if r.welcome != "" {
		env.Output.Append(Block{HTML: r.welcome})
	}
}

func (r stubRouter) Route(ctx context.Context, env *Env, line string) {
	delay, ok := r.delays[line]
	if !ok {
		env.Output.Append(Block{HTML: "out:" + line})
		return
	}
	env.Await(ctx, func(ctx context.Context) (string, error) {
		select {
		case <-time.After(delay):
			return "out:" + line, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}, func(value string, err error) {
		if err != nil {
			return
		}
		env.Output.Append(Block{HTML: value})
	})
}

func newTestSession(t *testing.T, router Router) (*Session, *eventRecorder) {
	t.Helper()
	rec := &eventRecorder{}
	s, err := NewSession(context.Background(), SessionConfig{
		ID:        "s-test",
		Shell:     schema.ShellConfig{Latency: 0},
		Router:    router,
		Completer: testCompleter(),
		Emit:      rec.emit,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Close)
	return s, rec
}

func submit(t *testing.T, s *Session, line string) {
	t.Helper()
	keys := make([]schema.Key, 0, len(line)+1)
	for _, r := range line {
		keys = append(keys, schema.Runes(string(r)))
	}
	keys = append(keys, schema.Key{Kind: schema.KeyEnter})
	for _, key := range keys {
		if err := s.HandleKey(key); err != nil {
			t.Fatalf("HandleKey(%+v): %v", key, err)
		}
	}
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitIdle(t *testing.T, s *Session) {
	t.Helper()
	waitFor(t, 3*time.Second, "idle session", func() bool {
		idle, err := s.Idle(context.Background())
		return err == nil && idle
	})
}

func outputs(rec *eventRecorder) []string {
	var out []string
	for _, html := range rec.blockHTML() {
		if len(html) > 4 && html[:4] == "out:" {
			out = append(out, html)
		}
	}
	return out
}

func TestSessionWelcomeAndPrompt(t *testing.T) {
	s, rec := newTestSession(t, stubRouter{welcome: "<p>hi</p>"})
	waitIdle(t, s)
	prompts := rec.ofType(schema.EventPrompt)
	if len(prompts) == 0 || prompts[0].Prompt != "nobody@qult>" {
		t.Fatalf("expected initial prompt, got %+v", prompts)
	}
	if got := rec.blockHTML(); !reflect.DeepEqual(got, []string{"<p>hi</p>"}) {
		t.Fatalf("expected welcome block, got %q", got)
	}
}

func TestSessionSequencesSubmissions(t *testing.T) {
	s, rec := newTestSession(t, stubRouter{delays: map[string]time.Duration{"slow": 80 * time.Millisecond}})
	submit(t, s, "slow")
	submit(t, s, "fast")
	waitIdle(t, s)

	if got := outputs(rec); !reflect.DeepEqual(got, []string{"out:slow", "out:fast"}) {
		t.Fatalf("expected output in submission order, got %q", got)
	}
	echoes := 0
	for _, html := range rec.blockHTML() {
		if html != "out:slow" && html != "out:fast" {
			echoes++
		}
	}
	if echoes != 2 {
		t.Fatalf("expected 2 command echoes, got %d", echoes)
	}
}

func TestSessionKeysNotBlockedByRunningJob(t *testing.T) {
	s, _ := newTestSession(t, stubRouter{delays: map[string]time.Duration{"slow": 200 * time.Millisecond}})
	submit(t, s, "slow")
	if err := s.HandleKey(schema.Runes("x")); err != nil {
		t.Fatalf("HandleKey: %v", err)
	}

	var value string
	if err := s.Do(context.Background(), func() { value, _ = s.controller.Buffer() }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if value != "x" {
		t.Fatalf("expected typed key applied while the job runs, got %q", value)
	}
	idle, err := s.Idle(context.Background())
	if err != nil {
		t.Fatalf("Idle: %v", err)
	}
	if idle {
		t.Fatalf("expected the slow job to still be running")
	}
}

func TestSessionSnapshotReflectsSurface(t *testing.T) {
	s, _ := newTestSession(t, stubRouter{})
	submit(t, s, "one")
	waitIdle(t, s)

	events, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(events) == 0 || events[0].Type != schema.EventClear {
		t.Fatalf("expected snapshot to start with clear, got %+v", events)
	}
	var html []string
	for _, ev := range events {
		if ev.Type == schema.EventBlock {
			html = append(html, ev.Block.HTML)
		}
	}
	if len(html) != 2 || html[1] != "out:one" {
		t.Fatalf("expected echo and output blocks, got %q", html)
	}
}

func TestSessionClickPage(t *testing.T) {
	s, rec := newTestSession(t, stubRouter{})
	var id schema.BlockID
	err := s.Do(context.Background(), func() {
		s.env.RenderContent("<p>1</p><hr><p>2</p>")
		s.state.ExitPageNav()
		nav := rec.ofType(schema.EventPaged)
		id = nav[len(nav)-1].Block.ID
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	if err := s.ClickPage(id, 1); err != nil {
		t.Fatalf("ClickPage: %v", err)
	}
	if err := s.ClickPage(id+100, 1); err != nil {
		t.Fatalf("ClickPage on unknown block: %v", err)
	}
	waitFor(t, time.Second, "one page event", func() bool {
		return len(rec.ofType(schema.EventPage)) == 1
	})

	if err := s.ClickPage(id, 2); !errors.Is(err, schema.ErrInvalidRequest) {
		t.Fatalf("expected invalid direction to be rejected, got %v", err)
	}
}

func TestSessionRejectsInvalidKeysAndClosedUse(t *testing.T) {
	s, _ := newTestSession(t, stubRouter{})
	if err := s.HandleKey(schema.Key{Kind: "meta-x"}); !errors.Is(err, schema.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}

	s.Close()
	if err := s.HandleKey(schema.Runes("a")); !errors.Is(err, schema.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed from HandleKey, got %v", err)
	}
	if _, err := s.Idle(context.Background()); !errors.Is(err, schema.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed from Idle, got %v", err)
	}
}

func TestNewSessionRequiresRouter(t *testing.T) {
	if _, err := NewSession(context.Background(), SessionConfig{}); err == nil {
		t.Fatalf("expected missing router to fail")
	}
	_, err := NewSession(context.Background(), SessionConfig{Router: stubRouter{}, Shell: schema.ShellConfig{Latency: -time.Second}})
	if err == nil {
		t.Fatalf("expected negative latency to fail")
	}
}

func TestSessionAttachRunsWithSnapshotOnLoop(t *testing.T) {
	s, rec := newTestSession(t, stubRouter{welcome: "<p>hi</p>"})
	waitIdle(t, s)

	var (
		snapshot []schema.Event
		emitted  int
	)
	err := s.Attach(context.Background(), func(events []schema.Event) {
		snapshot = events
		emitted = len(rec.all())
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if len(snapshot) == 0 || snapshot[0].Type != schema.EventClear {
		t.Fatalf("expected snapshot starting with clear, got %+v", snapshot)
	}

	submit(t, s, "later")
	waitIdle(t, s)
	if got := len(rec.all()); got <= emitted {
		t.Fatalf("expected events after attach, got %d (had %d)", got, emitted)
	}

	s.Close()
	if err := s.Attach(context.Background(), func([]schema.Event) {}); !errors.Is(err, schema.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}
