package httpapi

import (
	"context"
	"sync"
	"testing"
	"time"

	"pkt.systems/qult/core"
	"pkt.systems/qult/internal/command"
	"pkt.systems/qult/internal/content"
	"pkt.systems/qult/schema"
)

func newTestShell(t *testing.T, id schema.SessionID, emit core.EmitFunc) *core.Session {
	t.Helper()
	if emit == nil {
		emit = func(schema.Event) {}
	}
	shell, err := core.NewSession(context.Background(), core.SessionConfig{
		ID:        id,
		Router:    command.NewRouter(content.Embedded(), command.RouterConfig{}),
		Completer: command.NewCompleter(),
		Emit:      emit,
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(shell.Close)
	return shell
}

func waitClosed(t *testing.T, shell *core.Session) {
	t.Helper()
	select {
	case <-shell.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("expected shell %s to be closed", shell.ID())
	}
}

func TestSessionStoreAddGetDelete(t *testing.T) {
	store := newSessionStore(time.Hour)
	shell := newTestShell(t, "s1", nil)
	entry := store.add(shell)
	if entry.id != "s1" || entry.shell != shell {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if got, ok := store.get("s1"); !ok || got.shell != shell {
		t.Fatalf("expected session to be found")
	}
	if !store.delete("s1") {
		t.Fatalf("expected delete to report the session")
	}
	if _, ok := store.get("s1"); ok {
		t.Fatalf("expected session to be deleted")
	}
	waitClosed(t, shell)
	if store.delete("s1") {
		t.Fatalf("expected second delete to be a no-op")
	}
}

func TestSessionStoreExpiration(t *testing.T) {
	store := newSessionStore(5 * time.Millisecond)
	shell := newTestShell(t, "s1", nil)
	store.add(shell)
	time.Sleep(10 * time.Millisecond)
	if _, ok := store.get("s1"); ok {
		t.Fatalf("expected expired session")
	}
	waitClosed(t, shell)
}

func TestSessionStoreSweep(t *testing.T) {
	store := newSessionStore(5 * time.Millisecond)
	a := newTestShell(t, "a", nil)
	b := newTestShell(t, "b", nil)
	store.add(a)
	store.add(b)
	time.Sleep(10 * time.Millisecond)
	if n := store.sweep(); n != 2 {
		t.Fatalf("expected 2 expired sessions, got %d", n)
	}
	waitClosed(t, a)
	waitClosed(t, b)
	if store.len() != 0 {
		t.Fatalf("expected empty store")
	}
}

func TestSessionStoreForgetsStoppedShell(t *testing.T) {
	store := newSessionStore(time.Hour)
	var mu sync.Mutex
	var closed []schema.SessionID
	done := make(chan struct{})
	store.onClose = func(id schema.SessionID) {
		mu.Lock()
		closed = append(closed, id)
		mu.Unlock()
		close(done)
	}
	shell := newTestShell(t, "gone", nil)
	store.add(shell)
	shell.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected onClose after the shell stopped")
	}
	if _, ok := store.get("gone"); ok {
		t.Fatalf("expected stopped shell to be removed")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(closed) != 1 || closed[0] != "gone" {
		t.Fatalf("unexpected close notifications: %v", closed)
	}
}

func TestSessionStoreBaseContext(t *testing.T) {
	store := newSessionStore(time.Hour)
	type key struct{}
	base := context.WithValue(context.Background(), key{}, "value")
	store.setBaseContext(base)
	if got := store.baseContext().Value(key{}); got != "value" {
		t.Fatalf("expected base context value, got %v", got)
	}
	store.setBaseContext(nil)
	if got := store.baseContext().Value(key{}); got != "value" {
		t.Fatalf("expected nil base context to be ignored")
	}
}

func TestSessionStoreCloseAll(t *testing.T) {
	store := newSessionStore(time.Hour)
	shell := newTestShell(t, "s1", nil)
	store.add(shell)
	store.closeAll()
	waitClosed(t, shell)
	if store.len() != 0 {
		t.Fatalf("expected empty store after closeAll")
	}
}
