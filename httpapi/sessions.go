package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/qult/core"
	"pkt.systems/qult/internal/logx"
	"pkt.systems/qult/schema"
)

type session struct {
	id        schema.SessionID
	shell     *core.Session
	expiresAt time.Time
}

type sessionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	baseCtx context.Context
	items   map[schema.SessionID]session
	onClose func(schema.SessionID)
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		ttl:     ttl,
		baseCtx: context.TODO(),
		items:   make(map[schema.SessionID]session),
	}
}

// add tracks a running shell until it expires, is deleted or stops on its own.
func (s *sessionStore) add(shell *core.Session) session {
	entry := session{
		id:        shell.ID(),
		shell:     shell,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Lock()
	s.items[entry.id] = entry
	s.mu.Unlock()
	go func() {
		<-shell.Done()
		s.remove(entry.id, shell)
	}()
	logx.WithSession(context.Background(), entry.id).Info("session created", "expires", entry.expiresAt.Format(time.RFC3339))
	return entry
}

func (s *sessionStore) get(id schema.SessionID) (session, bool) {
	s.mu.Lock()
	entry, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return session{}, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.items, id)
		s.mu.Unlock()
		logx.WithSession(context.Background(), id).Info("session expired")
		s.finish(entry)
		return session{}, false
	}
	s.mu.Unlock()
	return entry, true
}

func (s *sessionStore) delete(id schema.SessionID) bool {
	s.mu.Lock()
	entry, ok := s.items[id]
	if ok {
		delete(s.items, id)
	}
	s.mu.Unlock()
	if ok {
		logx.WithSession(context.Background(), id).Info("session deleted")
		s.finish(entry)
	}
	return ok
}

// sweep closes every expired session.
func (s *sessionStore) sweep() int {
	now := time.Now()
	var expired []session
	s.mu.Lock()
	for id, entry := range s.items {
		if now.After(entry.expiresAt) {
			delete(s.items, id)
			expired = append(expired, entry)
		}
	}
	s.mu.Unlock()
	for _, entry := range expired {
		logx.WithSession(context.Background(), entry.id).Info("session expired")
		s.finish(entry)
	}
	return len(expired)
}

func (s *sessionStore) closeAll() {
	s.mu.Lock()
	entries := make([]session, 0, len(s.items))
	for id, entry := range s.items {
		entries = append(entries, entry)
		delete(s.items, id)
	}
	s.mu.Unlock()
	for _, entry := range entries {
		s.finish(entry)
	}
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// remove forgets a shell that stopped by itself.
func (s *sessionStore) remove(id schema.SessionID, shell *core.Session) {
	s.mu.Lock()
	entry, ok := s.items[id]
	if ok && entry.shell == shell {
		delete(s.items, id)
	}
	s.mu.Unlock()
	if s.onClose != nil {
		s.onClose(id)
	}
}

func (s *sessionStore) finish(entry session) {
	if entry.shell != nil {
		entry.shell.Close()
	}
}

func (s *sessionStore) setBaseContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
	logx.Ctx(context.Background()).Debug("session base context set")
}

func (s *sessionStore) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseCtx != nil {
		return s.baseCtx
	}
	return context.TODO()
}
