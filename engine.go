package qult

import (
	"context"
	"errors"
	"sync"
	"time"

	"pkt.systems/qult/core"
	"pkt.systems/qult/internal/command"
	"pkt.systems/qult/internal/logx"
	"pkt.systems/qult/schema"
)

// TapFunc observes every event of every session opened by an Engine. It runs
// on the session loop goroutine and must not block.
type TapFunc func(id schema.SessionID, surface string, event schema.Event)

// EngineConfig configures the shared shell engine.
type EngineConfig struct {
	Shell  schema.ShellConfig
	Router command.RouterConfig
	Tap    TapFunc
	Now    func() time.Time
}

// Engine opens shell sessions against one content source. Every surface
// (web, SSH, local terminal) opens its sessions here.
type Engine struct {
	cfg       EngineConfig
	router    core.Router
	completer *core.Completer

	mu       sync.Mutex
	sessions map[schema.SessionID]*core.Session
}

// NewEngine builds an engine around source.
func NewEngine(cfg EngineConfig, source core.ContentSource) (*Engine, error) {
	if source == nil {
		return nil, errors.New("content source is required")
	}
	shell, err := schema.NormalizeShellConfig(cfg.Shell)
	if err != nil {
		return nil, err
	}
	cfg.Shell = shell
	if cfg.Router.Greeting == "" {
		cfg.Router.Greeting = shell.Greeting
	}
	return &Engine{
		cfg:       cfg,
		router:    command.NewRouter(source, cfg.Router),
		completer: command.NewCompleter(),
		sessions:  make(map[schema.SessionID]*core.Session),
	}, nil
}

// Open starts a session. emit receives the session's events on its loop
// goroutine; the configured tap sees the same stream.
func (e *Engine) Open(ctx context.Context, id schema.SessionID, surface string, emit core.EmitFunc) (*core.Session, error) {
	if id == "" {
		return nil, errors.New("session id is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logx.ContextWithSurfaceLogger(ctx, logx.WithSurface(ctx, surface), surface)

	emitters := []core.EmitFunc{emit}
	if tap := e.cfg.Tap; tap != nil {
		emitters = append(emitters, func(event schema.Event) { tap(id, surface, event) })
	}
	session, err := core.NewSession(ctx, core.SessionConfig{
		ID:        id,
		Shell:     e.cfg.Shell,
		Router:    e.router,
		Completer: e.completer,
		Emit:      fanout(emitters...),
		Now:       e.cfg.Now,
	})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.sessions[id] = session
	open := len(e.sessions)
	e.mu.Unlock()
	logx.Ctx(session.Context()).Info("session opened", "open", open)

	go func() {
		<-session.Done()
		e.mu.Lock()
		if e.sessions[id] == session {
			delete(e.sessions, id)
		}
		e.mu.Unlock()
		logx.Ctx(ctx).Info("session closed")
	}()
	return session, nil
}

// Len reports the number of open sessions.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// CloseAll closes every open session.
func (e *Engine) CloseAll() {
	e.mu.Lock()
	sessions := make([]*core.Session, 0, len(e.sessions))
	for _, session := range e.sessions {
		sessions = append(sessions, session)
	}
	e.mu.Unlock()
	for _, session := range sessions {
		session.Close()
	}
}
