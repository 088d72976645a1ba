package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/qult/internal/logx"
	"pkt.systems/qult/schema"
)

// SessionConfig wires a Session.
type SessionConfig struct {
	ID        schema.SessionID
	Shell     schema.ShellConfig
	Router    Router
	Completer *Completer
	// Emit receives every event on the session loop goroutine; it must not block.
	Emit EmitFunc
	Now  func() time.Time
}

// Session is one interactive shell. A single loop goroutine owns the state,
// history, transcript and controller; every input is posted to it as a task.
//
// Submitted lines run as jobs, one at a time: a job starts after the previous
// job's awaited work has been delivered, so output follows submission order.
type Session struct {
	id         schema.SessionID
	cfg        schema.ShellConfig
	router     Router
	state      *State
	history    *History
	transcript *Transcript
	controller *Controller
	env        *Env
	log        pslog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	tasks  chan func()
	done   chan struct{}

	queue   []func()
	busy    bool
	pending int // timers and awaited work not yet delivered to the loop
}

const sessionTaskBuffer = 64

// NewSession starts a session loop bound to ctx. The loop stops when ctx is done
// or Close is called.
func NewSession(ctx context.Context, cfg SessionConfig) (*Session, error) {
	if cfg.Router == nil {
		return nil, errors.New("session router is required")
	}
	shell, err := schema.NormalizeShellConfig(cfg.Shell)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log := logx.WithSession(ctx, cfg.ID)
	ctx = logx.ContextWithSessionLogger(ctx, log, cfg.ID)
	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		id:     cfg.ID,
		cfg:    shell,
		router: cfg.Router,
		state:  NewState(),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(chan func(), sessionTaskBuffer),
		done:   make(chan struct{}),
	}
	s.history = NewHistory(shell.HistoryMax)
	s.transcript = NewTranscript(cfg.Emit)
	if cfg.Now != nil {
		s.transcript.now = cfg.Now
	}
	s.controller = NewController(ControllerConfig{
		State:     s.state,
		History:   s.history,
		Completer: cfg.Completer,
		Output:    s.transcript,
		View:      s.transcript,
		Host:      shell.Host,
		Dispatch:  s.dispatch,
	})
	s.env = NewEnv(EnvConfig{
		State:      s.state,
		Output:     s.transcript,
		View:       s.transcript,
		Scheduler:  s,
		Host:       shell.Host,
		CatURL:     shell.CatURL,
		Now:        cfg.Now,
		ResetInput: s.controller.ClearInput,
	})

	go s.run()
	if err := s.post(func() {
		s.transcript.ShowPrompt(s.env.PromptLabel())
		s.enqueue(func() { s.router.Welcome(s.ctx, s.env) })
	}); err != nil {
		return nil, err
	}
	log.Info("session started", "host", shell.Host, "latency_ms", shell.Latency.Milliseconds())
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() schema.SessionID {
	return s.id
}

// Context returns the session context; it is cancelled when the session closes.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Done is closed once the session loop has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close stops the loop and waits for it to exit. In-flight fetches are cancelled.
func (s *Session) Close() {
	s.cancel()
	<-s.done
}

// HandleKey posts a key event to the session.
func (s *Session) HandleKey(key schema.Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	return s.post(func() { s.controller.HandleKey(key) })
}

// ClickPage posts a click on a paged block's prev (-1) or next (+1) control.
// Clicks on blocks that are no longer tracked are ignored.
func (s *Session) ClickPage(block schema.BlockID, direction int) error {
	if direction != -1 && direction != 1 {
		return fmt.Errorf("%w: page direction %d", schema.ErrInvalidRequest, direction)
	}
	return s.post(func() {
		if paged, ok := s.transcript.Paged(block); ok {
			s.controller.ClickPage(paged, direction)
		}
	})
}

// Do runs fn on the session loop and waits for it to return.
func (s *Session) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := s.post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-s.done:
		return schema.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the events that rebuild the current surface.
func (s *Session) Snapshot(ctx context.Context) ([]schema.Event, error) {
	var events []schema.Event
	err := s.Do(ctx, func() { events = s.transcript.Snapshot() })
	return events, err
}

// Attach runs fn on the loop with the current snapshot. Nothing is emitted while
// fn runs, so a surface that subscribes inside fn sees every later event once.
func (s *Session) Attach(ctx context.Context, fn func([]schema.Event)) error {
	return s.Do(ctx, func() { fn(s.transcript.Snapshot()) })
}

// Idle reports whether no submitted line is queued or running.
func (s *Session) Idle(ctx context.Context) (bool, error) {
	var idle bool
	err := s.Do(ctx, func() { idle = !s.busy && len(s.queue) == 0 && s.pending == 0 })
	return idle, err
}

// After implements Scheduler; fn runs on the loop once d has elapsed.
func (s *Session) After(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	s.pending++
	time.AfterFunc(d, func() {
		_ = s.post(func() {
			s.pending--
			s.runJob(fn)
		})
	})
}

// Await implements Scheduler; work runs on its own goroutine and then runs on the loop.
func (s *Session) Await(ctx context.Context, work func(context.Context) (string, error), then func(string, error)) {
	s.pending++
	go func() {
		value, err := work(ctx)
		_ = s.post(func() {
			s.pending--
			s.runJob(func() { then(value, err) })
		})
	}()
}

func (s *Session) dispatch(line string) {
	s.enqueue(func() {
		s.After(s.cfg.Latency, func() {
			s.router.Route(s.ctx, s.env, line)
		})
	})
}

func (s *Session) enqueue(job func()) {
	s.queue = append(s.queue, job)
	s.startNext()
}

func (s *Session) startNext() {
	if s.busy || len(s.queue) == 0 {
		return
	}
	job := s.queue[0]
	s.queue = s.queue[1:]
	s.busy = true
	s.runJob(job)
}

// runJob runs a piece of the current job and completes the job once nothing
// it started is still outstanding.
func (s *Session) runJob(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("session job panic", "panic", r)
		}
		s.settle()
	}()
	fn()
}

func (s *Session) settle() {
	if !s.busy || s.pending > 0 {
		return
	}
	s.busy = false
	s.startNext()
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.log.Debug("session stopped")
			return
		case task := <-s.tasks:
			s.runTask(task)
		}
	}
}

func (s *Session) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("session task panic", "panic", r)
		}
	}()
	task()
}

func (s *Session) post(task func()) error {
	if s.ctx.Err() != nil {
		return schema.ErrSessionClosed
	}
	select {
	case <-s.done:
		return schema.ErrSessionClosed
	case <-s.ctx.Done():
		return schema.ErrSessionClosed
	case s.tasks <- task:
		return nil
	}
}
