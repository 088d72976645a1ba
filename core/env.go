package core

import (
	"context"
	"time"

	"pkt.systems/qult/schema"
)

// ContentSource resolves fragment identifiers such as "about" or "service-security"
// to HTML. A missing fragment yields an error wrapping schema.ErrNotFound.
type ContentSource interface {
	Fetch(ctx context.Context, id string) (string, error)
}

// Router dispatches submitted lines. Route and Welcome run on the session loop.
type Router interface {
	Route(ctx context.Context, env *Env, line string)
	Welcome(ctx context.Context, env *Env)
}

// EnvConfig wires an Env.
type EnvConfig struct {
	State      *State
	Output     OutputSink
	View       InputView
	Scheduler  Scheduler
	Host       string
	CatURL     string
	Now        func() time.Time
	ResetInput func()
}

// Env is what command handlers see of a session.
type Env struct {
	State  *State
	Output OutputSink

	view       InputView
	sched      Scheduler
	host       string
	catURL     string
	now        func() time.Time
	resetInput func()
}

// NewEnv builds a handler environment. Missing collaborators get inert defaults.
func NewEnv(cfg EnvConfig) *Env {
	env := &Env{
		State:      cfg.State,
		Output:     cfg.Output,
		view:       cfg.View,
		sched:      cfg.Scheduler,
		host:       cfg.Host,
		catURL:     cfg.CatURL,
		now:        cfg.Now,
		resetInput: cfg.ResetInput,
	}
	if env.State == nil {
		env.State = NewState()
	}
	if env.Output == nil {
		env.Output = NewTranscript(nil)
	}
	if env.view == nil {
		if view, ok := env.Output.(InputView); ok {
			env.view = view
		}
	}
	if env.sched == nil {
		env.sched = SyncScheduler{}
	}
	if env.host == "" {
		env.host = schema.DefaultHost
	}
	if env.catURL == "" {
		env.catURL = schema.DefaultCatURL
	}
	if env.now == nil {
		env.now = time.Now
	}
	if env.resetInput == nil {
		env.resetInput = func() {}
	}
	return env
}

// Await runs work off the session loop and delivers its result to then on the loop.
func (e *Env) Await(ctx context.Context, work func(context.Context) (string, error), then func(string, error)) {
	e.sched.Await(ctx, work, then)
}

func (e *Env) Host() string {
	return e.host
}

func (e *Env) CatURL() string {
	return e.catURL
}

func (e *Env) Now() time.Time {
	return e.now()
}

// PromptLabel returns the current prompt, e.g. "nobody@qult>".
func (e *Env) PromptLabel() string {
	return schema.PromptLabel(e.State.Identity(), e.host)
}

// EnterPasswordPrompt switches the session to masked input and empties the edit line.
func (e *Env) EnterPasswordPrompt() {
	e.State.EnterPasswordPrompt()
	e.resetInput()
	if e.view != nil {
		e.view.ShowMode(e.State.Mode())
	}
}

// SetIdentity changes the identity and refreshes the prompt.
func (e *Env) SetIdentity(identity string) {
	e.State.SetIdentity(identity)
	if e.view != nil {
		e.view.ShowPrompt(e.PromptLabel())
	}
}

// RenderContent appends a fragment, paginating on page-break markers. A fragment
// with two or more pages becomes the active page-nav target.
func (e *Env) RenderContent(html string) {
	if html == "" {
		return
	}
	if !HasPageBreak(html) {
		e.Output.Append(Block{HTML: html, Scroll: schema.ScrollBlockTop})
		return
	}
	pages := SplitPages(html)
	if len(pages) <= 1 {
		e.Output.Append(Block{HTML: html})
		return
	}
	paged, err := e.Output.AppendPaged(pages)
	if err != nil {
		e.Output.Append(Block{HTML: html, Scroll: schema.ScrollBlockTop})
		return
	}
	e.State.EnterPageNav(paged)
}
