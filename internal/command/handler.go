package command

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/qult/core"
	"pkt.systems/qult/internal/logx"
	"pkt.systems/qult/schema"
)

// RouterConfig configures command routing.
type RouterConfig struct {
	// FetchTimeout bounds each content fetch; zero means no extra bound.
	FetchTimeout        time.Duration
	Greeting            string
	DisableAuditLogging bool
}

type handlerFunc func(ctx context.Context, env *core.Env, cmd Command) error

// Router dispatches input lines to command handlers.
type Router struct {
	source   core.ContentSource
	cfg      RouterConfig
	handlers map[Kind]handlerFunc
}

// NewRouter builds the dispatch table once.
func NewRouter(source core.ContentSource, cfg RouterConfig) *Router {
	if cfg.Greeting == "" {
		cfg.Greeting = schema.DefaultGreeting
	}
	r := &Router{source: source, cfg: cfg}
	r.handlers = map[Kind]handlerFunc{
		KindElevated:   r.handleElevated,
		KindClear:      r.handleClear,
		KindEcho:       r.handleEcho,
		KindAI:         r.handleAI,
		KindCat:        r.handleCat,
		KindService:    r.handleResource,
		KindCase:       r.handleResource,
		KindName:       r.handleName,
		KindWhoami:     r.handleWhoami,
		KindContent:    r.handleContent,
		KindRestricted: r.handleRestricted,
		KindUnknown:    r.handleUnknown,
	}
	return r
}

// Route parses line and runs its handler. Failures and panics are rendered as
// error output; they never change session state.
func (r *Router) Route(ctx context.Context, env *core.Env, line string) {
	cmd, ok := Parse(line)
	if !ok {
		return
	}
	kind := Classify(cmd.Name)
	log := logx.WithIdentity(pslog.Ctx(ctx), env.State.Identity()).With("command", cmd.Name, "kind", kind.String())
	if !r.cfg.DisableAuditLogging {
		log.Debug("audit command", "command_type", kind.String(), "line", cmd.Raw)
	}
	log.Info("command dispatch", "args", len(cmd.Args))
	ctx = pslog.ContextWithLogger(ctx, log)
	handler := r.handlers[kind]
	r.run(ctx, env, func() error { return handler(ctx, env, cmd) })
}

// Welcome renders the greeting followed by the message of the day.
func (r *Router) Welcome(ctx context.Context, env *core.Env) {
	env.Output.Append(core.Block{HTML: `<p class="terminal-heading">` + html.EscapeString(r.cfg.Greeting) + `</p>`})
	r.fetch(ctx, env, MOTDFragment, func(body string, err error) error {
		if err != nil {
			pslog.Ctx(ctx).Warn("motd unavailable", "error", err)
			env.Output.Append(core.Block{
				HTML:    "<p>Message of the day is unavailable. Try again later.</p>",
				Variant: schema.VariantSystem,
			})
			return nil
		}
		env.Output.Append(core.Block{HTML: body})
		return nil
	})
}

func (r *Router) run(ctx context.Context, env *core.Env, fn func() error) {
	log := pslog.Ctx(ctx)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("command panic", "panic", rec)
			r.fail(ctx, env, &DispatchError{Err: fmt.Errorf("panic: %v", rec)})
		}
	}()
	if err := fn(); err != nil {
		r.fail(ctx, env, err)
	}
}

func (r *Router) fail(ctx context.Context, env *core.Env, err error) {
	log := pslog.Ctx(ctx)
	var fetch *FetchError
	var dispatch *DispatchError
	switch {
	case errors.As(err, &fetch), errors.As(err, &dispatch):
		log.Warn("command failed", "error", err)
	default:
		log.Debug("command rejected", "reason", err)
	}
	variant := Variant(err)
	text := Message(err)
	if variant == schema.VariantError {
		text = `<p class="error">` + text + `</p>`
	} else {
		text = "<p>" + text + "</p>"
	}
	env.Output.Append(core.Block{HTML: text, Variant: variant})
}

// fetch loads a fragment off the session loop and hands the result to then on the
// loop. An error returned by then is rendered like any handler error.
func (r *Router) fetch(ctx context.Context, env *core.Env, id string, then func(string, error) error) {
	source := r.source
	timeout := r.cfg.FetchTimeout
	env.Await(ctx, func(ctx context.Context) (string, error) {
		if source == nil {
			return "", fmt.Errorf("%w: no content source", schema.ErrFetch)
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return source.Fetch(ctx, id)
	}, func(body string, err error) {
		r.run(ctx, env, func() error { return then(body, err) })
	})
}

func (r *Router) handleElevated(_ context.Context, env *core.Env, _ Command) error {
	env.EnterPasswordPrompt()
	system(env, "<p>Password:</p>")
	return nil
}

func (r *Router) handleClear(_ context.Context, env *core.Env, _ Command) error {
	env.Output.Clear()
	env.State.ExitPageNav()
	return nil
}

func (r *Router) handleEcho(_ context.Context, env *core.Env, cmd Command) error {
	system(env, "<p>"+html.EscapeString(cmd.Remainder)+"</p>")
	return nil
}

func (r *Router) handleAI(_ context.Context, env *core.Env, _ Command) error {
	system(env, "<p>coming soon...</p>")
	return nil
}

func (r *Router) handleCat(_ context.Context, env *core.Env, _ Command) error {
	src := fmt.Sprintf("%s?ts=%d", env.CatURL(), env.Now().UnixMilli())
	env.Output.Append(core.Block{
		HTML: `<figure class="cat-block"><img src="` + html.EscapeString(src) +
			`" alt="Here's a cat for you" loading="lazy" /><figcaption>Here's a cat for you</figcaption></figure>`,
		Scroll: schema.ScrollAfterImages,
	})
	return nil
}

func (r *Router) handleResource(ctx context.Context, env *core.Env, cmd Command) error {
	query := cmd.ArgString()
	if query == "" {
		return &UsageError{Command: cmd.Name, Usage: "Usage: " + html.EscapeString(cmd.Name+" <name>")}
	}
	slug := schema.Slugify(query)
	if slug == "" {
		return &NotFoundError{Resource: query}
	}
	id := ResourceID(Classify(cmd.Name), slug)
	r.fetch(ctx, env, id, func(body string, err error) error {
		if err != nil {
			return fetchError(id, true, err)
		}
		env.RenderContent(body)
		return nil
	})
	return nil
}

func (r *Router) handleName(ctx context.Context, env *core.Env, cmd Command) error {
	value := cmd.ArgString()
	if value == "" {
		return &UsageError{Command: cmd.Name, Usage: "Usage: <code>name &lt;username&gt;</code> &mdash; choose something worthy.", Notice: true}
	}
	identity := schema.SanitizeIdentity(value)
	if identity == "" {
		return &ValidationError{Reason: "That name is not acceptable. Use letters, numbers, dot, dash or underscore."}
	}
	env.SetIdentity(identity)
	pslog.Ctx(ctx).Info("identity changed", "identity", identity)
	system(env, "<p>You now walk as <strong>"+html.EscapeString(identity)+"</strong>. The terminal remembers.</p>")
	return nil
}

func (r *Router) handleWhoami(_ context.Context, env *core.Env, _ Command) error {
	identity := env.State.Identity()
	if identity == schema.DefaultIdentity {
		system(env, "<p>You are nobody. But you can become somebody.</p>")
		return nil
	}
	system(env, "<p>You are <strong>"+html.EscapeString(identity)+"</strong> &mdash; the greatest of your kind.</p>")
	return nil
}

func (r *Router) handleContent(ctx context.Context, env *core.Env, cmd Command) error {
	r.fetch(ctx, env, cmd.Name, func(body string, err error) error {
		if err != nil {
			return fetchError(cmd.Name, false, err)
		}
		env.RenderContent(body)
		return nil
	})
	return nil
}

func (r *Router) handleRestricted(_ context.Context, _ *core.Env, cmd Command) error {
	return &PermissionError{Command: cmd.Name}
}

func (r *Router) handleUnknown(_ context.Context, _ *core.Env, cmd Command) error {
	return &NotFoundError{Command: cmd.Token}
}

func system(env *core.Env, body string) {
	env.Output.Append(core.Block{HTML: body, Variant: schema.VariantSystem})
}
