package termui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"pkt.systems/pslog"

	"pkt.systems/qult/internal/format"
	"pkt.systems/qult/internal/logx"
	"pkt.systems/qult/schema"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	passwordLabel = "Password:"
)

// Shell receives the keys a Terminal reads.
type Shell interface {
	HandleKey(key schema.Key) error
}

// Size is a terminal size in cells.
type Size struct {
	Width  int
	Height int
}

// Config configures a Terminal.
type Config struct {
	// Theme names the prompt/variant palette (see ThemeNames).
	Theme string
	// Style names the glamour style used for rich output blocks.
	Style string
	// Plain renders every block as unstyled text.
	Plain bool
	// Profile is the colour profile of the client terminal.
	Profile termenv.Profile
	// MaxBlocks caps the scrollback.
	MaxBlocks int
	// NewRenderer overrides the rich renderer factory, mainly for tests.
	NewRenderer func(width int) (format.LineRenderer, error)
}

// Terminal paints a session's event stream onto an ANSI terminal and feeds
// keys back into the session. Emit may be called from any goroutine; all
// other state is owned by Run.
type Terminal struct {
	screen *screen
	theme  Theme
	cfg    Config

	mu     sync.Mutex
	queue  []schema.Event
	notify chan struct{}

	size   Size
	rich   format.LineRenderer
	plain  *format.PlainRenderer
	sb     *scrollback
	input  schema.InputEvent
	prompt string
	mode   schema.Mode
	dirty  bool
}

// New returns a Terminal writing frames to out.
func New(out io.Writer, cfg Config) (*Terminal, error) {
	profile := cfg.Profile
	if cfg.Plain {
		profile = termenv.Ascii
	}
	theme, err := NewTheme(cfg.Theme, profile)
	if err != nil {
		return nil, err
	}
	if cfg.NewRenderer == nil {
		style := cfg.Style
		if cfg.Plain {
			style = "notty"
		}
		cfg.NewRenderer = func(width int) (format.LineRenderer, error) {
			rich, err := format.NewTerminalRenderer(width, style)
			if err != nil {
				return nil, err
			}
			return format.NewCompactRenderer(rich, width), nil
		}
	}
	t := &Terminal{
		screen: newScreen(out),
		theme:  theme,
		cfg:    cfg,
		notify: make(chan struct{}, 1),
		sb:     newScrollback(cfg.MaxBlocks),
	}
	if err := t.setSize(Size{}); err != nil {
		return nil, err
	}
	return t, nil
}

// Emit queues a session event for the render loop. It never blocks.
func (t *Terminal) Emit(ev schema.Event) {
	t.mu.Lock()
	t.queue = append(t.queue, ev)
	t.mu.Unlock()
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// Run drives the terminal until ctx ends, keys closes, or the user presses
// Ctrl-D on an empty line.
func (t *Terminal) Run(ctx context.Context, shell Shell, keys <-chan schema.Key, resize <-chan Size, size Size) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logx.Ctx(ctx)
	if err := t.setSize(size); err != nil {
		return err
	}
	t.screen.EnterAltScreen()
	defer t.screen.ExitAltScreen()

	t.drain()
	t.render(log)
	log.Info("terminal start", "width", t.size.Width, "height", t.size.Height)

	for {
		select {
		case <-ctx.Done():
			return nil
		case k, ok := <-keys:
			if !ok {
				return nil
			}
			if t.handleKey(ctx, shell, k) {
				return nil
			}
		case sz, ok := <-resize:
			if !ok {
				resize = nil
				break
			}
			if err := t.setSize(sz); err != nil {
				log.Warn("terminal resize failed", "err", err)
				break
			}
			log.Debug("terminal resize", "width", t.size.Width, "height", t.size.Height)
		case <-t.notify:
			t.drain()
		}

		if t.dirty {
			t.render(log)
		}
	}
}

func (t *Terminal) handleKey(ctx context.Context, shell Shell, k schema.Key) bool {
	switch k.Kind {
	case schema.KeyPageUp:
		t.sb.Scroll(t.scrollStep(), t.viewHeight())
		t.dirty = true
		return false
	case schema.KeyPageDown:
		t.sb.Scroll(-t.scrollStep(), t.viewHeight())
		t.dirty = true
		return false
	case schema.KeyCtrlD:
		if t.input.Value == "" && t.mode == schema.ModeNormal {
			return true
		}
	}
	if !t.sb.Snapshot(t.viewHeight()).AtBottom {
		t.sb.ResetScroll()
		t.dirty = true
	}
	if err := shell.HandleKey(k); err != nil {
		logx.Ctx(ctx).Debug("terminal key rejected", "key", string(k.Kind), "err", err)
		return true
	}
	return false
}

func (t *Terminal) scrollStep() int {
	step := t.viewHeight() - 1
	if step < 1 {
		step = 1
	}
	return step
}

func (t *Terminal) drain() {
	t.mu.Lock()
	events := t.queue
	t.queue = nil
	t.mu.Unlock()
	for _, ev := range events {
		t.apply(ev)
	}
}

func (t *Terminal) apply(ev schema.Event) {
	switch ev.Type {
	case schema.EventClear:
		t.sb.Clear()
	case schema.EventBlock, schema.EventPaged:
		if ev.Block == nil {
			return
		}
		t.sb.Put(*ev.Block, t.blockLines(*ev.Block))
		switch ev.Block.Scroll {
		case schema.ScrollBlockTop:
			t.sb.ScrollToBlock(ev.Block.ID, t.viewHeight())
		default:
			t.sb.ResetScroll()
		}
	case schema.EventPage:
		if ev.Page == nil {
			return
		}
		e, ok := t.sb.Get(ev.Page.Block)
		if !ok {
			return
		}
		block := e.block
		page := *ev.Page
		block.Page = &page
		t.sb.Put(block, t.blockLines(block))
	case schema.EventInput:
		if ev.Input != nil {
			t.input = *ev.Input
		}
	case schema.EventPrompt:
		t.prompt = ev.Prompt
	case schema.EventMode:
		if ev.Mode != nil {
			t.mode = *ev.Mode
		}
	default:
		return
	}
	t.dirty = true
}

func (t *Terminal) setSize(size Size) error {
	if size.Width <= 0 {
		size.Width = defaultWidth
	}
	if size.Height <= 0 {
		size.Height = defaultHeight
	}
	if size == t.size && t.rich != nil {
		return nil
	}
	rich, err := t.cfg.NewRenderer(size.Width)
	if err != nil {
		return fmt.Errorf("terminal renderer: %w", err)
	}
	t.size = size
	t.rich = rich
	t.plain = format.NewPlainRenderer(size.Width)
	t.sb.Each(func(e *entry) []string {
		return t.blockLines(e.block)
	})
	t.dirty = true
	return nil
}

// blockLines renders one output block at the current width. Paged blocks
// show their active page followed by the page counter.
func (t *Terminal) blockLines(block schema.BlockEvent) []string {
	html := block.HTML
	var counter string
	if len(block.Pages) > 0 {
		index := 0
		counter = fmt.Sprintf("1 / %d", len(block.Pages))
		if block.Page != nil {
			index = block.Page.Index
			if block.Page.Counter != "" {
				counter = block.Page.Counter
			}
		}
		if index < 0 || index >= len(block.Pages) {
			index = 0
		}
		html = block.Pages[index]
	}

	var lines []string
	var err error
	switch block.Variant {
	case schema.VariantError, schema.VariantSystem:
		style := t.theme.Error
		if block.Variant == schema.VariantSystem {
			style = t.theme.System
		}
		lines, err = t.plain.Lines(html)
		for i := range lines {
			lines[i] = style.Render(lines[i])
		}
	default:
		lines, err = t.rich.Lines(html)
		if err != nil {
			lines, err = t.plain.Lines(html)
		}
	}
	if err != nil {
		lines = []string{t.theme.Error.Render(err.Error())}
	}

	if counter != "" {
		nav := t.theme.Counter.Render("‹ "+counter+" ›") + " " + t.theme.Hint.Render("←/→ to page")
		lines = append(lines, nav)
	}
	for i, line := range lines {
		lines[i] = ansi.Truncate(line, t.size.Width, "")
	}
	return lines
}

func (t *Terminal) promptPrefix() string {
	label := t.prompt
	if t.mode == schema.ModePasswordPrompt {
		label = passwordLabel
	}
	if label == "" {
		label = ">"
	}
	return t.theme.Prompt.Render(label) + " "
}

func (t *Terminal) inputDisplay() string {
	if t.input.Masked || t.mode == schema.ModePasswordPrompt {
		return maskInput(t.input.Value)
	}
	return t.input.Value
}

func (t *Terminal) viewHeight() int {
	inputLines, _, _ := renderInputLines(t.promptPrefix(), t.inputDisplay(), t.input.Cursor, t.size.Width)
	view := t.size.Height - len(inputLines)
	if view < 0 {
		view = 0
	}
	return view
}

func (t *Terminal) render(log pslog.Logger) {
	t.dirty = false
	width := t.size.Width
	height := t.size.Height

	inputLines, cursorRow, cursorCol := renderInputLines(t.promptPrefix(), t.inputDisplay(), t.input.Cursor, width)
	if rest := t.suggestionRest(); rest != "" && len(inputLines) > 0 {
		last := len(inputLines) - 1
		free := width - ansi.StringWidth(inputLines[last])
		if free > 0 {
			inputLines[last] += t.theme.Suggestion.Render(runewidth.Truncate(rest, free, ""))
		}
	}
	outputHeight := height - len(inputLines)
	if outputHeight < 0 {
		outputHeight = 0
	}

	v := t.sb.Snapshot(outputHeight)
	lines := make([]string, 0, height)
	lines = append(lines, v.Lines...)
	for len(lines) < outputHeight {
		lines = append(lines, "")
	}
	if !v.AtBottom && outputHeight > 0 {
		lines[outputHeight-1] = t.theme.Hint.Render(fmt.Sprintf("-- %d more lines (PgDn) --", v.ScrollOffset))
	}
	lines = append(lines, inputLines...)
	cursorRow = outputHeight + cursorRow
	if err := t.screen.Render(lines, height, cursorRow, cursorCol); err != nil {
		log.Warn("terminal render failed", "err", err)
	}
}

// suggestionRest returns the completion text beyond what has been typed,
// shown only while the caret sits at the end of the input.
func (t *Terminal) suggestionRest() string {
	suggestion := []rune(t.input.Suggestion)
	value := []rune(t.input.Value)
	if t.input.Masked || t.input.Cursor != len(value) || len(suggestion) <= len(value) {
		return ""
	}
	if !strings.EqualFold(string(suggestion[:len(value)]), string(value)) {
		return ""
	}
	return string(suggestion[len(value):])
}

func maskInput(value string) string {
	if value == "" {
		return ""
	}
	return strings.Repeat("*", len([]rune(value)))
}

// renderInputLines wraps the prompt and input to width and returns the lines
// with the 1-based cursor row and column.
func renderInputLines(prefix, input string, cursor, width int) ([]string, int, int) {
	inputRunes := []rune(input)
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(inputRunes) {
		cursor = len(inputRunes)
	}
	prefixWidth := ansi.StringWidth(prefix)
	if width <= 0 {
		width = prefixWidth + runewidth.StringWidth(input) + 1
	}
	prefixVisible := prefix
	if prefixWidth > width {
		prefixVisible = ansi.Truncate(prefix, width, "")
		prefixWidth = ansi.StringWidth(prefixVisible)
	}
	indent := strings.Repeat(" ", prefixWidth)
	available := width - prefixWidth
	if available < 1 {
		available = 1
	}

	lines := []string{}
	var line strings.Builder
	col := 0
	cursorRow := 1
	cursorCol := prefixWidth + 1

	flushLine := func() {
		pfx := prefixVisible
		if len(lines) > 0 {
			pfx = indent
		}
		lines = append(lines, pfx+line.String())
		line.Reset()
		col = 0
	}

	for i, r := range inputRunes {
		w := runewidth.RuneWidth(r)
		if col+w > available && col > 0 {
			flushLine()
		}
		if i == cursor {
			cursorRow = len(lines) + 1
			cursorCol = prefixWidth + col + 1
		}
		line.WriteRune(r)
		col += w
	}
	if cursor == len(inputRunes) {
		if col >= available {
			flushLine()
		}
		cursorRow = len(lines) + 1
		cursorCol = prefixWidth + col + 1
	}
	flushLine()
	if cursorCol > width {
		cursorCol = width
	}
	return lines, cursorRow, cursorCol
}
