package core

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"pkt.systems/qult/schema"
)

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	State     *State
	History   *History
	Completer *Completer
	Output    OutputSink
	View      InputView
	Host      string
	// Dispatch receives each submitted, trimmed line.
	Dispatch func(line string)
}

// Controller turns key events into edit-buffer changes, history recall,
// page navigation, autocompletion and submissions.
type Controller struct {
	state     *State
	history   *History
	completer *Completer
	output    OutputSink
	view      InputView
	host      string
	dispatch  func(line string)
	buf       LineBuffer
}

// NewController builds a controller. Missing collaborators get inert defaults.
func NewController(cfg ControllerConfig) *Controller {
	c := &Controller{
		state:     cfg.State,
		history:   cfg.History,
		completer: cfg.Completer,
		output:    cfg.Output,
		view:      cfg.View,
		host:      cfg.Host,
		dispatch:  cfg.Dispatch,
	}
	if c.state == nil {
		c.state = NewState()
	}
	if c.history == nil {
		c.history = NewHistory(0)
	}
	if c.output == nil {
		c.output = NewTranscript(nil)
	}
	if c.view == nil {
		if view, ok := c.output.(InputView); ok {
			c.view = view
		}
	}
	if c.host == "" {
		c.host = schema.DefaultHost
	}
	if c.dispatch == nil {
		c.dispatch = func(string) {}
	}
	return c
}

// Buffer returns the edit buffer value and caret.
func (c *Controller) Buffer() (string, int) {
	return c.buf.String(), c.buf.Cursor()
}

// HandleKey applies one key event.
func (c *Controller) HandleKey(key schema.Key) {
	switch key.Kind {
	case schema.KeyEnter:
		c.submit()
	case schema.KeyTab:
		c.autocomplete()
	case schema.KeyUp:
		c.recall(-1)
	case schema.KeyDown:
		c.recall(1)
	case schema.KeyLeft:
		if !c.stepPage(-1) {
			c.caret(c.buf.MoveLeft())
		}
	case schema.KeyRight:
		if !c.stepPage(1) {
			c.caret(c.buf.MoveRight())
		}
	case schema.KeyHome, schema.KeyCtrlA:
		c.buf.MoveStart()
		c.caret(true)
	case schema.KeyEnd, schema.KeyCtrlE:
		c.buf.MoveEnd()
		c.caret(true)
	case schema.KeyEscape, schema.KeyCtrlC:
		c.Reset()
	case schema.KeyRune:
		c.edit(c.buf.Insert(printable(key.Text)))
	case schema.KeyBackspace:
		c.edit(c.buf.Backspace())
	case schema.KeyDelete, schema.KeyCtrlD:
		c.edit(c.buf.Delete())
	case schema.KeyCtrlU:
		c.edit(c.buf.KillToStart())
	case schema.KeyCtrlK:
		c.edit(c.buf.KillToEnd())
	case schema.KeyCtrlW:
		c.edit(c.buf.DeleteWordBackward())
	}
	c.publish()
}

// ClickPage activates block as the page-nav target and steps it by direction.
func (c *Controller) ClickPage(block *PagedBlock, direction int) {
	if block == nil {
		return
	}
	c.state.EnterPageNav(block)
	if block.Step(direction) {
		c.output.ShowPage(block)
	}
}

// Reset clears the edit line, the history cursor, the suggestion and page navigation.
func (c *Controller) Reset() {
	c.buf.Clear()
	c.history.Reset()
	c.state.ClearSuggestion()
	c.state.ExitPageNav()
	c.publish()
}

// ClearInput empties the edit line and drops any pending suggestion.
func (c *Controller) ClearInput() {
	c.buf.Clear()
	c.state.ClearSuggestion()
	c.publish()
}

func (c *Controller) submit() {
	if c.state.Mode() == schema.ModePasswordPrompt {
		c.state.ExitPasswordPrompt()
		if c.view != nil {
			c.view.ShowMode(c.state.Mode())
		}
		c.output.Append(Block{HTML: `<p class="error">Incorrect password</p>`, Variant: schema.VariantError})
		c.buf.Clear()
		c.state.ClearSuggestion()
		return
	}
	line := strings.TrimSpace(c.buf.String())
	if line == "" {
		return
	}
	label := schema.PromptLabel(c.state.Identity(), c.host)
	c.output.Append(Block{
		HTML: `<p><span class="prompt-label">` + html.EscapeString(label) + `</span> ` + html.EscapeString(line) + `</p>`,
	})
	c.history.Push(line)
	c.buf.Clear()
	c.state.ClearSuggestion()
	c.dispatch(line)
}

func (c *Controller) autocomplete() {
	if c.state.Mode() == schema.ModePasswordPrompt {
		return
	}
	if _, ok := c.state.Suggestion(); !ok {
		c.refreshSuggestion()
	}
	if suggestion, ok := c.state.Suggestion(); ok {
		c.buf.Set(suggestion.Value, suggestion.Cursor)
		c.state.ClearSuggestion()
		return
	}
	completed, ok := c.completer.CompleteToken(c.buf.BeforeCursor())
	if !ok {
		return
	}
	c.buf.SetString(completed)
	c.state.ClearSuggestion()
}

func (c *Controller) recall(direction int) {
	if c.state.Mode() == schema.ModePasswordPrompt {
		return
	}
	value, moved := c.history.Step(direction)
	if !moved {
		return
	}
	c.buf.SetString(value)
	c.refreshSuggestion()
}

func (c *Controller) stepPage(direction int) bool {
	block, ok := c.state.PageNav()
	if !ok {
		return false
	}
	if block.Step(direction) {
		c.output.ShowPage(block)
	}
	return true
}

func (c *Controller) caret(moved bool) {
	if moved {
		c.refreshSuggestion()
	}
}

func (c *Controller) edit(changed bool) {
	if !changed {
		return
	}
	c.state.ExitPageNav()
	c.history.Reset()
	c.refreshSuggestion()
}

func (c *Controller) refreshSuggestion() {
	c.state.ClearSuggestion()
	if c.state.Mode() == schema.ModePasswordPrompt || !c.buf.AtEnd() {
		return
	}
	if suggestion, ok := c.completer.Preview(c.buf.String()); ok {
		c.state.SetSuggestion(suggestion)
	}
}

func (c *Controller) publish() {
	if c.view == nil {
		return
	}
	input := schema.InputEvent{
		Value:  c.buf.String(),
		Cursor: c.buf.Cursor(),
		Masked: c.state.Mode() == schema.ModePasswordPrompt,
	}
	if suggestion, ok := c.state.Suggestion(); ok {
		input.Suggestion = suggestion.Value
	}
	c.view.ShowInput(input)
}

// printable drops control characters from pasted or typed text; tabs and
// newlines become spaces.
func printable(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == utf8.RuneError:
			continue
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(' ')
		case unicode.IsControl(r):
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
