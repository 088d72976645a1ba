package format

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/x/ansi"

	"pkt.systems/qult/internal/markdown"
)

// DefaultStyle is the glamour style used when none is configured.
const DefaultStyle = styles.DarkStyle

// TerminalRenderer renders fragments as ANSI-styled markdown.
type TerminalRenderer struct {
	width    int
	style    string
	term     *glamour.TermRenderer
	fallback *PlainRenderer
}

// NewTerminalRenderer returns a renderer word-wrapping at width cells using
// the named glamour style ("dark", "light", "notty", "ascii", ...).
func NewTerminalRenderer(width int, style string) (*TerminalRenderer, error) {
	if width <= 0 {
		width = 80
	}
	style = strings.ToLower(strings.TrimSpace(style))
	if style == "" {
		style = DefaultStyle
	}
	if _, ok := styles.DefaultStyles[style]; !ok {
		return nil, fmt.Errorf("unknown terminal style %q", style)
	}
	term, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return &TerminalRenderer{
		width:    width,
		style:    style,
		term:     term,
		fallback: NewPlainRenderer(width),
	}, nil
}

// Width reports the wrap width.
func (r *TerminalRenderer) Width() int {
	return r.width
}

// Style reports the glamour style name.
func (r *TerminalRenderer) Style() string {
	return r.style
}

// Lines implements LineRenderer. Fragments that cannot be converted fall back
// to plain text.
func (r *TerminalRenderer) Lines(fragment string) ([]string, error) {
	md, err := markdown.FromHTML(fragment)
	if err != nil {
		return r.fallback.Lines(fragment)
	}
	if md == "" {
		return nil, nil
	}
	out, err := r.term.Render(md)
	if err != nil {
		return r.fallback.Lines(fragment)
	}
	return trimBlank(strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")), nil
}

func trimBlank(lines []string) []string {
	start := 0
	for start < len(lines) && blank(lines[start]) {
		start++
	}
	end := len(lines)
	for end > start && blank(lines[end-1]) {
		end--
	}
	return lines[start:end]
}

func blank(line string) bool {
	return strings.TrimSpace(ansi.Strip(line)) == ""
}

// CompactRenderer renders single-paragraph fragments as plain wrapped text and
// everything else with the rich renderer, so short replies stay one line.
type CompactRenderer struct {
	rich  LineRenderer
	plain *PlainRenderer
}

// NewCompactRenderer wraps rich with a plain renderer of the given width.
func NewCompactRenderer(rich LineRenderer, width int) *CompactRenderer {
	return &CompactRenderer{rich: rich, plain: NewPlainRenderer(width)}
}

// Lines implements LineRenderer.
func (c *CompactRenderer) Lines(fragment string) ([]string, error) {
	md, err := markdown.FromHTML(fragment)
	if err != nil || md == "" {
		return c.plain.Lines(fragment)
	}
	if !strings.Contains(md, "\n") && !strings.HasPrefix(md, "#") && !strings.HasPrefix(md, "-") {
		return c.plain.Lines(fragment)
	}
	return c.rich.Lines(fragment)
}
