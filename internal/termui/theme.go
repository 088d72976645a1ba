package termui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// DefaultTheme is used when no theme is configured.
const DefaultTheme = "outrun"

type palette struct {
	ErrorFG  string
	SystemFG string
	PromptFG string
	HintFG   string
	CodeFG   string
}

var palettes = map[string]palette{
	"outrun": {
		ErrorFG:  "#ff6b6b",
		SystemFG: "#9aa3b2",
		PromptFG: "#ff5bbd",
		HintFG:   "#3c4fb8",
		CodeFG:   "#70d6ff",
	},
	"gruvbox": {
		ErrorFG:  "#fb4934",
		SystemFG: "#928374",
		PromptFG: "#fabd2f",
		HintFG:   "#4b6ea6",
		CodeFG:   "#83a598",
	},
	"plain": {},
}

// Theme styles the parts of the terminal that are not rendered markdown.
type Theme struct {
	Name       string
	Error      lipgloss.Style
	System     lipgloss.Style
	Prompt     lipgloss.Style
	Suggestion lipgloss.Style
	Counter    lipgloss.Style
	Hint       lipgloss.Style
}

// ThemeNames lists the known theme names.
func ThemeNames() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewTheme builds the named theme for the given color profile. termenv.Ascii
// disables colour entirely.
func NewTheme(name string, profile termenv.Profile) (Theme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultTheme
	}
	p, ok := palettes[name]
	if !ok {
		return Theme{}, fmt.Errorf("unknown theme %q (known: %s)", name, strings.Join(ThemeNames(), ", "))
	}
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(profile)
	r.SetHasDarkBackground(true)
	fg := func(style lipgloss.Style, color string) lipgloss.Style {
		if color == "" {
			return style
		}
		return style.Foreground(lipgloss.Color(color))
	}
	return Theme{
		Name:       name,
		Error:      fg(r.NewStyle(), p.ErrorFG),
		System:     fg(r.NewStyle().Italic(true), p.SystemFG),
		Prompt:     fg(r.NewStyle().Bold(true), p.PromptFG),
		Suggestion: r.NewStyle().Faint(true),
		Counter:    fg(r.NewStyle().Bold(true), p.CodeFG),
		Hint:       fg(r.NewStyle().Faint(true), p.HintFG),
	}, nil
}
