package command

import (
	"strings"
	"unicode"
)

// Command represents a parsed input line.
type Command struct {
	// Name is the lowercased first token.
	Name string
	// Token is the first token as typed.
	Token     string
	Args      []string
	Raw       string
	Remainder string
}

// ArgString returns the arguments joined by single spaces.
func (c Command) ArgString() string {
	return strings.Join(c.Args, " ")
}

// Parse splits a line into its command token and arguments. It reports false for
// blank input. Remainder keeps the internal whitespace of everything after the token.
func Parse(input string) (Command, bool) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, false
	}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Command{}, false
	}
	args := []string{}
	if len(fields) > 1 {
		args = fields[1:]
	}
	return Command{
		Name:      strings.ToLower(fields[0]),
		Token:     fields[0],
		Args:      args,
		Raw:       raw,
		Remainder: remainderAfterTokens(raw, 1),
	}, true
}

func remainderAfterTokens(raw string, count int) string {
	rest := raw
	for ; count > 0; count-- {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			return ""
		}
		rest = rest[end:]
	}
	return strings.TrimSpace(rest)
}
