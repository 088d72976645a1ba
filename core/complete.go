package core

import (
	"strings"
	"unicode/utf8"
)

// Suggest returns the completion for fragment within pool: the single match, the
// longest common prefix of several matches, or "" when nothing matches.
func Suggest(fragment string, pool []string) string {
	if fragment == "" {
		return ""
	}
	matches := make([]string, 0, len(pool))
	for _, item := range pool {
		if strings.HasPrefix(item, fragment) {
			matches = append(matches, item)
		}
	}
	switch len(matches) {
	case 0:
		return ""
	case 1:
		return matches[0]
	default:
		return CommonPrefix(matches)
	}
}

// CommonPrefix returns the longest prefix shared by every entry of list.
func CommonPrefix(list []string) string {
	if len(list) == 0 {
		return ""
	}
	prefix := list[0]
	for _, item := range list[1:] {
		for !strings.HasPrefix(item, prefix) {
			_, size := utf8.DecodeLastRuneInString(prefix)
			prefix = prefix[:len(prefix)-size]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}

// Completer holds the completion pools: command names and per-command argument pools.
type Completer struct {
	commands []string
	args     map[string][]string
}

// NewCompleter builds a completer. Command names are de-duplicated keeping
// first-seen order.
func NewCompleter(commands []string, args map[string][]string) *Completer {
	seen := make(map[string]struct{}, len(commands))
	unique := make([]string, 0, len(commands))
	for _, name := range commands {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	pools := make(map[string][]string, len(args))
	for cmd, pool := range args {
		pools[strings.ToLower(cmd)] = append([]string(nil), pool...)
	}
	return &Completer{commands: unique, args: pools}
}

// Commands returns the command-name pool.
func (c *Completer) Commands() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.commands...)
}

// Preview computes the pending suggestion for a buffer whose caret sits at the end.
// The returned value keeps the casing the user typed and appends the completed remainder.
func (c *Completer) Preview(value string) (Suggestion, bool) {
	if c == nil {
		return Suggestion{}, false
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Suggestion{}, false
	}
	trailingSpace := strings.HasSuffix(value, " ")
	parts := strings.Fields(trimmed)
	token := parts[0]
	lowered := strings.ToLower(token)

	if len(parts) == 1 && !trailingSpace {
		match := Suggest(lowered, c.commands)
		if match == "" || match == lowered {
			return Suggestion{}, false
		}
		full := token + match[len(lowered):]
		return Suggestion{Value: full, Cursor: utf8.RuneCountInString(full)}, true
	}

	pool, ok := c.args[lowered]
	if !ok || trailingSpace {
		return Suggestion{}, false
	}
	idx := strings.IndexAny(trimmed, " \t")
	if idx < 0 {
		return Suggestion{}, false
	}
	fragment := trimmed[idx+1:]
	if fragment == "" {
		return Suggestion{}, false
	}
	loweredFragment := strings.ToLower(fragment)
	match := Suggest(loweredFragment, pool)
	if match == "" || match == loweredFragment {
		return Suggestion{}, false
	}
	full := token + " " + fragment + match[len(loweredFragment):]
	return Suggestion{Value: full, Cursor: utf8.RuneCountInString(full)}, true
}

// CompleteToken completes a lone command token typed before the caret. It returns
// the completed token and false when there is nothing to add.
func (c *Completer) CompleteToken(prefix string) (string, bool) {
	if c == nil {
		return "", false
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || strings.ContainsAny(prefix, " \t") {
		return "", false
	}
	lowered := strings.ToLower(prefix)
	match := Suggest(lowered, c.commands)
	if match == "" || match == lowered {
		return "", false
	}
	return prefix + match[len(lowered):], true
}
