package command

import (
	"errors"
	"testing"

	"pkt.systems/qult/schema"
)

func TestParse(t *testing.T) {
	cmd, ok := Parse("  Echo   hello   world  ")
	if !ok {
		t.Fatalf("expected command")
	}
	if cmd.Name != "echo" || cmd.Token != "Echo" {
		t.Fatalf("unexpected token %+v", cmd)
	}
	if cmd.Remainder != "hello   world" {
		t.Fatalf("unexpected remainder %q", cmd.Remainder)
	}
	if cmd.ArgString() != "hello world" {
		t.Fatalf("unexpected arg string %q", cmd.ArgString())
	}
	if _, ok := Parse(" \t "); ok {
		t.Fatalf("blank input must not parse")
	}
}

func TestParseUnicodeSpaces(t *testing.T) {
	cases := []struct {
		input     string
		name      string
		remainder string
	}{
		{"echo\u00a0hi", "echo", "hi"},
		{"echo\u2003hello\u00a0 world", "echo", "hello\u00a0 world"},
		{"svc\u3000Café", "svc", "Café"},
		{"whoami\u00a0", "whoami", ""},
	}
	for _, tc := range cases {
		cmd, ok := Parse(tc.input)
		if !ok {
			t.Fatalf("Parse(%q) reported blank input", tc.input)
		}
		if cmd.Name != tc.name || cmd.Remainder != tc.remainder {
			t.Fatalf("Parse(%q) = name %q remainder %q, want %q %q", tc.input, cmd.Name, cmd.Remainder, tc.name, tc.remainder)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"su":       KindElevated,
		"sudo":     KindElevated,
		"clear":    KindClear,
		"echo":     KindEcho,
		"ai":       KindAI,
		"cat":      KindCat,
		"svc":      KindService,
		"case":     KindCase,
		"name":     KindName,
		"whoami":   KindWhoami,
		"help":     KindContent,
		"services": KindContent,
		"rm":       KindRestricted,
		"unset":    KindRestricted,
		"zork":     KindUnknown,
		"":         KindUnknown,
	}
	for token, want := range cases {
		if got := Classify(token); got != want {
			t.Fatalf("Classify(%q) = %s, want %s", token, got, want)
		}
	}
}

func TestCompleterPools(t *testing.T) {
	c := NewCompleter()
	commands := c.Commands()
	if len(commands) != 17 {
		t.Fatalf("expected 17 unique commands, got %d: %v", len(commands), commands)
	}
	if s, ok := c.Preview("svc inf"); !ok || s.Value != "svc infra" {
		t.Fatalf("unexpected service completion %+v", s)
	}
}

func TestMessageTaxonomy(t *testing.T) {
	cases := []struct {
		err     error
		message string
		variant schema.Variant
	}{
		{&UsageError{Command: "svc", Usage: "Usage: svc &lt;name&gt;"}, "Usage: svc &lt;name&gt;", schema.VariantError},
		{&UsageError{Command: "name", Usage: "hint", Notice: true}, "hint", schema.VariantSystem},
		{&ValidationError{Reason: "bad <name>"}, "bad &lt;name&gt;", schema.VariantError},
		{&NotFoundError{Command: "<x>"}, "command not found: <code>&lt;x&gt;</code>", schema.VariantError},
		{&NotFoundError{Resource: "service-x"}, "resource not found.", schema.VariantError},
		{&PermissionError{Command: "rm"}, "You don't have permissions to perform this command", schema.VariantError},
		{&FetchError{ID: "about", Err: schema.ErrFetch}, "Content is unavailable right now.", schema.VariantError},
		{&FetchError{ID: "case-x", Resource: true, Err: schema.ErrFetch}, "Unable to load resource right now.", schema.VariantError},
		{&DispatchError{Err: errors.New("boom")}, "Command failed. Please try again.", schema.VariantError},
		{errors.New("anything"), "Command failed. Please try again.", schema.VariantError},
	}
	for _, tc := range cases {
		if got := Message(tc.err); got != tc.message {
			t.Fatalf("Message(%v) = %q, want %q", tc.err, got, tc.message)
		}
		if got := Variant(tc.err); got != tc.variant {
			t.Fatalf("Variant(%v) = %q, want %q", tc.err, got, tc.variant)
		}
	}
	if !errors.Is(&NotFoundError{Command: "x"}, schema.ErrNotFound) {
		t.Fatalf("not found errors must match schema.ErrNotFound")
	}
	if !errors.Is(fetchError("about", false, schema.ErrNotFound), schema.ErrNotFound) {
		t.Fatalf("fetch errors must keep their cause")
	}
}
