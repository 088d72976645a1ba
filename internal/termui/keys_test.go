package termui

import (
	"strings"
	"testing"

	"pkt.systems/qult/schema"
)

func decode(t *testing.T, input string) []schema.Key {
	t.Helper()
	out := make(chan schema.Key, 64)
	ReadKeys(strings.NewReader(input), out)
	var keys []schema.Key
	for k := range out {
		keys = append(keys, k)
	}
	return keys
}

func TestReadKeysPrintableAndControl(t *testing.T) {
	keys := decode(t, "hé\x7f\x01\x05\x15\x0b\x17\x04\x03\t")
	want := []schema.Key{
		schema.Runes("h"),
		schema.Runes("é"),
		{Kind: schema.KeyBackspace},
		{Kind: schema.KeyCtrlA},
		{Kind: schema.KeyCtrlE},
		{Kind: schema.KeyCtrlU},
		{Kind: schema.KeyCtrlK},
		{Kind: schema.KeyCtrlW},
		{Kind: schema.KeyCtrlD},
		{Kind: schema.KeyCtrlC},
		{Kind: schema.KeyTab},
	}
	assertKeys(t, keys, want)
}

func TestReadKeysEnterCollapsesCRLF(t *testing.T) {
	keys := decode(t, "a\r\nb\n")
	want := []schema.Key{
		schema.Runes("a"),
		{Kind: schema.KeyEnter},
		schema.Runes("b"),
		{Kind: schema.KeyEnter},
	}
	assertKeys(t, keys, want)
}

func TestReadKeysEscapeSequences(t *testing.T) {
	keys := decode(t, "\x1b[A\x1b[B\x1b[C\x1b[D\x1b[H\x1b[F\x1b[5~\x1b[6~\x1b[3~\x1bOH\x1bOF\x1b[1~")
	want := []schema.Key{
		{Kind: schema.KeyUp},
		{Kind: schema.KeyDown},
		{Kind: schema.KeyRight},
		{Kind: schema.KeyLeft},
		{Kind: schema.KeyHome},
		{Kind: schema.KeyEnd},
		{Kind: schema.KeyPageUp},
		{Kind: schema.KeyPageDown},
		{Kind: schema.KeyDelete},
		{Kind: schema.KeyHome},
		{Kind: schema.KeyEnd},
		{Kind: schema.KeyHome},
	}
	assertKeys(t, keys, want)
}

func TestReadKeysLoneEscape(t *testing.T) {
	keys := decode(t, "\x1b")
	assertKeys(t, keys, []schema.Key{{Kind: schema.KeyEscape}})
}

func TestReadKeysEscapeBeforeRune(t *testing.T) {
	keys := decode(t, "\x1bx")
	assertKeys(t, keys, []schema.Key{{Kind: schema.KeyEscape}, schema.Runes("x")})
}

func TestReadKeysDropsUnknownControls(t *testing.T) {
	keys := decode(t, "\x00\x1fz")
	assertKeys(t, keys, []schema.Key{schema.Runes("z")})
}

func assertKeys(t *testing.T, got, want []schema.Key) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d keys, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("key %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
