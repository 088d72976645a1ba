package schema

import "fmt"

// KeyKind identifies a key event.
type KeyKind string

const (
	KeyRune      KeyKind = "rune"
	KeyEnter     KeyKind = "enter"
	KeyBackspace KeyKind = "backspace"
	KeyDelete    KeyKind = "delete"
	KeyLeft      KeyKind = "left"
	KeyRight     KeyKind = "right"
	KeyUp        KeyKind = "up"
	KeyDown      KeyKind = "down"
	KeyHome      KeyKind = "home"
	KeyEnd       KeyKind = "end"
	KeyTab       KeyKind = "tab"
	KeyEscape    KeyKind = "escape"
	KeyPageUp    KeyKind = "pageup"
	KeyPageDown  KeyKind = "pagedown"
	KeyCtrlA     KeyKind = "ctrl-a"
	KeyCtrlC     KeyKind = "ctrl-c"
	KeyCtrlD     KeyKind = "ctrl-d"
	KeyCtrlE     KeyKind = "ctrl-e"
	KeyCtrlK     KeyKind = "ctrl-k"
	KeyCtrlU     KeyKind = "ctrl-u"
	KeyCtrlW     KeyKind = "ctrl-w"
)

// Key is a single key event. Text carries the inserted characters for KeyRune
// (more than one rune for pastes).
type Key struct {
	Kind KeyKind `json:"kind"`
	Text string  `json:"text,omitempty"`
}

// Runes returns a KeyRune event inserting text.
func Runes(text string) Key {
	return Key{Kind: KeyRune, Text: text}
}

// Validate reports whether the key kind is known.
func (k Key) Validate() error {
	switch k.Kind {
	case KeyRune:
		if k.Text == "" {
			return fmt.Errorf("%w: empty rune text", ErrInvalidKey)
		}
		return nil
	case KeyEnter, KeyBackspace, KeyDelete, KeyLeft, KeyRight, KeyUp, KeyDown,
		KeyHome, KeyEnd, KeyTab, KeyEscape, KeyPageUp, KeyPageDown,
		KeyCtrlA, KeyCtrlC, KeyCtrlD, KeyCtrlE, KeyCtrlK, KeyCtrlU, KeyCtrlW:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKey, string(k.Kind))
	}
}
