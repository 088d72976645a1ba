package schema

import "fmt"

// SessionID identifies a shell session.
type SessionID string

// BlockID identifies a rendered output block within a session.
type BlockID uint64

// DefaultIdentity is the identity label of a fresh session.
const DefaultIdentity = "nobody"

// DefaultHost is the host part of the prompt label.
const DefaultHost = "qult"

// Mode is the input mode of a session.
type Mode int

const (
	// ModeNormal accepts commands.
	ModeNormal Mode = iota
	// ModePasswordPrompt masks input and treats the next submit as a password attempt.
	ModePasswordPrompt
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModePasswordPrompt:
		return "password"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText encodes the mode as its name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "normal", "":
		*m = ModeNormal
	case "password":
		*m = ModePasswordPrompt
	default:
		return fmt.Errorf("unknown mode %q", string(text))
	}
	return nil
}

// Variant selects the styling of an output block. It never affects routing.
type Variant string

const (
	// VariantDefault is plain output.
	VariantDefault Variant = ""
	// VariantSystem marks system notices.
	VariantSystem Variant = "system"
	// VariantError marks error output.
	VariantError Variant = "error"
)

// ScrollHint tells a surface how to position the viewport after a block is added.
type ScrollHint string

const (
	// ScrollBottom scrolls to the end of the output.
	ScrollBottom ScrollHint = "bottom"
	// ScrollBlockTop scrolls so the new block starts at the top of the viewport.
	ScrollBlockTop ScrollHint = "block-top"
	// ScrollAfterImages defers scrolling to the bottom until every image in the block
	// has loaded or failed.
	ScrollAfterImages ScrollHint = "after-images"
)

// PromptLabel returns the prompt text for an identity, e.g. "nobody@qult>".
func PromptLabel(identity, host string) string {
	if identity == "" {
		identity = DefaultIdentity
	}
	if host == "" {
		host = DefaultHost
	}
	return identity + "@" + host + ">"
}
