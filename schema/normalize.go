package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SanitizeIdentity strips every character outside [A-Za-z0-9._-].
// An empty result means the value is not acceptable as an identity.
func SanitizeIdentity(value string) string {
	trimmed := strings.TrimSpace(value)
	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		if isASCIIAlnum(r) || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Slugify normalizes free text into a lookup slug: accents are folded, the text is
// lower-cased, every run of characters outside [a-z0-9] becomes a single hyphen and
// leading/trailing hyphens are dropped. "AI & Strategy!!" becomes "ai-strategy".
func Slugify(value string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, value)
	if err != nil {
		folded = value
	}
	lower := cases.Lower(language.Und).String(folded)
	var b strings.Builder
	b.Grow(len(lower))
	gap := false
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if gap && b.Len() > 0 {
				b.WriteByte('-')
			}
			gap = false
			b.WriteRune(r)
			continue
		}
		gap = true
	}
	return b.String()
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
