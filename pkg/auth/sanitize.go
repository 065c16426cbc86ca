package auth

import (
	"strings"
	"unicode"
)

// SanitizeName prepares a display name for validation and storage. Control and
// invisible format runes (zero-width spaces, bidi overrides) are dropped and runs of
// whitespace collapse to one space. Markup is left for the validator to reject;
// escaping happens where names are rendered.
func SanitizeName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, name)
	return strings.Join(strings.Fields(cleaned), " ")
}
