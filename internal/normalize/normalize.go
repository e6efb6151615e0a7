// Package normalize builds comparison keys from free-text break and
// geography names. Keys are only ever used for matching, never stored
// as identity.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, drops combining marks, recomposes.
// "Barthélemy" -> "Barthelemy".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Key normalizes free text into a comparison key:
//  1. lowercase, trim outer whitespace
//  2. strip diacritics to base characters
//  3. drop punctuation (digits are kept; break names can be numeric)
//  4. collapse internal whitespace runs to a single space
//
// Key is pure, total, and idempotent: Key(Key(x)) == Key(x).
func Key(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '-', r == '_', r == '/':
			// Separators become a single space between words.
			pendingSpace = true
		default:
			// Remaining punctuation carries no meaning for matching.
		}
	}
	return b.String()
}

// Equal reports whether two strings normalize to the same key.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}
