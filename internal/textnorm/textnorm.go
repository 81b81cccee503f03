// Package textnorm folds human-entered names into comparable keys.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips diacritics ("Ñuñoa" -> "nunoa").
func Fold(s string) string {
	// transform.Chain keeps state, so it is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Key folds s and collapses runs of whitespace, for equality checks.
func Key(s string) string {
	return strings.Join(strings.Fields(Fold(s)), " ")
}

// Equal reports whether a and b fold to the same key.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}
