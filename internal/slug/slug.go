// Package slug generates URL slugs for concerts.
package slug

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"conciertapp/internal/textnorm"
)

// ErrMissingVenue is returned when a concert slug cannot be built because
// the venue name is unknown.
var ErrMissingVenue = errors.New("venue information not available")

// Make folds s to lowercase ASCII, drops punctuation and joins words with
// single hyphens. Make is idempotent.
func Make(s string) string {
	var sb strings.Builder
	pendingDash := false
	for _, r := range textnorm.Fold(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingDash = false
			sb.WriteRune(r)
		case unicode.IsSpace(r), r == '-', r == '_':
			pendingDash = true
		}
	}
	return sb.String()
}

// Concert builds "<title>-en-<venue>". An untitled concert keeps the
// connector: "en-<venue>".
func Concert(title, venue string) (string, error) {
	v := Make(venue)
	if v == "" {
		return "", ErrMissingVenue
	}
	t := Make(title)
	if t == "" {
		return "en-" + v, nil
	}
	return t + "-en-" + v, nil
}

// WithSuffix disambiguates a colliding slug; n starts at 2.
func WithSuffix(base string, n int) string {
	if n < 2 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// Valid reports whether s contains only [a-z0-9-] and is non-empty.
func Valid(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}
