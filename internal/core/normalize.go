package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes free text for matching: lowercase, trimmed, with
// diacritics stripped via NFKD decomposition. It is the sole key used for
// every equality and substring comparison in the engine, which is what makes
// matching case- and accent-insensitive ("São Paulo" == "sao paulo").
// Empty or whitespace-only input returns "".
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
