package token

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalizer strips combining marks after NFD decomposition and recomposes.
// For Hebrew this removes vowel points and cantillation; for Greek it removes
// accents and breathings. Base letters are untouched.
var normalizer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize returns the text with all combining marks removed. This is the
// shared normal form both canonical and source tokens are compared in: span
// matching is only meaningful when both sides agree on every character.
func Normalize(s string) string {
	out, _, err := transform.String(normalizer, s)
	if err != nil {
		// transform.String only fails on malformed UTF-8; fall back to a
		// rune-by-rune copy that drops the bad bytes.
		var sb strings.Builder
		for _, r := range s {
			if r == unicode.ReplacementChar {
				continue
			}
			sb.WriteRune(r)
		}
		out, _, _ = transform.String(normalizer, sb.String())
	}
	return out
}
