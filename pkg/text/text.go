// Package text provides the small text-normalization helpers shared by
// tokenization-sensitive code: word-splitting for pattern query terms and
// Unicode sanitization for stored page text.
package text

import (
	"strings"
	"unicode"
)

// Tokenize splits text into lowercase word tokens on any non-letter,
// non-digit rune — the whole-word splitting a BM25-style term matcher
// needs. pkg/pattern uses it as its DefaultTokenizer; query-term
// highlighting in pkg/retrieval does its own matching and does not call it.
func Tokenize(text string) []string {
	text = strings.ToLower(text)

	var tokens []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

// Sanitize replaces control characters (other than tab, newline and CR)
// with a space, and surrogate code points with U+FFFD, in text before it's
// stored, so a malformed title or snippet can't corrupt
// later display or JSON encoding.
func Sanitize(text string) string {
	if len(text) == 0 {
		return text
	}

	var result strings.Builder
	result.Grow(len(text))

	for _, r := range text {
		// Replace problematic control characters with a space (keep tab, newline, CR)
		if (r >= 0x00 && r <= 0x08) || r == 0x0B || (r >= 0x0E && r <= 0x1F) {
			result.WriteRune(' ')
			continue
		}

		// Replace surrogate code points (invalid in Go strings) with U+FFFD
		if r >= 0xD800 && r <= 0xDFFF {
			result.WriteRune('�')
			continue
		}

		result.WriteRune(r)
	}

	return result.String()
}
