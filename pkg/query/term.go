// Package query tokenizes raw search strings into typed terms (§4.1) and
// lowers them to a boolean retrieval plan (§4.2).
package query

import (
	"strings"
	"unicode/utf8"
)

// TermKind discriminates the variants of Term.
type TermKind int

const (
	KindSimple TermKind = iota
	KindPhrase
	KindNot
	KindSite
	KindTitle
	KindBody
	KindUrl
	KindPossibleBang
)

// Term is a single parsed atom. Phrase preserves word order; Not wraps an
// inner Term (never another Not — a leading "--" is not a double negation
// and stays literal Simple text, see Parse). Simple carries
// already-lowercased raw text.
type Term struct {
	Kind   TermKind
	Text   string   // Simple, Site, Title, Body, Url, PossibleBang
	Phrase []string // KindPhrase only, in order
	Inner  *Term    // KindNot only
}

// fieldPrefixes maps a recognized "field:" prefix to the Term kind it produces.
var fieldPrefixes = []struct {
	prefix string
	kind   TermKind
}{
	{"site:", KindSite},
	{"intitle:", KindTitle},
	{"inbody:", KindBody},
	{"inurl:", KindUrl},
}

// bangPrefix is the configurable leading rune that marks a PossibleBang term.
const bangPrefix = '!'

// Parse tokenizes s into an ordered list of Term. It lowercases the input,
// normalizes curly quotes to straight quotes, and scans left to right on
// UTF-8 rune boundaries. Parse never errors and never panics for any input;
// an empty result means the caller should treat the query as empty (§4.9,
// searcherr.ErrEmptyQuery is raised by the caller, not here).
func Parse(s string) []Term {
	s = normalize(s)
	if s == "" {
		return nil
	}

	var terms []Term
	runes := []rune(s)
	i := 0
	n := len(runes)

	for i < n {
		for i < n && runes[i] == ' ' {
			i++
		}
		if i >= n {
			break
		}

		negate := false
		if runes[i] == '-' && i+1 < n && runes[i+1] != '-' {
			negate = true
			i++
			for i < n && runes[i] == ' ' {
				i++
			}
			if i >= n {
				break
			}
		}

		var term Term
		term, i = parseOne(runes, i)
		if negate {
			inner := term
			term = Term{Kind: KindNot, Inner: &inner}
		}
		terms = append(terms, term)
	}

	return terms
}

// parseOne parses a single term (possibly a field-prefixed, phrase, or bang
// term) starting at index i and returns the term plus the next index.
func parseOne(runes []rune, i int) (Term, int) {
	n := len(runes)
	rest := string(runes[i:])

	for _, fp := range fieldPrefixes {
		if strings.HasPrefix(rest, fp.prefix) {
			j := i + utf8.RuneCountInString(fp.prefix)
			arg, next := scanToken(runes, j)
			if arg == "" {
				// A lone prefix with empty argument degrades to a simple term
				// consisting of the prefix text itself.
				return Term{Kind: KindSimple, Text: strings.TrimSuffix(fp.prefix, ":")}, next
			}
			return Term{Kind: fp.kind, Text: arg}, next
		}
	}

	if runes[i] == '"' {
		return scanPhrase(runes, i)
	}

	if runes[i] == bangPrefix {
		arg, next := scanToken(runes, i+1)
		return Term{Kind: KindPossibleBang, Text: arg}, next
	}

	_ = n
	text, next := scanToken(runes, i)
	return Term{Kind: KindSimple, Text: text}, next
}

// scanToken consumes a single whitespace-delimited token starting at i.
func scanToken(runes []rune, i int) (string, int) {
	n := len(runes)
	start := i
	for i < n && runes[i] != ' ' {
		i++
	}
	return string(runes[start:i]), i
}

// scanPhrase consumes a double-quoted span starting at the opening quote
// index i. An unterminated opening quote is treated as a literal token
// (including the leading quote character).
func scanPhrase(runes []rune, i int) (Term, int) {
	n := len(runes)
	start := i + 1
	j := start
	for j < n && runes[j] != '"' {
		j++
	}
	if j >= n {
		// Unterminated: literal token from the quote onward.
		text, next := scanToken(runes, i)
		return Term{Kind: KindSimple, Text: text}, next
	}
	words := strings.Fields(string(runes[start:j]))
	return Term{Kind: KindPhrase, Phrase: words}, j + 1
}

// normalize lowercases s and rewrites curly quotes to straight quotes.
func normalize(s string) string {
	s = strings.ToLower(s)
	replacer := strings.NewReplacer(
		"“", "\"", "”", "\"",
		"‘", "'", "’", "'",
	)
	return strings.TrimSpace(replacer.Replace(s))
}
