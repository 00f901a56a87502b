package retrieval

import (
	"strings"
	"unicode"
)

// HighlightQueryTerms wraps whole-word, case-insensitive occurrences of any
// query term in snippet with <b>...</b>, the same "wrap the matched span in
// bold/italic markup" approach the original result prettifier used for
// spell-correction highlighting. Empty query or snippet is a no-op.
func HighlightQueryTerms(snippet, query string) string {
	terms := queryTerms(query)
	if snippet == "" || len(terms) == 0 {
		return snippet
	}

	var b strings.Builder
	runes := []rune(snippet)
	i := 0
	for i < len(runes) {
		if !startsWordAt(runes, i) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		matched := ""
		for _, term := range terms {
			if hasWordAt(runes, i, term) {
				matched = term
				break
			}
		}
		if matched == "" {
			b.WriteRune(runes[i])
			i++
			continue
		}
		b.WriteString("<b>")
		b.WriteString(string(runes[i : i+len([]rune(matched))]))
		b.WriteString("</b>")
		i += len([]rune(matched))
	}
	return b.String()
}

func queryTerms(query string) []string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `"`)
		if f == "" || f[0] == '-' {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

func startsWordAt(runes []rune, i int) bool {
	if i > 0 && isWordRune(runes[i-1]) {
		return false
	}
	return isWordRune(runes[i])
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func hasWordAt(runes []rune, i int, term string) bool {
	t := []rune(term)
	if i+len(t) > len(runes) {
		return false
	}
	for j, tr := range t {
		if unicode.ToLower(runes[i+j]) != unicode.ToLower(tr) {
			return false
		}
	}
	if i+len(t) < len(runes) && isWordRune(runes[i+len(t)]) {
		return false
	}
	return true
}

// PrettyURL strips the query string and a trailing slash from url, the
// same cosmetic trim the result prettifier applies before display.
func PrettyURL(url string) string {
	if idx := strings.IndexByte(url, '?'); idx >= 0 {
		url = url[:idx]
	}
	url = strings.TrimSuffix(url, "/")
	return url
}
