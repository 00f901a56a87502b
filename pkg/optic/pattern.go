package optic

import (
	"strings"

	"github.com/scour-engine/scour/pkg/pattern"
	"github.com/scour-engine/scour/pkg/searcherr"
)

// compilePattern lowers a grammar `pattern` string (§4.4: '*' wildcard, '|'
// anchor at start/end) to a pattern.Part sequence. A '|' anywhere other than
// the first or last rune is UnsupportedPattern — the pattern engine only
// routes anchors at a field's boundaries.
func compilePattern(s string) ([]pattern.Part, error) {
	if s == "" {
		return nil, nil
	}

	runes := []rune(s)
	var parts []pattern.Part
	var raw strings.Builder

	flush := func() {
		if raw.Len() > 0 {
			parts = append(parts, pattern.Raw(raw.String()))
			raw.Reset()
		}
	}

	for i, r := range runes {
		switch r {
		case '*':
			flush()
			parts = append(parts, pattern.Wildcard())
		case '|':
			if i != 0 && i != len(runes)-1 {
				return nil, searcherr.Wrap(searcherr.KindUnsupportedPattern,
					"anchor '|' must be at the start or end of a pattern: "+s, nil)
			}
			flush()
			parts = append(parts, pattern.Anchor())
		default:
			raw.WriteRune(r)
		}
	}
	flush()
	return parts, nil
}
