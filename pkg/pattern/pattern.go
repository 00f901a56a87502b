// Package pattern implements the anchored, wildcarded phrase retrieval
// operator (§4.3): PatternPart{Raw|Wildcard|Anchor} sequences compiled to a
// bounded-slop positional intersection over a field's postings, with BM25
// scoring and a fast path to untokenized mirror fields for the common
// site:example.com shape.
package pattern

import (
	"math"
	"sort"
	"strings"

	"github.com/scour-engine/scour/pkg/text"
)

// PartKind discriminates the variants of Part.
type PartKind int

const (
	PartRaw PartKind = iota
	PartWildcard
	PartAnchor
)

// Part is one element of a pattern sequence.
type Part struct {
	Kind PartKind
	Text string // PartRaw only
}

func Raw(s string) Part { return Part{Kind: PartRaw, Text: s} }
func Wildcard() Part    { return Part{Kind: PartWildcard} }
func Anchor() Part      { return Part{Kind: PartAnchor} }

// DocID identifies a document within a segment.
type DocID uint64

// Posting is one term's positional postings list for a single document.
// Positions must be sorted ascending.
type Posting struct {
	Doc       DocID
	Positions []uint32
}

// FieldIndex is the positional-postings and BM25 statistics surface a
// Pattern scorer reads from. A shard's segment reader implements this over
// its tokenized inverted index for one field.
type FieldIndex interface {
	Postings(term string) []Posting
	DocFreq(term string) uint64
	TotalDocs() uint64
	NumTokens(doc DocID) (uint32, bool)
	FieldLength(doc DocID) (uint32, bool)
	AvgFieldLength() float64
}

// MirrorIndex backs the untokenized Site/Domain mirror fields
// (SiteNoTokenizer / DomainNoTokenizer) used by the fast path.
type MirrorIndex interface {
	TermPostings(term string) []DocID
	DocFreq(term string) uint64
	TotalDocs() uint64
}

// maxSlop represents an unbounded slop window, introduced by a Wildcard.
const maxSlop uint32 = math.MaxUint32

// Tokenizer splits a Raw part's literal text into the field's query-time
// terms. It must match the tokenizer used at index time for the field.
type Tokenizer func(string) []string

// DefaultTokenizer mirrors the index-time BM25 tokenizer (§4.1).
var DefaultTokenizer Tokenizer = text.Tokenize

// Match is one scored hit produced by Pattern.Match or Pattern.MatchFastPath.
type Match struct {
	Doc   DocID
	Score float64
}

// Pattern is a compiled PatternPart sequence ready to be matched against a
// FieldIndex or, via the fast path, a MirrorIndex.
type Pattern struct {
	parts []Part
	tok   Tokenizer
}

// Compile builds a Pattern from parts. An empty parts list compiles to a
// pattern that matches nothing (§4.3), deferred to Match/MatchFastPath so the
// caller can still inspect the empty Pattern. tok defaults to
// DefaultTokenizer when nil.
func Compile(parts []Part, tok Tokenizer) *Pattern {
	if tok == nil {
		tok = DefaultTokenizer
	}
	return &Pattern{parts: parts, tok: tok}
}

// IsFastPathEligible reports whether parts are exactly [Anchor, Raw+, Anchor]
// — the common site:example.com / domain:example.com shape — and returns the
// concatenated literal to look up in the untokenized mirror field.
func (p *Pattern) IsFastPathEligible() (string, bool) {
	if len(p.parts) < 3 {
		return "", false
	}
	if p.parts[0].Kind != PartAnchor || p.parts[len(p.parts)-1].Kind != PartAnchor {
		return "", false
	}
	middle := p.parts[1 : len(p.parts)-1]
	var sb strings.Builder
	for _, part := range middle {
		if part.Kind != PartRaw {
			return "", false
		}
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", false
	}
	return sb.String(), true
}

// expand lowers parts to an ordered term sequence plus the required slop
// between consecutive terms (slops[i] is the slop between terms[i] and
// terms[i+1]), and whether a leading/trailing Anchor was present.
func (p *Pattern) expand() (terms []string, slops []uint32, leadingAnchor, trailingAnchor bool) {
	nextSlop := uint32(1)
	sawTerm := false
	for _, part := range p.parts {
		switch part.Kind {
		case PartWildcard:
			nextSlop = maxSlop
		case PartAnchor:
			if !sawTerm {
				leadingAnchor = true
			} else {
				trailingAnchor = true
			}
		case PartRaw:
			for _, s := range p.tok(part.Text) {
				if sawTerm {
					slops = append(slops, nextSlop)
				}
				terms = append(terms, s)
				sawTerm = true
				nextSlop = 1
			}
		}
	}
	return
}

// Match runs the bounded-slop positional intersection against idx and
// returns BM25-scored hits, sorted by DocID. A required term with no
// postings, or an empty pattern, produces a nil (empty) result (§4.3).
func (p *Pattern) Match(idx FieldIndex) []Match {
	if len(p.parts) == 0 {
		return nil
	}
	terms, slops, leadingAnchor, trailingAnchor := p.expand()
	if len(terms) == 0 {
		return nil
	}

	postings := make([][]Posting, len(terms))
	termCounts := make([]map[DocID]int, len(terms))
	for i, t := range terms {
		ps := idx.Postings(t)
		if len(ps) == 0 {
			return nil
		}
		postings[i] = ps
		counts := make(map[DocID]int, len(ps))
		for _, post := range ps {
			counts[post.Doc] = len(post.Positions)
		}
		termCounts[i] = counts
	}

	frontier := postingsToMap(postings[0])
	if leadingAnchor {
		frontier = filterPositions(frontier, func(pos uint32) bool { return pos == 0 })
	}
	if len(frontier) == 0 {
		return nil
	}

	for i := 1; i < len(terms); i++ {
		next := postingsToMap(postings[i])
		slop := slops[i-1]
		merged := make(map[DocID][]uint32, len(frontier))
		for doc, left := range frontier {
			right, ok := next[doc]
			if !ok {
				continue
			}
			if out := intersectWithSlop(left, right, slop); len(out) > 0 {
				merged[doc] = out
			}
		}
		frontier = merged
		if len(frontier) == 0 {
			return nil
		}
	}

	if trailingAnchor {
		filtered := make(map[DocID][]uint32, len(frontier))
		for doc, positions := range frontier {
			n, ok := idx.NumTokens(doc)
			if !ok {
				continue
			}
			for _, pos := range positions {
				if pos == n-1 {
					filtered[doc] = positions
					break
				}
			}
		}
		frontier = filtered
	}
	if len(frontier) == 0 {
		return nil
	}

	docs := make([]DocID, 0, len(frontier))
	for doc := range frontier {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i] < docs[j] })

	matches := make([]Match, 0, len(docs))
	for _, doc := range docs {
		matches = append(matches, Match{Doc: doc, Score: bm25Score(idx, terms, termCounts, doc)})
	}
	return matches
}

// MatchFastPath routes an [Anchor, Raw+, Anchor] pattern directly to an
// untokenized mirror field, scoring with a single term query. The second
// return is false when the pattern isn't fast-path eligible, in which case
// the caller should fall back to Match.
func (p *Pattern) MatchFastPath(idx MirrorIndex) ([]Match, bool) {
	term, ok := p.IsFastPathEligible()
	if !ok {
		return nil, false
	}
	docs := idx.TermPostings(term)
	if len(docs) == 0 {
		return nil, true
	}

	df := float64(idx.DocFreq(term))
	n := float64(idx.TotalDocs())
	idf := 0.0
	if df > 0 && n > 0 {
		idf = math.Log(1 + (n-df+0.5)/(df+0.5))
	}

	matches := make([]Match, len(docs))
	for i, d := range docs {
		matches[i] = Match{Doc: d, Score: idf}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Doc < matches[j].Doc })
	return matches, true
}

func postingsToMap(ps []Posting) map[DocID][]uint32 {
	m := make(map[DocID][]uint32, len(ps))
	for _, p := range ps {
		m[p.Doc] = p.Positions
	}
	return m
}

func filterPositions(m map[DocID][]uint32, keep func(uint32) bool) map[DocID][]uint32 {
	out := make(map[DocID][]uint32, len(m))
	for doc, positions := range m {
		var kept []uint32
		for _, pos := range positions {
			if keep(pos) {
				kept = append(kept, pos)
			}
		}
		if len(kept) > 0 {
			out[doc] = kept
		}
	}
	return out
}

// intersectWithSlop implements the §4.3 linear-scan algorithm: for each
// position r in right, advance left past r-slop, and emit r if left has a
// predecessor within [r-slop, r].
func intersectWithSlop(left, right []uint32, slop uint32) []uint32 {
	var out []uint32
	i := 0
	for _, r := range right {
		lower := satSub(r, slop)
		for i < len(left) && left[i] < lower {
			i++
		}
		if i >= len(left) {
			break
		}
		if left[i] >= lower && left[i] <= r {
			for i+1 < len(left) && left[i+1] <= r {
				i++
			}
			out = append(out, r)
		}
	}
	return out
}

func satSub(r, slop uint32) uint32 {
	if slop > r {
		return 0
	}
	return r - slop
}

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

func bm25Score(idx FieldIndex, terms []string, termCounts []map[DocID]int, doc DocID) float64 {
	avgLen := idx.AvgFieldLength()
	length, ok := idx.FieldLength(doc)
	if !ok || avgLen <= 0 {
		return 0
	}
	n := float64(idx.TotalDocs())

	var score float64
	for i, t := range terms {
		tf := float64(termCounts[i][doc])
		if tf == 0 {
			continue
		}
		df := float64(idx.DocFreq(t))
		if df <= 0 || n <= 0 {
			continue
		}
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		denom := tf + bm25K1*(1-bm25B+bm25B*float64(length)/avgLen)
		score += idf * (tf * (bm25K1 + 1)) / denom
	}
	return score
}
