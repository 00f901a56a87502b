package query

import "sort"

// Occur mirrors tantivy-style boolean clause occurrence.
type Occur int

const (
	Must Occur = iota
	Should
	MustNot
)

// Field names a searchable text field a leaf Query targets.
type Field string

const (
	FieldTitle   Field = "title"
	FieldBody    Field = "body"
	FieldUrl     Field = "url"
	FieldSite    Field = "site"
	FieldAllBody Field = "all_body"
)

// searchableTextFields lists every field a bare Simple term expands across.
var searchableTextFields = []Field{FieldTitle, FieldBody, FieldUrl, FieldAllBody}

// phraseSearchableTextFields lists every field a Phrase term expands across.
var phraseSearchableTextFields = []Field{FieldTitle, FieldBody}

// compoundSearchableTextFields lists the fields a compound-term (bigram/
// trigram) boost clause is attached to.
var compoundSearchableTextFields = []Field{FieldTitle, FieldBody}

// Query is the lowered, compacted retrieval plan: either a single field
// lookup (Leaf) or a boolean composition of sub-queries (Boolean).
type Query struct {
	Leaf     *Leaf
	Boolean  *Boolean
}

// Leaf targets one field with one text value (token or phrase).
type Leaf struct {
	Field  Field
	Text   string   // single-token leaf
	Phrase []string // phrase leaf, mutually exclusive with Text
}

// Clause pairs a sub-query with how it must occur in its parent Boolean.
type Clause struct {
	Occur Occur
	Query Query
}

// Boolean is an ordered set of clauses combined by their Occur.
type Boolean struct {
	Clauses []Clause
}

func leafQuery(f Field, text string) Query   { return Query{Leaf: &Leaf{Field: f, Text: text}} }
func phraseQuery(f Field, ph []string) Query { return Query{Leaf: &Leaf{Field: f, Phrase: ph}} }

func orOf(queries ...Query) Query {
	if len(queries) == 1 {
		return queries[0]
	}
	clauses := make([]Clause, len(queries))
	for i, q := range queries {
		clauses[i] = Clause{Occur: Should, Query: q}
	}
	return Query{Boolean: &Boolean{Clauses: clauses}}
}

func andOf(queries ...Query) Query {
	if len(queries) == 1 {
		return queries[0]
	}
	clauses := make([]Clause, len(queries))
	for i, q := range queries {
		clauses[i] = Clause{Occur: Must, Query: q}
	}
	return Query{Boolean: &Boolean{Clauses: clauses}}
}

// Plan lowers terms to a compacted Query tree (§4.2). It expands each
// top-level term to an Or-across-fields (or a single field for
// Site/Title/Body/Url), attaches compound bigram/trigram boost clauses for
// runs of adjacent Simple terms, ANDs the top-level nodes together, and
// compacts the result.
func Plan(terms []Term) Query {
	if len(terms) == 0 {
		return Query{Boolean: &Boolean{}}
	}

	nodes := make([]Query, 0, len(terms))
	for i, t := range terms {
		node := lowerTerm(t)
		if t.Kind == KindSimple {
			if boost, ok := compoundBoost(terms, i); ok {
				node = orOf(node, boost)
			}
		}
		nodes = append(nodes, node)
	}

	plan := andOf(nodes...)
	return Compact(plan)
}

func lowerTerm(t Term) Query {
	switch t.Kind {
	case KindSimple:
		qs := make([]Query, len(searchableTextFields))
		for i, f := range searchableTextFields {
			qs[i] = leafQuery(f, t.Text)
		}
		return orOf(qs...)
	case KindPhrase:
		qs := make([]Query, len(phraseSearchableTextFields))
		for i, f := range phraseSearchableTextFields {
			qs[i] = phraseQuery(f, t.Phrase)
		}
		return orOf(qs...)
	case KindTitle:
		return leafQuery(FieldTitle, t.Text)
	case KindBody:
		return leafQuery(FieldBody, t.Text)
	case KindUrl:
		return leafQuery(FieldUrl, t.Text)
	case KindSite:
		return leafQuery(FieldSite, t.Text)
	case KindNot:
		inner := lowerTerm(*t.Inner)
		return Query{Boolean: &Boolean{Clauses: []Clause{{Occur: MustNot, Query: inner}}}}
	case KindPossibleBang:
		// Bangs are resolved above the planner (pkg/dispatch); treated as a
		// simple term here so a query containing one still retrieves normally
		// if it isn't consumed as a bang redirect.
		qs := make([]Query, len(searchableTextFields))
		for i, f := range searchableTextFields {
			qs[i] = leafQuery(f, t.Text)
		}
		return orOf(qs...)
	default:
		return Query{}
	}
}

// compoundBoost enumerates contiguous windows of length 2 and 3 of Simple
// terms ending at or containing position i, and returns a soft-boost Or
// clause over concatenated windows, attached via Or to the original node.
func compoundBoost(terms []Term, i int) (Query, bool) {
	var windows []string

	for length := 2; length <= 3; length++ {
		for start := i - length + 1; start <= i; start++ {
			if start < 0 || start+length > len(terms) {
				continue
			}
			ok := true
			var parts []string
			for k := start; k < start+length; k++ {
				if terms[k].Kind != KindSimple {
					ok = false
					break
				}
				parts = append(parts, terms[k].Text)
			}
			if !ok || len(parts) != length {
				continue
			}
			windows = append(windows, joinCompound(parts))
		}
	}

	if len(windows) == 0 {
		return Query{}, false
	}

	qs := make([]Query, 0, len(windows)*len(compoundSearchableTextFields))
	for _, w := range windows {
		for _, f := range compoundSearchableTextFields {
			qs = append(qs, leafQuery(f, w))
		}
	}
	return orOf(qs...), true
}

func joinCompound(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += " " + p
	}
	return out
}

// Compact rewrites q by merging nested booleans whose inner clauses all
// share the outer occur, collapsing singleton booleans, deduplicating
// clauses, and composing occurs per the table:
//
//	Must∘X = X for Should; Must∘MustNot = MustNot; MustNot∘MustNot = Must
func Compact(q Query) Query {
	if q.Leaf != nil {
		return q
	}
	if q.Boolean == nil {
		return q
	}

	var out []Clause
	for _, c := range q.Boolean.Clauses {
		inner := Compact(c.Query)
		if inner.Boolean != nil && len(inner.Boolean.Clauses) == 0 {
			continue
		}
		if inner.Boolean != nil && len(inner.Boolean.Clauses) == 1 {
			only := inner.Boolean.Clauses[0]
			composed, ok := composeOccur(c.Occur, only.Occur)
			if ok {
				out = append(out, Clause{Occur: composed, Query: only.Query})
				continue
			}
		}
		if inner.Boolean != nil && sameOccurThroughout(inner.Boolean.Clauses, c.Occur) {
			out = append(out, inner.Boolean.Clauses...)
			continue
		}
		out = append(out, Clause{Occur: c.Occur, Query: inner})
	}

	out = dedupeClauses(out)
	if len(out) == 1 && out[0].Occur == Must {
		return out[0].Query
	}
	return Query{Boolean: &Boolean{Clauses: out}}
}

// composeOccur implements the outer∘inner occur composition table:
// Must∘X = X; MustNot∘MustNot = Must. Should composed with anything keeps
// its own structure (the second return is false), since collapsing a
// Should clause would silently drop its optional-match semantics.
func composeOccur(outer, inner Occur) (Occur, bool) {
	switch outer {
	case Must:
		return inner, true
	case MustNot:
		if inner == MustNot {
			return Must, true
		}
		return outer, false
	default:
		return outer, false
	}
}

func sameOccurThroughout(clauses []Clause, occur Occur) bool {
	for _, c := range clauses {
		if c.Occur != occur {
			return false
		}
	}
	return true
}

func dedupeClauses(clauses []Clause) []Clause {
	seen := make(map[string]bool, len(clauses))
	out := make([]Clause, 0, len(clauses))
	for _, c := range clauses {
		key := clauseKey(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func clauseKey(c Clause) string {
	var sb []byte
	sb = appendQueryKey(sb, c.Query)
	return string(rune(c.Occur)) + string(sb)
}

func appendQueryKey(b []byte, q Query) []byte {
	if q.Leaf != nil {
		b = append(b, "L:"...)
		b = append(b, q.Leaf.Field...)
		b = append(b, ':')
		if q.Leaf.Phrase != nil {
			for _, p := range q.Leaf.Phrase {
				b = append(b, p...)
				b = append(b, ' ')
			}
		} else {
			b = append(b, q.Leaf.Text...)
		}
		return b
	}
	b = append(b, "B:"...)
	if q.Boolean != nil {
		clauses := append([]Clause(nil), q.Boolean.Clauses...)
		sort.Slice(clauses, func(i, j int) bool {
			return clauseKey(clauses[i]) < clauseKey(clauses[j])
		})
		for _, c := range clauses {
			b = append(b, byte(c.Occur))
			b = appendQueryKey(b, c.Query)
		}
	}
	return b
}
