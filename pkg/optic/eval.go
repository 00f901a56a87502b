package optic

import "github.com/scour-engine/scour/pkg/pattern"

// FieldIndexes resolves one of the six match fields to the postings surface
// a compiled Rule matches against. Site and Domain additionally expose an
// untokenized mirror index so CompiledMatchPart can take the pattern fast
// path (§4.3).
type FieldIndexes interface {
	Field(f MatchField) (pattern.FieldIndex, bool)
	Mirror(f MatchField) (pattern.MirrorIndex, bool)
}

// CompiledMatchPart pairs a match field with its compiled pattern.
type CompiledMatchPart struct {
	Field   MatchField
	Pattern *pattern.Pattern
}

// CompiledRule is a Rule with its match parts compiled to patterns.
type CompiledRule struct {
	MatchParts []CompiledMatchPart
	Action     Action
}

// CompiledOptic is an Optic with every rule's patterns compiled, ready to be
// evaluated against a shard's field indexes.
type CompiledOptic struct {
	Rules              []CompiledRule
	Rankings           []RankingCoeff
	SitePreferences    []SitePreference
	DiscardNonMatching bool
}

// Compile compiles every rule's match patterns. A pattern the engine cannot
// route (an anchor mid-string) fails the whole compile with
// searcherr.KindUnsupportedPattern (§7).
func Compile(o *Optic) (*CompiledOptic, error) {
	out := &CompiledOptic{
		Rankings:           o.Rankings,
		SitePreferences:    o.SitePreferences,
		DiscardNonMatching: o.DiscardNonMatching,
	}
	for _, rule := range o.Rules {
		cr := CompiledRule{Action: rule.Action}
		for _, mp := range rule.Matches {
			parts, err := compilePattern(mp.Pattern)
			if err != nil {
				return nil, err
			}
			cr.MatchParts = append(cr.MatchParts, CompiledMatchPart{
				Field:   mp.Field,
				Pattern: pattern.Compile(parts, nil),
			})
		}
		out.Rules = append(out.Rules, cr)
	}
	return out, nil
}

// RuleSet is the per-query result of evaluating a CompiledOptic against a
// shard's indexes: precomputed matched-document sets and score multipliers,
// so Adjust is O(1) per document instead of re-running pattern matching.
type RuleSet struct {
	discardDocs        map[pattern.DocID]struct{}
	multiplier         map[pattern.DocID]float64
	anyMatchDocs       map[pattern.DocID]struct{}
	discardNonMatching bool
	hasNonDiscardRules bool
}

// Evaluate runs every compiled rule's match parts against idxs and builds a
// RuleSet. Rules with Discard contribute to discardDocs (MUST_NOT); Boost/
// Downrank rules contribute a multiplicative weight (SHOULD); every matching
// non-discard rule marks its documents in anyMatchDocs for DiscardNonMatching.
func (c *CompiledOptic) Evaluate(idxs FieldIndexes) *RuleSet {
	rs := &RuleSet{
		discardDocs:        map[pattern.DocID]struct{}{},
		multiplier:         map[pattern.DocID]float64{},
		anyMatchDocs:       map[pattern.DocID]struct{}{},
		discardNonMatching: c.DiscardNonMatching,
	}

	for _, rule := range c.Rules {
		if rule.Action.Kind != ActionDiscard {
			rs.hasNonDiscardRules = true
		}
		docs := matchingDocs(rule.MatchParts, idxs)
		switch rule.Action.Kind {
		case ActionDiscard:
			for d := range docs {
				rs.discardDocs[d] = struct{}{}
			}
		case ActionBoost:
			weight := 1 + float64(rule.Action.N)
			for d := range docs {
				rs.anyMatchDocs[d] = struct{}{}
				rs.multiplier[d] = currentMultiplier(rs.multiplier, d) * weight
			}
		case ActionDownrank:
			weight := 1 / (1 + float64(rule.Action.N))
			for d := range docs {
				rs.anyMatchDocs[d] = struct{}{}
				rs.multiplier[d] = currentMultiplier(rs.multiplier, d) * weight
			}
		default: // ActionNone: Boost(0), a no-op match still visible to DiscardNonMatching
			for d := range docs {
				rs.anyMatchDocs[d] = struct{}{}
			}
		}
	}

	return rs
}

func currentMultiplier(m map[pattern.DocID]float64, d pattern.DocID) float64 {
	if v, ok := m[d]; ok {
		return v
	}
	return 1
}

// matchingDocs intersects the doc sets of every match part (AND semantics).
// A rule with zero match parts never matches anything.
func matchingDocs(parts []CompiledMatchPart, idxs FieldIndexes) map[pattern.DocID]struct{} {
	if len(parts) == 0 {
		return nil
	}
	var result map[pattern.DocID]struct{}
	for i, mp := range parts {
		docs := matchSet(mp, idxs)
		if i == 0 {
			result = docs
			continue
		}
		result = intersectDocSets(result, docs)
		if len(result) == 0 {
			return result
		}
	}
	return result
}

func matchSet(mp CompiledMatchPart, idxs FieldIndexes) map[pattern.DocID]struct{} {
	out := map[pattern.DocID]struct{}{}
	if mirror, ok := idxs.Mirror(mp.Field); ok {
		if matches, eligible := mp.Pattern.MatchFastPath(mirror); eligible {
			for _, m := range matches {
				out[m.Doc] = struct{}{}
			}
			return out
		}
	}
	idx, ok := idxs.Field(mp.Field)
	if !ok {
		return out
	}
	for _, m := range mp.Pattern.Match(idx) {
		out[m.Doc] = struct{}{}
	}
	return out
}

func intersectDocSets(a, b map[pattern.DocID]struct{}) map[pattern.DocID]struct{} {
	out := map[pattern.DocID]struct{}{}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for d := range small {
		if _, ok := large[d]; ok {
			out[d] = struct{}{}
		}
	}
	return out
}

// Adjust applies the rule set's effect to a document's base score. The
// second return is true when the document is discarded, either by an
// explicit Discard rule or by DiscardNonMatching when no non-discard rule
// matched it.
func (rs *RuleSet) Adjust(doc pattern.DocID, baseScore float64) (float64, bool) {
	if _, discarded := rs.discardDocs[doc]; discarded {
		return 0, true
	}
	if rs.discardNonMatching && rs.hasNonDiscardRules {
		if _, matched := rs.anyMatchDocs[doc]; !matched {
			return 0, true
		}
	}
	mult := currentMultiplier(rs.multiplier, doc)
	return baseScore * mult, false
}
