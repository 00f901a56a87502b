// Package optic implements the ranking DSL (§4.4): a small declarative
// language of Rules, RankingCoeffs and SitePreferences that reshapes query
// matching and scoring without touching the index.
package optic

// MatchField names one of the six fields a Rule's Matches block can test.
type MatchField int

const (
	FieldSite MatchField = iota
	FieldUrl
	FieldDomain
	FieldTitle
	FieldDescription
	FieldContent
)

func (f MatchField) String() string {
	switch f {
	case FieldSite:
		return "Site"
	case FieldUrl:
		return "Url"
	case FieldDomain:
		return "Domain"
	case FieldTitle:
		return "Title"
	case FieldDescription:
		return "Description"
	case FieldContent:
		return "Content"
	default:
		return "Unknown"
	}
}

// MatchPart is one field/pattern pair inside a Matches block.
type MatchPart struct {
	Field   MatchField
	Pattern string
}

// ActionKind discriminates the Action variants.
type ActionKind int

const (
	ActionNone ActionKind = iota // missing action, defaults to Boost(0)
	ActionBoost
	ActionDownrank
	ActionDiscard
)

// Action is a Rule's effect on a matching document's score.
type Action struct {
	Kind ActionKind
	N    uint64 // ActionBoost / ActionDownrank only
}

// Rule is one `Rule { Matches { ... }, Action(...) }` block: an AND over
// MatchParts, with an optional Action (defaults to Boost(0), a no-op match
// still visible to DiscardNonMatching).
type Rule struct {
	Matches []MatchPart
	Action  Action
}

// TargetKind discriminates RankingTarget variants.
type TargetKind int

const (
	TargetSignal TargetKind = iota
	TargetField
)

// RankingTarget names what a RankingCoeff overrides.
type RankingTarget struct {
	Kind TargetKind
	Name string
}

// RankingCoeff overrides a per-signal or per-field coefficient for this
// query only; it never mutates the index.
type RankingCoeff struct {
	Target RankingTarget
	Score  float64
}

// SitePreferenceKind discriminates Like/Dislike.
type SitePreferenceKind int

const (
	PreferLike SitePreferenceKind = iota
	PreferDislike
)

// SitePreference biases the InboundSimilarity centrality signal toward or
// away from a site.
type SitePreference struct {
	Kind SitePreferenceKind
	Site string
}

// Optic is a fully parsed document: the four sections of §4.4.
type Optic struct {
	Rules              []Rule
	Rankings           []RankingCoeff
	SitePreferences    []SitePreference
	DiscardNonMatching bool
}
