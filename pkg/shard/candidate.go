package shard

import (
	"context"

	"github.com/scour-engine/scour/pkg/optic"
	"github.com/scour-engine/scour/pkg/query"
	"github.com/scour-engine/scour/pkg/ranking"
)

// CandidateSource is the boundary between this package's orchestration
// (ranking pipeline, top-K collection, RPC plumbing) and a shard's actual
// segment storage — tokenized positional postings, fast columnar fields,
// the numerical-field and field-norm readers (§3 "Segment files"). A real
// implementation runs terms/plan against its postings, evaluates compiled
// against its own field indexes (§4.4), resolves each surviving doc's site
// string to apply siteRankings and the optic's SitePreferences, and
// returns one ranking.Website per surviving document with raw Signals and
// OpticBoost populated. This package never touches postings or resolves
// site strings directly — only CandidateSource has the index structures
// to do either.
type CandidateSource interface {
	Candidates(ctx context.Context, terms []query.Term, plan query.Query, compiled *optic.CompiledOptic, siteRankings *SiteRankings) ([]*ranking.Website, error)
}
