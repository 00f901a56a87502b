package shard

import (
	"context"

	"github.com/scour-engine/scour/pkg/optic"
	"github.com/scour-engine/scour/pkg/query"
	"github.com/scour-engine/scour/pkg/ranking"
)

// NoCandidates is the default CandidateSource: it matches nothing. A
// segment/postings reader that actually evaluates terms and the compiled
// optic against an on-disk index is outside this exercise's scope (§3
// Non-goals); scourd wires this in until one is plugged in, so the binary
// still starts and serves a well-formed (empty) search_initial rather than
// refusing to run at all.
type NoCandidates struct{}

func (NoCandidates) Candidates(context.Context, []query.Term, query.Query, *optic.CompiledOptic, *SiteRankings) ([]*ranking.Website, error) {
	return nil, nil
}

var _ CandidateSource = NoCandidates{}
