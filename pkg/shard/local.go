package shard

import (
	"context"
	"fmt"

	"github.com/scour-engine/scour/pkg/cache"
	"github.com/scour-engine/scour/pkg/optic"
	"github.com/scour-engine/scour/pkg/query"
	"github.com/scour-engine/scour/pkg/ranking"
	"github.com/scour-engine/scour/pkg/retrieval"
	"github.com/scour-engine/scour/pkg/searcherr"
	"github.com/scour-engine/scour/pkg/signal"
)

// LocalSearcher runs one shard's half of a query (§2 layer 2, §4.9): parse,
// plan, compile the optic, pull candidates from the segment storage
// (CandidateSource), run the ranking pipeline, and materialize pointers
// and pages through a retrieval store.
type LocalSearcher struct {
	ShardID   string
	Source    CandidateSource
	Pipeline  ranking.Pipeline
	Retrieval *retrieval.Store

	// Optics caches compiled optics by source text, avoiding a re-parse
	// and re-compile of the same named optic or widget optic on every
	// query that uses it. Nil disables caching (every query compiles its
	// own optic from scratch).
	Optics *cache.OpticCache
}

// Search runs query parsing, planning, optic compilation, candidate
// retrieval and ranking for q, returning a LocalResult (§6 local_result).
// NumWebsites is the pre-dedup candidate count, matching spec.md's "the
// count estimated pre-dedup" — it is computed before the ranking
// pipeline's collector trims and deduplicates.
func (l *LocalSearcher) Search(ctx context.Context, q SearchQuery) (LocalResult, error) {
	terms := query.Parse(q.Query)
	if len(terms) == 0 {
		return LocalResult{}, searcherr.Wrap(searcherr.KindEmptyQuery, "empty query", nil)
	}

	compiled := &optic.CompiledOptic{}
	if q.Optic != "" {
		var cached bool
		var cacheKey uint64
		if l.Optics != nil {
			cacheKey = l.Optics.Key(q.Optic)
			if v, ok := l.Optics.Get(cacheKey); ok {
				compiled = v.(*optic.CompiledOptic)
				cached = true
			}
		}
		if !cached {
			ast, err := optic.Parse(q.Optic)
			if err != nil {
				return LocalResult{}, searcherr.Wrap(searcherr.KindParse, "parse optic", err)
			}
			compiled, err = optic.Compile(ast)
			if err != nil {
				return LocalResult{}, err // already a *searcherr.Error (KindUnsupportedPattern)
			}
			if l.Optics != nil {
				l.Optics.Put(cacheKey, compiled)
			}
		}
	}

	plan := query.Plan(terms)
	candidates, err := l.Source.Candidates(ctx, terms, plan, compiled, q.SiteRankings)
	if err != nil {
		return LocalResult{}, fmt.Errorf("shard %s: candidate retrieval: %w", l.ShardID, err)
	}
	numWebsites := uint64(len(candidates))

	coeffs := signal.DefaultCoefficients()
	for _, rc := range compiled.Rankings {
		if rc.Target.Kind != optic.TargetSignal {
			continue // field-level coefficient overrides require per-field boost
			// weights the Query plan doesn't carry (documented simplification).
		}
		if s, ok := signal.ByName(rc.Target.Name); ok {
			coeffs.Set(s, rc.Score)
		}
	}

	numResults := q.NumResults
	if numResults <= 0 {
		numResults = numWebsitesDefault
	}
	ranked, err := ranking.Apply(ctx, l.Pipeline, q.Query, coeffs, candidates, numResults, q.Page)
	if err != nil {
		return LocalResult{}, fmt.Errorf("shard %s: ranking pipeline: %w", l.ShardID, err)
	}

	pointers := make([]retrieval.WebsitePointer, 0, len(ranked))
	for _, w := range ranked {
		pointers = append(pointers, toPointer(w, l.ShardID))
	}

	return LocalResult{Websites: pointers, NumWebsites: numWebsites}, nil
}

// numWebsitesDefault bounds an unset/zero NumResults so a malformed
// request can't make the local collector run unbounded.
const numWebsitesDefault = 20

// RetrieveWebpages reconstitutes a RetrievedWebpage for each pointer this
// shard is handed (§4.9 phase 2) — the aggregator has already filtered
// pointers down to this shard's shard_id before calling.
func (l *LocalSearcher) RetrieveWebpages(ctx context.Context, pointers []retrieval.WebsitePointer, query string) ([]retrieval.RetrievedWebpage, error) {
	return l.Retrieval.RetrieveWebpages(pointers, query)
}

// GetWebpage materializes a single page by URL (§6 get_webpage).
func (l *LocalSearcher) GetWebpage(ctx context.Context, url string) (retrieval.RetrievedWebpage, bool, error) {
	return l.Retrieval.GetWebpage(url)
}

func toPointer(w *ranking.Website, shardID string) retrieval.WebsitePointer {
	return retrieval.WebsitePointer{
		Address: w.Address,
		Hashes:  w.Hashes,
		Score:   w.Score,
		ShardID: shardID,
	}
}
