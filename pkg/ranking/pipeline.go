package ranking

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/scour-engine/scour/pkg/collector"
	"github.com/scour-engine/scour/pkg/docaddr"
	"github.com/scour-engine/scour/pkg/metrics"
	"github.com/scour-engine/scour/pkg/signal"
)

// Stage is one step of the pipeline: a Scorer rescores the current window of
// documents, then a BucketCollector pass trims it to StageTopN before the
// next stage runs (§4.7). DeRankSimilar controls whether that trim applies
// the diversified, bucket-count-aware re-rank or a plain score sort.
type Stage struct {
	Scorer        Scorer
	StageTopN     int
	DeRankSimilar bool
}

// Pipeline is an ordered sequence of Stages, run first to last. The teacher's
// search service runs an analogous two-stage cascade: a fast first pass over
// a wide candidate set, then an accurate, narrower rerank — modeled here as
// however many Stages the caller configures, rather than hardcoding two.
type Pipeline struct {
	Stages []Stage
}

// CollectorTopN computes the headroom a stage's BucketCollector needs so
// that paging through results stays stable: enough room for the largest of
// the pipeline's own top_n and the caller's requested top_n, plus every
// earlier page's worth of documents, plus one (§4.7's collector_top_n).
func CollectorTopN(initialTopN, topN, page int) int {
	base := initialTopN
	if topN > base {
		base = topN
	}
	return base + topN*page + 1
}

// Apply runs the pipeline over docs for the given query and page, returning
// at most topN documents (the final, requested page of results).
//
// Per stage (§4.7's apply(pipeline, docs) pseudocode): take the slice of
// docs from offset through max(stage_top_n, top_n), rescore that window,
// multiply each score by its optic boost, collect through a BucketCollector
// sized to collector_top_n, and reduce to a diversified, deduped, sorted
// slice before the next stage runs. The final stage's output is trimmed to
// topN.
func Apply(ctx context.Context, pipeline Pipeline, query string, coeffs *signal.Coefficients, docs []*Website, topN, page int) ([]*Website, error) {
	offset := topN * page
	if offset < 0 {
		offset = 0
	}

	for i, stage := range pipeline.Stages {
		stageStart := time.Now()
		window := offset + stage.StageTopN
		if stage.StageTopN < topN {
			window = offset + topN
		}
		if window > len(docs) {
			window = len(docs)
		}
		if offset > window {
			offset = window
		}
		batch := docs[offset:window]

		if err := stage.Scorer.Score(ctx, query, coeffs, batch); err != nil {
			return nil, fmt.Errorf("ranking stage %d: %w", i, err)
		}
		for _, d := range batch {
			d.Score *= d.boostOrOne()
		}

		byAddr := make(map[docaddr.DocAddress]*Website, len(batch))
		coll := collector.New(CollectorTopN(stage.StageTopN, topN, page))
		for _, d := range batch {
			byAddr[d.Address] = d
			coll.Insert(collector.Doc{Address: d.Address, Score: d.Score, Hashes: d.Hashes})
		}

		ranked := coll.IntoSortedVec(stage.DeRankSimilar)
		out := make([]*Website, 0, len(ranked))
		for _, rd := range ranked {
			w := byAddr[rd.Address]
			w.Score = rd.Score
			out = append(out, w)
		}
		docs = out
		offset = 0
		metrics.PipelineStageDuration.WithLabelValues(strconv.Itoa(i)).Observe(time.Since(stageStart).Seconds())
	}

	if topN >= 0 && topN < len(docs) {
		docs = docs[:topN]
	}
	return docs, nil
}
