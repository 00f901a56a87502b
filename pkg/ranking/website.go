// Package ranking implements the multi-stage ranking pipeline (§4.7): a
// sequence of Scorers, each trimming to its own stage_top_n through a
// pkg/collector.BucketCollector pass, with a shared pagination offset so
// paging through results stays stable.
package ranking

import (
	"github.com/scour-engine/scour/pkg/docaddr"
	"github.com/scour-engine/scour/pkg/fingerprint"
	"github.com/scour-engine/scour/pkg/signal"
)

// Website is the shared per-document record every ranking stage reads and
// rescoring mutates: RankingWebsite in spec.md's terms.
type Website struct {
	Address docaddr.DocAddress
	Hashes  fingerprint.Hashes

	// Title and Snippet back the cross-encoder reranker's (query, title)
	// and (query, snippet) pairs; empty if this stage doesn't have them yet.
	Title   string
	Snippet string

	// Signals holds every raw signal value computed for this document so
	// far; a Scorer may add to it (e.g. CrossEncoderTitle) before rescoring.
	Signals signal.Values

	// Score is the document's current total score, recomputed by each
	// stage's Scorer and then multiplied by OpticBoost.
	Score float64

	// OpticBoost is the optic-derived post-multiplier (§4.4); zero means
	// "unset", treated as 1 (no-op) rather than zeroing the document out.
	OpticBoost float64
}

// boostOrOne returns OpticBoost, or 1 if it was never set.
func (w *Website) boostOrOne() float64 {
	if w.OpticBoost == 0 {
		return 1
	}
	return w.OpticBoost
}
