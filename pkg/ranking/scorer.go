package ranking

import (
	"context"
	"fmt"

	"github.com/scour-engine/scour/pkg/signal"
)

// Scorer rescores docs in place, given the query and the effective
// coefficient table (defaults overridden by any optic Ranking() clauses).
type Scorer interface {
	Score(ctx context.Context, query string, coeffs *signal.Coefficients, docs []*Website) error
}

// Initial sums each document's signals with their effective coefficients
// (§4.5's "coefficient-weighted sum", §4.7's first pipeline stage).
type Initial struct{}

func (Initial) Score(_ context.Context, _ string, coeffs *signal.Coefficients, docs []*Website) error {
	for _, d := range docs {
		d.Score = signal.Score(d.Signals, coeffs)
	}
	return nil
}

// IdentityScorer leaves every document's score untouched; used in place of
// ReRanker when no cross-encoder is configured (§4.7).
type IdentityScorer struct{}

func (IdentityScorer) Score(context.Context, string, *signal.Coefficients, []*Website) error {
	return nil
}

// CrossEncoderFunc scores (query, text) pairs with an external cross-encoder
// model, returning one relevance score per text in the same order. The
// ranking package only depends on this function shape, never a concrete
// model client, the same external-model seam the teacher's CrossEncoder
// type plays for its own reranking stage.
type CrossEncoderFunc func(query string, texts []string) ([]float64, error)

// ReRanker runs a cross-encoder over each document's title and snippet
// against the query, writing the two reranker signal slots, then rescores
// with Initial so the result folds in alongside every other signal
// (composing with LambdaMART when that coefficient is configured, per
// signal.Score's rule).
type ReRanker struct {
	CrossEncoder CrossEncoderFunc
}

func (r ReRanker) Score(ctx context.Context, query string, coeffs *signal.Coefficients, docs []*Website) error {
	if r.CrossEncoder == nil || len(docs) == 0 {
		return Initial{}.Score(ctx, query, coeffs, docs)
	}

	titles := make([]string, len(docs))
	snippets := make([]string, len(docs))
	for i, d := range docs {
		titles[i] = d.Title
		snippets[i] = d.Snippet
	}

	titleScores, err := r.CrossEncoder(query, titles)
	if err != nil {
		return fmt.Errorf("cross-encoder title pass: %w", err)
	}
	if len(titleScores) != len(docs) {
		return fmt.Errorf("cross-encoder returned %d title scores for %d documents", len(titleScores), len(docs))
	}

	snippetScores, err := r.CrossEncoder(query, snippets)
	if err != nil {
		return fmt.Errorf("cross-encoder snippet pass: %w", err)
	}
	if len(snippetScores) != len(docs) {
		return fmt.Errorf("cross-encoder returned %d snippet scores for %d documents", len(snippetScores), len(docs))
	}

	for i, d := range docs {
		if d.Signals == nil {
			d.Signals = signal.Values{}
		}
		d.Signals[signal.CrossEncoderTitle] = titleScores[i]
		d.Signals[signal.CrossEncoderSnippet] = snippetScores[i]
	}

	return Initial{}.Score(ctx, query, coeffs, docs)
}
