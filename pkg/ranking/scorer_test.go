package ranking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scour-engine/scour/pkg/signal"
)

func TestInitialScorerSumsCoefficientWeightedSignals(t *testing.T) {
	coeffs := signal.DefaultCoefficients()
	coeffs.Set(signal.Bm25F, 2)
	coeffs.Set(signal.HostCentrality, 3)
	docs := []*Website{
		{Signals: signal.Values{signal.Bm25F: 1, signal.HostCentrality: 1}},
	}

	require.NoError(t, (Initial{}).Score(context.Background(), "q", coeffs, docs))
	assert.InDelta(t, 5.0, docs[0].Score, 1e-9)
}

func TestIdentityScorerLeavesScoreUntouched(t *testing.T) {
	coeffs := signal.DefaultCoefficients()
	docs := []*Website{{Score: 42}}
	require.NoError(t, (IdentityScorer{}).Score(context.Background(), "q", coeffs, docs))
	assert.Equal(t, 42.0, docs[0].Score)
}

func TestReRankerFallsBackToInitialWithoutCrossEncoder(t *testing.T) {
	coeffs := signal.DefaultCoefficients()
	coeffs.Set(signal.Bm25F, 1)
	docs := []*Website{{Signals: signal.Values{signal.Bm25F: 4}}}

	r := ReRanker{}
	require.NoError(t, r.Score(context.Background(), "q", coeffs, docs))
	assert.Equal(t, 4.0, docs[0].Score)
}

func TestReRankerWritesCrossEncoderSignalsAndRescoresBothPasses(t *testing.T) {
	coeffs := signal.DefaultCoefficients()
	coeffs.Set(signal.CrossEncoderTitle, 1)
	coeffs.Set(signal.CrossEncoderSnippet, 1)
	coeffs.Set(signal.Bm25F, 0)

	docs := []*Website{
		{Title: "a title", Snippet: "a snippet", Signals: signal.Values{}},
		{Title: "b title", Snippet: "b snippet", Signals: signal.Values{}},
	}

	calls := 0
	cross := func(query string, texts []string) ([]float64, error) {
		calls++
		assert.Equal(t, "q", query)
		out := make([]float64, len(texts))
		for i := range texts {
			out[i] = float64(i + 1)
		}
		return out, nil
	}

	r := ReRanker{CrossEncoder: cross}
	require.NoError(t, r.Score(context.Background(), "q", coeffs, docs))

	assert.Equal(t, 2, calls, "expected one title pass and one snippet pass")
	assert.Equal(t, 1.0, docs[0].Signals[signal.CrossEncoderTitle])
	assert.Equal(t, 2.0, docs[1].Signals[signal.CrossEncoderTitle])
	assert.Equal(t, 1.0, docs[0].Signals[signal.CrossEncoderSnippet])
	assert.Equal(t, 2.0, docs[1].Signals[signal.CrossEncoderSnippet])
	assert.InDelta(t, 2.0, docs[0].Score, 1e-9)
	assert.InDelta(t, 4.0, docs[1].Score, 1e-9)
}

func TestReRankerPropagatesCrossEncoderError(t *testing.T) {
	coeffs := signal.DefaultCoefficients()
	docs := []*Website{{Title: "t", Snippet: "s", Signals: signal.Values{}}}
	r := ReRanker{CrossEncoder: func(string, []string) ([]float64, error) {
		return nil, errors.New("model down")
	}}
	err := r.Score(context.Background(), "q", coeffs, docs)
	assert.Error(t, err)
}

func TestReRankerRejectsMismatchedScoreCount(t *testing.T) {
	coeffs := signal.DefaultCoefficients()
	docs := []*Website{
		{Title: "t1", Snippet: "s1", Signals: signal.Values{}},
		{Title: "t2", Snippet: "s2", Signals: signal.Values{}},
	}
	r := ReRanker{CrossEncoder: func(_ string, texts []string) ([]float64, error) {
		return []float64{1}, nil // one score for two documents
	}}
	err := r.Score(context.Background(), "q", coeffs, docs)
	assert.Error(t, err)
}
