package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scour-engine/scour/pkg/docaddr"
	"github.com/scour-engine/scour/pkg/ranking"
	"github.com/scour-engine/scour/pkg/retrieval"
	"github.com/scour-engine/scour/pkg/searcherr"
	"github.com/scour-engine/scour/pkg/shard"
)

// fakeShard is a hand-rolled shard.RPC backing every dispatch test: it
// hands back canned pointers from SearchInitial and synthesizes a page per
// pointer in RetrieveWebpages, so no on-disk retrieval.Store is needed.
type fakeShard struct {
	id          string
	websites    []retrieval.WebsitePointer
	numWebsites uint64
	searchErr   error
	retrieveErr error
}

func (f *fakeShard) SearchInitial(context.Context, shard.SearchQuery) (shard.InitialSearchResultShard, error) {
	if f.searchErr != nil {
		return shard.InitialSearchResultShard{}, f.searchErr
	}
	return shard.InitialSearchResultShard{
		ShardID: f.id,
		Local:   shard.LocalResult{Websites: f.websites, NumWebsites: f.numWebsites},
	}, nil
}

func (f *fakeShard) RetrieveWebpages(_ context.Context, pointers []retrieval.WebsitePointer, _ string) ([]retrieval.RetrievedWebpage, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	pages := make([]retrieval.RetrievedWebpage, len(pointers))
	for i, p := range pointers {
		pages[i] = retrieval.RetrievedWebpage{Title: "doc", URL: "https://example.com/" + string(rune('a'+p.Address.DocID))}
	}
	return pages, nil
}

func (f *fakeShard) GetWebpage(context.Context, string) (retrieval.RetrievedWebpage, error) {
	return retrieval.RetrievedWebpage{}, searcherr.Wrap(searcherr.KindInternalIndex, "not implemented", nil)
}

func testPipeline() ranking.Pipeline {
	return ranking.Pipeline{Stages: []ranking.Stage{{Scorer: ranking.IdentityScorer{}, StageTopN: 10}}}
}

func TestSearchMergesAcrossShardsByScoreDescending(t *testing.T) {
	shardA := &fakeShard{id: "a", numWebsites: 1, websites: []retrieval.WebsitePointer{
		{Address: docaddr.DocAddress{DocID: 1}, Score: 5, ShardID: "a"},
	}}
	shardB := &fakeShard{id: "b", numWebsites: 1, websites: []retrieval.WebsitePointer{
		{Address: docaddr.DocAddress{DocID: 2}, Score: 50, ShardID: "b"},
	}}
	agg := New(map[string]shard.RPC{"a": shardA, "b": shardB}, testPipeline())

	result, err := agg.Search(context.Background(), shard.SearchQuery{Query: "golang", NumResults: 10})
	require.NoError(t, err)
	require.NotNil(t, result.Websites)
	require.Len(t, result.Websites.Webpages, 2)
	assert.Equal(t, "b", result.Websites.Webpages[0].ShardID, "higher score should rank first regardless of shard")
	assert.Equal(t, uint64(2), result.Websites.NumHits)
}

func TestCombineResultsGloballySortsAcrossShardsBeforePaging(t *testing.T) {
	// Each shard's own candidates arrive already sorted locally, but
	// interleaved in score across shards: a naive concatenation would put
	// shard a's whole list before shard b's, so page 1 (offset 2) would
	// wrongly skip an arbitrary per-shard prefix instead of the true
	// top-2 by score across both shards.
	shardResults := []shard.InitialSearchResultShard{
		{ShardID: "a", Local: shard.LocalResult{
			NumWebsites: 3,
			Websites: []retrieval.WebsitePointer{
				{Address: docaddr.DocAddress{DocID: 1}, Score: 100, ShardID: "a"},
				{Address: docaddr.DocAddress{DocID: 2}, Score: 90, ShardID: "a"},
				{Address: docaddr.DocAddress{DocID: 3}, Score: 80, ShardID: "a"},
			},
		}},
		{ShardID: "b", Local: shard.LocalResult{
			NumWebsites: 3,
			Websites: []retrieval.WebsitePointer{
				{Address: docaddr.DocAddress{DocID: 4}, Score: 95, ShardID: "b"},
				{Address: docaddr.DocAddress{DocID: 5}, Score: 85, ShardID: "b"},
				{Address: docaddr.DocAddress{DocID: 6}, Score: 75, ShardID: "b"},
			},
		}},
	}
	agg := New(nil, testPipeline())

	merged, total, err := agg.combineResults(context.Background(), "golang", shardResults, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), total)
	require.Len(t, merged, 2)
	// Global score order is 100,95,90,85,80,75 — page 1 (offset 2) of size
	// 2 must be the 3rd and 4th highest overall: DocID 2 (score 90) and
	// DocID 5 (score 85), not an offset computed against one shard's list.
	assert.Equal(t, docaddr.DocAddress{DocID: 2}, merged[0].Address)
	assert.Equal(t, docaddr.DocAddress{DocID: 5}, merged[1].Address)
}

func TestSearchBangShortCircuitsSkipsFanOut(t *testing.T) {
	shardA := &fakeShard{id: "a", searchErr: assert.AnError}
	agg := New(map[string]shard.RPC{"a": shardA}, testPipeline())
	agg.Bangs = staticBangs{"g": "https://google.com/search?q=golang"}

	result, err := agg.Search(context.Background(), shard.SearchQuery{Query: "!g golang"})
	require.NoError(t, err)
	require.NotNil(t, result.Bang)
	assert.Equal(t, "https://google.com/search?q=golang", result.Bang.URL)
	assert.Nil(t, result.Websites)
}

func TestSearchUnresolvedBangFallsThroughToNormalSearch(t *testing.T) {
	shardA := &fakeShard{id: "a", numWebsites: 1, websites: []retrieval.WebsitePointer{
		{Address: docaddr.DocAddress{DocID: 1}, Score: 1, ShardID: "a"},
	}}
	agg := New(map[string]shard.RPC{"a": shardA}, testPipeline())
	agg.Bangs = staticBangs{}

	result, err := agg.Search(context.Background(), shard.SearchQuery{Query: "!unknownbang golang"})
	require.NoError(t, err)
	assert.Nil(t, result.Bang)
	require.NotNil(t, result.Websites)
}

func TestSearchDegradesOnOneShardFailureInPhase1(t *testing.T) {
	good := &fakeShard{id: "good", numWebsites: 1, websites: []retrieval.WebsitePointer{
		{Address: docaddr.DocAddress{DocID: 1}, Score: 1, ShardID: "good"},
	}}
	bad := &fakeShard{id: "bad", searchErr: searcherr.Wrap(searcherr.KindSearchFailed, "boom", nil)}
	agg := New(map[string]shard.RPC{"good": good, "bad": bad}, testPipeline())

	result, err := agg.Search(context.Background(), shard.SearchQuery{Query: "golang"})
	require.NoError(t, err)
	require.NotNil(t, result.Websites)
	assert.Len(t, result.Websites.Webpages, 1)
	assert.Equal(t, uint64(1), result.Websites.NumHits)
}

func TestSearchFailsWholeRequestOnPhase2RetrieveFailure(t *testing.T) {
	bad := &fakeShard{
		id:          "bad",
		numWebsites: 1,
		websites:    []retrieval.WebsitePointer{{Address: docaddr.DocAddress{DocID: 1}, Score: 1, ShardID: "bad"}},
		retrieveErr: searcherr.Wrap(searcherr.KindShardUnreachable, "connection refused", nil),
	}
	agg := New(map[string]shard.RPC{"bad": bad}, testPipeline())
	agg.Options.MaxRetries = 0

	_, err := agg.Search(context.Background(), shard.SearchQuery{Query: "golang"})
	require.Error(t, err)
	var se *searcherr.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, searcherr.KindSearchFailed, se.Kind)
}

func TestSearchHasMoreResultsWhenMoreHitsThanPageSize(t *testing.T) {
	shardA := &fakeShard{id: "a", numWebsites: 5, websites: []retrieval.WebsitePointer{
		{Address: docaddr.DocAddress{DocID: 1}, Score: 3, ShardID: "a"},
		{Address: docaddr.DocAddress{DocID: 2}, Score: 2, ShardID: "a"},
		{Address: docaddr.DocAddress{DocID: 3}, Score: 1, ShardID: "a"},
	}}
	agg := New(map[string]shard.RPC{"a": shardA}, testPipeline())

	result, err := agg.Search(context.Background(), shard.SearchQuery{Query: "golang", NumResults: 2})
	require.NoError(t, err)
	require.NotNil(t, result.Websites)
	assert.Len(t, result.Websites.Webpages, 2)
	assert.True(t, result.Websites.HasMoreResults)
}

func TestSearchWidgetIsBestEffortAndNeverFailsPrimarySearch(t *testing.T) {
	shardA := &fakeShard{id: "a", numWebsites: 1, websites: []retrieval.WebsitePointer{
		{Address: docaddr.DocAddress{DocID: 1}, Score: 1, ShardID: "a"},
	}}
	agg := New(map[string]shard.RPC{"a": shardA}, testPipeline())
	agg.Widgets = map[string]WidgetConfig{
		"discussions": {Optic: `Ranking(Signal("bm25f"), 1);`, ScoreThreshold: 1000, NumResults: 5},
	}

	result, err := agg.Search(context.Background(), shard.SearchQuery{Query: "golang", FetchDiscussions: true})
	require.NoError(t, err)
	require.NotNil(t, result.Websites)
	assert.Nil(t, result.Websites.Discussions, "score threshold above every candidate should yield no widget")
}

func TestCallWithRetryRetriesOnlyShardUnreachable(t *testing.T) {
	attempts := 0
	opts := Options{PerAttemptTimeout: 0, MaxRetries: 2, RetryBaseDelay: 0, RetryMaxDelay: 0}
	opts.PerAttemptTimeout = 1_000_000_000 // 1s, plenty for an in-memory call

	_, err := callWithRetry(context.Background(), opts, func(context.Context) (string, error) {
		attempts++
		return "", searcherr.Wrap(searcherr.KindShardUnreachable, "refused", nil)
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts, "first attempt plus two retries")
}

func TestCallWithRetryDoesNotRetryNonConnectionErrors(t *testing.T) {
	attempts := 0
	opts := Options{PerAttemptTimeout: 1_000_000_000, MaxRetries: 3}

	_, err := callWithRetry(context.Background(), opts, func(context.Context) (string, error) {
		attempts++
		return "", searcherr.Wrap(searcherr.KindSearchFailed, "not retryable", nil)
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

type staticBangs map[string]string

func (s staticBangs) Resolve(bang string) (string, bool) {
	url, ok := s[bang]
	return url, ok
}
