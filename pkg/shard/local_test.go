package shard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scour-engine/scour/pkg/cache"
	"github.com/scour-engine/scour/pkg/docaddr"
	"github.com/scour-engine/scour/pkg/optic"
	"github.com/scour-engine/scour/pkg/query"
	"github.com/scour-engine/scour/pkg/ranking"
	"github.com/scour-engine/scour/pkg/retrieval"
	"github.com/scour-engine/scour/pkg/searcherr"
	"github.com/scour-engine/scour/pkg/signal"
)

type fakeSource struct {
	websites []*ranking.Website
	lastOpt  *optic.CompiledOptic
	err      error
}

func (f *fakeSource) Candidates(_ context.Context, _ []query.Term, _ query.Query, compiled *optic.CompiledOptic, _ *SiteRankings) ([]*ranking.Website, error) {
	f.lastOpt = compiled
	if f.err != nil {
		return nil, f.err
	}
	return f.websites, nil
}

func testPipeline() ranking.Pipeline {
	return ranking.Pipeline{Stages: []ranking.Stage{{Scorer: ranking.Initial{}, StageTopN: 10}}}
}

func newSearcher(t *testing.T, source CandidateSource) *LocalSearcher {
	store, err := retrieval.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return &LocalSearcher{ShardID: "shard-0", Source: source, Pipeline: testPipeline(), Retrieval: store}
}

func TestSearchRanksCandidatesBySignalScore(t *testing.T) {
	src := &fakeSource{websites: []*ranking.Website{
		{Address: docaddr.DocAddress{DocID: 1}, Signals: signal.Values{signal.Bm25F: 1}},
		{Address: docaddr.DocAddress{DocID: 2}, Signals: signal.Values{signal.Bm25F: 100}},
	}}
	l := newSearcher(t, src)

	result, err := l.Search(context.Background(), SearchQuery{Query: "golang", NumResults: 10})
	require.NoError(t, err)
	require.Len(t, result.Websites, 2)
	assert.Equal(t, uint64(2), result.Websites[0].Address.DocID, "higher bm25f should rank first")
	assert.Equal(t, "shard-0", result.Websites[0].ShardID)
	assert.Equal(t, uint64(2), result.NumWebsites)
}

func TestSearchEmptyQueryIsEmptyQueryError(t *testing.T) {
	l := newSearcher(t, &fakeSource{})
	_, err := l.Search(context.Background(), SearchQuery{Query: "   "})
	require.Error(t, err)
	var se *searcherr.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, searcherr.KindEmptyQuery, se.Kind)
}

func TestSearchRejectsUnparseableOptic(t *testing.T) {
	l := newSearcher(t, &fakeSource{})
	_, err := l.Search(context.Background(), SearchQuery{Query: "golang", Optic: "not a valid optic ((("})
	require.Error(t, err)
	var se *searcherr.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, searcherr.KindParse, se.Kind)
}

func TestSearchAppliesSignalCoefficientOverrideFromOptic(t *testing.T) {
	src := &fakeSource{websites: []*ranking.Website{
		{Address: docaddr.DocAddress{DocID: 1}, Signals: signal.Values{signal.Bm25F: 1, signal.HasAds: 1}},
	}}
	l := newSearcher(t, src)

	_, err := l.Search(context.Background(), SearchQuery{
		Query: "golang",
		Optic: `Ranking(Signal("has_ads"), 50);`,
	})
	require.NoError(t, err)
	require.Len(t, src.lastOpt.Rankings, 1)
	assert.Equal(t, "has_ads", src.lastOpt.Rankings[0].Target.Name)
}

func TestSearchReusesCompiledOpticFromCache(t *testing.T) {
	src := &fakeSource{websites: []*ranking.Website{
		{Address: docaddr.DocAddress{DocID: 1}, Signals: signal.Values{signal.Bm25F: 1}},
	}}
	l := newSearcher(t, src)
	l.Optics = cache.NewOpticCache(10, time.Minute)

	opticSrc := `Ranking(Signal("has_ads"), 50);`
	_, err := l.Search(context.Background(), SearchQuery{Query: "golang", Optic: opticSrc})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), l.Optics.Stats().Hits, "first call compiles and populates the cache")
	assert.Equal(t, 1, l.Optics.Len())

	_, err = l.Search(context.Background(), SearchQuery{Query: "golang", Optic: opticSrc})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), l.Optics.Stats().Hits, "second call with identical source hits the cache")
}

func TestSearchPropagatesCandidateSourceError(t *testing.T) {
	l := newSearcher(t, &fakeSource{err: assert.AnError})
	_, err := l.Search(context.Background(), SearchQuery{Query: "golang"})
	require.Error(t, err)
}

func TestRetrieveWebpagesAndGetWebpageDelegateToRetrievalStore(t *testing.T) {
	l := newSearcher(t, &fakeSource{})
	addr := docaddr.DocAddress{DocID: 1}
	require.NoError(t, l.Retrieval.Put(addr, retrieval.PageRecord{Title: "Hi", URL: "https://hi.example"}))

	pages, err := l.RetrieveWebpages(context.Background(), []retrieval.WebsitePointer{{Address: addr}}, "")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Hi", pages[0].Title)

	page, ok, err := l.GetWebpage(context.Background(), "https://hi.example")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hi", page.Title)
}
