package shard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scour-engine/scour/pkg/docaddr"
	"github.com/scour-engine/scour/pkg/retrieval"
)

func TestInProcessSearchInitialTagsShardID(t *testing.T) {
	src := &fakeSource{websites: nil}
	l := newSearcher(t, src)
	p := InProcess{Searcher: l}

	result, err := p.SearchInitial(context.Background(), SearchQuery{Query: "x", NumResults: 5})
	require.NoError(t, err)
	assert.Equal(t, "shard-0", result.ShardID)
	assert.Empty(t, result.Local.Websites)
}

func TestInProcessRetrieveWebpagesDelegates(t *testing.T) {
	l := newSearcher(t, &fakeSource{})
	addr := docaddr.DocAddress{DocID: 9}
	require.NoError(t, l.Retrieval.Put(addr, retrieval.PageRecord{Title: "A", URL: "https://a.example"}))
	p := InProcess{Searcher: l}

	pages, err := p.RetrieveWebpages(context.Background(), []retrieval.WebsitePointer{{Address: addr}}, "")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "A", pages[0].Title)
}

func TestInProcessGetWebpageNotFoundIsError(t *testing.T) {
	l := newSearcher(t, &fakeSource{})
	p := InProcess{Searcher: l}
	_, err := p.GetWebpage(context.Background(), "https://missing.example")
	require.Error(t, err)
}
