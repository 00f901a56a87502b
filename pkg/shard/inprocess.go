package shard

import (
	"context"
	"fmt"

	"github.com/scour-engine/scour/pkg/retrieval"
	"github.com/scour-engine/scour/pkg/searcherr"
)

// InProcess satisfies RPC by calling a LocalSearcher directly, with no
// network hop — the shape an aggregator test or a single-binary
// deployment uses in place of httprpc.
type InProcess struct {
	Searcher *LocalSearcher
}

func (p InProcess) SearchInitial(ctx context.Context, q SearchQuery) (InitialSearchResultShard, error) {
	local, err := p.Searcher.Search(ctx, q)
	if err != nil {
		return InitialSearchResultShard{}, err
	}
	return InitialSearchResultShard{Local: local, ShardID: p.Searcher.ShardID}, nil
}

func (p InProcess) RetrieveWebpages(ctx context.Context, pointers []retrieval.WebsitePointer, query string) ([]retrieval.RetrievedWebpage, error) {
	return p.Searcher.RetrieveWebpages(ctx, pointers, query)
}

func (p InProcess) GetWebpage(ctx context.Context, url string) (retrieval.RetrievedWebpage, error) {
	page, ok, err := p.Searcher.GetWebpage(ctx, url)
	if err != nil {
		return retrieval.RetrievedWebpage{}, err
	}
	if !ok {
		return retrieval.RetrievedWebpage{}, searcherr.Wrap(searcherr.KindInternalIndex,
			fmt.Sprintf("no page for url %q", url), nil)
	}
	return page, nil
}

var _ RPC = InProcess{}
