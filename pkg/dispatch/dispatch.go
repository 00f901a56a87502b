package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scour-engine/scour/pkg/collector"
	"github.com/scour-engine/scour/pkg/docaddr"
	"github.com/scour-engine/scour/pkg/logging"
	"github.com/scour-engine/scour/pkg/metrics"
	"github.com/scour-engine/scour/pkg/pool"
	"github.com/scour-engine/scour/pkg/query"
	"github.com/scour-engine/scour/pkg/ranking"
	"github.com/scour-engine/scour/pkg/retrieval"
	"github.com/scour-engine/scour/pkg/searcherr"
	"github.com/scour-engine/scour/pkg/shard"
	"github.com/scour-engine/scour/pkg/signal"
)

const defaultTopN = 20

// Aggregator is the distributed searcher's aggregator half (§4.9): it owns
// the shard roster and fans each query out to every one of them, merges
// the per-shard fruits into a single ranked page, and retrieves the final
// webpages only for the documents that survived the merge.
type Aggregator struct {
	// Shards maps shard_id to its RPC handle, in or out of process (both
	// shard.InProcess and pkg/shard/httprpc.Client satisfy shard.RPC).
	Shards map[string]shard.RPC
	// Pipeline reranks and trims the cross-shard merge (the aggregator's
	// own pipeline, distinct from the one each shard runs locally).
	Pipeline ranking.Pipeline
	// Bangs resolves possible-bang terms to redirect URLs; nil disables
	// bang handling entirely (every query falls through to a normal
	// search).
	Bangs BangResolver
	// Widgets configures the best-effort auxiliary searches keyed by
	// result field ("discussions", "widget").
	Widgets map[string]WidgetConfig
	Options Options
}

// New returns an Aggregator with DefaultOptions and an empty widget set.
func New(shards map[string]shard.RPC, pipeline ranking.Pipeline) *Aggregator {
	return &Aggregator{Shards: shards, Pipeline: pipeline, Options: DefaultOptions()}
}

// Search runs the full two-phase protocol for q (§4.9): a bang
// short-circuit, phase 1 fan-out to every shard's search_initial, a
// cross-shard merge, phase 2 fan-out to retrieve_webpages filtered by
// shard_id, and best-effort widgets layered on top.
func (a *Aggregator) Search(ctx context.Context, q shard.SearchQuery) (SearchResult, error) {
	start := time.Now()

	if bang, ok := firstPossibleBang(q.Query); ok && a.Bangs != nil {
		if url, ok := a.Bangs.Resolve(bang); ok {
			return SearchResult{Bang: &BangHit{URL: url}}, nil
		}
	}

	topN := q.NumResults
	if topN <= 0 {
		topN = defaultTopN
	}
	page := q.Page

	phase1Query := q
	phase1Query.NumResults = ranking.CollectorTopN(topN, topN, page)
	phase1Query.Page = 0

	shardResults := a.fanOutPhase1(ctx, phase1Query)

	merged, totalHits, err := a.combineResults(ctx, q.Query, shardResults, topN, page)
	if err != nil {
		return SearchResult{}, err
	}

	pages, err := a.fanOutPhase2(ctx, merged, q.Query)
	if err != nil {
		return SearchResult{}, err
	}

	webpages := make([]DisplayedWebpage, len(merged))
	for i, ptr := range merged {
		webpages[i] = DisplayedWebpage{
			RetrievedWebpage: pages[i],
			PrettyURL:        retrieval.PrettyURL(pages[i].URL),
			Score:            ptr.Score,
			ShardID:          ptr.ShardID,
		}
	}

	result := &WebsitesResult{
		Webpages:         webpages,
		NumHits:          totalHits,
		SearchDurationMs: time.Since(start).Milliseconds(),
		HasMoreResults:   hasMoreResults(totalHits, topN*page, len(webpages)),
	}

	if q.FetchDiscussions {
		if cfg, ok := a.Widgets["discussions"]; ok {
			result.Discussions = a.searchWidget(ctx, q.Query, cfg)
		}
	}
	if cfg, ok := a.Widgets["widget"]; ok {
		result.Widget = a.searchWidget(ctx, q.Query, cfg)
	}

	return SearchResult{Websites: result}, nil
}

func hasMoreResults(totalNumWebsites uint64, offset, resultLen int) bool {
	if offset < 0 {
		offset = 0
	}
	if uint64(offset) >= totalNumWebsites {
		return false
	}
	remaining := totalNumWebsites - uint64(offset)
	return remaining > uint64(resultLen)
}

func firstPossibleBang(q string) (string, bool) {
	for _, t := range query.Parse(q) {
		if t.Kind == query.KindPossibleBang && t.Text != "" {
			return t.Text, true
		}
	}
	return "", false
}

// fanOutPhase1 runs search_initial against every shard concurrently.
// A shard that fails (even after retries) degrades the result set rather
// than failing the whole request (§4.9): its candidates are simply absent
// from the merge.
func (a *Aggregator) fanOutPhase1(ctx context.Context, q shard.SearchQuery) []shard.InitialSearchResultShard {
	ids := a.shardIDs()
	results := make([]*shard.InitialSearchResultShard, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id, rpc := i, id, a.Shards[id]
		g.Go(func() error {
			start := time.Now()
			res, err := callWithRetry(gctx, a.options(), func(ctx context.Context) (shard.InitialSearchResultShard, error) {
				return rpc.SearchInitial(ctx, q)
			})
			outcome := "ok"
			if err != nil {
				outcome = "error"
				var se *searcherr.Error
				kind := "unknown"
				if errors.As(err, &se) {
					kind = string(se.Kind)
				}
				metrics.ShardErrors.WithLabelValues(id, kind).Inc()
				logging.L().Warn("shard search_initial failed, degrading result set",
					zap.String("shard_id", id), zap.Error(err))
			}
			metrics.RPCDuration.WithLabelValues("search_initial", id, outcome).Observe(time.Since(start).Seconds())
			if err != nil {
				return nil
			}
			results[i] = &res
			return nil
		})
	}
	_ = g.Wait() // every goroutine above always returns nil; this only waits

	out := make([]shard.InitialSearchResultShard, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// combineResults merges every shard's phase-1 candidates into a single
// globally-sorted, diversified, deduped list through a dedicated
// collector.BucketCollector before handing it to the aggregator's own
// ranking.Pipeline (the shard-merge step of §4.6/§4.9). This presort
// matters because ranking.Apply's first stage windows its input via
// docs[offset:window] before rescoring: fed a naive concatenation of each
// shard's own locally-sorted sub-list, that window would skip an
// arbitrary, rank-unrelated prefix instead of the true top-offset
// candidates by score whenever more than one shard contributes and
// page>0. By default the pipeline itself is an IdentityScorer pass that
// simply collects and diversifies the already-merged scores, but a caller
// may configure a.Pipeline with a cross-shard cross-encoder stage the
// same way a shard configures its own. ranking.Apply's own BucketCollector
// pass only tie-breaks on DocAddress, so ties are broken again here on
// (shard_id asc, DocAddress asc), the exact order §5 specifies for the
// merge.
func (a *Aggregator) combineResults(ctx context.Context, query string, shardResults []shard.InitialSearchResultShard, topN, page int) ([]retrieval.WebsitePointer, uint64, error) {
	var totalNumWebsites uint64
	byAddr := make(map[docaddr.DocAddress]retrieval.WebsitePointer)

	merge := collector.New(ranking.CollectorTopN(topN, topN, page))
	for _, sr := range shardResults {
		totalNumWebsites += sr.Local.NumWebsites
		for _, ptr := range sr.Local.Websites {
			byAddr[ptr.Address] = ptr
			merge.Insert(collector.Doc{Address: ptr.Address, Score: ptr.Score, Hashes: ptr.Hashes})
		}
	}
	mergedDocs := merge.IntoSortedVec(true)

	docs := pool.GetWebsiteSlice()
	defer func() { pool.PutWebsiteSlice(docs) }()
	for _, md := range mergedDocs {
		docs = append(docs, &ranking.Website{Address: md.Address, Hashes: md.Hashes, Score: md.Score})
	}

	ranked, err := ranking.Apply(ctx, a.Pipeline, query, signal.DefaultCoefficients(), docs, topN, page)
	if err != nil {
		return nil, 0, fmt.Errorf("combine_results: %w", err)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		si, sj := byAddr[ranked[i].Address].ShardID, byAddr[ranked[j].Address].ShardID
		if si != sj {
			return si < sj
		}
		return ranked[i].Address.Less(ranked[j].Address)
	})

	out := make([]retrieval.WebsitePointer, len(ranked))
	for i, w := range ranked {
		ptr := byAddr[w.Address]
		ptr.Score = w.Score
		out[i] = ptr
	}
	return out, totalNumWebsites, nil
}

// fanOutPhase2 retrieves the final webpages for pointers, grouping by
// shard_id and issuing one retrieve_webpages call per shard. Unlike phase
// 1, a shard failure here fails the whole request (§4.9): a partial result
// set would silently drop pages the merge already committed to returning.
func (a *Aggregator) fanOutPhase2(ctx context.Context, pointers []retrieval.WebsitePointer, query string) ([]retrieval.RetrievedWebpage, error) {
	byShard := make(map[string][]retrieval.WebsitePointer)
	for _, p := range pointers {
		byShard[p.ShardID] = append(byShard[p.ShardID], p)
	}

	g, gctx := errgroup.WithContext(ctx)
	pagesByShard := make(map[string][]retrieval.RetrievedWebpage, len(byShard))
	var mu sync.Mutex

	for shardID, ptrs := range byShard {
		shardID, ptrs := shardID, ptrs
		rpc, ok := a.Shards[shardID]
		if !ok {
			return nil, searcherr.Wrap(searcherr.KindShardUnreachable, fmt.Sprintf("unknown shard_id %q", shardID), nil)
		}
		g.Go(func() error {
			start := time.Now()
			pages, err := callWithRetry(gctx, a.options(), func(ctx context.Context) ([]retrieval.RetrievedWebpage, error) {
				return rpc.RetrieveWebpages(ctx, ptrs, query)
			})
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			metrics.RPCDuration.WithLabelValues("retrieve_webpages", shardID, outcome).Observe(time.Since(start).Seconds())
			if err != nil {
				var se *searcherr.Error
				kind := "unknown"
				if errors.As(err, &se) {
					kind = string(se.Kind)
				}
				metrics.ShardErrors.WithLabelValues(shardID, kind).Inc()
				return fmt.Errorf("shard %s: retrieve_webpages: %w", shardID, err)
			}
			mu.Lock()
			pagesByShard[shardID] = pages
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, searcherr.Wrap(searcherr.KindSearchFailed, "retrieve_webpages failed", err)
	}

	total := 0
	for _, pages := range pagesByShard {
		total += len(pages)
	}
	if total != len(pointers) {
		return nil, searcherr.Wrap(searcherr.KindSearchFailed,
			fmt.Sprintf("retrieved %d webpages for %d pointers", total, len(pointers)), nil)
	}

	next := make(map[string]int, len(byShard))
	out := make([]retrieval.RetrievedWebpage, 0, len(pointers))
	for _, p := range pointers {
		i := next[p.ShardID]
		out = append(out, pagesByShard[p.ShardID][i])
		next[p.ShardID] = i + 1
	}
	return out, nil
}

// searchWidget runs a recursive, best-effort search for an auxiliary panel
// (§4.9): its own canned optic, gated by a minimum merged score. Any
// failure (including the widget search itself erroring) is swallowed —
// widgets never fail the primary search.
func (a *Aggregator) searchWidget(ctx context.Context, baseQuery string, cfg WidgetConfig) *WebsitesResult {
	numResults := cfg.NumResults
	if numResults <= 0 {
		numResults = defaultTopN
	}
	res, err := a.Search(ctx, shard.SearchQuery{Query: baseQuery, Optic: cfg.Optic, NumResults: numResults})
	if err != nil {
		logging.L().Warn("widget search failed, omitting", zap.Error(err))
		return nil
	}
	if res.Websites == nil {
		return nil
	}

	filtered := res.Websites.Webpages[:0]
	for _, wp := range res.Websites.Webpages {
		if wp.Score >= cfg.ScoreThreshold {
			filtered = append(filtered, wp)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	res.Websites.Webpages = filtered
	return res.Websites
}

func (a *Aggregator) shardIDs() []string {
	ids := make([]string, 0, len(a.Shards))
	for id := range a.Shards {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (a *Aggregator) options() Options {
	if a.Options.PerAttemptTimeout == 0 && a.Options.MaxRetries == 0 && a.Options.RetryBaseDelay == 0 {
		return DefaultOptions()
	}
	return a.Options
}

// callWithRetry runs fn once, then retries up to opts.MaxRetries times if
// the failure is a shard-unreachable connection error, with a backoff that
// doubles each attempt up to RetryMaxDelay — the same growing-backoff
// shape as the teacher's own embedWithRetry, applied here to shard
// connection errors instead of embedding-provider failures.
func callWithRetry[T any](ctx context.Context, opts Options, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	delay := opts.RetryBaseDelay

	for attempt := 0; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, opts.PerAttemptTimeout)
		res, err := fn(attemptCtx)
		cancel()
		if err == nil {
			return res, nil
		}
		if attempt >= opts.MaxRetries || !isRetryableErr(err) {
			return zero, err
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > opts.RetryMaxDelay {
			delay = opts.RetryMaxDelay
		}
	}
}

func isRetryableErr(err error) bool {
	var se *searcherr.Error
	return errors.As(err, &se) && se.Kind == searcherr.KindShardUnreachable
}
