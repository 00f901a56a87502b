// Package collector implements the bounded top-K collector with bucket
// diversification and simhash dedup (§4.6): a min-heap capped at top_n+1
// (maximums are found by scan when draining), penalizing repeated sites/URLs/titles so one host can't flood a
// result page, and a final pass that drops near-duplicate bodies.
package collector

import (
	"container/heap"
	"math"

	"go.uber.org/zap"

	"github.com/scour-engine/scour/pkg/docaddr"
	"github.com/scour-engine/scour/pkg/fingerprint"
	"github.com/scour-engine/scour/pkg/logging"
	"github.com/scour-engine/scour/pkg/metrics"
)

// Bucket-penalty scales (§4.6): smaller scale means a stronger penalty per
// repeated occurrence. URL_SCALE is tiny because near-identical URLs
// (pagination, query-string variants) are far more common, and far less
// informative of distinctness, than repeated sites or titles.
const (
	SiteScale  = 14.0
	URLScale   = 0.1
	TitleScale = 6.0
)

// Doc is one scored candidate handed to the collector.
type Doc struct {
	Address docaddr.DocAddress
	Score   float64
	Hashes  fingerprint.Hashes
}

// scored is the heap element: Doc plus its adjusted_score at insertion time.
type scored struct {
	doc      Doc
	adjusted float64
}

// bucketCounts tracks how many accepted documents already share a hash, one
// counter set per key (site/url/title).
type bucketCounts struct {
	site  map[uint64]int
	url   map[uint64]int
	title map[uint64]int
}

func newBucketCounts() *bucketCounts {
	return &bucketCounts{
		site:  map[uint64]int{},
		url:   map[uint64]int{},
		title: map[uint64]int{},
	}
}

func (b *bucketCounts) taken(h fingerprint.Hashes) (site, url, title int) {
	return b.site[h.Site], b.url[h.URL], b.title[h.Title]
}

func (b *bucketCounts) increment(h fingerprint.Hashes) {
	b.site[h.Site]++
	b.url[h.URL]++
	b.title[h.Title]++
}

// adjustedScore applies the §4.6 diversification penalty:
// score * (S/(S+taken)) for each of the three bucket keys.
func adjustedScore(score float64, h fingerprint.Hashes, b *bucketCounts) float64 {
	site, url, title := b.taken(h)
	adj := score
	adj *= SiteScale / (SiteScale + float64(site))
	adj *= URLScale / (URLScale + float64(url))
	adj *= TitleScale / (TitleScale + float64(title))
	return adj
}

// heapLess implements the comparator shared by the min-heap: lower
// adjusted_score sorts first, ties break on DocAddress for determinism.
// NaN never compares less than anything (coerced to Ordering::Equal, §4.6),
// so a NaN score can't silently dominate or get silently evicted ahead of
// a real score.
func heapLess(a, b scored) bool {
	if math.IsNaN(a.adjusted) || math.IsNaN(b.adjusted) {
		return false
	}
	if a.adjusted != b.adjusted {
		return a.adjusted < b.adjusted
	}
	return a.doc.Address.Less(b.doc.Address)
}

// minHeap is a container/heap.Interface over []scored, ordered so Pop
// returns the current minimum (the candidate to evict first).
type minHeap []scored

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return heapLess(h[i], h[j]) }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(scored)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// BucketCollector collects up to top_n+1 candidates at a time, evicting the
// lowest-adjusted-score candidate whenever it overflows, then reduces to a
// diversified, simhash-deduped, score-sorted slice on demand.
type BucketCollector struct {
	topN    int
	buckets *bucketCounts
	h       minHeap
}

// New returns a BucketCollector bounded at topN+1 live candidates.
func New(topN int) *BucketCollector {
	if topN < 0 {
		topN = 0
	}
	return &BucketCollector{
		topN:    topN,
		buckets: newBucketCounts(),
		h:       make(minHeap, 0, topN+1),
	}
}

// Insert adds doc, applying the current bucket penalty, and evicts the
// minimum if the heap overflows top_n+1 (§4.6 steps 1-3).
func (c *BucketCollector) Insert(doc Doc) {
	item := scored{doc: doc, adjusted: adjustedScore(doc.Score, doc.Hashes, c.buckets)}
	heap.Push(&c.h, item)
	if c.h.Len() > c.topN+1 {
		heap.Pop(&c.h)
	}
}

// Len returns the number of candidates currently held.
func (c *BucketCollector) Len() int { return c.h.Len() }

// popMax removes and returns the current maximum from the min-heap by
// linear scan — the heap only guarantees O(1) access to the minimum, and
// finalization is a bounded (top_n+1-sized), infrequent operation, so a
// scan per pop is the simplest correct approach.
func (c *BucketCollector) popMax() (scored, bool) {
	if len(c.h) == 0 {
		return scored{}, false
	}
	maxIdx := 0
	for i := 1; i < len(c.h); i++ {
		if heapLess(c.h[maxIdx], c.h[i]) {
			maxIdx = i
		}
	}
	max := c.h[maxIdx]
	heap.Remove(&c.h, maxIdx)
	return max, true
}

// recomputeMax recomputes every live candidate's adjusted_score against the
// current bucket counts and returns the new maximum without removing it.
// Used by the greedy re-bubble during diversified finalization.
func (c *BucketCollector) recomputeMax() (int, scored, bool) {
	if len(c.h) == 0 {
		return -1, scored{}, false
	}
	for i := range c.h {
		c.h[i].adjusted = adjustedScore(c.h[i].doc.Score, c.h[i].doc.Hashes, c.buckets)
	}
	heap.Init(&c.h)
	maxIdx := 0
	for i := 1; i < len(c.h); i++ {
		if heapLess(c.h[maxIdx], c.h[i]) {
			maxIdx = i
		}
	}
	return maxIdx, c.h[maxIdx], true
}

// IntoSortedVec drains the collector into a descending-adjusted_score slice,
// bounded at top_n entries (§4.6's into_sorted_vec). Docs whose simhash is
// nonzero and already seen are skipped (dedup); when deRankSimilar is set,
// every emitted doc's bucket counters are incremented and the remaining
// heap is greedily re-bubbled so later pops reflect the updated penalty,
// the "diversified re-rank" pass. Candidates still held once top_n docs
// have been emitted stay in the collector.
func (c *BucketCollector) IntoSortedVec(deRankSimilar bool) []Doc {
	seen := map[uint64]struct{}{}
	out := make([]Doc, 0, c.topN)

	for len(c.h) > 0 && len(out) < c.topN {
		var top scored
		var ok bool
		if deRankSimilar {
			idx, t, o := c.recomputeMax()
			ok = o
			if ok {
				top = t
				heap.Remove(&c.h, idx)
			}
		} else {
			top, ok = c.popMax()
		}
		if !ok {
			break
		}

		if top.doc.Hashes.Simhash != 0 {
			if _, dup := seen[top.doc.Hashes.Simhash]; dup {
				logging.L().Debug("collector: dropping near-duplicate",
					zap.Uint64("simhash", top.doc.Hashes.Simhash))
				metrics.SimhashDeduped.Inc()
				continue
			}
			seen[top.doc.Hashes.Simhash] = struct{}{}
		} else {
			logging.L().Debug("collector: zero simhash, skipping dedup",
				zap.Uint32("segment_ordinal", top.doc.Address.SegmentOrdinal),
				zap.Uint64("doc_id", top.doc.Address.DocID))
		}

		out = append(out, top.doc)
		if deRankSimilar {
			c.buckets.increment(top.doc.Hashes)
		}
	}
	return out
}
