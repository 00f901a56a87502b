package signal

import "math"

// ScoreRank maps a 0-based rank (host centrality rank, page centrality
// rank, ...) to a bounded score in ten logarithmic buckets: rank 0 scores
// highest, and the score reaches zero around rank 8^10.
//
//	score_rank(r) = max(0, 10 - log_8(1 + r))
func ScoreRank(rank float64) float64 {
	if rank < 0 {
		rank = 0
	}
	s := 10.0 - math.Log(1+rank)/math.Log(8)
	if s < 0 {
		return 0
	}
	return s
}

// freshnessHalfLifeHours is the 3-day half-life spec.md fixes for
// ScoreTimestamp; it plays the same "half-life constant" role as
// pkg/decay's memory-tier half-lives but is a fixed, query-independent
// constant rather than a per-tier one.
const freshnessHalfLifeHours = 72.0

// ScoreTimestamp scores a document's freshness given the hours elapsed
// since its UpdateTimestamp. Newer documents score closer to 1; the score is
// 1/2 at 72 hours, 1/3 at 144 and 1/4 at 216 (hyperbolic, not exponential,
// decay: 72 hours is the half-score point, not a repeating half-life).
//
//	score_timestamp(t) = 72 / (hours_since(t) + 72)
func ScoreTimestamp(hoursSince float64) float64 {
	if hoursSince < 0 {
		hoursSince = 0
	}
	return freshnessHalfLifeHours / (hoursSince + freshnessHalfLifeHours)
}

// ScoreReciprocal implements the shared 1/(x+1) decay used by
// TrackerScore, UrlDigits and UrlSlashes: more trackers/digits/slashes
// monotonically lowers the score toward zero, never negative.
func ScoreReciprocal(x float64) float64 {
	if x < 0 {
		x = 0
	}
	return 1.0 / (x + 1.0)
}

// ScoreLinkDensity scores a page's link-to-text density: pages denser than
// 0.5 (likely link farms) score zero; otherwise the score is 1 - density,
// falling linearly from 1 at density 0 to 0.5 at density 0.5.
func ScoreLinkDensity(density float64) float64 {
	if density > 0.5 {
		return 0
	}
	return 1 - density
}

// RegionCounter tracks how many already-seen results in a query fall into
// each region, so Region signal scoring can bias toward regions that are
// already well represented in the result set (and, separately, toward the
// query's explicitly selected region).
type RegionCounter struct {
	counts map[string]int
}

// NewRegionCounter returns an empty RegionCounter.
func NewRegionCounter() *RegionCounter {
	return &RegionCounter{counts: map[string]int{}}
}

// Observe records one more result seen in region.
func (rc *RegionCounter) Observe(region string) {
	rc.counts[region]++
}

// score returns a bounded, monotonically increasing function of how often
// region has been observed so far.
func (rc *RegionCounter) score(region string) float64 {
	if rc == nil {
		return 0
	}
	return math.Log1p(float64(rc.counts[region]))
}

// regionSelectedBoost is added to a document's Region score when its
// region matches the query's explicitly selected region (and that
// selection isn't the wildcard "all" region).
const regionSelectedBoost = 50.0

// ScoreRegion computes the Region signal (§4.5): a per-query bias toward
// regions already well represented in the result set, plus a flat boost
// when the document's region matches the searcher's explicitly selected
// region.
func ScoreRegion(rc *RegionCounter, docRegion, selectedRegion string) float64 {
	boost := 0.0
	if selectedRegion != "" && selectedRegion != "all" && selectedRegion == docRegion {
		boost = regionSelectedBoost
	}
	return boost + rc.score(docRegion)
}
