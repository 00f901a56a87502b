// Package dispatch implements the aggregator half of the distributed
// two-phase searcher (§4.9): bang short-circuit, fan-out to every shard,
// the cross-shard merge, and best-effort auxiliary widgets.
package dispatch

import (
	"time"

	"github.com/scour-engine/scour/pkg/retrieval"
)

// DisplayedWebpage is one rendered result row: a RetrievedWebpage plus the
// presentation fields derived at the aggregator (its final merged score,
// which shard it came from, and a cosmetically trimmed URL).
type DisplayedWebpage struct {
	retrieval.RetrievedWebpage
	PrettyURL string  `json:"pretty_url"`
	Score     float64 `json:"score"`
	ShardID   string  `json:"shard_id"`
}

// WebsitesResult is the non-bang arm of SearchResult (§6).
type WebsitesResult struct {
	Webpages            []DisplayedWebpage `json:"webpages"`
	NumHits              uint64             `json:"num_hits"`
	SpellCorrectedQuery  string             `json:"spell_corrected_query,omitempty"`
	Widget               *WebsitesResult    `json:"widget,omitempty"`
	Discussions          *WebsitesResult    `json:"discussions,omitempty"`
	SearchDurationMs     int64              `json:"search_duration_ms"`
	HasMoreResults       bool               `json:"has_more_results"`
}

// BangHit is the bang arm of SearchResult: a direct redirect, bypassing
// the entire fan-out.
type BangHit struct {
	URL string `json:"url"`
}

// SearchResult is spec.md's closed sum type `Websites(WebsitesResult) |
// Bang(BangHit)`: exactly one of the two fields is non-nil.
type SearchResult struct {
	Websites *WebsitesResult `json:"websites,omitempty"`
	Bang     *BangHit        `json:"bang,omitempty"`
}

// BangResolver maps a possible-bang term's raw text (e.g. "g" from "!g")
// to its redirect URL. Bang definitions are an external collaborator (§1
// Non-goals); this package only consumes the resolve call and never
// interprets bang syntax itself.
type BangResolver interface {
	Resolve(bang string) (url string, ok bool)
}

// WidgetConfig describes one auxiliary, best-effort widget (discussions
// panel, stackoverflow sidebar, §4.9): a canned optic and a score
// threshold gating which merged results it surfaces.
type WidgetConfig struct {
	Optic          string
	ScoreThreshold float64
	NumResults     int
}

// Options tunes the fan-out's cancellation and retry behavior (§5).
type Options struct {
	// PerAttemptTimeout bounds a single RPC attempt. Default 90s (§5).
	PerAttemptTimeout time.Duration
	// MaxRetries caps additional attempts after the first, search RPCs
	// retry on connection errors only (§5).
	MaxRetries int
	// RetryBaseDelay is the first retry's backoff; it doubles (capped at
	// RetryMaxDelay) on each subsequent attempt.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// DefaultOptions matches §5's stated defaults.
func DefaultOptions() Options {
	return Options{
		PerAttemptTimeout: 90 * time.Second,
		MaxRetries:        3,
		RetryBaseDelay:    100 * time.Millisecond,
		RetryMaxDelay:     2 * time.Second,
	}
}
