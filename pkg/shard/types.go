// Package shard defines the per-shard RPC surface (§4.9, §6): the two
// round-trips an aggregator makes to every shard holding a piece of the
// index, plus the single-document get_webpage entry point.
package shard

import (
	"context"
	"encoding/json"

	"github.com/scour-engine/scour/pkg/retrieval"
)

// SiteRankings carries a user's manual site preferences (§6 SearchQuery).
type SiteRankings struct {
	Liked    []string `json:"liked,omitempty"`
	Disliked []string `json:"disliked,omitempty"`
	Blocked  []string `json:"blocked,omitempty"`
}

// SearchQuery is the request both RPCs and the aggregator's public API
// accept (§6). NumResults and Page are the caller's requested page; a
// fanned-out phase-1 copy overwrites both before dispatch (§4.9).
type SearchQuery struct {
	Query                 string        `json:"query"`
	Page                  int           `json:"page"`
	NumResults            int           `json:"num_results"`
	Optic                 string        `json:"optic,omitempty"`
	SiteRankings          *SiteRankings `json:"site_rankings,omitempty"`
	SelectedRegion        string        `json:"selected_region,omitempty"`
	ReturnRankingSignals  bool          `json:"return_ranking_signals,omitempty"`
	FetchDiscussions      bool          `json:"fetch_discussions,omitempty"`
}

// LocalResult is what a shard's local collector produced for one query
// (§6): a page of WebsitePointers, the pre-dedup hit estimate, and any
// external-collaborator sidebar fragments (spell correction, entity
// sidebar) passed through opaquely — those subsystems are out of scope
// here (§1 Non-goals) and are never interpreted by this package.
type LocalResult struct {
	Websites            []retrieval.WebsitePointer `json:"websites"`
	NumWebsites         uint64                     `json:"num_websites"`
	SpellCorrectedQuery string                     `json:"spell_corrected_query,omitempty"`
	EntitySidebar       json.RawMessage            `json:"entity_sidebar,omitempty"`
}

// InitialSearchResultShard is search_initial's response envelope, tagging
// LocalResult with the shard that produced it so the aggregator can route
// phase 2's retrieve_webpages back to the right shard.
type InitialSearchResultShard struct {
	Local   LocalResult `json:"local_result"`
	ShardID string      `json:"shard_id"`
}

// RPC is the shard-facing interface an aggregator dispatches against. Two
// implementations exist: InProcess (same binary, for tests and small
// deployments) and httprpc.Client (network transport) — both satisfy the
// identical interface so pkg/dispatch never knows which one it's talking
// to.
type RPC interface {
	SearchInitial(ctx context.Context, q SearchQuery) (InitialSearchResultShard, error)
	RetrieveWebpages(ctx context.Context, pointers []retrieval.WebsitePointer, query string) ([]retrieval.RetrievedWebpage, error)
	GetWebpage(ctx context.Context, url string) (retrieval.RetrievedWebpage, error)
}
