// Package retrieval reconstitutes the documents a search surfaced: the
// transport-only WebsitePointer handed back by phase 1 becomes the full
// RetrievedWebpage a client renders, by looking the pointer's address up in
// a pkg/kvstore.Store.
package retrieval

import (
	"github.com/scour-engine/scour/pkg/docaddr"
	"github.com/scour-engine/scour/pkg/fingerprint"
)

// WebsitePointer is the transport unit between phase 1 (initial search) and
// phase 2 (retrieval). It never carries document bodies, only enough to
// dedup, re-score, and route a phase-2 lookup to the right shard.
type WebsitePointer struct {
	Address docaddr.DocAddress
	Hashes  fingerprint.Hashes
	Score   float64
	ShardID string
}
