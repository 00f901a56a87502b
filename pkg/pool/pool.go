// Package pool provides object pooling for the search path to reduce
// allocations on its highest-frequency operations: one per-request
// candidate slice in the ranking pipeline, and one response buffer per
// RPC call.
//
// Usage:
//
//	buf := pool.GetByteBuffer()
//	defer pool.PutByteBuffer(buf)
//	json.NewEncoder(buf).Encode(v)
package pool

import (
	"bytes"
	"sync"

	"github.com/scour-engine/scour/pkg/ranking"
)

// Config configures object pooling behavior.
type Config struct {
	// Enabled controls whether pooling is active.
	Enabled bool

	// MaxCap limits the capacity a returned slice/buffer may have before
	// PutX silently drops it instead of pooling it (memory-leak guard
	// against one oversized request poisoning the pool for every request
	// after it).
	MaxCap int
}

var globalConfig = Config{
	Enabled: true,
	MaxCap:  4096,
}

// Configure sets global pool configuration. Should be called early during
// initialization, before any Get/Put calls.
func Configure(cfg Config) {
	globalConfig = cfg
}

// IsEnabled returns whether pooling is enabled.
func IsEnabled() bool {
	return globalConfig.Enabled
}

// =============================================================================
// Website Slice Pool (for per-request ranking candidate slices)
// =============================================================================

var websiteSlicePool = sync.Pool{
	New: func() any {
		return make([]*ranking.Website, 0, 256)
	},
}

// GetWebsiteSlice returns a zero-length *ranking.Website slice from the
// pool, sized for a shard's or the aggregator's per-request candidate set.
func GetWebsiteSlice() []*ranking.Website {
	if !globalConfig.Enabled {
		return make([]*ranking.Website, 0, 256)
	}
	return websiteSlicePool.Get().([]*ranking.Website)[:0]
}

// PutWebsiteSlice returns s to the pool once the caller no longer needs
// it as a slice — the *ranking.Website values it pointed to are untouched
// and may still be referenced elsewhere; only the slice header and
// backing array are reused.
func PutWebsiteSlice(s []*ranking.Website) {
	if !globalConfig.Enabled || s == nil {
		return
	}
	if cap(s) > globalConfig.MaxCap {
		return
	}
	for i := range s {
		s[i] = nil
	}
	websiteSlicePool.Put(s[:0])
}

// =============================================================================
// Byte Buffer Pool (for RPC response encoding)
// =============================================================================

var byteBufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// GetByteBuffer returns a reset *bytes.Buffer from the pool.
func GetByteBuffer() *bytes.Buffer {
	if !globalConfig.Enabled {
		return new(bytes.Buffer)
	}
	buf := byteBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutByteBuffer returns buf to the pool.
func PutByteBuffer(buf *bytes.Buffer) {
	if !globalConfig.Enabled || buf == nil {
		return
	}
	if buf.Cap() > globalConfig.MaxCap*256 { // don't pool a buffer that grew to serve one huge response
		return
	}
	buf.Reset()
	byteBufferPool.Put(buf)
}
