// Package metrics exposes the search path's Prometheus counters and
// histograms: pkg/dispatch updates RPC latency and shard error counts,
// pkg/collector counts simhash-deduped documents, and pkg/ranking times each
// pipeline stage. CollectorDiversified is registered but no package
// increments it. Grounded on libaf/healthserver's client_golang wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCDuration records search_initial/retrieve_webpages latency per shard and phase.
	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scour",
		Subsystem: "dispatch",
		Name:      "rpc_duration_seconds",
		Help:      "Latency of shard RPCs by phase.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"phase", "shard_id", "outcome"})

	// ShardErrors counts RPC failures per shard, labeled by the error kind.
	ShardErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scour",
		Subsystem: "dispatch",
		Name:      "shard_errors_total",
		Help:      "Shard RPC failures by kind.",
	}, []string{"shard_id", "kind"})

	// CollectorDiversified counts how many inserts were penalized by the
	// bucket collector's site/url/title scaling. It is registered and
	// exported, but no package increments it.
	CollectorDiversified = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scour",
		Subsystem: "collector",
		Name:      "diversified_total",
		Help:      "Documents whose score was adjusted by bucket diversification.",
	}, []string{"key"})

	// SimhashDeduped counts documents dropped by simhash near-duplicate suppression.
	SimhashDeduped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scour",
		Subsystem: "collector",
		Name:      "simhash_deduped_total",
		Help:      "Documents skipped by simhash dedup during finalize.",
	})

	// PipelineStageDuration records per-stage ranking time.
	PipelineStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scour",
		Subsystem: "ranking",
		Name:      "stage_duration_seconds",
		Help:      "Time spent in each ranking pipeline stage.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})
)
