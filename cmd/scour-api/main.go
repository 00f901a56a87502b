// Package main provides the scour-api CLI entry point: the aggregator that
// fans a query out to every configured shard, merges the results, and
// serves the combined page over HTTP+JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scour-engine/scour/pkg/config"
	"github.com/scour-engine/scour/pkg/dispatch"
	"github.com/scour-engine/scour/pkg/logging"
	"github.com/scour-engine/scour/pkg/ranking"
	"github.com/scour-engine/scour/pkg/searcherr"
	"github.com/scour-engine/scour/pkg/shard"
	"github.com/scour-engine/scour/pkg/shard/httprpc"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scour-api",
		Short: "scour-api runs the search aggregator",
		Long: `scour-api fans each query out to every shard named in its config,
merges the per-shard results through the cross-shard BucketCollector pass, and
retrieves the final webpages only for the documents that survive the merge.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("scour-api v%s (%s)\n", version, commit)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the aggregator's HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().String("config", "", "path to a YAML config file (optional)")
	serveCmd.Flags().String("listen-address", "", "override aggregator.listen_address")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("listen-address"); v != "" {
		cfg.Aggregator.ListenAddress = v
	}

	if _, err := logging.Init(cfg.Logging.Dev); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logging.Sync()
	log := logging.L()

	if len(cfg.Aggregator.Shards) == 0 {
		log.Warn("no shards configured; every search will return zero results")
	}

	shards := make(map[string]shard.RPC, len(cfg.Aggregator.Shards))
	for id, baseURL := range cfg.Aggregator.Shards {
		shards[id] = httprpc.NewClient(baseURL, cfg.Aggregator.PerAttemptTimeout)
	}

	agg := dispatch.New(shards, defaultMergePipeline())
	agg.Options = dispatch.Options{
		PerAttemptTimeout: cfg.Aggregator.PerAttemptTimeout,
		MaxRetries:        cfg.Aggregator.MaxRetries,
		RetryBaseDelay:    cfg.Aggregator.RetryBaseDelay,
		RetryMaxDelay:     cfg.Aggregator.RetryMaxDelay,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/search", handleSearch(agg))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpServer := &http.Server{Addr: cfg.Aggregator.ListenAddress, Handler: mux}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("aggregator listening",
			zap.String("address", cfg.Aggregator.ListenAddress),
			zap.Strings("shards", shardIDs(shards)),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("serving: %w", err)
	case <-sigCh:
	}

	log.Info("aggregator shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

func handleSearch(agg *dispatch.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var q shard.SearchQuery
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		result, err := agg.Search(r.Context(), q)
		if err != nil {
			writeSearchError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}

func writeSearchError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var se *searcherr.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case searcherr.KindParse, searcherr.KindEmptyQuery, searcherr.KindUnsupportedPattern:
			status = http.StatusBadRequest
		case searcherr.KindShardUnreachable:
			status = http.StatusBadGateway
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// defaultMergePipeline matches §4.9's combine_results: scores already
// final from each shard's own pipeline, so the aggregator's pass is a pure
// collect-and-diversify step with an identity scorer.
func defaultMergePipeline() ranking.Pipeline {
	return ranking.Pipeline{
		Stages: []ranking.Stage{
			{Scorer: ranking.IdentityScorer{}, StageTopN: 100, DeRankSimilar: true},
		},
	}
}

func shardIDs(shards map[string]shard.RPC) []string {
	ids := make([]string, 0, len(shards))
	for id := range shards {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
