// Package main provides the scourd CLI entry point: one shard's local
// search service, exposed over HTTP+JSON RPC for an aggregator to fan
// queries out to.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scour-engine/scour/pkg/cache"
	"github.com/scour-engine/scour/pkg/config"
	"github.com/scour-engine/scour/pkg/logging"
	"github.com/scour-engine/scour/pkg/ranking"
	"github.com/scour-engine/scour/pkg/retrieval"
	"github.com/scour-engine/scour/pkg/shard"
	"github.com/scour-engine/scour/pkg/shard/httprpc"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scourd",
		Short: "scourd runs a single search shard",
		Long: `scourd serves one shard of a sharded web search index: its local
query parser, optic evaluator, ranking pipeline and retrieval store, reachable
over HTTP+JSON RPC by a scour-api aggregator.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("scourd v%s (%s)\n", version, commit)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the shard's RPC server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("config", "", "path to a YAML config file (optional)")
	serveCmd.Flags().String("shard-id", "", "override shard.id")
	serveCmd.Flags().String("listen-address", "", "override shard.listen_address")
	serveCmd.Flags().String("data-dir", "", "override shard.data_dir")
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

	if v, _ := cmd.Flags().GetString("shard-id"); v != "" {
		cfg.Shard.ID = v
	}
	if v, _ := cmd.Flags().GetString("listen-address"); v != "" {
		cfg.Shard.ListenAddress = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.Shard.DataDir = v
	}

	if _, err := logging.Init(cfg.Logging.Dev); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logging.Sync()
	log := logging.L()

	if err := os.MkdirAll(cfg.Shard.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	store, err := retrieval.Open(cfg.Shard.DataDir)
	if err != nil {
		return fmt.Errorf("opening retrieval store: %w", err)
	}
	defer store.Close()

	searcher := &shard.LocalSearcher{
		ShardID:   cfg.Shard.ID,
		Source:    shard.NoCandidates{},
		Pipeline:  defaultPipeline(),
		Retrieval: store,
		Optics:    cache.NewOpticCache(1000, 5*time.Minute),
	}
	rpc := shard.InProcess{Searcher: searcher}
	httpServer := &http.Server{
		Addr:    cfg.Shard.ListenAddress,
		Handler: httprpc.NewServer(rpc).Handler(),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("shard listening",
			zap.String("shard_id", cfg.Shard.ID),
			zap.String("address", cfg.Shard.ListenAddress),
			zap.String("data_dir", cfg.Shard.DataDir),
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

	log.Info("shard shutting down", zap.String("shard_id", cfg.Shard.ID))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

// defaultPipeline matches §4.7's first pipeline stage: a coefficient-weighted
// sum of signals, collected and diversified down to the requested window.
// A cross-encoder reranker stage can be layered on top once one is
// configured; until then Initial alone is a faithful single-stage pipeline.
func defaultPipeline() ranking.Pipeline {
	return ranking.Pipeline{
		Stages: []ranking.Stage{
			{Scorer: ranking.Initial{}, StageTopN: 100, DeRankSimilar: true},
		},
	}
}
