// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/reelgraph/internal/api"
	"github.com/tomtom215/reelgraph/internal/cache"
	"github.com/tomtom215/reelgraph/internal/catalog"
	"github.com/tomtom215/reelgraph/internal/config"
	"github.com/tomtom215/reelgraph/internal/embed"
	"github.com/tomtom215/reelgraph/internal/enrich"
	"github.com/tomtom215/reelgraph/internal/graph"
	"github.com/tomtom215/reelgraph/internal/ingest"
	"github.com/tomtom215/reelgraph/internal/logging"
	"github.com/tomtom215/reelgraph/internal/metrics"
	"github.com/tomtom215/reelgraph/internal/middleware"
	"github.com/tomtom215/reelgraph/internal/recommend"
	"github.com/tomtom215/reelgraph/internal/supervisor"
	"github.com/tomtom215/reelgraph/internal/supervisor/services"
	syncpkg "github.com/tomtom215/reelgraph/internal/sync"
	"github.com/tomtom215/reelgraph/internal/syncqueue"
	"github.com/tomtom215/reelgraph/internal/vector"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("catalog_path", cfg.Catalog.Path).
		Str("graph_backend", cfg.Graph.Backend).
		Str("embedding_provider", cfg.Embedding.Provider).
		Str("queue_driver", cfg.Queue.Driver).
		Str("version", version).
		Msg("Starting Reelgraph with supervisor tree")
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === STORES ===

	store, err := catalog.New(&cfg.Catalog)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize catalog")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing catalog")
		}
	}()
	logging.Info().Msg("Catalog initialized successfully")

	graphIndex, err := graph.New(&cfg.Graph)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize graph index")
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := graphIndex.Close(closeCtx); err != nil {
			logging.Error().Err(err).Msg("Error closing graph index")
		}
	}()
	if err := graphIndex.Ping(ctx); err != nil {
		// Queries degrade to empty results and failed writes are queued.
		logging.Warn().Err(err).Msg("Graph index not reachable at startup")
	} else if err := graphIndex.EnsureSchema(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to install graph constraints")
	}

	vectorStore, err := vector.NewDuckDBStore(&cfg.Vector)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize vector store")
	}
	defer func() {
		if err := vectorStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing vector store")
		}
	}()

	embedder, err := embed.New(&cfg.Embedding)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize embedding provider")
	}

	resultCache := cache.New(cfg.Cache.MovieContentTTL)
	vectorIndex := vector.NewIndex(vectorStore, embedder, store, resultCache, vector.Options{
		Collection:   cfg.Vector.Collection,
		ContentTTL:   cfg.Cache.MovieContentTTL,
		QueryTimeout: cfg.Vector.QueryTimeout,
	})

	// === SYNC ===

	orch := syncpkg.NewOrchestrator(store, graphIndex, vectorIndex, resultCache,
		syncpkg.OptionsFromConfig(&cfg.Sync, &cfg.Vector))
	if err := orch.EnsureCollection(ctx); err != nil {
		// Movie projections retry the create on their own.
		logging.Warn().Err(err).Msg("Failed to prepare vector collection")
	}

	journal, err := syncqueue.OpenJournal(cfg.Queue.JournalDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open sync journal")
	}
	defer func() {
		if err := journal.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing sync journal")
		}
	}()

	queue, err := syncqueue.New(&cfg.Queue, journal, orch)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize sync retry queue")
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing sync retry queue")
		}
	}()
	orch.SetRetryQueue(queue)

	// === SERVICES ===

	recommender := recommend.NewService(graphIndex, vectorIndex, resultCache,
		recommend.OptionsFromConfig(&cfg.Recommend, &cfg.Cache))

	var enricher ingest.Enricher
	if cfg.Enrich.BaseURL != "" && cfg.Enrich.APIKey != "" {
		client, err := enrich.NewClient(&cfg.Enrich)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize OMDb client")
		}
		enricher = client
		logging.Info().Str("base_url", cfg.Enrich.BaseURL).Msg("OMDb enrichment enabled")
	} else {
		logging.Info().Msg("OMDb enrichment disabled (no API key configured)")
	}
	ingestor := ingest.NewService(store, orch, enricher, recommender)

	// === HTTP ===

	perf := middleware.NewPerformanceMonitor(1000, middleware.DefaultSlowRequestThreshold)
	handler := api.NewHandler(api.Deps{
		Recommender: recommender,
		Ingestor:    ingestor,
		Rebuilder:   orch,
		Pending:     journal,
		Performance: perf,
		Checks: map[string]api.HealthCheck{
			"catalog": store.Ping,
			"graph":   graphIndex.Ping,
			"vector":  vectorStore.Ping,
		},
	})
	router := api.NewRouter(handler, api.ChiMiddlewareConfigFromServer(&cfg.Server)).SetupChi()

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout + 5*time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(cache.NewJanitor(resultCache, cfg.Cache.CleanupInterval))
	tree.AddDataService(services.NewReconcileService(orch, services.ReconcileServiceConfig{
		RebuildOnStartup: cfg.Sync.RebuildOnStartup,
		Interval:         cfg.Sync.ReconcileInterval,
	}))
	tree.AddMessagingService(queue)
	tree.AddAPIService(services.NewHTTPServerService(func() services.HTTPServer {
		// No WriteTimeout: admin rebuilds hold the response open.
		return &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.Server.Timeout,
			IdleTimeout:       120 * time.Second,
		}
	}, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
