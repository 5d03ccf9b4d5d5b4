// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

/*
Package services adapts reelgraph components to suture's Serve(ctx) model.

# Available Services

HTTP Server (HTTPServerService):
  - Builds a fresh server per run through an HTTPServerFactory
  - Converts ListenAndServe to Serve with graceful Shutdown
  - Configurable shutdown timeout for draining connections

Index Reconciler (ReconcileService):
  - Runs sync.Orchestrator.FullRebuild on startup and/or on an interval
  - Logs failures and keeps running; an in-progress rebuild is skipped

Other components implement suture.Service directly and need no wrapper:
syncqueue.Queue (retry queue router) and cache.Janitor (expiry sweep).

# Usage

	tree.AddAPIService(services.NewHTTPServerService(func() services.HTTPServer {
	    return &http.Server{Addr: cfg.Server.Addr(), Handler: router}
	}, cfg.Server.ShutdownTimeout))

	tree.AddDataService(services.NewReconcileService(orch, services.ReconcileServiceConfig{
	    RebuildOnStartup: cfg.Sync.RebuildOnStartup,
	    Interval:         cfg.Sync.ReconcileInterval,
	}))

Every service returns ctx.Err() on cancellation so the supervisor treats
the stop as clean.
*/
package services
