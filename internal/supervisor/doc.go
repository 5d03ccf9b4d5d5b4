// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

/*
Package supervisor provides process supervision for reelgraph using suture v4.

Long-running services are grouped into three layers so a crash in one does
not take the others down:

	RootSupervisor ("reelgraph")
	├── DataSupervisor ("data-layer")
	│   ├── cache.Janitor
	│   └── services.ReconcileService (rebuild on startup / on interval)
	├── MessagingSupervisor ("messaging-layer")
	│   └── syncqueue.Queue (Watermill retry router)
	└── APISupervisor ("api-layer")
	    └── services.HTTPServerService

Queries keep being answered from both indexes while the retry router
restarts, and a failing rebuild never stops the HTTP server.

Crashed services restart with suture's backoff. Supervisor events are
logged through sutureslog into the zerolog-backed slog handler.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddDataService(cache.NewJanitor(c, cfg.Cache.CleanupInterval))
	tree.AddMessagingService(queue)
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor stopped")
	}
*/
package supervisor
