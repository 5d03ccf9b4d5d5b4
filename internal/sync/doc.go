// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

/*
Package sync keeps the graph and vector indexes consistent with the catalog.

The catalog is the source of truth. Both indexes are derived from it and can be
rebuilt from scratch at any time:

	orch := sync.NewOrchestrator(store, graphIndex, vectorIndex, recCache, opts)
	report, err := orch.FullRebuild(ctx)

Individual writes are projected as they happen:

	err := orch.IncrementalUpsert(ctx, sync.WatchChange(userID, movieID))
	if models.IsQueued(err) {
	    // the catalog write stands; the indexes catch up on replay
	}

Changes carry keys only. Applying one reads the current catalog rows, so a
change replayed from the retry queue converges on the latest state rather than
re-applying old attributes.

Ordering:

  - A rebuild writes movies, genres and people before users, and all nodes
    before follows and watches.
  - An incremental change writes its nodes before its edges.

Concurrency:

Rebuilds of the same index are mutually exclusive; a second caller gets
ErrRebuildInProgress. Queries are never blocked, and may observe a partially
rebuilt index while a rebuild runs.
*/
package sync
