// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

/*
Package catalog is the primary store: users, movies, genres, people, follows
and watch history in DuckDB.

The graph and vector indexes are derived from this store. Rebuilds read it
through the ForEach*Batch streams; the ingestion write path uses the
single-row methods and then projects the change into the indexes.

Usage:

	store, err := catalog.New(&cfg.Catalog)
	if err != nil {
	    return err
	}
	defer store.Close()

	err = store.ForEachMovieBatch(ctx, 1000, func(batch []catalog.MovieRecord) error {
	    return project(batch)
	})

Errors:

Lookups of missing rows return *models.NotFoundError. Unique collisions on
usernames return *models.ConflictError.
*/
package catalog
