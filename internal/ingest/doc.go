// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

// Package ingest is the write path into the catalog.
//
// Every write commits to the catalog first and then projects the change into
// both indexes through the sync orchestrator before returning:
//
//	caller -> Service -> catalog (DuckDB)
//	                  -> sync.Orchestrator.IncrementalUpsert -> graph, vector
//	                                                 (failure) -> retry queue
//
// A projection failure never rolls back the catalog write. The method returns
// its result together with the sync error; when the change was queued for
// replay the error satisfies models.IsQueued and callers acknowledge the
// write as accepted.
package ingest
