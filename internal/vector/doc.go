// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

// Package vector is the semantic similarity index over movie synopses.
//
// A Store keeps named collections of fixed-dimension vectors with a movie
// payload per record; DuckDBStore is the production implementation and ranks
// by exact cosine similarity. Records with a zero vector score -1 so
// placeholder entries for movies without a synopsis sort last. Ties break by
// ascending id.
//
// Index layers the embedding provider and the read-through cache on top and
// implements the two semantic strategies: similar-to-movie (cached per movie,
// genre flag and topK) and free-text plot search (never cached).
//
// Genre filtering runs in two stages on purpose. The store only narrows
// candidates to records carrying either of the first two requested genres,
// which keeps recall cheap; Index then keeps records carrying both, which is
// the actual constraint.
package vector
