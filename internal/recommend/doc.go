// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

// Package recommend serves the recommendation strategies over the graph and
// vector indexes.
//
// # Strategies
//
//   - UserBased: collaborative filtering over shared WATCHED edges, cached
//     per username
//   - FollowBased: unwatched movies acted in or directed by followed people,
//     optionally shuffled
//   - ContentGraph: movies sharing a genre with a given movie
//   - ContentSemantic: nearest synopsis embeddings to a given movie
//   - SearchByPlot: nearest synopsis embeddings to free text
//
// # Degradation
//
// Index failures never reach the caller as errors. The strategy logs the
// failure, counts it in metrics and answers an empty list with Degraded set.
// Only malformed input (a blank username, a non-positive movie id) returns
// a ValidationError.
//
// # Thread Safety
//
// Service is safe for concurrent use. The shuffle source is guarded by its
// own mutex.
package recommend
