// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

/*
Package models defines the data structures shared across Reelgraph.

Key Components:

  - User, Movie, Person, WatchRecord: primary store entities projected into
    the graph and vector indexes
  - MovieSummary: one recommended movie as returned to callers
  - RecommendationList: ordered movies plus the flat genre list observed
    across them
  - APIResponse: standardized HTTP response envelope
  - Error taxonomy: NotFoundError, ValidationError, DependencyError and
    ArgumentError, with IsX helpers built on errors.As

Thread Safety:

All types are plain values with no internal synchronization. Share them
read-only or copy before mutating.
*/
package models
