// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

// Package enrich looks up movie metadata by IMDb id from an OMDb-compatible
// service.
//
// Requests are rate limited (golang.org/x/time/rate, burst 1) and guarded by
// the "omdb" circuit breaker. A lookup the service answers with
// Response "False" is a NotFoundError and does not count against the
// breaker; transport and decode failures are DependencyErrors.
package enrich
