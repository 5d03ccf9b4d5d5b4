// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

/*
Package middleware provides the HTTP middleware shared by the reelgraph API.

Key Components:

  - RequestID: per-request ids propagated to the logging context
  - Metrics: Prometheus request counters and latency histograms
  - PerformanceMonitor: in-process latency window with slow request logging

All three take and return http.Handler so they plug straight into chi:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(perfMon.Middleware)

Metrics and PerformanceMonitor label requests by the matched chi route
pattern ("/api/v1/recommendations/users/{username}/collaborative") rather
than the raw path, so label cardinality stays bounded by the route table.
Requests that match no route are labelled "unmatched".

Thread Safety:

All middleware is safe for concurrent use. PerformanceMonitor guards its
window with a sync.RWMutex.
*/
package middleware
