// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

/*
Package cache provides the read-through TTL cache in front of the
recommendation strategies.

# Overview

  - Thread-safe concurrent access (sync.RWMutex)
  - Per-entry TTL with lazy expiry on Get and periodic sweeps by Janitor
  - GetOrLoad collapses concurrent misses for one key into a single load
    (golang.org/x/sync/singleflight); load errors are never cached
  - Hit, miss, eviction and size metrics labelled by key prefix

Caching only changes latency: a value served from the cache is exactly the
value the loader returned within its TTL.

# Keys

Keys are built with GenerateKey and start with a prefix naming the cached
strategy, which doubles as the cache_type metrics label:

	user_recommendations:<username>
	movie_recommendations:<movieID>:<includeGenres>:<topK>

# Usage Example

	c := cache.New(10 * time.Minute)
	v, err := c.GetOrLoad(ctx, cache.GenerateKey("user_recommendations", name),
	    10*time.Minute, func(ctx context.Context) (interface{}, error) {
	        return loadFromGraph(ctx, name)
	    })
*/
package cache
