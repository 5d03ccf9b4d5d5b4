// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

/*
Package config provides centralized configuration management for Reelgraph.

Configuration is loaded with Koanf v2 from three layers, highest priority last:
built-in defaults, an optional YAML file (CONFIG_PATH or config.yaml), and
environment variables mapped explicitly to config keys.

# Environment Variables

Stores:
  - DUCKDB_PATH: Catalog database file (default: /data/reelgraph.duckdb)
  - GRAPH_BACKEND: neo4j or memory (default: neo4j)
  - NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD, NEO4J_DATABASE
  - VECTOR_PATH: Vector collection database file (empty = in-memory)
  - EMBEDDING_PROVIDER: hash or http (default: hash)
  - EMBEDDING_DIMENSION: Vector dimension (default: 384)

Pipelines:
  - SYNC_BATCH_SIZE: Watch edges per graph round trip (default: 10000)
  - SYNC_RECONCILE_INTERVAL: Periodic full rebuild (default: disabled)
  - QUEUE_DRIVER: memory or nats (default: memory)
  - OMDB_API_KEY: Metadata lookup key

Serving:
  - HTTP_PORT: Listen port (default: 8080)
  - CACHE_USER_BASED_TTL: Collaborative cache TTL (default: 10m)
  - CACHE_MOVIE_CONTENT_TTL: Movie content cache TTL (default: 1h)
  - RECOMMEND_SHUFFLE_FOLLOWS: Shuffle follow-based results (default: true)

Logging:
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json or console (default: json)

# Usage

	cfg, err := config.Load()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
*/
package config
