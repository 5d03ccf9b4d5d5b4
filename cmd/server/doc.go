// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

/*
Package main is the entry point for the Reelgraph server.

Reelgraph serves movie recommendations from two secondary indexes built
over a DuckDB catalog: a Neo4j relationship graph (collaborative, follow
and genre strategies) and a vector index of plot embeddings (semantic
similarity and free-text plot search).

# Application Architecture

	RootSupervisor ("reelgraph")
	├── DataSupervisor ("data-layer")
	│   ├── Cache Janitor (expired entry sweep)
	│   └── Index Reconciler (scheduled full rebuilds)
	├── MessagingSupervisor ("messaging-layer")
	│   └── Sync Retry Queue (Watermill router, gochannel or NATS JetStream)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi router)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Catalog: DuckDB primary store
 4. Graph index: Neo4j driver or the in-memory engine
 5. Vector index: DuckDB vector store plus the embedding provider
 6. Sync: orchestrator, BadgerDB journal and retry queue
 7. Services: recommendations, ingest and the optional OMDb client
 8. Supervisor Tree: Suture v4 process supervision
 9. HTTP Server: chi router with middleware stack

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	HTTP_PORT=8080
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	DUCKDB_PATH=/data/reelgraph.duckdb
	GRAPH_BACKEND=neo4j          # neo4j or memory
	NEO4J_URI=neo4j://localhost:7687
	NEO4J_USER=neo4j
	NEO4J_PASSWORD=<password>

	VECTOR_PATH=/data/reelgraph-vectors.duckdb
	EMBEDDING_PROVIDER=hash      # hash or http
	EMBEDDING_URL=<endpoint>     # for the http provider

	QUEUE_DRIVER=memory          # memory or nats
	QUEUE_JOURNAL_DIR=/data/journal
	NATS_URL=nats://127.0.0.1:4222
	NATS_EMBEDDED=false

	OMDB_API_KEY=<key>           # enables POST /api/v1/movies/imdb
	SYNC_REBUILD_ON_STARTUP=false
	SYNC_RECONCILE_INTERVAL=0    # e.g. 6h; 0 disables

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:

 1. Stops accepting new HTTP connections and drains in-flight requests
 2. Stops the retry queue router; unacknowledged changes stay journaled
 3. Closes the journal, vector store, graph driver and catalog
 4. Reports any services that failed to stop

# Usage Examples

Development with no external services:

	export GRAPH_BACKEND=memory DUCKDB_PATH=./data/reelgraph.duckdb VECTOR_PATH=
	go run ./cmd/server

With Neo4j and a rebuild on startup:

	export NEO4J_URI=neo4j://neo4j:7687 NEO4J_PASSWORD=secret
	export SYNC_REBUILD_ON_STARTUP=true
	./reelgraph

# See Also

  - internal/config: Configuration management
  - internal/supervisor: Process supervision
  - internal/api: HTTP handlers and routing
  - internal/sync: Index projection and rebuilds
  - docs: Swagger document served at /swagger/index.html
*/
package main
