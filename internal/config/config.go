// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an optional
// YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting via environment variables
//
// Configuration Categories:
//
//  1. Stores:
//     - Catalog: DuckDB primary store (users, movies, people, watch history)
//     - Graph: Neo4j relationship index (or the in-memory engine)
//     - Vector: DuckDB-backed vector collections
//     - Embedding: Text embedding provider
//
//  2. Pipelines:
//     - Sync: Full rebuild batching and periodic reconciliation
//     - Queue: Retry queue for failed incremental syncs
//     - Enrich: OMDb metadata lookup
//
//  3. Serving:
//     - Recommend: Query limits, timeouts, result shuffling
//     - Cache: Read-through cache TTLs
//     - Server: HTTP server configuration
//
//  4. Observability:
//     - Logging: Log levels and output formats
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Graph     GraphConfig     `koanf:"graph"`
	Vector    VectorConfig    `koanf:"vector"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Cache     CacheConfig     `koanf:"cache"`
	Sync      SyncConfig      `koanf:"sync"`
	Queue     QueueConfig     `koanf:"queue"`
	Enrich    EnrichConfig    `koanf:"enrich"`
	Recommend RecommendConfig `koanf:"recommend"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// CatalogConfig holds the DuckDB primary store settings.
type CatalogConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// GraphConfig selects and configures the relationship graph engine.
type GraphConfig struct {
	// Backend is "neo4j" or "memory".
	Backend      string        `koanf:"backend"`
	URI          string        `koanf:"uri"`
	Username     string        `koanf:"username"`
	Password     string        `koanf:"password"`
	Database     string        `koanf:"database"`
	QueryTimeout time.Duration `koanf:"query_timeout"`
	MaxPoolSize  int           `koanf:"max_pool_size"`
}

// VectorConfig configures the vector similarity index.
type VectorConfig struct {
	// Path of the DuckDB file holding vector collections. Empty means in-memory.
	Path         string        `koanf:"path"`
	Collection   string        `koanf:"collection"`
	Distance     string        `koanf:"distance"`
	Quantization string        `koanf:"quantization"`
	OnDisk       bool          `koanf:"on_disk"`
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// EmbeddingConfig configures the text embedding provider.
type EmbeddingConfig struct {
	// Provider is "hash" (local feature hashing) or "http".
	Provider          string        `koanf:"provider"`
	Dimension         int           `koanf:"dimension"`
	URL               string        `koanf:"url"`
	Model             string        `koanf:"model"`
	APIKey            string        `koanf:"api_key"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
}

// CacheConfig holds read-through cache TTLs.
type CacheConfig struct {
	UserBasedTTL    time.Duration `koanf:"user_based_ttl"`
	MovieContentTTL time.Duration `koanf:"movie_content_ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// SyncConfig controls index rebuilds.
type SyncConfig struct {
	BatchSize         int           `koanf:"batch_size"`
	VectorBatchSize   int           `koanf:"vector_batch_size"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	ReconcileInterval time.Duration `koanf:"reconcile_interval"` // 0 disables periodic rebuilds
	RebuildOnStartup  bool          `koanf:"rebuild_on_startup"`
}

// QueueConfig configures the retry queue for failed incremental syncs.
type QueueConfig struct {
	// Driver is "memory" (Watermill gochannel) or "nats" (JetStream).
	Driver               string        `koanf:"driver"`
	NATSURL              string        `koanf:"nats_url"`
	EmbeddedNATS         bool          `koanf:"embedded_nats"`
	NATSStoreDir         string        `koanf:"nats_store_dir"`
	JournalDir           string        `koanf:"journal_dir"` // empty = in-memory journal
	Topic                string        `koanf:"topic"`
	PoisonTopic          string        `koanf:"poison_topic"`
	RetryMaxRetries      int           `koanf:"retry_max_retries"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `koanf:"retry_max_interval"`
	CloseTimeout         time.Duration `koanf:"close_timeout"`
}

// EnrichConfig configures the OMDb metadata lookup.
type EnrichConfig struct {
	BaseURL           string        `koanf:"base_url"`
	APIKey            string        `koanf:"api_key"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
}

// RecommendConfig holds query service settings.
type RecommendConfig struct {
	UserBasedLimit   int           `koanf:"user_based_limit"`
	FollowBasedLimit int           `koanf:"follow_based_limit"`
	ContentLimit     int           `koanf:"content_limit"`
	SemanticTopK     int           `koanf:"semantic_top_k"`
	PlotSearchTopK   int           `koanf:"plot_search_top_k"`
	QueryTimeout     time.Duration `koanf:"query_timeout"`
	ShuffleFollows   bool          `koanf:"shuffle_follows"`
}

// Load loads configuration using the layered Koanf loader.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
