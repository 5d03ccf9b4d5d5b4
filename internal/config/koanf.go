// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/reelgraph/config.yaml",
	"/etc/reelgraph/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Catalog: CatalogConfig{
			Path:      "/data/reelgraph.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Graph: GraphConfig{
			Backend:      "neo4j",
			URI:          "neo4j://localhost:7687",
			Username:     "neo4j",
			Password:     "",
			Database:     "neo4j",
			QueryTimeout: 10 * time.Second,
			MaxPoolSize:  50,
		},
		Vector: VectorConfig{
			Path:         "/data/reelgraph-vectors.duckdb",
			Collection:   "movies",
			Distance:     "cosine",
			Quantization: "int8",
			OnDisk:       true,
			QueryTimeout: 5 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider:          "hash",
			Dimension:         384,
			URL:               "",
			Model:             "all-MiniLM-L6-v2",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 20,
		},
		Cache: CacheConfig{
			UserBasedTTL:    10 * time.Minute,
			MovieContentTTL: time.Hour,
			CleanupInterval: time.Minute,
		},
		Sync: SyncConfig{
			BatchSize:         10000,
			VectorBatchSize:   256,
			WriteTimeout:      30 * time.Second,
			ReconcileInterval: 0, // Periodic rebuilds are opt-in
			RebuildOnStartup:  false,
		},
		Queue: QueueConfig{
			Driver:               "memory",
			NATSURL:              "nats://127.0.0.1:4222",
			EmbeddedNATS:         false,
			NATSStoreDir:         "/data/nats/jetstream",
			JournalDir:           "",
			Topic:                "index_sync_retry",
			PoisonTopic:          "index_sync_poison",
			RetryMaxRetries:      5,
			RetryInitialInterval: time.Second,
			RetryMaxInterval:     time.Minute,
			CloseTimeout:         30 * time.Second,
		},
		Enrich: EnrichConfig{
			BaseURL:           "https://www.omdbapi.com/",
			APIKey:            "",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 5,
		},
		Recommend: RecommendConfig{
			UserBasedLimit:   100,
			FollowBasedLimit: 50,
			ContentLimit:     20,
			SemanticTopK:     10,
			PlotSearchTopK:   20,
			QueryTimeout:     5 * time.Second,
			ShuffleFollows:   true,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Environment variables (highest priority)
	// NEO4J_URI -> graph.uri, EMBEDDING_PROVIDER -> embedding.provider
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"cors_origins":          "server.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Catalog
	"duckdb_path":       "catalog.path",
	"duckdb_max_memory": "catalog.max_memory",
	"duckdb_threads":    "catalog.threads",

	// Graph
	"graph_backend":       "graph.backend",
	"neo4j_uri":           "graph.uri",
	"neo4j_user":          "graph.username",
	"neo4j_password":      "graph.password",
	"neo4j_database":      "graph.database",
	"neo4j_query_timeout": "graph.query_timeout",
	"neo4j_max_pool_size": "graph.max_pool_size",

	// Vector
	"vector_path":          "vector.path",
	"vector_collection":    "vector.collection",
	"vector_quantization":  "vector.quantization",
	"vector_on_disk":       "vector.on_disk",
	"vector_query_timeout": "vector.query_timeout",

	// Embedding
	"embedding_provider":   "embedding.provider",
	"embedding_dimension":  "embedding.dimension",
	"embedding_url":        "embedding.url",
	"embedding_model":      "embedding.model",
	"embedding_api_key":    "embedding.api_key",
	"embedding_timeout":    "embedding.timeout",
	"embedding_rate_limit": "embedding.requests_per_second",

	// Cache
	"cache_user_based_ttl":    "cache.user_based_ttl",
	"cache_movie_content_ttl": "cache.movie_content_ttl",
	"cache_cleanup_interval":  "cache.cleanup_interval",

	// Sync
	"sync_batch_size":         "sync.batch_size",
	"sync_vector_batch_size":  "sync.vector_batch_size",
	"sync_write_timeout":      "sync.write_timeout",
	"sync_reconcile_interval": "sync.reconcile_interval",
	"sync_rebuild_on_startup": "sync.rebuild_on_startup",

	// Queue
	"queue_driver":         "queue.driver",
	"nats_url":             "queue.nats_url",
	"nats_embedded":        "queue.embedded_nats",
	"nats_store_dir":       "queue.nats_store_dir",
	"queue_journal_dir":    "queue.journal_dir",
	"queue_retry_count":    "queue.retry_max_retries",
	"queue_retry_interval": "queue.retry_initial_interval",

	// Enrich
	"omdb_url":        "enrich.base_url",
	"omdb_api_key":    "enrich.api_key",
	"omdb_timeout":    "enrich.timeout",
	"omdb_rate_limit": "enrich.requests_per_second",

	// Recommend
	"recommend_user_limit":      "recommend.user_based_limit",
	"recommend_follow_limit":    "recommend.follow_based_limit",
	"recommend_content_limit":   "recommend.content_limit",
	"recommend_semantic_top_k":  "recommend.semantic_top_k",
	"recommend_plot_top_k":      "recommend.plot_search_top_k",
	"recommend_query_timeout":   "recommend.query_timeout",
	"recommend_shuffle_follows": "recommend.shuffle_follows",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - NEO4J_URI -> graph.uri
//   - DUCKDB_PATH -> catalog.path
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped keys are skipped so unrelated environment variables
	// never leak into the configuration.
	return ""
}
