// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateGraph(); err != nil {
		return err
	}

	if err := c.validateVector(); err != nil {
		return err
	}

	if err := c.validateEmbedding(); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	if err := c.validateQueue(); err != nil {
		return err
	}

	if err := c.validateEnrich(); err != nil {
		return err
	}

	if err := c.validateRecommend(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateServer validates HTTP server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative")
	}
	if c.Server.RateLimitReqs > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
	}
	return nil
}

// validGraphBackends defines the supported graph engines
var validGraphBackends = map[string]bool{
	"neo4j":  true,
	"memory": true,
}

// validateGraph validates the relationship graph configuration
func (c *Config) validateGraph() error {
	if !validGraphBackends[c.Graph.Backend] {
		return fmt.Errorf("GRAPH_BACKEND must be one of: neo4j, memory")
	}
	if c.Graph.QueryTimeout <= 0 {
		return fmt.Errorf("NEO4J_QUERY_TIMEOUT must be positive")
	}
	if c.Graph.Backend != "neo4j" {
		return nil
	}
	if c.Graph.URI == "" {
		return fmt.Errorf("NEO4J_URI is required when GRAPH_BACKEND=neo4j")
	}
	if err := validateNeo4jURI(c.Graph.URI); err != nil {
		return fmt.Errorf("NEO4J_URI is invalid: %w", err)
	}
	return nil
}

// validateVector validates the vector index configuration
func (c *Config) validateVector() error {
	if c.Vector.Collection == "" {
		return fmt.Errorf("VECTOR_COLLECTION is required")
	}
	if !isIdentifier(c.Vector.Collection) {
		return fmt.Errorf("VECTOR_COLLECTION must contain only letters, digits and underscores")
	}
	if c.Vector.Distance != "cosine" {
		return fmt.Errorf("vector.distance must be cosine, got %q", c.Vector.Distance)
	}
	switch c.Vector.Quantization {
	case "", "none", "int8":
	default:
		return fmt.Errorf("VECTOR_QUANTIZATION must be one of: none, int8")
	}
	if c.Vector.QueryTimeout <= 0 {
		return fmt.Errorf("VECTOR_QUERY_TIMEOUT must be positive")
	}
	return nil
}

// validateEmbedding validates the embedding provider configuration
func (c *Config) validateEmbedding() error {
	if c.Embedding.Dimension < 8 || c.Embedding.Dimension > 4096 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be between 8 and 4096")
	}
	switch c.Embedding.Provider {
	case "hash":
		return nil
	case "http":
		if c.Embedding.URL == "" {
			return fmt.Errorf("EMBEDDING_URL is required when EMBEDDING_PROVIDER=http")
		}
		if err := validateServiceURL(c.Embedding.URL, "EMBEDDING_URL"); err != nil {
			return err
		}
		if c.Embedding.RequestsPerSecond <= 0 {
			return fmt.Errorf("EMBEDDING_RATE_LIMIT must be positive")
		}
		return nil
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be one of: hash, http")
	}
}

// validateCache validates cache TTLs
func (c *Config) validateCache() error {
	if c.Cache.UserBasedTTL <= 0 {
		return fmt.Errorf("CACHE_USER_BASED_TTL must be positive")
	}
	if c.Cache.MovieContentTTL <= 0 {
		return fmt.Errorf("CACHE_MOVIE_CONTENT_TTL must be positive")
	}
	return nil
}

// validateSync validates rebuild batching
func (c *Config) validateSync() error {
	if c.Sync.BatchSize < 1 || c.Sync.BatchSize > 50000 {
		return fmt.Errorf("SYNC_BATCH_SIZE must be between 1 and 50000")
	}
	if c.Sync.VectorBatchSize < 1 || c.Sync.VectorBatchSize > 10000 {
		return fmt.Errorf("SYNC_VECTOR_BATCH_SIZE must be between 1 and 10000")
	}
	if c.Sync.ReconcileInterval < 0 {
		return fmt.Errorf("SYNC_RECONCILE_INTERVAL must not be negative")
	}
	if c.Sync.WriteTimeout <= 0 {
		return fmt.Errorf("SYNC_WRITE_TIMEOUT must be positive")
	}
	return nil
}

// validateQueue validates the sync retry queue configuration
func (c *Config) validateQueue() error {
	switch c.Queue.Driver {
	case "memory":
	case "nats":
		if !c.Queue.EmbeddedNATS {
			if err := validateNATSURL(c.Queue.NATSURL); err != nil {
				return fmt.Errorf("NATS_URL is invalid: %w", err)
			}
		}
	default:
		return fmt.Errorf("QUEUE_DRIVER must be one of: memory, nats")
	}
	if c.Queue.Topic == "" {
		return fmt.Errorf("queue.topic is required")
	}
	// JetStream streams are named after their topic and stream names
	// cannot contain '.', '*' or '>'.
	for _, topic := range []string{c.Queue.Topic, c.Queue.PoisonTopic} {
		if strings.ContainsAny(topic, ".*> ") {
			return fmt.Errorf("queue topic %q must not contain '.', '*', '>' or spaces", topic)
		}
	}
	if c.Queue.RetryMaxRetries < 0 {
		return fmt.Errorf("QUEUE_RETRY_COUNT must not be negative")
	}
	return nil
}

// validateEnrich validates the OMDb lookup configuration
func (c *Config) validateEnrich() error {
	if c.Enrich.BaseURL == "" {
		return nil
	}
	if err := validateServiceURL(c.Enrich.BaseURL, "OMDB_URL"); err != nil {
		return err
	}
	if c.Enrich.RequestsPerSecond <= 0 {
		return fmt.Errorf("OMDB_RATE_LIMIT must be positive")
	}
	return nil
}

// validateRecommend validates query limits
func (c *Config) validateRecommend() error {
	limits := map[string]int{
		"RECOMMEND_USER_LIMIT":     c.Recommend.UserBasedLimit,
		"RECOMMEND_FOLLOW_LIMIT":   c.Recommend.FollowBasedLimit,
		"RECOMMEND_CONTENT_LIMIT":  c.Recommend.ContentLimit,
		"RECOMMEND_SEMANTIC_TOP_K": c.Recommend.SemanticTopK,
		"RECOMMEND_PLOT_TOP_K":     c.Recommend.PlotSearchTopK,
	}
	for name, v := range limits {
		if v < 1 || v > 1000 {
			return fmt.Errorf("%s must be between 1 and 1000", name)
		}
	}
	if c.Recommend.QueryTimeout <= 0 {
		return fmt.Errorf("RECOMMEND_QUERY_TIMEOUT must be positive")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// isIdentifier reports whether s is safe to splice into SQL as a table suffix.
func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return s != ""
}
