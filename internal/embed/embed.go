// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

// Package embed turns text into dense vectors.
//
// Two providers implement Embedder:
//   - HashEmbedder: local feature hashing over words and word bigrams.
//     Deterministic, dependency free, good enough for lexical similarity.
//   - HTTPEmbedder: an OpenAI-compatible embeddings endpoint guarded by a
//     circuit breaker and a token-bucket limiter.
//
// Empty or whitespace-only text always yields the zero vector of the
// configured dimension without calling the provider.
package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/reelgraph/internal/config"
)

// Embedder maps text to a fixed-dimension vector. Implementations are
// deterministic for the same input and safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// New builds the provider selected by cfg.Provider.
func New(cfg *config.EmbeddingConfig) (Embedder, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.Dimension)
	}
	switch cfg.Provider {
	case "hash", "":
		return NewHashEmbedder(cfg.Dimension), nil
	case "http":
		return NewHTTPEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// Zero returns the zero vector of dim.
func Zero(dim int) []float32 {
	return make([]float32, dim)
}

// IsBlank reports whether text has nothing to embed.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
