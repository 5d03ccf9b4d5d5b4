// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package embed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/reelgraph/internal/breaker"
	"github.com/tomtom215/reelgraph/internal/config"
	"github.com/tomtom215/reelgraph/internal/metrics"
	"github.com/tomtom215/reelgraph/internal/models"
)

const maxErrorBodySize = 4 * 1024

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// HTTPEmbedder calls a remote embeddings endpoint.
type HTTPEmbedder struct {
	client  *http.Client
	url     string
	model   string
	apiKey  string
	dim     int
	timeout time.Duration
	limiter *rate.Limiter
	breaker *breaker.Breaker
}

// NewHTTPEmbedder creates a client for cfg.URL.
func NewHTTPEmbedder(cfg *config.EmbeddingConfig) (*HTTPEmbedder, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("embedding url is required for the http provider")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &HTTPEmbedder{
		client:  &http.Client{Timeout: timeout},
		url:     cfg.URL,
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		dim:     cfg.Dimension,
		timeout: timeout,
		limiter: rate.NewLimiter(limit, 1),
		breaker: breaker.New("embedding-api"),
	}, nil
}

// Dimension returns the vector length.
func (e *HTTPEmbedder) Dimension() int {
	return e.dim
}

// Embed requests one embedding. Failures are DependencyErrors.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if IsBlank(text) {
		return Zero(e.dim), nil
	}

	start := time.Now()
	vec, err := e.embed(ctx, text)
	metrics.RecordEmbedding("http", time.Since(start), err)
	if err != nil {
		return nil, models.NewDependency("embedding", "embed", err)
	}
	return vec, nil
}

func (e *HTTPEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	return breaker.Do(e.breaker, func() ([]float32, error) {
		return e.post(ctx, text)
	})
}

func (e *HTTPEmbedder) post(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, snippet)
	}

	var decoded embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Data) == 0 {
		return nil, fmt.Errorf("embedding service returned no data")
	}
	vec := decoded.Data[0].Embedding
	if len(vec) != e.dim {
		return nil, fmt.Errorf("embedding dimension %d, want %d", len(vec), e.dim)
	}
	return vec, nil
}
