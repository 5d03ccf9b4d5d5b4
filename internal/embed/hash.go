// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package embed

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/tomtom215/reelgraph/internal/metrics"
)

const bigramWeight = 0.5

// HashEmbedder hashes unigrams and bigrams into signed buckets and
// L2-normalizes the result.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder returns an embedder producing vectors of length dim.
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{dim: dim}
}

// Dimension returns the vector length.
func (h *HashEmbedder) Dimension() int {
	return h.dim
}

// Embed hashes text. Text without any word characters embeds to zero.
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	vec := Zero(h.dim)

	tokens := tokenize(text)
	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, bigramWeight)
		}
	}
	normalize(vec)

	metrics.RecordEmbedding("hash", time.Since(start), nil)
	return vec, nil
}

func (h *HashEmbedder) add(vec []float32, feature string, weight float32) {
	sum := xxhash.Sum64String(feature)
	bucket := sum % uint64(h.dim)
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
