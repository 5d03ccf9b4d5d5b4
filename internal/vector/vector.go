// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package vector

import (
	"context"
	"errors"

	"github.com/tomtom215/reelgraph/internal/models"
)

// Sentinel errors returned by Store implementations.
var (
	ErrCollectionExists   = errors.New("collection already exists")
	ErrCollectionNotFound = errors.New("collection not found")
)

// Distance and quantization defaults for new collections.
const (
	DistanceCosine       = "cosine"
	QuantizationInt8     = "int8"
	DefaultTopK          = 10
	DefaultPlotTopK      = 20
	movieRecsCachePrefix = "movie_recommendations"
)

// CollectionSpec describes a collection. Quantization and OnDisk are
// recorded as collection metadata.
type CollectionSpec struct {
	Name         string `json:"name"`
	Dimension    int    `json:"dimension"`
	Distance     string `json:"distance"`
	Quantization string `json:"quantization"`
	OnDisk       bool   `json:"on_disk"`
}

// Payload is the movie metadata stored next to each vector. Plot text is
// never stored.
type Payload struct {
	Title       string   `json:"title"`
	ReleaseYear int      `json:"release_year"`
	IMDbID      string   `json:"imdb_id,omitempty"`
	PosterURL   string   `json:"poster_url,omitempty"`
	Duration    int      `json:"duration"`
	Genres      []string `json:"genres"`
	AvgRating   float64  `json:"avg_rating"`
}

// PayloadFromMovie copies the indexed fields of m.
func PayloadFromMovie(m models.Movie) Payload {
	genres := make([]string, len(m.Genres))
	copy(genres, m.Genres)
	return Payload{
		Title:       m.Title,
		ReleaseYear: m.ReleaseYear,
		IMDbID:      m.IMDbID,
		PosterURL:   m.PosterURL,
		Duration:    m.Duration,
		Genres:      genres,
		AvgRating:   m.AvgRating,
	}
}

// Record is one stored vector. IDs are movie ids; upserting an existing id
// replaces the record.
type Record struct {
	ID      int64
	Vector  []float32
	Payload Payload
}

// Document is text to embed plus the payload to store with it.
type Document struct {
	Text    string
	Payload Payload
}

// Hit is a search result.
type Hit struct {
	ID      int64
	Score   float64
	Payload Payload
}

// SearchRequest is a similarity query against one collection.
type SearchRequest struct {
	Vector []float32
	// AnyGenres restricts results to records carrying at least one of these genres.
	AnyGenres  []string
	ExcludeIDs []int64
	TopK       int
}

// Store persists vectors and answers nearest-neighbour queries.
type Store interface {
	CreateCollection(ctx context.Context, spec CollectionSpec) error
	DropCollection(ctx context.Context, name string) error
	Collection(ctx context.Context, name string) (CollectionSpec, error)
	// Upsert writes all records in one transaction.
	Upsert(ctx context.Context, collection string, records []Record) error
	// Search orders hits by descending score, then ascending id.
	Search(ctx context.Context, collection string, req SearchRequest) ([]Hit, error)
	Count(ctx context.Context, collection string) (int64, error)
	Close() error
}
