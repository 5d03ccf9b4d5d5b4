// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package vector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelgraph/internal/cache"
	"github.com/tomtom215/reelgraph/internal/embed"
	"github.com/tomtom215/reelgraph/internal/logging"
	"github.com/tomtom215/reelgraph/internal/metrics"
	"github.com/tomtom215/reelgraph/internal/models"
)

// MovieSource loads catalog movies for content recommendations.
type MovieSource interface {
	GetMovie(ctx context.Context, id int64) (*models.Movie, error)
}

// Options configures an Index.
type Options struct {
	// Collection is the default collection for recommendation queries.
	Collection string
	// ContentTTL is how long RecommendByMovie results stay cached.
	ContentTTL time.Duration
	// QueryTimeout bounds each store call. Zero leaves the caller's deadline.
	QueryTimeout time.Duration
}

// RecommendOptions tunes RecommendByMovie.
type RecommendOptions struct {
	IncludeGenres bool
	TopK          int
}

// Index combines an embedder, a store and a cache into the semantic
// recommendation paths.
type Index struct {
	store    Store
	embedder embed.Embedder
	movies   MovieSource
	cache    cache.Cacher
	opts     Options
	logger   zerolog.Logger
}

// NewIndex wires the vector index.
func NewIndex(store Store, embedder embed.Embedder, movies MovieSource, c cache.Cacher, opts Options) *Index {
	if opts.ContentTTL <= 0 {
		opts.ContentTTL = time.Hour
	}
	return &Index{
		store:    store,
		embedder: embedder,
		movies:   movies,
		cache:    c,
		opts:     opts,
		logger:   logging.WithComponent("vector"),
	}
}

// Collection returns the default collection name.
func (x *Index) Collection() string {
	return x.opts.Collection
}

// Dimension returns the embedding dimension.
func (x *Index) Dimension() int {
	return x.embedder.Dimension()
}

// CreateCollection creates a collection. ErrCollectionExists passes through.
func (x *Index) CreateCollection(ctx context.Context, spec CollectionSpec) error {
	if spec.Dimension == 0 {
		spec.Dimension = x.embedder.Dimension()
	}
	if spec.Distance == "" {
		spec.Distance = DistanceCosine
	}
	if spec.Quantization == "" {
		spec.Quantization = QuantizationInt8
	}
	return x.timed(ctx, "create_collection", func(ctx context.Context) error {
		return x.store.CreateCollection(ctx, spec)
	})
}

// DropCollection removes a collection and its records.
func (x *Index) DropCollection(ctx context.Context, name string) error {
	return x.timed(ctx, "drop_collection", func(ctx context.Context) error {
		return x.store.DropCollection(ctx, name)
	})
}

// Embed returns the embedding of text. Blank text yields the zero vector
// without calling the embedder.
func (x *Index) Embed(ctx context.Context, text string) ([]float32, error) {
	if embed.IsBlank(text) {
		return embed.Zero(x.embedder.Dimension()), nil
	}
	vec, err := x.embedder.Embed(ctx, text)
	if err != nil {
		if models.IsDependency(err) {
			return nil, err
		}
		return nil, models.NewDependency("embedding", "embed", err)
	}
	return vec, nil
}

// Upsert stores one precomputed vector.
func (x *Index) Upsert(ctx context.Context, collection string, id int64, vec []float32, payload Payload) error {
	return x.UpsertRecords(ctx, collection, []Record{{ID: id, Vector: vec, Payload: payload}})
}

// UpsertRecords stores precomputed vectors in one transaction.
func (x *Index) UpsertRecords(ctx context.Context, collection string, records []Record) error {
	err := x.timed(ctx, "upsert", func(ctx context.Context) error {
		return x.store.Upsert(ctx, collection, records)
	})
	if err != nil {
		return err
	}
	metrics.VectorRecordsUpserted.WithLabelValues(collection).Add(float64(len(records)))
	return nil
}

// UpsertBatch embeds every document, then writes them all in one transaction.
func (x *Index) UpsertBatch(ctx context.Context, collection string, ids []int64, docs []Document) error {
	if len(ids) != len(docs) {
		return &models.ArgumentError{Message: fmt.Sprintf("upsert batch has %d ids and %d documents", len(ids), len(docs))}
	}
	records := make([]Record, len(ids))
	for i := range ids {
		vec, err := x.Embed(ctx, docs[i].Text)
		if err != nil {
			return err
		}
		records[i] = Record{ID: ids[i], Vector: vec, Payload: docs[i].Payload}
	}
	return x.UpsertRecords(ctx, collection, records)
}

// Search returns up to topK hits. With two or more filter genres the store
// narrows to records carrying either of the first two, then only records
// carrying both are kept. Fewer than two genres applies no filter.
func (x *Index) Search(ctx context.Context, collection string, query []float32, genreFilter []string, topK int) ([]Hit, error) {
	req := SearchRequest{Vector: query, TopK: topK}
	return x.search(ctx, collection, req, genreFilter)
}

func (x *Index) search(ctx context.Context, collection string, req SearchRequest, genreFilter []string) ([]Hit, error) {
	var required []string
	if len(genreFilter) >= 2 {
		required = genreFilter[:2]
		req.AnyGenres = required
	}

	var hits []Hit
	err := x.timed(ctx, "search", func(ctx context.Context) error {
		var err error
		hits, err = x.store.Search(ctx, collection, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	if required == nil {
		return hits, nil
	}

	kept := hits[:0]
	for _, h := range hits {
		if hasAll(h.Payload.Genres, required) {
			kept = append(kept, h)
		}
	}
	return kept, nil
}

// RecommendByMovie returns movies whose synopsis embeds close to movieID's.
// Unknown movies yield an empty list. Embedder and store failures are logged
// and yield an empty list together with the error.
func (x *Index) RecommendByMovie(ctx context.Context, movieID int64, opts RecommendOptions) ([]models.MovieSummary, error) {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	key := cache.GenerateKey(movieRecsCachePrefix, movieID, opts.IncludeGenres, opts.TopK)

	v, err := x.cache.GetOrLoad(ctx, key, x.opts.ContentTTL, func(ctx context.Context) (interface{}, error) {
		return x.recommendByMovie(ctx, movieID, opts)
	})
	if err != nil {
		if models.IsNotFound(err) {
			return []models.MovieSummary{}, nil
		}
		x.logger.Warn().Err(err).Int64("movie_id", movieID).Msg("Semantic movie recommendation degraded")
		return []models.MovieSummary{}, err
	}
	movies, ok := v.([]models.MovieSummary)
	if !ok {
		return []models.MovieSummary{}, fmt.Errorf("unexpected cached type %T", v)
	}
	return movies, nil
}

func (x *Index) recommendByMovie(ctx context.Context, movieID int64, opts RecommendOptions) ([]models.MovieSummary, error) {
	movie, err := x.movies.GetMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}
	vec, err := x.Embed(ctx, movie.Synopsis)
	if err != nil {
		return nil, err
	}

	var filter []string
	if opts.IncludeGenres {
		filter = movie.Genres
	}
	hits, err := x.search(ctx, x.opts.Collection, SearchRequest{
		Vector:     vec,
		ExcludeIDs: []int64{movieID},
		TopK:       opts.TopK,
	}, filter)
	if err != nil {
		return nil, err
	}
	return summaries(hits, movieID), nil
}

// RecommendByPlot returns movies whose synopsis embeds close to text. Results
// are not cached. Blank text yields an empty list.
func (x *Index) RecommendByPlot(ctx context.Context, text string, topK int) ([]models.MovieSummary, error) {
	if embed.IsBlank(text) {
		return []models.MovieSummary{}, nil
	}
	if topK <= 0 {
		topK = DefaultPlotTopK
	}

	vec, err := x.Embed(ctx, text)
	if err == nil {
		var hits []Hit
		hits, err = x.Search(ctx, x.opts.Collection, vec, nil, topK)
		if err == nil {
			return summaries(hits, 0), nil
		}
	}
	x.logger.Warn().Err(err).Msg("Plot search degraded")
	return []models.MovieSummary{}, err
}

// Count returns the number of records in collection.
func (x *Index) Count(ctx context.Context, collection string) (int64, error) {
	var n int64
	err := x.timed(ctx, "count", func(ctx context.Context) error {
		var err error
		n, err = x.store.Count(ctx, collection)
		return err
	})
	return n, err
}

// timed bounds fn by the query timeout, records metrics and wraps store
// failures as DependencyError. Argument errors and collection sentinels keep
// their identity.
func (x *Index) timed(ctx context.Context, op string, fn func(context.Context) error) error {
	if x.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.opts.QueryTimeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(ctx)
	metrics.RecordVectorQuery(op, time.Since(start), err)
	if err == nil || models.IsArgument(err) || models.IsDependency(err) ||
		errors.Is(err, ErrCollectionExists) || errors.Is(err, ErrCollectionNotFound) {
		return err
	}
	return models.NewDependency("vector", op, err)
}

func summaries(hits []Hit, exclude int64) []models.MovieSummary {
	out := make([]models.MovieSummary, 0, len(hits))
	for _, h := range hits {
		if exclude != 0 && h.ID == exclude {
			continue
		}
		score := h.Score
		avg := h.Payload.AvgRating
		genres := h.Payload.Genres
		if genres == nil {
			genres = []string{}
		}
		out = append(out, models.MovieSummary{
			ID:          h.ID,
			Title:       h.Payload.Title,
			Duration:    h.Payload.Duration,
			PosterURL:   h.Payload.PosterURL,
			ReleaseYear: h.Payload.ReleaseYear,
			Genres:      genres,
			IMDbID:      h.Payload.IMDbID,
			AvgRating:   &avg,
			Score:       &score,
		})
	}
	return models.DedupeByID(out)
}

func hasAll(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
