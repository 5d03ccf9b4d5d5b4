// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package vector

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/reelgraph/internal/cache"
	"github.com/tomtom215/reelgraph/internal/embed"
	"github.com/tomtom215/reelgraph/internal/models"
)

const testDim = 64

type fakeMovies struct {
	movies map[int64]models.Movie
	calls  atomic.Int32
}

func (f *fakeMovies) GetMovie(_ context.Context, id int64) (*models.Movie, error) {
	f.calls.Add(1)
	m, ok := f.movies[id]
	if !ok {
		return nil, models.NewNotFound("movie", id)
	}
	return &m, nil
}

// countingEmbedder wraps an embedder and can be switched to fail.
type countingEmbedder struct {
	embed.Embedder
	calls atomic.Int32
	fail  atomic.Bool
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	if c.fail.Load() {
		return nil, models.NewDependency("embedding", "embed", errors.New("service down"))
	}
	return c.Embedder.Embed(ctx, text)
}

// failingStore fails every search.
type failingStore struct {
	Store
}

func (failingStore) Search(context.Context, string, SearchRequest) ([]Hit, error) {
	return nil, errors.New("disk on fire")
}

type indexFixture struct {
	index    *Index
	store    *DuckDBStore
	embedder *countingEmbedder
	movies   *fakeMovies
}

func newIndexFixture(t *testing.T) *indexFixture {
	t.Helper()
	store := setupTestStore(t)
	emb := &countingEmbedder{Embedder: embed.NewHashEmbedder(testDim)}
	movies := &fakeMovies{movies: map[int64]models.Movie{}}
	idx := NewIndex(store, emb, movies, cache.New(time.Hour), Options{Collection: "movies", QueryTimeout: 5 * time.Second})
	if err := idx.CreateCollection(context.Background(), CollectionSpec{Name: "movies"}); err != nil {
		t.Fatal(err)
	}
	return &indexFixture{index: idx, store: store, embedder: emb, movies: movies}
}

func (f *indexFixture) addMovies(t *testing.T, movies ...models.Movie) {
	t.Helper()
	ids := make([]int64, len(movies))
	docs := make([]Document, len(movies))
	for i, m := range movies {
		f.movies.movies[m.ID] = m
		ids[i] = m.ID
		docs[i] = Document{Text: m.Synopsis, Payload: PayloadFromMovie(m)}
	}
	if err := f.index.UpsertBatch(context.Background(), "movies", ids, docs); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
}

func movieIDs(movies []models.MovieSummary) []int64 {
	out := make([]int64, len(movies))
	for i := range movies {
		out[i] = movies[i].ID
	}
	return out
}

func TestIndex_CreateCollectionTwice(t *testing.T) {
	f := newIndexFixture(t)
	err := f.index.CreateCollection(context.Background(), CollectionSpec{Name: "movies"})
	if !errors.Is(err, ErrCollectionExists) {
		t.Fatalf("err = %v, want ErrCollectionExists", err)
	}
	spec, err := f.store.Collection(context.Background(), "movies")
	if err != nil {
		t.Fatal(err)
	}
	if spec.Dimension != testDim || spec.Distance != DistanceCosine || spec.Quantization != QuantizationInt8 {
		t.Errorf("defaults not applied: %+v", spec)
	}
}

func TestIndex_EmbedBlankSkipsEmbedder(t *testing.T) {
	f := newIndexFixture(t)
	vec, err := f.index.Embed(context.Background(), " \n ")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != testDim || l2Norm(vec) != 0 {
		t.Errorf("blank embedding = %v", vec)
	}
	if f.embedder.calls.Load() != 0 {
		t.Error("embedder called for blank text")
	}
}

func TestIndex_UpsertBatchLengthMismatch(t *testing.T) {
	f := newIndexFixture(t)
	err := f.index.UpsertBatch(context.Background(), "movies", []int64{1, 2}, []Document{{Text: "x"}})
	if !models.IsArgument(err) {
		t.Fatalf("err = %v, want ArgumentError", err)
	}
	if f.embedder.calls.Load() != 0 {
		t.Error("embedder called before length check")
	}
}

func TestIndex_GenreFilterRequiresFirstTwo(t *testing.T) {
	f := newIndexFixture(t)
	f.addMovies(t,
		models.Movie{ID: 1, Title: "X", Synopsis: "a heist", Genres: []string{"A"}},
		models.Movie{ID: 2, Title: "Y", Synopsis: "a heist", Genres: []string{"A", "B"}},
		models.Movie{ID: 3, Title: "Z", Synopsis: "a heist", Genres: []string{"A", "B", "C"}},
	)
	query, err := f.index.Embed(context.Background(), "a heist")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter []string
		want   []int64
	}{
		{"two genres", []string{"A", "B"}, []int64{2, 3}},
		{"third genre ignored", []string{"A", "B", "D"}, []int64{2, 3}},
		{"single genre is no filter", []string{"C"}, []int64{1, 2, 3}},
		{"no filter", nil, []int64{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := f.index.Search(context.Background(), "movies", query, tt.filter, 10)
			if err != nil {
				t.Fatal(err)
			}
			got := make([]int64, len(hits))
			for i, h := range hits {
				got[i] = h.ID
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIndex_RecommendByMovie(t *testing.T) {
	f := newIndexFixture(t)
	f.addMovies(t,
		models.Movie{ID: 1, Title: "Heist", Synopsis: "thieves plan a bank heist in the city", Genres: []string{"Crime", "Thriller"}},
		models.Movie{ID: 2, Title: "Heist 2", Synopsis: "thieves plan another bank heist", Genres: []string{"Crime", "Thriller"}},
		models.Movie{ID: 3, Title: "Penguins", Synopsis: "penguins migrate across frozen ice", Genres: []string{"Documentary"}},
		models.Movie{ID: 4, Title: "Untitled", Synopsis: "", Genres: []string{"Crime"}},
	)
	ctx := context.Background()

	got, err := f.index.RecommendByMovie(ctx, 1, RecommendOptions{TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	ids := movieIDs(got)
	if len(ids) != 3 || ids[0] != 2 {
		t.Fatalf("ids = %v, want movie 2 first and movie 1 excluded", ids)
	}
	// The movie without a synopsis is indexed but ranks last.
	if ids[len(ids)-1] != 4 {
		t.Errorf("zero-vector movie not last: %v", ids)
	}
	if got[0].Score == nil || got[0].AvgRating == nil {
		t.Error("semantic results carry score and avg rating")
	}

	withGenres, err := f.index.RecommendByMovie(ctx, 1, RecommendOptions{TopK: 10, IncludeGenres: true})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{2}, movieIDs(withGenres)); diff != "" {
		t.Errorf("genre-filtered ids mismatch (-want +got):\n%s", diff)
	}
}

func TestIndex_RecommendByMovieIsCached(t *testing.T) {
	f := newIndexFixture(t)
	f.addMovies(t,
		models.Movie{ID: 1, Synopsis: "a b c"},
		models.Movie{ID: 2, Synopsis: "a b d"},
	)
	ctx := context.Background()

	first, err := f.index.RecommendByMovie(ctx, 1, RecommendOptions{})
	if err != nil {
		t.Fatal(err)
	}
	loads := f.movies.calls.Load()
	second, err := f.index.RecommendByMovie(ctx, 1, RecommendOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if f.movies.calls.Load() != loads {
		t.Error("second call reached the catalog")
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached result differs (-first +second):\n%s", diff)
	}
}

func TestIndex_RecommendByMovieUnknown(t *testing.T) {
	f := newIndexFixture(t)
	got, err := f.index.RecommendByMovie(context.Background(), 404, RecommendOptions{})
	if err != nil {
		t.Fatalf("unknown movie err = %v, want nil", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty list", got)
	}
}

func TestIndex_DegradesOnFailure(t *testing.T) {
	f := newIndexFixture(t)
	f.addMovies(t, models.Movie{ID: 1, Synopsis: "a b c"}, models.Movie{ID: 2, Synopsis: "a b d"})
	ctx := context.Background()

	f.embedder.fail.Store(true)
	got, err := f.index.RecommendByPlot(ctx, "a b", 5)
	if !models.IsDependency(err) {
		t.Errorf("err = %v, want DependencyError", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("degraded result = %v, want empty list", got)
	}

	got, err = f.index.RecommendByMovie(ctx, 1, RecommendOptions{})
	if err == nil || len(got) != 0 {
		t.Errorf("RecommendByMovie = %v, %v; want empty list and error", got, err)
	}

	f.embedder.fail.Store(false)
	broken := NewIndex(failingStore{Store: f.store}, f.embedder, f.movies, cache.New(time.Hour), Options{Collection: "movies"})
	got, err = broken.RecommendByPlot(ctx, "a b", 5)
	var dep *models.DependencyError
	if !errors.As(err, &dep) || dep.Dependency != "vector" {
		t.Errorf("err = %v, want vector DependencyError", err)
	}
	if len(got) != 0 {
		t.Errorf("degraded result = %v", got)
	}
}

func TestIndex_RecommendByPlot(t *testing.T) {
	f := newIndexFixture(t)
	f.addMovies(t,
		models.Movie{ID: 1, Synopsis: "a wizard school adventure"},
		models.Movie{ID: 2, Synopsis: "space marines fight aliens"},
	)
	ctx := context.Background()

	got, err := f.index.RecommendByPlot(ctx, "young wizard goes to school", 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{1}, movieIDs(got)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}

	blank, err := f.index.RecommendByPlot(ctx, "   ", 5)
	if err != nil || len(blank) != 0 {
		t.Errorf("blank query = %v, %v", blank, err)
	}
}

func TestSummariesDedupeAndExclude(t *testing.T) {
	t.Parallel()
	hits := []Hit{
		{ID: 2, Score: 0.9, Payload: Payload{Title: "first"}},
		{ID: 1, Score: 0.8},
		{ID: 2, Score: 0.7, Payload: Payload{Title: "last"}},
	}
	got := summaries(hits, 1)
	if len(got) != 1 || got[0].Title != "last" {
		t.Errorf("summaries = %+v", got)
	}
}
