// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package recommend

import (
	"context"
	"fmt"
	"math/rand" //nolint:gosec // shuffling results, not security sensitive
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelgraph/internal/cache"
	"github.com/tomtom215/reelgraph/internal/config"
	"github.com/tomtom215/reelgraph/internal/logging"
	"github.com/tomtom215/reelgraph/internal/metrics"
	"github.com/tomtom215/reelgraph/internal/models"
	"github.com/tomtom215/reelgraph/internal/vector"
)

// Strategy names used in logs and metrics labels.
const (
	StrategyUserBased       = "user_based"
	StrategyFollowBased     = "follow_based"
	StrategyContentGraph    = "content_graph"
	StrategyContentSemantic = "content_semantic"
	StrategyPlotSearch      = "plot_search"
)

const userRecsCachePrefix = "user_recommendations"

// Graph is the part of the graph index the strategies query.
type Graph interface {
	UserBased(ctx context.Context, username string, limit int) ([]models.MovieSummary, error)
	FollowBased(ctx context.Context, username string, limit int) ([]models.MovieSummary, error)
	ContentBased(ctx context.Context, movieID int64, limit int) ([]models.MovieSummary, error)
}

// Semantic is the part of the vector index the strategies query.
type Semantic interface {
	RecommendByMovie(ctx context.Context, movieID int64, opts vector.RecommendOptions) ([]models.MovieSummary, error)
	RecommendByPlot(ctx context.Context, text string, topK int) ([]models.MovieSummary, error)
}

// Options tunes a Service. Zero limits fall back to the index defaults.
type Options struct {
	UserBasedLimit   int
	FollowBasedLimit int
	ContentLimit     int
	SemanticTopK     int
	PlotSearchTopK   int

	// QueryTimeout bounds every strategy call. Zero leaves the caller's deadline.
	QueryTimeout time.Duration
	// UserBasedTTL is how long collaborative results stay cached.
	UserBasedTTL time.Duration

	ShuffleFollows bool
	// Seed seeds the follow shuffle. Zero seeds from the clock.
	Seed int64
}

// OptionsFromConfig maps the recommend and cache sections onto Options.
func OptionsFromConfig(rc *config.RecommendConfig, cc *config.CacheConfig) Options {
	return Options{
		UserBasedLimit:   rc.UserBasedLimit,
		FollowBasedLimit: rc.FollowBasedLimit,
		ContentLimit:     rc.ContentLimit,
		SemanticTopK:     rc.SemanticTopK,
		PlotSearchTopK:   rc.PlotSearchTopK,
		QueryTimeout:     rc.QueryTimeout,
		UserBasedTTL:     cc.UserBasedTTL,
		ShuffleFollows:   rc.ShuffleFollows,
	}
}

// Result is a strategy's answer. Degraded is set when an index failure was
// replaced by an empty list.
type Result struct {
	models.RecommendationList
	Strategy string `json:"-"`
	Degraded bool   `json:"-"`
}

// Service runs the recommendation strategies.
type Service struct {
	graph    Graph
	semantic Semantic
	cache    cache.Cacher
	opts     Options
	logger   zerolog.Logger

	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewService wires the strategies to their indexes.
func NewService(g Graph, semantic Semantic, c cache.Cacher, opts Options) *Service {
	if opts.UserBasedTTL <= 0 {
		opts.UserBasedTTL = 10 * time.Minute
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Service{
		graph:    g,
		semantic: semantic,
		cache:    c,
		opts:     opts,
		logger:   logging.WithComponent("recommend"),
		rng:      rand.New(rand.NewSource(seed)), //nolint:gosec // shuffle only
	}
}

// UserBasedCacheKey is the cache key of username's collaborative results.
func UserBasedCacheKey(username string) string {
	return cache.GenerateKey(userRecsCachePrefix, username)
}

// UserBased recommends movies watched by users who share a watched movie
// with username. Results are cached per username.
func (s *Service) UserBased(ctx context.Context, username string) (Result, error) {
	username, err := requireUsername(username)
	if err != nil {
		return Result{}, err
	}
	return s.run(ctx, StrategyUserBased, func(ctx context.Context) ([]models.MovieSummary, error) {
		v, err := s.cache.GetOrLoad(ctx, UserBasedCacheKey(username), s.opts.UserBasedTTL,
			func(ctx context.Context) (interface{}, error) {
				return s.graph.UserBased(ctx, username, s.opts.UserBasedLimit)
			})
		if err != nil {
			return nil, err
		}
		movies, ok := v.([]models.MovieSummary)
		if !ok {
			return nil, fmt.Errorf("unexpected cached type %T", v)
		}
		return movies, nil
	}, zerologStr("username", username))
}

// InvalidateUser drops username's cached collaborative results.
func (s *Service) InvalidateUser(username string) {
	s.cache.Delete(UserBasedCacheKey(strings.TrimSpace(username)))
}

// FollowBased recommends unwatched movies featuring people username
// follows. No movie appears twice.
func (s *Service) FollowBased(ctx context.Context, username string) (Result, error) {
	username, err := requireUsername(username)
	if err != nil {
		return Result{}, err
	}
	return s.run(ctx, StrategyFollowBased, func(ctx context.Context) ([]models.MovieSummary, error) {
		movies, err := s.graph.FollowBased(ctx, username, s.opts.FollowBasedLimit)
		if err != nil {
			return nil, err
		}
		movies = models.DedupeByID(movies)
		if s.opts.ShuffleFollows {
			s.shuffle(movies)
		}
		return movies, nil
	}, zerologStr("username", username))
}

// ContentGraph recommends other movies sharing a genre with movieID.
func (s *Service) ContentGraph(ctx context.Context, movieID int64) (Result, error) {
	if err := requireMovieID(movieID); err != nil {
		return Result{}, err
	}
	return s.run(ctx, StrategyContentGraph, func(ctx context.Context) ([]models.MovieSummary, error) {
		movies, err := s.graph.ContentBased(ctx, movieID, s.opts.ContentLimit)
		if err != nil {
			return nil, err
		}
		return models.DedupeByID(movies), nil
	}, zerologInt("movie_id", movieID))
}

// ContentSemantic recommends movies whose synopsis is closest to movieID's.
// With includeGenres only movies carrying all of movieID's leading genres
// qualify.
func (s *Service) ContentSemantic(ctx context.Context, movieID int64, includeGenres bool) (Result, error) {
	if err := requireMovieID(movieID); err != nil {
		return Result{}, err
	}
	return s.run(ctx, StrategyContentSemantic, func(ctx context.Context) ([]models.MovieSummary, error) {
		return s.semantic.RecommendByMovie(ctx, movieID, vector.RecommendOptions{
			IncludeGenres: includeGenres,
			TopK:          s.opts.SemanticTopK,
		})
	}, zerologInt("movie_id", movieID))
}

// SearchByPlot recommends movies whose synopsis is closest to text. Blank
// text yields an empty list.
func (s *Service) SearchByPlot(ctx context.Context, text string) (Result, error) {
	return s.run(ctx, StrategyPlotSearch, func(ctx context.Context) ([]models.MovieSummary, error) {
		return s.semantic.RecommendByPlot(ctx, text, s.opts.PlotSearchTopK)
	}, func(e *zerolog.Event) { e.Int("query_len", len(text)) })
}

// run executes one strategy under the query timeout and turns failures into
// a degraded empty result.
func (s *Service) run(ctx context.Context, strategy string, fn func(context.Context) ([]models.MovieSummary, error), fields func(*zerolog.Event)) (Result, error) {
	start := time.Now()
	if s.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.QueryTimeout)
		defer cancel()
	}

	movies, err := fn(ctx)
	res := Result{Strategy: strategy}
	if err != nil {
		res.Degraded = true
		movies = nil
		logger := logging.FromContext(ctx, s.logger)
		ev := logger.Warn().Err(err).Str("strategy", strategy)
		fields(ev)
		ev.Msg("Recommendation degraded to empty result")
	}
	res.RecommendationList = models.NewRecommendationList(movies)

	metrics.RecordRecommendation(strategy, len(res.Movies), res.Degraded, time.Since(start))
	return res, nil
}

func (s *Service) shuffle(movies []models.MovieSummary) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng.Shuffle(len(movies), func(i, j int) {
		movies[i], movies[j] = movies[j], movies[i]
	})
}

func requireUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", &models.ValidationError{Field: "username", Message: "must not be empty"}
	}
	return username, nil
}

func requireMovieID(id int64) error {
	if id <= 0 {
		return &models.ValidationError{Field: "movie_id", Message: "must be a positive integer"}
	}
	return nil
}

func zerologStr(key, val string) func(*zerolog.Event) {
	return func(e *zerolog.Event) { e.Str(key, val) }
}

func zerologInt(key string, val int64) func(*zerolog.Event) {
	return func(e *zerolog.Event) { e.Int64(key, val) }
}
