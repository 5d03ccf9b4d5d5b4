// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package ingest

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelgraph/internal/catalog"
	"github.com/tomtom215/reelgraph/internal/enrich"
	"github.com/tomtom215/reelgraph/internal/logging"
	"github.com/tomtom215/reelgraph/internal/models"
	syncpkg "github.com/tomtom215/reelgraph/internal/sync"
)

const (
	maxRating         = 5.0
	maxUsernameLength = 150
)

// Catalog is the part of the primary store the write path uses.
type Catalog interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetMovie(ctx context.Context, id int64) (*models.Movie, error)
	CreateMovieIfAbsent(ctx context.Context, m *models.Movie) (bool, error)
	SetMovieGenres(ctx context.Context, movieID int64, names []string) error
	FindOrCreatePerson(ctx context.Context, p *models.Person) (bool, error)
	GetPerson(ctx context.Context, id int64) (*models.Person, error)
	SetMovieCredits(ctx context.Context, movieID int64, role models.Role, personIDs []int64) error
	UpsertWatch(ctx context.Context, w models.WatchRecord) (bool, error)
	RecomputeAvgRating(ctx context.Context, movieID int64) (float64, error)
	AddFollow(ctx context.Context, f models.Follow) (bool, error)
	UserWatchHistory(ctx context.Context, userID int64) ([]catalog.WatchedMovie, error)
}

// Syncer projects a committed change into the indexes.
type Syncer interface {
	IncrementalUpsert(ctx context.Context, c syncpkg.Change) error
}

// Enricher looks up movie details by IMDb id.
type Enricher interface {
	Lookup(ctx context.Context, imdbID string) (*enrich.MovieDetails, error)
}

// Invalidator drops a user's cached collaborative results.
type Invalidator interface {
	InvalidateUser(username string)
}

// WatchRequest records that Username watched MovieID. Rating is optional.
type WatchRequest struct {
	Username  string
	MovieID   int64
	Rating    *float64
	WatchedAt time.Time
}

// WatchResult reports the outcome of RecordWatch.
type WatchResult struct {
	UserID    int64    `json:"user_id"`
	MovieID   int64    `json:"movie_id"`
	Rating    *float64 `json:"rating,omitempty"`
	AvgRating float64  `json:"avg_rating"`
	Created   bool     `json:"created"`
}

// MovieResult reports the outcome of AddMovieByIMDb.
type MovieResult struct {
	Movie   models.Movie   `json:"movie"`
	Credits models.Credits `json:"credits"`
	Created bool           `json:"created"`
}

// Service runs the write operations.
type Service struct {
	catalog  Catalog
	sync     Syncer
	enricher Enricher
	cache    Invalidator
	logger   zerolog.Logger
}

// NewService wires the write path. enricher may be nil, in which case
// AddMovieByIMDb reports a dependency error.
func NewService(cat Catalog, sync Syncer, enricher Enricher, cache Invalidator) *Service {
	return &Service{
		catalog:  cat,
		sync:     sync,
		enricher: enricher,
		cache:    cache,
		logger:   logging.WithComponent("ingest"),
	}
}

// RegisterUser creates a user and projects the node.
func (s *Service) RegisterUser(ctx context.Context, u models.User) (*models.User, error) {
	u.Username = strings.TrimSpace(u.Username)
	if err := validateUsername(u.Username); err != nil {
		return nil, err
	}
	if u.ID < 0 {
		return nil, &models.ValidationError{Field: "id", Message: "must not be negative"}
	}

	if err := s.catalog.CreateUser(ctx, &u); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("user_id", u.ID).Str("username", u.Username).Msg("User registered")

	return &u, s.project(ctx, syncpkg.UserChange(u.ID))
}

// RecordWatch creates or updates a watch record, refreshes the movie's
// average rating, projects the WATCHED edge and evicts the user's cached
// collaborative results.
func (s *Service) RecordWatch(ctx context.Context, req WatchRequest) (*WatchResult, error) {
	username := strings.TrimSpace(req.Username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if req.MovieID <= 0 {
		return nil, &models.ValidationError{Field: "movie_id", Message: "must be a positive integer"}
	}
	if err := ValidateRating(req.Rating); err != nil {
		return nil, err
	}

	user, err := s.catalog.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetMovie(ctx, req.MovieID); err != nil {
		return nil, err
	}

	created, err := s.catalog.UpsertWatch(ctx, models.WatchRecord{
		UserID:    user.ID,
		MovieID:   req.MovieID,
		Rating:    req.Rating,
		WatchedAt: req.WatchedAt,
	})
	if err != nil {
		return nil, err
	}
	avg, err := s.catalog.RecomputeAvgRating(ctx, req.MovieID)
	if err != nil {
		return nil, err
	}

	res := &WatchResult{
		UserID:    user.ID,
		MovieID:   req.MovieID,
		Rating:    req.Rating,
		AvgRating: avg,
		Created:   created,
	}
	syncErr := s.project(ctx, syncpkg.WatchChange(user.ID, req.MovieID))
	if s.cache != nil {
		s.cache.InvalidateUser(username)
	}

	s.logger.Debug().
		Int64("user_id", user.ID).
		Int64("movie_id", req.MovieID).
		Bool("created", created).
		Msg("Watch recorded")
	return res, syncErr
}

// Follow records that username follows personID and projects the edge.
// It reports whether the follow was new.
func (s *Service) Follow(ctx context.Context, username string, personID int64) (bool, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return false, err
	}
	if personID <= 0 {
		return false, &models.ValidationError{Field: "person_id", Message: "must be a positive integer"}
	}

	user, err := s.catalog.GetUserByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if _, err := s.catalog.GetPerson(ctx, personID); err != nil {
		return false, err
	}

	created, err := s.catalog.AddFollow(ctx, models.Follow{UserID: user.ID, PersonID: personID})
	if err != nil {
		return false, err
	}
	return created, s.project(ctx, syncpkg.FollowChange(user.ID, personID))
}

// AddMovieByIMDb fetches ref's details, stores the movie with its genres
// and credits, and projects it into both indexes. ref is an IMDb id or a
// title URL. Details are refreshed when the movie already exists.
func (s *Service) AddMovieByIMDb(ctx context.Context, ref string) (*MovieResult, error) {
	imdbID, err := ParseIMDbRef(ref)
	if err != nil {
		return nil, err
	}
	if s.enricher == nil {
		return nil, models.NewDependency("enrich", "lookup", errEnrichDisabled)
	}

	details, err := s.enricher.Lookup(ctx, imdbID)
	if err != nil {
		return nil, err
	}

	movie := &models.Movie{
		Title:       details.Title,
		ReleaseYear: details.Year,
		Duration:    details.Runtime,
		Synopsis:    details.Plot,
		PosterURL:   details.PosterURL,
		IMDbID:      imdbID,
	}
	created, err := s.catalog.CreateMovieIfAbsent(ctx, movie)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.SetMovieGenres(ctx, movie.ID, details.Genres); err != nil {
		return nil, err
	}

	credits := models.Credits{}
	if credits.Actors, err = s.credit(ctx, movie.ID, models.RoleActor, details.Actors); err != nil {
		return nil, err
	}
	if credits.Directors, err = s.credit(ctx, movie.ID, models.RoleDirector, details.Directors); err != nil {
		return nil, err
	}

	stored, err := s.catalog.GetMovie(ctx, movie.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("movie_id", stored.ID).
		Str("imdb_id", imdbID).
		Bool("created", created).
		Int("actors", len(credits.Actors)).
		Int("directors", len(credits.Directors)).
		Msg("Movie added from IMDb")

	res := &MovieResult{Movie: *stored, Credits: credits, Created: created}
	return res, s.project(ctx, syncpkg.MovieChange(stored.ID))
}

// credit finds or creates each named person and replaces the movie's
// credits for role.
func (s *Service) credit(ctx context.Context, movieID int64, role models.Role, names []string) ([]models.Person, error) {
	people := make([]models.Person, 0, len(names))
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		p := SplitName(name)
		if p.FirstName == "" {
			continue
		}
		if _, err := s.catalog.FindOrCreatePerson(ctx, &p); err != nil {
			return nil, err
		}
		people = append(people, p)
		ids = append(ids, p.ID)
	}
	if err := s.catalog.SetMovieCredits(ctx, movieID, role, ids); err != nil {
		return nil, err
	}
	return people, nil
}

// WatchHistory lists username's watched movies, newest first.
func (s *Service) WatchHistory(ctx context.Context, username string) ([]catalog.WatchedMovie, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	user, err := s.catalog.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.catalog.UserWatchHistory(ctx, user.ID)
}

// project runs the incremental sync for c. The catalog write has already
// committed, so the error is only logged and handed back.
func (s *Service) project(ctx context.Context, c syncpkg.Change) error {
	err := s.sync.IncrementalUpsert(ctx, c)
	if err == nil {
		return nil
	}
	logger := logging.FromContext(ctx, s.logger)
	if models.IsQueued(err) {
		logger.Warn().Err(err).Str("change", c.String()).Msg("Index projection queued for retry")
	} else {
		logger.Error().Err(err).Str("change", c.String()).Msg("Index projection failed")
	}
	return err
}

// ValidateRating accepts nil or a value in [0, 5] in steps of 0.5.
func ValidateRating(r *float64) error {
	if r == nil {
		return nil
	}
	v := *r
	if math.IsNaN(v) || v < 0 || v > maxRating {
		return &models.ValidationError{Field: "rating", Message: "must be between 0 and 5"}
	}
	if v*2 != math.Trunc(v*2) {
		return &models.ValidationError{Field: "rating", Message: "must be a multiple of 0.5"}
	}
	return nil
}

func validateUsername(username string) error {
	if username == "" {
		return &models.ValidationError{Field: "username", Message: "must not be empty"}
	}
	if len(username) > maxUsernameLength {
		return &models.ValidationError{Field: "username", Message: "must be at most 150 characters"}
	}
	return nil
}
