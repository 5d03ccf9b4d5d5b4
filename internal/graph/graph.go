// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package graph

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/reelgraph/internal/config"
	"github.com/tomtom215/reelgraph/internal/models"
)

// Default result caps per query.
const (
	DefaultUserBasedLimit   = 100
	DefaultFollowBasedLimit = 50
	DefaultContentLimit     = 20
)

// WatchedEdge is a User -WATCHED-> Movie edge. Rating is nil for an unrated
// watch. UpdatedAt is the catalog's write stamp and orders competing writes:
// a write older than the stored edge does not overwrite its rating. Edges
// without UpdatedAt fall back to WatchedAt.
type WatchedEdge struct {
	UserID    int64
	MovieID   int64
	Rating    *float64
	WatchedAt time.Time
	UpdatedAt time.Time
}

// Index is the relationship graph over users, movies, people and genres.
//
// Node upserts create the node when absent and leave an existing node's
// attributes untouched. Edge upserts match both endpoints first; when either
// is missing the call is a no-op, so no edge ever dangles. Every call is its
// own unit of work.
type Index interface {
	// EnsureSchema installs identity constraints. Safe to call repeatedly.
	EnsureSchema(ctx context.Context) error

	UpsertUser(ctx context.Context, u models.User) error
	BatchUpsertUsers(ctx context.Context, users []models.User) error
	// UpsertMovie creates the movie node and merges a BELONGS edge to each genre.
	UpsertMovie(ctx context.Context, m models.Movie, genres []string) error
	UpsertPerson(ctx context.Context, p models.Person, role models.Role) error

	UpsertActsEdge(ctx context.Context, personID, movieID int64) error
	UpsertDirectsEdge(ctx context.Context, personID, movieID int64) error
	UpsertFollowsEdge(ctx context.Context, userID, personID int64) error
	BatchUpsertFollowsEdges(ctx context.Context, follows []models.Follow) error
	UpsertWatchedEdge(ctx context.Context, e WatchedEdge) error
	// BatchUpsertWatchedEdges writes the whole batch in one round trip.
	BatchUpsertWatchedEdges(ctx context.Context, edges []WatchedEdge) error

	// UserBased ranks movies watched by users who share a watched movie with
	// username, excluding movies username already watched.
	UserBased(ctx context.Context, username string, limit int) ([]models.MovieSummary, error)
	// FollowBased lists unwatched movies acted in or directed by people
	// username follows.
	FollowBased(ctx context.Context, username string, limit int) ([]models.MovieSummary, error)
	// ContentBased lists other movies sharing at least one genre with movieID.
	ContentBased(ctx context.Context, movieID int64, limit int) ([]models.MovieSummary, error)

	// DeleteAll removes every node and edge.
	DeleteAll(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// New builds the index selected by cfg.Backend.
func New(cfg *config.GraphConfig) (Index, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryIndex(), nil
	case "neo4j", "":
		runner, err := NewDriverRunner(cfg)
		if err != nil {
			return nil, err
		}
		return NewNeo4jIndex(runner, cfg.QueryTimeout), nil
	default:
		return nil, fmt.Errorf("unknown graph backend %q", cfg.Backend)
	}
}

func limitOr(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

// updatedAt is the edge ordering stamp stored on WATCHED.
func updatedAt(e WatchedEdge) int64 {
	if e.UpdatedAt.IsZero() {
		return e.WatchedAt.UnixMilli()
	}
	return e.UpdatedAt.UnixMilli()
}

func sortedGenres(genres []string) []string {
	out := make([]string, 0, len(genres))
	seen := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
