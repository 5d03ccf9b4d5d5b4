// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelgraph/internal/catalog"
	"github.com/tomtom215/reelgraph/internal/ingest"
	"github.com/tomtom215/reelgraph/internal/logging"
	"github.com/tomtom215/reelgraph/internal/middleware"
	"github.com/tomtom215/reelgraph/internal/models"
	"github.com/tomtom215/reelgraph/internal/recommend"
	syncpkg "github.com/tomtom215/reelgraph/internal/sync"
)

// Recommender answers the read strategies.
type Recommender interface {
	UserBased(ctx context.Context, username string) (recommend.Result, error)
	FollowBased(ctx context.Context, username string) (recommend.Result, error)
	ContentGraph(ctx context.Context, movieID int64) (recommend.Result, error)
	ContentSemantic(ctx context.Context, movieID int64, includeGenres bool) (recommend.Result, error)
	SearchByPlot(ctx context.Context, text string) (recommend.Result, error)
}

// Ingestor runs the write operations.
type Ingestor interface {
	RegisterUser(ctx context.Context, u models.User) (*models.User, error)
	RecordWatch(ctx context.Context, req ingest.WatchRequest) (*ingest.WatchResult, error)
	Follow(ctx context.Context, username string, personID int64) (bool, error)
	AddMovieByIMDb(ctx context.Context, ref string) (*ingest.MovieResult, error)
	WatchHistory(ctx context.Context, username string) ([]catalog.WatchedMovie, error)
}

// Rebuilder runs and reports index rebuilds.
type Rebuilder interface {
	RebuildGraph(ctx context.Context) (syncpkg.IndexReport, error)
	RebuildVector(ctx context.Context) (syncpkg.IndexReport, error)
	Status() syncpkg.Status
}

// PendingCounter reports how many changes wait for retry.
type PendingCounter interface {
	Len() (int, error)
}

// HealthCheck probes one component.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators of Handler. Recommender and Ingestor are
// required; the rest may be nil.
type Deps struct {
	Recommender Recommender
	Ingestor    Ingestor
	Rebuilder   Rebuilder
	Pending     PendingCounter
	Performance *middleware.PerformanceMonitor
	Checks      map[string]HealthCheck

	// RebuildTimeout bounds admin rebuilds. Zero means no bound beyond the
	// request context.
	RebuildTimeout time.Duration
	// HealthTimeout bounds each component check. Defaults to 2s.
	HealthTimeout time.Duration
}

// Handler serves the API endpoints.
type Handler struct {
	recommender    Recommender
	ingestor       Ingestor
	rebuilder      Rebuilder
	pending        PendingCounter
	perf           *middleware.PerformanceMonitor
	checks         map[string]HealthCheck
	rebuildTimeout time.Duration
	healthTimeout  time.Duration
	startTime      time.Time
	logger         zerolog.Logger
}

// NewHandler creates a Handler from deps.
func NewHandler(deps Deps) *Handler {
	healthTimeout := deps.HealthTimeout
	if healthTimeout <= 0 {
		healthTimeout = 2 * time.Second
	}
	return &Handler{
		recommender:    deps.Recommender,
		ingestor:       deps.Ingestor,
		rebuilder:      deps.Rebuilder,
		pending:        deps.Pending,
		perf:           deps.Performance,
		checks:         deps.Checks,
		rebuildTimeout: deps.RebuildTimeout,
		healthTimeout:  healthTimeout,
		startTime:      time.Now(),
		logger:         logging.WithComponent("api"),
	}
}

// requestLogger returns the handler logger tagged with r's request ids.
func (h *Handler) requestLogger(r *http.Request) zerolog.Logger {
	return logging.FromContext(r.Context(), h.logger)
}
