// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/reelgraph/internal/logging"
	syncpkg "github.com/tomtom215/reelgraph/internal/sync"
)

// IndexRebuilder rebuilds both indexes from the catalog.
type IndexRebuilder interface {
	FullRebuild(ctx context.Context) (syncpkg.RebuildReport, error)
}

// ReconcileServiceConfig controls when full rebuilds run.
type ReconcileServiceConfig struct {
	// RebuildOnStartup runs one rebuild as soon as the service starts.
	RebuildOnStartup bool

	// Interval between periodic rebuilds. Zero disables them.
	Interval time.Duration
}

// ReconcileService periodically rebuilds the graph and vector indexes so
// drift left by failed projections is repaired.
type ReconcileService struct {
	rebuilder IndexRebuilder
	config    ReconcileServiceConfig
	logger    zerolog.Logger
}

// NewReconcileService creates the service.
func NewReconcileService(rebuilder IndexRebuilder, cfg ReconcileServiceConfig) *ReconcileService {
	return &ReconcileService{
		rebuilder: rebuilder,
		config:    cfg,
		logger:    logging.WithComponent("reconciler"),
	}
}

// Serve runs until ctx is canceled. Rebuild failures are logged and do not
// stop the service; the next tick tries again.
func (s *ReconcileService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("rebuild_on_startup", s.config.RebuildOnStartup).
		Dur("interval", s.config.Interval).
		Msg("Index reconciler starting")

	if s.config.RebuildOnStartup {
		s.rebuild(ctx)
	}

	if s.config.Interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Index reconciler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.rebuild(ctx)
		}
	}
}

func (s *ReconcileService) rebuild(ctx context.Context) {
	report, err := s.rebuilder.FullRebuild(ctx)
	switch {
	case err == nil:
		s.logger.Info().
			Dur("duration", report.Duration).
			Int64("movies", report.Graph.Movies).
			Int64("users", report.Graph.Users).
			Msg("Scheduled index rebuild complete")
	case errors.Is(err, syncpkg.ErrRebuildInProgress):
		s.logger.Info().Msg("Scheduled index rebuild skipped, another rebuild is running")
	case ctx.Err() != nil:
		// shutting down
	default:
		s.logger.Error().Err(err).Msg("Scheduled index rebuild failed")
	}
}

// String identifies the service in supervisor logs.
func (s *ReconcileService) String() string {
	return "index-reconciler"
}
