// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/reelgraph/internal/catalog"
	"github.com/tomtom215/reelgraph/internal/graph"
	"github.com/tomtom215/reelgraph/internal/metrics"
	"github.com/tomtom215/reelgraph/internal/models"
	"github.com/tomtom215/reelgraph/internal/vector"
)

// Index names used in reports and metrics.
const (
	IndexGraph  = "graph"
	IndexVector = "vector"
)

// IndexReport summarizes one index rebuild.
type IndexReport struct {
	Index     string        `json:"index"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Movies    int64         `json:"movies"`
	People    int64         `json:"people,omitempty"`
	Users     int64         `json:"users,omitempty"`
	Follows   int64         `json:"follows,omitempty"`
	Watches   int64         `json:"watches,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// RebuildReport summarizes a full rebuild.
type RebuildReport struct {
	Graph    IndexReport   `json:"graph"`
	Vector   IndexReport   `json:"vector"`
	Duration time.Duration `json:"duration_ns"`
}

// Status is a snapshot of rebuild activity.
type Status struct {
	GraphRebuilding  bool         `json:"graph_rebuilding"`
	VectorRebuilding bool         `json:"vector_rebuilding"`
	LastGraph        *IndexReport `json:"last_graph,omitempty"`
	LastVector       *IndexReport `json:"last_vector,omitempty"`
}

// Status returns the current rebuild state and the last report per index.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s := o.status
	if s.LastGraph != nil {
		r := *s.LastGraph
		s.LastGraph = &r
	}
	if s.LastVector != nil {
		r := *s.LastVector
		s.LastVector = &r
	}
	return s
}

// FullRebuild rebuilds the graph and then the vector index. The vector index
// is not touched when the graph rebuild fails.
func (o *Orchestrator) FullRebuild(ctx context.Context) (RebuildReport, error) {
	start := time.Now()
	var report RebuildReport

	graphReport, err := o.RebuildGraph(ctx)
	report.Graph = graphReport
	if err != nil {
		report.Duration = time.Since(start)
		return report, err
	}

	vectorReport, err := o.RebuildVector(ctx)
	report.Vector = vectorReport
	report.Duration = time.Since(start)
	if err != nil {
		return report, err
	}

	o.logger.Info().
		Dur("duration", report.Duration).
		Int64("movies", graphReport.Movies).
		Int64("users", graphReport.Users).
		Int64("watches", graphReport.Watches).
		Msg("Full index rebuild complete")
	return report, nil
}

// RebuildGraph wipes the graph and re-streams the catalog into it: movies
// with genres and people first, then users, follows and watches.
func (o *Orchestrator) RebuildGraph(ctx context.Context) (IndexReport, error) {
	if !o.graphMu.TryLock() {
		return IndexReport{Index: IndexGraph}, ErrRebuildInProgress
	}
	defer o.graphMu.Unlock()

	return o.runRebuild(ctx, IndexGraph, o.rebuildGraph)
}

// RebuildVector drops and recreates the collection, then embeds and upserts
// every movie in batches.
func (o *Orchestrator) RebuildVector(ctx context.Context) (IndexReport, error) {
	if !o.vectorMu.TryLock() {
		return IndexReport{Index: IndexVector}, ErrRebuildInProgress
	}
	defer o.vectorMu.Unlock()

	return o.runRebuild(ctx, IndexVector, o.rebuildVector)
}

func (o *Orchestrator) runRebuild(ctx context.Context, index string, fn func(context.Context, *IndexReport) error) (IndexReport, error) {
	o.setRebuilding(index, true)
	defer o.setRebuilding(index, false)

	report := IndexReport{Index: index, StartedAt: time.Now().UTC()}
	o.logger.Info().Str("index", index).Msg("Index rebuild started")

	err := fn(ctx, &report)
	report.Duration = time.Since(report.StartedAt)
	metrics.RecordRebuild(index, report.Duration, err)
	recordCounts(report)

	if err != nil {
		report.Error = err.Error()
		o.logger.Error().Err(err).Str("index", index).Dur("duration", report.Duration).Msg("Index rebuild failed")
	} else {
		o.logger.Info().
			Str("index", index).
			Dur("duration", report.Duration).
			Int64("movies", report.Movies).
			Msg("Index rebuild complete")
		if o.cache != nil {
			o.cache.Clear()
		}
	}

	o.mu.Lock()
	r := report
	if index == IndexGraph {
		o.status.LastGraph = &r
	} else {
		o.status.LastVector = &r
	}
	o.mu.Unlock()
	return report, err
}

func (o *Orchestrator) setRebuilding(index string, running bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if index == IndexGraph {
		o.status.GraphRebuilding = running
	} else {
		o.status.VectorRebuilding = running
	}
}

func (o *Orchestrator) rebuildGraph(ctx context.Context, report *IndexReport) error {
	if err := o.graph.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}
	if err := o.graph.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure graph schema: %w", err)
	}

	seen := make(map[personRole]struct{})
	people := make(map[int64]struct{})
	err := o.catalog.ForEachMovieBatch(ctx, o.opts.BatchSize, func(batch []catalog.MovieRecord) error {
		return o.writeBatch(ctx, IndexGraph, "movies", func(ctx context.Context) error {
			for i := range batch {
				if err := o.projectMovie(ctx, batch[i].Movie, batch[i].Credits, seen); err != nil {
					return err
				}
			}
			return nil
		}, func() {
			report.Movies += int64(len(batch))
			for i := range batch {
				for _, p := range batch[i].Credits.Actors {
					people[p.ID] = struct{}{}
				}
				for _, p := range batch[i].Credits.Directors {
					people[p.ID] = struct{}{}
				}
			}
		})
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild movies: %w", err)
	}
	report.People = int64(len(people))

	err = o.catalog.ForEachUserBatch(ctx, o.opts.BatchSize, func(batch []models.User) error {
		return o.writeBatch(ctx, IndexGraph, "users", func(ctx context.Context) error {
			return o.graph.BatchUpsertUsers(ctx, batch)
		}, func() { report.Users += int64(len(batch)) })
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild users: %w", err)
	}

	err = o.catalog.ForEachFollowBatch(ctx, o.opts.BatchSize, func(batch []models.Follow) error {
		return o.writeBatch(ctx, IndexGraph, "follows", func(ctx context.Context) error {
			return o.graph.BatchUpsertFollowsEdges(ctx, batch)
		}, func() { report.Follows += int64(len(batch)) })
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild follows: %w", err)
	}

	err = o.catalog.ForEachWatchBatch(ctx, o.opts.BatchSize, func(batch []models.WatchRecord) error {
		edges := make([]graph.WatchedEdge, len(batch))
		for i := range batch {
			edges[i] = watchedEdge(batch[i])
		}
		return o.writeBatch(ctx, IndexGraph, "watches", func(ctx context.Context) error {
			return o.graph.BatchUpsertWatchedEdges(ctx, edges)
		}, func() { report.Watches += int64(len(batch)) })
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild watches: %w", err)
	}
	return nil
}

func (o *Orchestrator) rebuildVector(ctx context.Context, report *IndexReport) error {
	spec := o.opts.Collection
	if err := o.vectors.DropCollection(ctx, spec.Name); err != nil && !errors.Is(err, vector.ErrCollectionNotFound) {
		return fmt.Errorf("failed to drop collection %s: %w", spec.Name, err)
	}
	if err := o.vectors.CreateCollection(ctx, spec); err != nil {
		if !errors.Is(err, vector.ErrCollectionExists) {
			return fmt.Errorf("failed to create collection %s: %w", spec.Name, err)
		}
		o.logger.Info().Str("collection", spec.Name).Msg("Vector collection already exists, reusing it")
	}

	err := o.catalog.ForEachMovieBatch(ctx, o.opts.VectorBatchSize, func(batch []catalog.MovieRecord) error {
		ids := make([]int64, len(batch))
		docs := make([]vector.Document, len(batch))
		for i := range batch {
			ids[i] = batch[i].Movie.ID
			docs[i] = movieDocument(batch[i].Movie)
		}
		return o.writeBatch(ctx, IndexVector, "movies", func(ctx context.Context) error {
			return o.vectors.UpsertBatch(ctx, spec.Name, ids, docs)
		}, func() { report.Movies += int64(len(batch)) })
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild vectors: %w", err)
	}
	return nil
}

// writeBatch runs write under the write timeout and retries the whole batch
// on failure. done runs once after a successful write.
func (o *Orchestrator) writeBatch(ctx context.Context, index, kind string, write func(context.Context) error, done func()) error {
	var err error
	for attempt := 1; attempt <= o.opts.BatchAttempts; attempt++ {
		wctx, cancel := context.WithTimeout(ctx, o.opts.WriteTimeout)
		err = write(wctx)
		cancel()
		if err == nil {
			done()
			return nil
		}
		if ctx.Err() != nil || models.IsArgument(err) {
			return err
		}
		if attempt == o.opts.BatchAttempts {
			break
		}

		o.logger.Warn().Err(err).
			Str("index", index).
			Str("kind", kind).
			Int("attempt", attempt).
			Msg("Batch write failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.opts.RetryDelay * time.Duration(attempt)):
		}
	}
	return err
}

func recordCounts(r IndexReport) {
	for kind, n := range map[string]int64{
		"movies":  r.Movies,
		"people":  r.People,
		"users":   r.Users,
		"follows": r.Follows,
		"watches": r.Watches,
	} {
		if n > 0 {
			metrics.RebuildRecords.WithLabelValues(r.Index, kind).Add(float64(n))
		}
	}
}
