// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

/*
orchestrator.go - Index Synchronization Orchestrator

The orchestrator projects the catalog into the two derived indexes:

  - Graph index: users, movies, people and genres with their edges
  - Vector index: one synopsis embedding per movie with its payload

Entry Points:
  - FullRebuild(): RebuildGraph then RebuildVector
  - RebuildGraph() / RebuildVector(): wipe and re-stream one index
  - IncrementalUpsert(): project a single catalog write, queueing it for
    retry when an index is unreachable
  - Apply(): project a change without queueing (used by the retry consumer)
  - EnsureCollection(): create the vector collection if it is missing

Thread Safety:
  - graphMu / vectorMu: one rebuild per index at a time (TryLock)
  - mu: protects the retry queue reference and the status snapshot
  - Incremental upserts take no lock; every index write is idempotent
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelgraph/internal/catalog"
	"github.com/tomtom215/reelgraph/internal/config"
	"github.com/tomtom215/reelgraph/internal/graph"
	"github.com/tomtom215/reelgraph/internal/logging"
	"github.com/tomtom215/reelgraph/internal/metrics"
	"github.com/tomtom215/reelgraph/internal/models"
	"github.com/tomtom215/reelgraph/internal/vector"
)

// ErrRebuildInProgress is returned when a rebuild of the same index is already running.
var ErrRebuildInProgress = errors.New("index rebuild already in progress")

// Catalog is the read side of the primary store used for projection.
type Catalog interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetMovie(ctx context.Context, id int64) (*models.Movie, error)
	MovieCredits(ctx context.Context, movieID int64) (models.Credits, error)
	GetWatch(ctx context.Context, userID, movieID int64) (*models.WatchRecord, error)

	ForEachMovieBatch(ctx context.Context, batchSize int, fn func([]catalog.MovieRecord) error) error
	ForEachUserBatch(ctx context.Context, batchSize int, fn func([]models.User) error) error
	ForEachFollowBatch(ctx context.Context, batchSize int, fn func([]models.Follow) error) error
	ForEachWatchBatch(ctx context.Context, batchSize int, fn func([]models.WatchRecord) error) error
}

// VectorIndex is the write side of the vector index.
type VectorIndex interface {
	Collection() string
	CreateCollection(ctx context.Context, spec vector.CollectionSpec) error
	DropCollection(ctx context.Context, name string) error
	UpsertBatch(ctx context.Context, collection string, ids []int64, docs []vector.Document) error
}

// RetryQueue accepts changes whose projection failed.
type RetryQueue interface {
	Enqueue(ctx context.Context, c Change) error
}

// Invalidator drops cached recommendations after a rebuild.
type Invalidator interface {
	Clear()
}

// Options configures an Orchestrator.
type Options struct {
	// BatchSize is the graph rebuild batch size. Default: 10000
	BatchSize int

	// VectorBatchSize is the vector rebuild batch size. Default: 256
	VectorBatchSize int

	// WriteTimeout bounds each batch write. Default: 30s
	WriteTimeout time.Duration

	// BatchAttempts is how many times a failed batch is written whole. Default: 3
	BatchAttempts int

	// RetryDelay is the pause before the second attempt; it grows linearly. Default: 500ms
	RetryDelay time.Duration

	// Collection describes the vector collection recreated by RebuildVector.
	// Name defaults to the vector index's collection.
	Collection vector.CollectionSpec
}

// OptionsFromConfig maps configuration sections onto Options.
func OptionsFromConfig(syncCfg *config.SyncConfig, vectorCfg *config.VectorConfig) Options {
	return Options{
		BatchSize:       syncCfg.BatchSize,
		VectorBatchSize: syncCfg.VectorBatchSize,
		WriteTimeout:    syncCfg.WriteTimeout,
		Collection: vector.CollectionSpec{
			Name:         vectorCfg.Collection,
			Distance:     vectorCfg.Distance,
			Quantization: vectorCfg.Quantization,
			OnDisk:       vectorCfg.OnDisk,
		},
	}
}

func (o *Options) applyDefaults(vectors VectorIndex) {
	if o.BatchSize <= 0 {
		o.BatchSize = 10000
	}
	if o.VectorBatchSize <= 0 {
		o.VectorBatchSize = 256
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 30 * time.Second
	}
	if o.BatchAttempts <= 0 {
		o.BatchAttempts = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 500 * time.Millisecond
	}
	if o.Collection.Name == "" {
		o.Collection.Name = vectors.Collection()
	}
}

// Orchestrator keeps the graph and vector indexes in step with the catalog.
type Orchestrator struct {
	catalog Catalog
	graph   graph.Index
	vectors VectorIndex
	cache   Invalidator
	opts    Options
	logger  zerolog.Logger

	graphMu  sync.Mutex
	vectorMu sync.Mutex

	mu     sync.RWMutex
	queue  RetryQueue
	status Status
}

// NewOrchestrator creates an orchestrator. cache may be nil.
func NewOrchestrator(cat Catalog, g graph.Index, vectors VectorIndex, cache Invalidator, opts Options) *Orchestrator {
	opts.applyDefaults(vectors)
	return &Orchestrator{
		catalog: cat,
		graph:   g,
		vectors: vectors,
		cache:   cache,
		opts:    opts,
		logger:  logging.WithComponent("sync"),
	}
}

// SetRetryQueue installs the queue that receives failed incremental changes.
// The queue consumer calls back into Apply, so it is attached after construction.
func (o *Orchestrator) SetRetryQueue(q RetryQueue) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queue = q
}

func (o *Orchestrator) retryQueue() RetryQueue {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.queue
}

// IncrementalUpsert projects one catalog write into both indexes. Missing
// catalog rows and malformed changes are returned as is. Any other failure
// hands the change to the retry queue and returns a DependencyError; its
// Queued flag tells the caller whether the change will be replayed.
func (o *Orchestrator) IncrementalUpsert(ctx context.Context, c Change) error {
	if err := c.Validate(); err != nil {
		metrics.RecordSync(string(c.Kind), "invalid")
		return err
	}

	err := o.Apply(ctx, c)
	if err == nil {
		metrics.RecordSync(string(c.Kind), "ok")
		return nil
	}
	if models.IsNotFound(err) || models.IsArgument(err) {
		metrics.RecordSync(string(c.Kind), "failed")
		return err
	}

	depErr := asDependency(c, err)
	queue := o.retryQueue()
	if queue == nil {
		metrics.RecordSync(string(c.Kind), "failed")
		o.logger.Error().Err(err).Str("change", c.String()).Msg("Index sync failed and no retry queue is configured")
		return depErr
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if qerr := queue.Enqueue(ctx, c); qerr != nil {
		metrics.RecordSync(string(c.Kind), "failed")
		o.logger.Error().Err(qerr).AnErr("sync_error", err).Str("change", c.String()).Msg("Failed to queue change for retry")
		return depErr
	}

	metrics.RecordSync(string(c.Kind), "queued")
	o.logger.Warn().Err(err).Str("change", c.String()).Str("change_id", c.ID).Msg("Index sync failed, change queued for retry")
	depErr.Queued = true
	return depErr
}

// Apply projects c into the indexes without queueing on failure. Nodes are
// written before the edges that reference them.
func (o *Orchestrator) Apply(ctx context.Context, c Change) error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.Kind {
	case ChangeMovie:
		return o.applyMovie(ctx, c.MovieID)
	case ChangeUser:
		user, err := o.loadUser(ctx, c.UserID)
		if err != nil {
			return err
		}
		return o.graph.UpsertUser(ctx, *user)
	case ChangeWatch:
		return o.applyWatch(ctx, c.UserID, c.MovieID)
	case ChangeFollow:
		return o.applyFollow(ctx, c.UserID, c.PersonID)
	}
	return nil
}

func (o *Orchestrator) applyMovie(ctx context.Context, movieID int64) error {
	movie, err := o.loadMovie(ctx, movieID)
	if err != nil {
		return err
	}
	credits, err := o.catalog.MovieCredits(ctx, movieID)
	if err != nil {
		return catalogError("movie_credits", err)
	}

	if err := o.projectMovie(ctx, *movie, credits, nil); err != nil {
		return err
	}

	upsert := func() error {
		return o.vectors.UpsertBatch(ctx, o.opts.Collection.Name,
			[]int64{movie.ID}, []vector.Document{movieDocument(*movie)})
	}
	err = upsert()
	if errors.Is(err, vector.ErrCollectionNotFound) {
		if err := o.EnsureCollection(ctx); err != nil {
			return err
		}
		err = upsert()
	}
	return err
}

// EnsureCollection creates the vector collection unless it already exists.
func (o *Orchestrator) EnsureCollection(ctx context.Context) error {
	spec := o.opts.Collection
	err := o.vectors.CreateCollection(ctx, spec)
	switch {
	case err == nil:
		o.logger.Info().Str("collection", spec.Name).Msg("Vector collection created")
		return nil
	case errors.Is(err, vector.ErrCollectionExists):
		o.logger.Debug().Str("collection", spec.Name).Msg("Vector collection already exists")
		return nil
	default:
		return fmt.Errorf("failed to create collection %s: %w", spec.Name, err)
	}
}

func (o *Orchestrator) applyWatch(ctx context.Context, userID, movieID int64) error {
	user, err := o.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	movie, err := o.loadMovie(ctx, movieID)
	if err != nil {
		return err
	}
	watch, err := o.catalog.GetWatch(ctx, userID, movieID)
	if err != nil {
		return catalogError("get_watch", err)
	}

	if err := o.graph.UpsertUser(ctx, *user); err != nil {
		return err
	}
	if err := o.graph.UpsertMovie(ctx, *movie, movie.Genres); err != nil {
		return err
	}
	return o.graph.UpsertWatchedEdge(ctx, watchedEdge(*watch))
}

// applyFollow writes the user node and the FOLLOWS edge. The person node is
// created when a movie crediting them is projected; until then the edge
// write is a no-op.
func (o *Orchestrator) applyFollow(ctx context.Context, userID, personID int64) error {
	user, err := o.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := o.graph.UpsertUser(ctx, *user); err != nil {
		return err
	}
	return o.graph.UpsertFollowsEdge(ctx, userID, personID)
}

// projectMovie writes the movie node, its genres, its people and their edges.
// seen skips person upserts already done during a rebuild; nil disables it.
func (o *Orchestrator) projectMovie(ctx context.Context, m models.Movie, credits models.Credits, seen map[personRole]struct{}) error {
	if err := o.graph.UpsertMovie(ctx, m, m.Genres); err != nil {
		return err
	}
	for _, p := range credits.Actors {
		if err := o.upsertPerson(ctx, p, models.RoleActor, seen); err != nil {
			return err
		}
		if err := o.graph.UpsertActsEdge(ctx, p.ID, m.ID); err != nil {
			return err
		}
	}
	for _, p := range credits.Directors {
		if err := o.upsertPerson(ctx, p, models.RoleDirector, seen); err != nil {
			return err
		}
		if err := o.graph.UpsertDirectsEdge(ctx, p.ID, m.ID); err != nil {
			return err
		}
	}
	return nil
}

type personRole struct {
	id   int64
	role models.Role
}

func (o *Orchestrator) upsertPerson(ctx context.Context, p models.Person, role models.Role, seen map[personRole]struct{}) error {
	key := personRole{id: p.ID, role: role}
	if seen != nil {
		if _, ok := seen[key]; ok {
			return nil
		}
	}
	if err := o.graph.UpsertPerson(ctx, p, role); err != nil {
		return err
	}
	if seen != nil {
		seen[key] = struct{}{}
	}
	return nil
}

func (o *Orchestrator) loadUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := o.catalog.GetUser(ctx, id)
	if err != nil {
		return nil, catalogError("get_user", err)
	}
	return user, nil
}

func (o *Orchestrator) loadMovie(ctx context.Context, id int64) (*models.Movie, error) {
	movie, err := o.catalog.GetMovie(ctx, id)
	if err != nil {
		return nil, catalogError("get_movie", err)
	}
	return movie, nil
}

// catalogError keeps NotFoundError intact and marks everything else as a
// catalog dependency failure.
func catalogError(op string, err error) error {
	if models.IsNotFound(err) || models.IsDependency(err) {
		return err
	}
	return models.NewDependency("catalog", op, err)
}

// asDependency returns a fresh DependencyError for err so that setting Queued
// never mutates an error owned by someone else.
func asDependency(c Change, err error) *models.DependencyError {
	var dep *models.DependencyError
	if errors.As(err, &dep) {
		clone := *dep
		return &clone
	}
	return models.NewDependency("sync", string(c.Kind), err)
}

func movieDocument(m models.Movie) vector.Document {
	return vector.Document{Text: m.Synopsis, Payload: vector.PayloadFromMovie(m)}
}

func watchedEdge(w models.WatchRecord) graph.WatchedEdge {
	return graph.WatchedEdge{
		UserID:    w.UserID,
		MovieID:   w.MovieID,
		Rating:    w.Rating,
		WatchedAt: w.WatchedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

// String identifies the orchestrator in logs.
func (o *Orchestrator) String() string {
	return fmt.Sprintf("sync-orchestrator(%s)", o.opts.Collection.Name)
}
