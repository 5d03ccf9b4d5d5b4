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

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/tomtom215/reelgraph/internal/config"
	"github.com/tomtom215/reelgraph/internal/logging"
	"github.com/tomtom215/reelgraph/internal/metrics"
	"github.com/tomtom215/reelgraph/internal/models"
)

const (
	defaultQueryTimeout = 10 * time.Second
	deleteBatchSize     = 10000
)

// Runner executes one Cypher statement and buffers its result.
type Runner interface {
	Run(ctx context.Context, query string, params map[string]any, write bool) (*neo4j.EagerResult, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// DriverRunner runs statements through the official driver.
type DriverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewDriverRunner creates the driver. Connections are opened lazily, so an
// unreachable server surfaces on the first query or on VerifyConnectivity.
func NewDriverRunner(cfg *config.GraphConfig) (*DriverRunner, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxPoolSize
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	return &DriverRunner{driver: driver, database: cfg.Database}, nil
}

// Run executes query with managed retries. Reads are routed to readers.
func (r *DriverRunner) Run(ctx context.Context, query string, params map[string]any, write bool) (*neo4j.EagerResult, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithDatabase(r.database)}
	if !write {
		opts = append(opts, neo4j.ExecuteQueryWithReadersRouting())
	}
	result, err := neo4j.ExecuteQuery(ctx, r.driver, query, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}
	return result, nil
}

// VerifyConnectivity checks the server answers.
func (r *DriverRunner) VerifyConnectivity(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

// Close releases the driver's connection pool.
func (r *DriverRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// Neo4jIndex implements Index with Cypher.
type Neo4jIndex struct {
	runner  Runner
	timeout time.Duration
}

var _ Index = (*Neo4jIndex)(nil)

// NewNeo4jIndex wraps runner. Every call is bounded by timeout.
func NewNeo4jIndex(runner Runner, timeout time.Duration) *Neo4jIndex {
	return &Neo4jIndex{runner: runner, timeout: timeoutOr(timeout)}
}

func timeoutOr(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultQueryTimeout
	}
	return d
}

// run applies the timeout, records metrics and wraps failures as DependencyError.
func (g *Neo4jIndex) run(ctx context.Context, op, query string, params map[string]any, write bool) (*neo4j.EagerResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	result, err := g.runner.Run(ctx, query, params, write)
	metrics.RecordGraphQuery(op, time.Since(start), err)
	if err != nil {
		return nil, models.NewDependency("graph", op, err)
	}
	return result, nil
}

// EnsureSchema creates identity constraints.
func (g *Neo4jIndex) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaCypher {
		if _, err := g.run(ctx, "ensure_schema", stmt, nil, true); err != nil {
			return err
		}
	}
	return nil
}

// UpsertUser creates the user node if absent.
func (g *Neo4jIndex) UpsertUser(ctx context.Context, u models.User) error {
	_, err := g.run(ctx, "upsert_user", upsertUserCypher, userParams(u), true)
	return err
}

// BatchUpsertUsers creates absent user nodes in one statement.
func (g *Neo4jIndex) BatchUpsertUsers(ctx context.Context, users []models.User) error {
	if len(users) == 0 {
		return nil
	}
	rows := make([]any, len(users))
	for i := range users {
		rows[i] = userParams(users[i])
	}
	_, err := g.run(ctx, "batch_upsert_users", batchUpsertUsersCypher, map[string]any{"rows": rows}, true)
	return err
}

func userParams(u models.User) map[string]any {
	var birth any
	if !u.BirthDate.IsZero() {
		birth = u.BirthDate.Format("2006-01-02")
	}
	return map[string]any{"id": u.ID, "username": u.Username, "birth_date": birth}
}

// UpsertMovie creates the movie node if absent and merges its genre edges.
func (g *Neo4jIndex) UpsertMovie(ctx context.Context, m models.Movie, genres []string) error {
	names := make([]any, 0, len(genres))
	for _, name := range sortedGenres(genres) {
		names = append(names, name)
	}
	params := map[string]any{
		"id":           m.ID,
		"title":        m.Title,
		"release_year": int64(m.ReleaseYear),
		"synopsis":     m.Synopsis,
		"duration":     int64(m.Duration),
		"poster_url":   m.PosterURL,
		"imdb_id":      m.IMDbID,
		"genres":       names,
	}
	_, err := g.run(ctx, "upsert_movie", upsertMovieCypher, params, true)
	return err
}

// UpsertPerson creates the person node if absent and adds the role label.
func (g *Neo4jIndex) UpsertPerson(ctx context.Context, p models.Person, role models.Role) error {
	var query string
	switch role {
	case models.RoleActor:
		query = upsertActorCypher
	case models.RoleDirector:
		query = upsertDirectorCypher
	default:
		return &models.ArgumentError{Message: fmt.Sprintf("unknown person role %q", role)}
	}
	params := map[string]any{
		"id":         p.ID,
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"birth_year": int64(p.BirthYear),
	}
	_, err := g.run(ctx, "upsert_person", query, params, true)
	return err
}

// UpsertActsEdge merges Person -ACTS-> Movie.
func (g *Neo4jIndex) UpsertActsEdge(ctx context.Context, personID, movieID int64) error {
	_, err := g.run(ctx, "upsert_acts", upsertActsCypher,
		map[string]any{"person_id": personID, "movie_id": movieID}, true)
	return err
}

// UpsertDirectsEdge merges Person -DIRECTS-> Movie.
func (g *Neo4jIndex) UpsertDirectsEdge(ctx context.Context, personID, movieID int64) error {
	_, err := g.run(ctx, "upsert_directs", upsertDirectsCypher,
		map[string]any{"person_id": personID, "movie_id": movieID}, true)
	return err
}

// UpsertFollowsEdge merges User -FOLLOWS-> Person.
func (g *Neo4jIndex) UpsertFollowsEdge(ctx context.Context, userID, personID int64) error {
	_, err := g.run(ctx, "upsert_follows", upsertFollowsCypher,
		map[string]any{"user_id": userID, "person_id": personID}, true)
	return err
}

// BatchUpsertFollowsEdges merges many FOLLOWS edges in one statement.
func (g *Neo4jIndex) BatchUpsertFollowsEdges(ctx context.Context, follows []models.Follow) error {
	if len(follows) == 0 {
		return nil
	}
	rows := make([]any, len(follows))
	for i, f := range follows {
		rows[i] = map[string]any{"user_id": f.UserID, "person_id": f.PersonID}
	}
	_, err := g.run(ctx, "batch_upsert_follows", batchUpsertFollowsCypher, map[string]any{"rows": rows}, true)
	return err
}

// UpsertWatchedEdge merges User -WATCHED-> Movie and reconciles the rating.
func (g *Neo4jIndex) UpsertWatchedEdge(ctx context.Context, e WatchedEdge) error {
	_, err := g.run(ctx, "upsert_watched", upsertWatchedCypher, watchedParams(e), true)
	return err
}

// BatchUpsertWatchedEdges merges many WATCHED edges in one statement.
func (g *Neo4jIndex) BatchUpsertWatchedEdges(ctx context.Context, edges []WatchedEdge) error {
	if len(edges) == 0 {
		return nil
	}
	rows := make([]any, len(edges))
	for i := range edges {
		rows[i] = watchedParams(edges[i])
	}
	_, err := g.run(ctx, "batch_upsert_watched", batchUpsertWatchedCypher, map[string]any{"rows": rows}, true)
	return err
}

func watchedParams(e WatchedEdge) map[string]any {
	var rating any
	if e.Rating != nil {
		rating = *e.Rating
	}
	return map[string]any{
		"user_id":    e.UserID,
		"movie_id":   e.MovieID,
		"rating":     rating,
		"updated_at": updatedAt(e),
	}
}

// UserBased runs the co-watcher collaborative query.
func (g *Neo4jIndex) UserBased(ctx context.Context, username string, limit int) ([]models.MovieSummary, error) {
	result, err := g.run(ctx, "user_based", userBasedCypher, map[string]any{
		"username": username,
		"limit":    int64(limitOr(limit, DefaultUserBasedLimit)),
	}, false)
	if err != nil {
		return nil, err
	}
	return summariesFromRecords(result.Records), nil
}

// FollowBased runs the followed-people query.
func (g *Neo4jIndex) FollowBased(ctx context.Context, username string, limit int) ([]models.MovieSummary, error) {
	result, err := g.run(ctx, "follow_based", followBasedCypher, map[string]any{
		"username": username,
		"limit":    int64(limitOr(limit, DefaultFollowBasedLimit)),
	}, false)
	if err != nil {
		return nil, err
	}
	return summariesFromRecords(result.Records), nil
}

// ContentBased runs the shared-genre query.
func (g *Neo4jIndex) ContentBased(ctx context.Context, movieID int64, limit int) ([]models.MovieSummary, error) {
	result, err := g.run(ctx, "content_based", contentBasedCypher, map[string]any{
		"movie_id": movieID,
		"limit":    int64(limitOr(limit, DefaultContentLimit)),
	}, false)
	if err != nil {
		return nil, err
	}
	return summariesFromRecords(result.Records), nil
}

// DeleteAll removes every node and edge in bounded batches.
func (g *Neo4jIndex) DeleteAll(ctx context.Context) error {
	var total int64
	for {
		result, err := g.run(ctx, "delete_all", deleteBatchCypher,
			map[string]any{"limit": int64(deleteBatchSize)}, true)
		if err != nil {
			return err
		}
		var deleted int64
		if len(result.Records) > 0 {
			deleted = recordInt64(result.Records[0], "deleted")
		}
		total += deleted
		if deleted == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	logging.Debug().Int64("nodes", total).Msg("Graph index cleared")
	return nil
}

// Ping verifies connectivity.
func (g *Neo4jIndex) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.runner.VerifyConnectivity(ctx)
}

// Close closes the runner.
func (g *Neo4jIndex) Close(ctx context.Context) error {
	return g.runner.Close(ctx)
}

func summariesFromRecords(records []*neo4j.Record) []models.MovieSummary {
	out := make([]models.MovieSummary, 0, len(records))
	for _, rec := range records {
		s := models.MovieSummary{
			ID:          recordInt64(rec, "id"),
			Title:       recordString(rec, "title"),
			Duration:    int(recordInt64(rec, "duration")),
			PosterURL:   recordString(rec, "poster_url"),
			ReleaseYear: int(recordInt64(rec, "release_year")),
			Synopsis:    recordString(rec, "synopsis"),
			IMDbID:      recordString(rec, "imdb_id"),
			Genres:      recordStrings(rec, "genres"),
		}
		sort.Strings(s.Genres)
		if _, ok := rec.Get("popularity"); ok {
			pop := recordInt64(rec, "popularity")
			s.Popularity = &pop
		}
		if _, ok := rec.Get("avg_rating"); ok {
			avg := recordFloat64(rec, "avg_rating")
			s.AvgRating = &avg
		}
		out = append(out, s)
	}
	return out
}
