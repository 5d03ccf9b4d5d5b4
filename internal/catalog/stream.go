// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/reelgraph/internal/models"
)

// The ForEach* readers page through a table by primary key and hand each page
// to fn. No cursor stays open while fn runs, so fn may write elsewhere for as
// long as it needs. Returning an error from fn stops the iteration.

// MovieRecord is a movie with its genres and credits.
type MovieRecord struct {
	Movie   models.Movie
	Credits models.Credits
}

// Counts holds row counts of the main tables.
type Counts struct {
	Users   int64 `json:"users"`
	Movies  int64 `json:"movies"`
	People  int64 `json:"people"`
	Follows int64 `json:"follows"`
	Watches int64 `json:"watches"`
}

// ForEachMovieBatch streams every movie with genres and credits in id order.
func (s *Store) ForEachMovieBatch(ctx context.Context, batchSize int, fn func([]MovieRecord) error) error {
	if batchSize <= 0 {
		return &models.ArgumentError{Message: "batch size must be positive"}
	}

	var after int64
	for {
		batch, err := s.movieBatch(ctx, after, batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		after = batch[len(batch)-1].Movie.ID
	}
}

func (s *Store) movieBatch(ctx context.Context, after int64, limit int) ([]MovieRecord, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE id > ? ORDER BY id LIMIT ?`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	batch := make([]MovieRecord, 0, limit)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			closeQuietly(rows)
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		batch = append(batch, MovieRecord{Movie: *m})
	}
	err = rows.Err()
	closeQuietly(rows)
	if err != nil || len(batch) == 0 {
		return batch, err
	}

	// Pages are contiguous in id order, so a BETWEEN on the first and last
	// id selects exactly this page's links.
	lo, hi := batch[0].Movie.ID, batch[len(batch)-1].Movie.ID
	genres, err := s.genresForRange(ctx, lo, hi)
	if err != nil {
		return nil, err
	}
	credits, err := s.creditsForRange(ctx, lo, hi)
	if err != nil {
		return nil, err
	}
	for i := range batch {
		id := batch[i].Movie.ID
		batch[i].Movie.Genres = nonNil(genres[id])
		batch[i].Credits = credits[id]
	}
	return batch, nil
}

// ForEachUserBatch streams every user in id order.
func (s *Store) ForEachUserBatch(ctx context.Context, batchSize int, fn func([]models.User) error) error {
	if batchSize <= 0 {
		return &models.ArgumentError{Message: "batch size must be positive"}
	}

	var after int64
	for {
		batch, err := s.userBatch(ctx, after, batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		after = batch[len(batch)-1].ID
	}
}

func (s *Store) userBatch(ctx context.Context, after int64, limit int) ([]models.User, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, username, birth_date FROM users WHERE id > ? ORDER BY id LIMIT ?`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer closeQuietly(rows)

	batch := make([]models.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		batch = append(batch, *u)
	}
	return batch, rows.Err()
}

// ForEachFollowBatch streams every follow ordered by (user_id, person_id).
func (s *Store) ForEachFollowBatch(ctx context.Context, batchSize int, fn func([]models.Follow) error) error {
	if batchSize <= 0 {
		return &models.ArgumentError{Message: "batch size must be positive"}
	}

	var afterUser, afterPerson int64
	for {
		batch, err := s.followBatch(ctx, afterUser, afterPerson, batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		last := batch[len(batch)-1]
		afterUser, afterPerson = last.UserID, last.PersonID
	}
}

func (s *Store) followBatch(ctx context.Context, afterUser, afterPerson int64, limit int) ([]models.Follow, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT user_id, person_id FROM follows
		 WHERE user_id > ? OR (user_id = ? AND person_id > ?)
		 ORDER BY user_id, person_id LIMIT ?`, afterUser, afterUser, afterPerson, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query follows: %w", err)
	}
	defer closeQuietly(rows)

	batch := make([]models.Follow, 0, limit)
	for rows.Next() {
		var f models.Follow
		if err := rows.Scan(&f.UserID, &f.PersonID); err != nil {
			return nil, fmt.Errorf("failed to scan follow: %w", err)
		}
		batch = append(batch, f)
	}
	return batch, rows.Err()
}

// ForEachWatchBatch streams every watch record ordered by (user_id, movie_id).
func (s *Store) ForEachWatchBatch(ctx context.Context, batchSize int, fn func([]models.WatchRecord) error) error {
	if batchSize <= 0 {
		return &models.ArgumentError{Message: "batch size must be positive"}
	}

	var afterUser, afterMovie int64
	for {
		batch, err := s.watchBatch(ctx, afterUser, afterMovie, batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		last := batch[len(batch)-1]
		afterUser, afterMovie = last.UserID, last.MovieID
	}
}

func (s *Store) watchBatch(ctx context.Context, afterUser, afterMovie int64, limit int) ([]models.WatchRecord, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT user_id, movie_id, watched_at, rating, updated_at FROM watch_history
		 WHERE user_id > ? OR (user_id = ? AND movie_id > ?)
		 ORDER BY user_id, movie_id LIMIT ?`, afterUser, afterUser, afterMovie, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query watch history: %w", err)
	}
	defer closeQuietly(rows)

	batch := make([]models.WatchRecord, 0, limit)
	for rows.Next() {
		var (
			w       models.WatchRecord
			rating  sql.NullFloat64
			updated sql.NullTime
		)
		if err := rows.Scan(&w.UserID, &w.MovieID, &w.WatchedAt, &rating, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan watch record: %w", err)
		}
		w.UpdatedAt = updated.Time
		if rating.Valid {
			r := rating.Float64
			w.Rating = &r
		}
		batch = append(batch, w)
	}
	return batch, rows.Err()
}

// Counts returns row counts of the main tables.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var c Counts
	err := s.conn.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM movies),
		(SELECT COUNT(*) FROM people),
		(SELECT COUNT(*) FROM follows),
		(SELECT COUNT(*) FROM watch_history)`).Scan(&c.Users, &c.Movies, &c.People, &c.Follows, &c.Watches)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count catalog rows: %w", err)
	}
	return c, nil
}
