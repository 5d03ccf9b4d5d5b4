// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/reelgraph/internal/models"
)

// WatchedMovie is one entry of a user's watch history.
type WatchedMovie struct {
	Movie      models.Movie `json:"movie"`
	WatchedAt  time.Time    `json:"watched_at"`
	Rating     *float64     `json:"rating,omitempty"`
	Popularity int64        `json:"popularity"`
}

// UpsertWatch creates the (user, movie) watch record or overwrites its rating
// and timestamp. It reports whether the record was new. updated_at is set from
// the server clock and never moves backwards, so it orders writes even when
// the client backdates watched_at.
func (s *Store) UpsertWatch(ctx context.Context, w models.WatchRecord) (created bool, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if w.WatchedAt.IsZero() {
		w.WatchedAt = time.Now().UTC()
	}

	var rating interface{}
	if w.Rating != nil {
		rating = *w.Rating
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	var prev sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT updated_at FROM watch_history WHERE user_id = ? AND movie_id = ?`, w.UserID, w.MovieID).Scan(&prev)
	stamp := time.Now().UTC()
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO watch_history (user_id, movie_id, watched_at, rating, updated_at) VALUES (?, ?, ?, ?, ?)`,
			w.UserID, w.MovieID, w.WatchedAt, rating, stamp); err != nil {
			return false, fmt.Errorf("failed to insert watch record: %w", err)
		}
		created = true
	case err != nil:
		return false, fmt.Errorf("failed to look up watch record: %w", err)
	default:
		// The graph compares stamps at millisecond precision.
		if next := prev.Time.Add(time.Millisecond); prev.Valid && stamp.Before(next) {
			stamp = next
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE watch_history SET rating = ?, watched_at = ?, updated_at = ? WHERE user_id = ? AND movie_id = ?`,
			rating, w.WatchedAt, stamp, w.UserID, w.MovieID); err != nil {
			return false, fmt.Errorf("failed to update watch record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit watch record: %w", err)
	}
	return created, nil
}

// GetWatch returns the watch record for (user, movie).
func (s *Store) GetWatch(ctx context.Context, userID, movieID int64) (*models.WatchRecord, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	w := models.WatchRecord{UserID: userID, MovieID: movieID}
	var (
		rating  sql.NullFloat64
		updated sql.NullTime
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT watched_at, rating, updated_at FROM watch_history WHERE user_id = ? AND movie_id = ?`,
		userID, movieID).Scan(&w.WatchedAt, &rating, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("watch", fmt.Sprintf("%d/%d", userID, movieID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watch record: %w", err)
	}
	if rating.Valid {
		r := rating.Float64
		w.Rating = &r
	}
	w.UpdatedAt = updated.Time
	return &w, nil
}

// UserWatchHistory lists a user's watched movies, newest first, with each
// movie's watcher count.
func (s *Store) UserWatchHistory(ctx context.Context, userID int64) ([]WatchedMovie, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT m.id, m.title, m.release_year, m.duration, m.synopsis, m.imdb_id, m.poster_url, m.avg_rating,
		        w.watched_at, w.rating,
		        (SELECT COUNT(*) FROM watch_history p WHERE p.movie_id = m.id) AS popularity
		 FROM watch_history w JOIN movies m ON m.id = w.movie_id
		 WHERE w.user_id = ?
		 ORDER BY w.watched_at DESC, m.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watch history: %w", err)
	}
	defer closeQuietly(rows)

	out := make([]WatchedMovie, 0)
	for rows.Next() {
		var (
			wm     WatchedMovie
			imdb   sql.NullString
			avg    sql.NullFloat64
			rating sql.NullFloat64
		)
		if err := rows.Scan(&wm.Movie.ID, &wm.Movie.Title, &wm.Movie.ReleaseYear, &wm.Movie.Duration,
			&wm.Movie.Synopsis, &imdb, &wm.Movie.PosterURL, &avg,
			&wm.WatchedAt, &rating, &wm.Popularity); err != nil {
			return nil, fmt.Errorf("failed to scan watch history: %w", err)
		}
		wm.Movie.IMDbID = imdb.String
		wm.Movie.AvgRating = avg.Float64
		if rating.Valid {
			r := rating.Float64
			wm.Rating = &r
		}
		out = append(out, wm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		genres, err := s.genresForRange(ctx, out[i].Movie.ID, out[i].Movie.ID)
		if err != nil {
			return nil, err
		}
		out[i].Movie.Genres = nonNil(genres[out[i].Movie.ID])
	}
	return out, nil
}

// AddFollow records that a user follows a person. It reports whether the
// follow was new.
func (s *Store) AddFollow(ctx context.Context, f models.Follow) (created bool, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var exists int
	err = s.conn.QueryRowContext(ctx,
		`SELECT 1 FROM follows WHERE user_id = ? AND person_id = ?`, f.UserID, f.PersonID).Scan(&exists)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("failed to look up follow: %w", err)
	}

	if _, err := s.conn.ExecContext(ctx,
		`INSERT INTO follows (user_id, person_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		f.UserID, f.PersonID); err != nil {
		return false, fmt.Errorf("failed to insert follow: %w", err)
	}
	return true, nil
}

// IsFollowing reports whether a user follows a person.
func (s *Store) IsFollowing(ctx context.Context, userID, personID int64) (bool, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var n int64
	if err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM follows WHERE user_id = ? AND person_id = ?`, userID, personID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return n > 0, nil
}
