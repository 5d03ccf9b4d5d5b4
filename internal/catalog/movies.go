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
	"strings"

	"github.com/tomtom215/reelgraph/internal/models"
)

const movieColumns = `id, title, release_year, duration, synopsis, imdb_id, poster_url, avg_rating`

// GetMovie loads a movie and its genres.
func (s *Store) GetMovie(ctx context.Context, id int64) (*models.Movie, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := s.conn.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
	m, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("movie", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movie %d: %w", id, err)
	}

	genres, err := s.genresForRange(ctx, id, id)
	if err != nil {
		return nil, err
	}
	m.Genres = nonNil(genres[id])
	return m, nil
}

// GetMovieByIMDbID loads a movie by its IMDb id.
func (s *Store) GetMovieByIMDbID(ctx context.Context, imdbID string) (*models.Movie, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var id int64
	err := s.conn.QueryRowContext(ctx, `SELECT id FROM movies WHERE imdb_id = ?`, imdbID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("movie", imdbID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up movie %s: %w", imdbID, err)
	}
	return s.GetMovie(ctx, id)
}

// CreateMovieIfAbsent inserts m unless a movie with the same IMDb id exists.
// On return m holds the stored row (the existing one when created is false).
// Genres on m are ignored; use SetMovieGenres.
func (s *Store) CreateMovieIfAbsent(ctx context.Context, m *models.Movie) (created bool, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if m.IMDbID != "" {
		existing, err := s.GetMovieByIMDbID(ctx, m.IMDbID)
		switch {
		case err == nil:
			*m = *existing
			return false, nil
		case !models.IsNotFound(err):
			return false, err
		}
	}

	var imdb interface{}
	if m.IMDbID != "" {
		imdb = m.IMDbID
	}

	if m.ID > 0 {
		_, err = s.conn.ExecContext(ctx,
			`INSERT INTO movies (id, title, release_year, duration, synopsis, imdb_id, poster_url)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.Title, m.ReleaseYear, m.Duration, m.Synopsis, imdb, m.PosterURL)
	} else {
		err = s.conn.QueryRowContext(ctx,
			`INSERT INTO movies (title, release_year, duration, synopsis, imdb_id, poster_url)
			 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
			m.Title, m.ReleaseYear, m.Duration, m.Synopsis, imdb, m.PosterURL).Scan(&m.ID)
	}
	if err != nil {
		if isUniqueConstraintError(err) {
			// Lost a race with a concurrent insert of the same IMDb id.
			if m.IMDbID != "" {
				if existing, gerr := s.GetMovieByIMDbID(ctx, m.IMDbID); gerr == nil {
					*m = *existing
					return false, nil
				}
			}
			return false, &models.ConflictError{Kind: "movie", Key: fmt.Sprint(m.ID)}
		}
		return false, fmt.Errorf("failed to create movie: %w", err)
	}
	if m.Genres == nil {
		m.Genres = []string{}
	}
	return true, nil
}

// SetMovieGenres replaces the genre links of a movie, creating genres as needed.
// Names are trimmed; blanks and duplicates are skipped.
func (s *Store) SetMovieGenres(ctx context.Context, movieID int64, names []string) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	if _, err := tx.ExecContext(ctx, `DELETE FROM movie_genres WHERE movie_id = ?`, movieID); err != nil {
		return fmt.Errorf("failed to clear genres for movie %d: %w", movieID, err)
	}

	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO genres (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name); err != nil {
			return fmt.Errorf("failed to ensure genre %s: %w", name, err)
		}
		var genreID int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM genres WHERE name = ?`, name).Scan(&genreID); err != nil {
			return fmt.Errorf("failed to resolve genre %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO movie_genres (movie_id, genre_id) VALUES (?, ?)`, movieID, genreID); err != nil {
			return fmt.Errorf("failed to link genre %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit genres for movie %d: %w", movieID, err)
	}
	return nil
}

// RecomputeAvgRating sets movies.avg_rating from rated watch records and returns it.
// A movie with no ratings gets NULL, reported as 0.
func (s *Store) RecomputeAvgRating(ctx context.Context, movieID int64) (float64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var avg sql.NullFloat64
	err := s.conn.QueryRowContext(ctx,
		`SELECT AVG(rating) FROM watch_history WHERE movie_id = ? AND rating IS NOT NULL`, movieID).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to average ratings for movie %d: %w", movieID, err)
	}

	var value interface{}
	if avg.Valid {
		value = avg.Float64
	}
	if _, err := s.conn.ExecContext(ctx, `UPDATE movies SET avg_rating = ? WHERE id = ?`, value, movieID); err != nil {
		return 0, fmt.Errorf("failed to store avg rating for movie %d: %w", movieID, err)
	}
	return avg.Float64, nil
}

// MoviePopularity counts the users who watched a movie.
func (s *Store) MoviePopularity(ctx context.Context, movieID int64) (int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var n int64
	if err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM watch_history WHERE movie_id = ?`, movieID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count watchers of movie %d: %w", movieID, err)
	}
	return n, nil
}

func scanMovie(row rowScanner) (*models.Movie, error) {
	var (
		m    models.Movie
		imdb sql.NullString
		avg  sql.NullFloat64
	)
	if err := row.Scan(&m.ID, &m.Title, &m.ReleaseYear, &m.Duration, &m.Synopsis, &imdb, &m.PosterURL, &avg); err != nil {
		return nil, err
	}
	m.IMDbID = imdb.String
	m.AvgRating = avg.Float64
	return &m, nil
}

// genresForRange returns genre names keyed by movie id for ids in [lo, hi].
func (s *Store) genresForRange(ctx context.Context, lo, hi int64) (map[int64][]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT mg.movie_id, g.name
		 FROM movie_genres mg JOIN genres g ON g.id = mg.genre_id
		 WHERE mg.movie_id BETWEEN ? AND ?
		 ORDER BY mg.movie_id, g.name`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("failed to query genres: %w", err)
	}
	defer closeQuietly(rows)

	out := make(map[int64][]string)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
