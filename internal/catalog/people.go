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

	"github.com/tomtom215/reelgraph/internal/models"
)

// FindOrCreatePerson matches a person on first name, last name and birth year,
// inserting a new row when none matches. On return p.ID is set.
func (s *Store) FindOrCreatePerson(ctx context.Context, p *models.Person) (created bool, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err = s.conn.QueryRowContext(ctx,
		`SELECT id FROM people WHERE first_name = ? AND last_name = ? AND birth_year = ? ORDER BY id LIMIT 1`,
		p.FirstName, p.LastName, p.BirthYear).Scan(&p.ID)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("failed to look up person %s: %w", p.FullName(), err)
	}

	if err := s.CreatePerson(ctx, p); err != nil {
		return false, err
	}
	return true, nil
}

// CreatePerson inserts a person. A zero ID is assigned from the sequence.
func (s *Store) CreatePerson(ctx context.Context, p *models.Person) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var err error
	if p.ID > 0 {
		_, err = s.conn.ExecContext(ctx,
			`INSERT INTO people (id, first_name, last_name, birth_year) VALUES (?, ?, ?, ?)`,
			p.ID, p.FirstName, p.LastName, p.BirthYear)
	} else {
		err = s.conn.QueryRowContext(ctx,
			`INSERT INTO people (first_name, last_name, birth_year) VALUES (?, ?, ?) RETURNING id`,
			p.FirstName, p.LastName, p.BirthYear).Scan(&p.ID)
	}
	if err != nil {
		if isUniqueConstraintError(err) {
			return &models.ConflictError{Kind: "person", Key: fmt.Sprint(p.ID)}
		}
		return fmt.Errorf("failed to create person %s: %w", p.FullName(), err)
	}
	return nil
}

// GetPerson loads a person by ID.
func (s *Store) GetPerson(ctx context.Context, id int64) (*models.Person, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var p models.Person
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, birth_year FROM people WHERE id = ?`, id).
		Scan(&p.ID, &p.FirstName, &p.LastName, &p.BirthYear)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("person", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person %d: %w", id, err)
	}
	return &p, nil
}

// SetMovieCredits replaces the people credited with role on a movie.
func (s *Store) SetMovieCredits(ctx context.Context, movieID int64, role models.Role, personIDs []int64) error {
	table, err := creditTable(string(role))
	if err != nil {
		return &models.ArgumentError{Message: err.Error()}
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	//nolint:gosec // table comes from creditTable, never from input
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE movie_id = ?`, movieID); err != nil {
		return fmt.Errorf("failed to clear %s for movie %d: %w", table, movieID, err)
	}

	seen := make(map[int64]struct{}, len(personIDs))
	for _, pid := range personIDs {
		if _, dup := seen[pid]; dup {
			continue
		}
		seen[pid] = struct{}{}
		//nolint:gosec // table comes from creditTable, never from input
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+table+` (movie_id, person_id) VALUES (?, ?)`, movieID, pid); err != nil {
			return fmt.Errorf("failed to link person %d to movie %d: %w", pid, movieID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credits for movie %d: %w", movieID, err)
	}
	return nil
}

// MovieCredits returns the actors and directors of a movie.
func (s *Store) MovieCredits(ctx context.Context, movieID int64) (models.Credits, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	byMovie, err := s.creditsForRange(ctx, movieID, movieID)
	if err != nil {
		return models.Credits{}, err
	}
	return byMovie[movieID], nil
}

// creditsForRange returns credits keyed by movie id for ids in [lo, hi].
func (s *Store) creditsForRange(ctx context.Context, lo, hi int64) (map[int64]models.Credits, error) {
	out := make(map[int64]models.Credits)
	for _, role := range []models.Role{models.RoleActor, models.RoleDirector} {
		table, _ := creditTable(string(role))
		//nolint:gosec // table comes from creditTable, never from input
		rows, err := s.conn.QueryContext(ctx,
			`SELECT c.movie_id, p.id, p.first_name, p.last_name, p.birth_year
			 FROM `+table+` c JOIN people p ON p.id = c.person_id
			 WHERE c.movie_id BETWEEN ? AND ?
			 ORDER BY c.movie_id, p.id`, lo, hi)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", table, err)
		}

		for rows.Next() {
			var (
				movieID int64
				p       models.Person
			)
			if err := rows.Scan(&movieID, &p.ID, &p.FirstName, &p.LastName, &p.BirthYear); err != nil {
				closeQuietly(rows)
				return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
			}
			c := out[movieID]
			if role == models.RoleActor {
				c.Actors = append(c.Actors, p)
			} else {
				c.Directors = append(c.Directors, p)
			}
			out[movieID] = c
		}
		err = rows.Err()
		closeQuietly(rows)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
