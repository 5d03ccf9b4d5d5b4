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

// CreateUser inserts a user and sets its ID. A taken username returns a ConflictError.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var birth interface{}
	if !u.BirthDate.IsZero() {
		birth = u.BirthDate
	}

	var err error
	if u.ID > 0 {
		_, err = s.conn.ExecContext(ctx,
			`INSERT INTO users (id, username, birth_date) VALUES (?, ?, ?)`,
			u.ID, u.Username, birth)
	} else {
		err = s.conn.QueryRowContext(ctx,
			`INSERT INTO users (username, birth_date) VALUES (?, ?) RETURNING id`,
			u.Username, birth).Scan(&u.ID)
	}
	if err != nil {
		if isUniqueConstraintError(err) {
			return &models.ConflictError{Kind: "user", Key: u.Username}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByUsername loads a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := s.conn.QueryRowContext(ctx,
		`SELECT id, username, birth_date FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("user", username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", username, err)
	}
	return u, nil
}

// GetUser loads a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := s.conn.QueryRowContext(ctx,
		`SELECT id, username, birth_date FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u     models.User
		birth sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &birth); err != nil {
		return nil, err
	}
	if birth.Valid {
		u.BirthDate = birth.Time
	}
	return &u, nil
}
