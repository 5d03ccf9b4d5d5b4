// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package catalog

import (
	"context"
	"fmt"
)

// Tables:
//   - users: catalog members, username unique
//   - movies: titles, imdb_id unique when present
//   - genres / movie_genres: many-to-many genre links
//   - people / movie_actors / movie_directors: cast and crew
//   - follows: user follows person
//   - watch_history: one row per (user, movie), rating nullable, updated_at
//     stamped by the server on every write
//
// Foreign keys are not declared. DuckDB rewrites updates on constrained
// rows as delete plus insert, which trips FK checks on the link tables.
// Writers always create the referenced rows first.
var schemaStatements = []string{
	`CREATE SEQUENCE IF NOT EXISTS seq_users START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_movies START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_genres START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_people START 1`,

	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_users'),
		username VARCHAR NOT NULL UNIQUE,
		birth_date DATE
	)`,

	`CREATE TABLE IF NOT EXISTS movies (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_movies'),
		title VARCHAR NOT NULL,
		release_year INTEGER NOT NULL DEFAULT 0,
		duration INTEGER NOT NULL DEFAULT 0,
		synopsis VARCHAR NOT NULL DEFAULT '',
		imdb_id VARCHAR UNIQUE,
		poster_url VARCHAR NOT NULL DEFAULT '',
		avg_rating DOUBLE
	)`,

	`CREATE TABLE IF NOT EXISTS genres (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_genres'),
		name VARCHAR NOT NULL UNIQUE
	)`,

	`CREATE TABLE IF NOT EXISTS movie_genres (
		movie_id BIGINT NOT NULL,
		genre_id BIGINT NOT NULL,
		PRIMARY KEY (movie_id, genre_id)
	)`,

	`CREATE TABLE IF NOT EXISTS people (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_people'),
		first_name VARCHAR NOT NULL,
		last_name VARCHAR NOT NULL DEFAULT '',
		birth_year INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS movie_actors (
		movie_id BIGINT NOT NULL,
		person_id BIGINT NOT NULL,
		PRIMARY KEY (movie_id, person_id)
	)`,

	`CREATE TABLE IF NOT EXISTS movie_directors (
		movie_id BIGINT NOT NULL,
		person_id BIGINT NOT NULL,
		PRIMARY KEY (movie_id, person_id)
	)`,

	`CREATE TABLE IF NOT EXISTS follows (
		user_id BIGINT NOT NULL,
		person_id BIGINT NOT NULL,
		PRIMARY KEY (user_id, person_id)
	)`,

	`CREATE TABLE IF NOT EXISTS watch_history (
		user_id BIGINT NOT NULL,
		movie_id BIGINT NOT NULL,
		watched_at TIMESTAMP NOT NULL,
		rating DOUBLE,
		updated_at TIMESTAMP,
		PRIMARY KEY (user_id, movie_id)
	)`,
	`ALTER TABLE watch_history ADD COLUMN IF NOT EXISTS updated_at TIMESTAMP`,

	`CREATE INDEX IF NOT EXISTS idx_watch_history_movie ON watch_history(movie_id)`,
	`CREATE INDEX IF NOT EXISTS idx_people_name ON people(first_name, last_name)`,
}

func (s *Store) createTables(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %s: %w", stmt, err)
		}
	}
	return nil
}

// creditTable maps a role to its link table.
func creditTable(role string) (string, error) {
	switch role {
	case "actor":
		return "movie_actors", nil
	case "director":
		return "movie_directors", nil
	default:
		return "", fmt.Errorf("unknown credit role %q", role)
	}
}
