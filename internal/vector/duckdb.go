// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/reelgraph/internal/config"
	"github.com/tomtom215/reelgraph/internal/models"
)

const defaultTimeout = 30 * time.Second

var vectorSchema = []string{
	`CREATE TABLE IF NOT EXISTS vector_collections (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL,
		distance TEXT NOT NULL,
		quantization TEXT NOT NULL,
		on_disk BOOLEAN NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS vector_records (
		collection TEXT NOT NULL,
		id BIGINT NOT NULL,
		embedding BLOB NOT NULL,
		norm DOUBLE NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		release_year INTEGER NOT NULL DEFAULT 0,
		imdb_id TEXT NOT NULL DEFAULT '',
		poster_url TEXT NOT NULL DEFAULT '',
		duration INTEGER NOT NULL DEFAULT 0,
		avg_rating DOUBLE NOT NULL DEFAULT 0,
		PRIMARY KEY (collection, id)
	)`,
	// No primary key: genres are replaced with delete+insert inside one
	// transaction, which unique indexes in DuckDB reject.
	`CREATE TABLE IF NOT EXISTS vector_record_genres (
		collection TEXT NOT NULL,
		id BIGINT NOT NULL,
		genre TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vector_record_genres ON vector_record_genres(collection, genre)`,
}

// DuckDBStore keeps collections in DuckDB tables and ranks by exact cosine
// similarity over the stored vectors.
type DuckDBStore struct {
	conn *sql.DB
}

var _ Store = (*DuckDBStore)(nil)

// NewDuckDBStore opens the vector database at cfg.Path (in-memory when empty).
func NewDuckDBStore(cfg *config.VectorConfig) (*DuckDBStore, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create vector directory %s: %w", dir, err)
			}
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, runtime.NumCPU())
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	for _, stmt := range vectorSchema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to initialize vector schema: %w", err)
		}
	}
	return &DuckDBStore{conn: conn}, nil
}

// Ping checks that the vector database answers.
func (s *DuckDBStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close closes the connection pool.
func (s *DuckDBStore) Close() error {
	return s.conn.Close()
}

// CreateCollection registers spec. An existing name returns ErrCollectionExists.
func (s *DuckDBStore) CreateCollection(ctx context.Context, spec CollectionSpec) error {
	if spec.Name == "" || spec.Dimension <= 0 {
		return &models.ArgumentError{Message: fmt.Sprintf("invalid collection spec %+v", spec)}
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if _, err := s.Collection(ctx, spec.Name); err == nil {
		return fmt.Errorf("%s: %w", spec.Name, ErrCollectionExists)
	} else if !errors.Is(err, ErrCollectionNotFound) {
		return err
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO vector_collections (name, dimension, distance, quantization, on_disk)
		VALUES (?, ?, ?, ?, ?)`,
		spec.Name, spec.Dimension, spec.Distance, spec.Quantization, spec.OnDisk)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%s: %w", spec.Name, ErrCollectionExists)
		}
		return fmt.Errorf("failed to create collection %s: %w", spec.Name, err)
	}
	return nil
}

// DropCollection deletes a collection and its records. Missing collections are a no-op.
func (s *DuckDBStore) DropCollection(ctx context.Context, name string) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin drop: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM vector_record_genres WHERE collection = ?`,
		`DELETE FROM vector_records WHERE collection = ?`,
		`DELETE FROM vector_collections WHERE name = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, name); err != nil {
			return fmt.Errorf("failed to drop collection %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// Collection returns the spec of name or ErrCollectionNotFound.
func (s *DuckDBStore) Collection(ctx context.Context, name string) (CollectionSpec, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	spec := CollectionSpec{Name: name}
	err := s.conn.QueryRowContext(ctx, `
		SELECT dimension, distance, quantization, on_disk
		FROM vector_collections WHERE name = ?`, name).
		Scan(&spec.Dimension, &spec.Distance, &spec.Quantization, &spec.OnDisk)
	if errors.Is(err, sql.ErrNoRows) {
		return CollectionSpec{}, fmt.Errorf("%s: %w", name, ErrCollectionNotFound)
	}
	if err != nil {
		return CollectionSpec{}, fmt.Errorf("failed to read collection %s: %w", name, err)
	}
	return spec, nil
}

// Upsert replaces records by id in a single transaction.
func (s *DuckDBStore) Upsert(ctx context.Context, collection string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	spec, err := s.Collection(ctx, collection)
	if err != nil {
		return err
	}
	for _, r := range records {
		if len(r.Vector) != spec.Dimension {
			return &models.ArgumentError{Message: fmt.Sprintf(
				"record %d has dimension %d, collection %s expects %d", r.ID, len(r.Vector), collection, spec.Dimension)}
		}
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsertRecord, err := tx.PrepareContext(ctx, `
		INSERT INTO vector_records
			(collection, id, embedding, norm, title, release_year, imdb_id, poster_url, duration, avg_rating)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			embedding = excluded.embedding,
			norm = excluded.norm,
			title = excluded.title,
			release_year = excluded.release_year,
			imdb_id = excluded.imdb_id,
			poster_url = excluded.poster_url,
			duration = excluded.duration,
			avg_rating = excluded.avg_rating`)
	if err != nil {
		return fmt.Errorf("failed to prepare record upsert: %w", err)
	}
	defer upsertRecord.Close()

	deleteGenres, err := tx.PrepareContext(ctx, `DELETE FROM vector_record_genres WHERE collection = ? AND id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare genre delete: %w", err)
	}
	defer deleteGenres.Close()

	insertGenre, err := tx.PrepareContext(ctx, `INSERT INTO vector_record_genres (collection, id, genre) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare genre insert: %w", err)
	}
	defer insertGenre.Close()

	for _, r := range records {
		p := r.Payload
		if _, err := upsertRecord.ExecContext(ctx, collection, r.ID, encodeVector(r.Vector), l2Norm(r.Vector),
			p.Title, p.ReleaseYear, p.IMDbID, p.PosterURL, p.Duration, p.AvgRating); err != nil {
			return fmt.Errorf("failed to upsert record %d: %w", r.ID, err)
		}
		if _, err := deleteGenres.ExecContext(ctx, collection, r.ID); err != nil {
			return fmt.Errorf("failed to clear genres of record %d: %w", r.ID, err)
		}
		for _, g := range uniqueGenres(p.Genres) {
			if _, err := insertGenre.ExecContext(ctx, collection, r.ID, g); err != nil {
				return fmt.Errorf("failed to insert genre of record %d: %w", r.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// Search scores every candidate record by cosine similarity.
func (s *DuckDBStore) Search(ctx context.Context, collection string, req SearchRequest) ([]Hit, error) {
	if req.TopK <= 0 {
		return []Hit{}, nil
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	query := `SELECT id, embedding, norm FROM vector_records r WHERE collection = ?`
	args := []any{collection}
	if len(req.ExcludeIDs) > 0 {
		query += ` AND id NOT IN (` + placeholders(len(req.ExcludeIDs)) + `)`
		for _, id := range req.ExcludeIDs {
			args = append(args, id)
		}
	}
	if len(req.AnyGenres) > 0 {
		query += ` AND EXISTS (SELECT 1 FROM vector_record_genres g
			WHERE g.collection = r.collection AND g.id = r.id AND g.genre IN (` + placeholders(len(req.AnyGenres)) + `))`
		for _, g := range req.AnyGenres {
			args = append(args, g)
		}
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection %s: %w", collection, err)
	}

	queryNorm := l2Norm(req.Vector)
	var hits []Hit
	for rows.Next() {
		var (
			id   int64
			blob []byte
			norm float64
		)
		if err := rows.Scan(&id, &blob, &norm); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("record %d: %w", id, err)
		}
		hits = append(hits, Hit{ID: id, Score: cosine(req.Vector, queryNorm, vec, norm)})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	_ = rows.Close()

	sortHits(hits)
	if len(hits) > req.TopK {
		hits = hits[:req.TopK]
	}
	if len(hits) == 0 {
		return []Hit{}, nil
	}
	if err := s.loadPayloads(ctx, collection, hits); err != nil {
		return nil, err
	}
	return hits, nil
}

func (s *DuckDBStore) loadPayloads(ctx context.Context, collection string, hits []Hit) error {
	index := make(map[int64]int, len(hits))
	args := []any{collection}
	for i, h := range hits {
		index[h.ID] = i
		args = append(args, h.ID)
	}
	in := placeholders(len(hits))

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, title, release_year, imdb_id, poster_url, duration, avg_rating
		FROM vector_records WHERE collection = ? AND id IN (`+in+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to load payloads: %w", err)
	}
	for rows.Next() {
		var id int64
		var p Payload
		if err := rows.Scan(&id, &p.Title, &p.ReleaseYear, &p.IMDbID, &p.PosterURL, &p.Duration, &p.AvgRating); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan payload: %w", err)
		}
		p.Genres = []string{}
		hits[index[id]].Payload = p
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	genreRows, err := s.conn.QueryContext(ctx, `
		SELECT id, genre FROM vector_record_genres
		WHERE collection = ? AND id IN (`+in+`)
		ORDER BY id, genre`, args...)
	if err != nil {
		return fmt.Errorf("failed to load genres: %w", err)
	}
	defer genreRows.Close()
	for genreRows.Next() {
		var id int64
		var genre string
		if err := genreRows.Scan(&id, &genre); err != nil {
			return fmt.Errorf("failed to scan genre: %w", err)
		}
		h := &hits[index[id]]
		h.Payload.Genres = append(h.Payload.Genres, genre)
	}
	return genreRows.Err()
}

// Count returns the number of records in collection.
func (s *DuckDBStore) Count(ctx context.Context, collection string) (int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var n int64
	if err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vector_records WHERE collection = ?`, collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count collection %s: %w", collection, err)
	}
	return n, nil
}

func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func uniqueGenres(genres []string) []string {
	seen := make(map[string]struct{}, len(genres))
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

// isUniqueConstraintError checks if an error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "primary key constraint")
}

func ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, defaultTimeout)
	}
	return ctx, func() {}
}
