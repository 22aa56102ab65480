// Package duckdb persists analysis results.
// Annotated calls are stored in DuckDB (queryable, append-only).
// Parsed annotation indexes are cached as gob files (fast, pure Go).
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding annotated calls.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS snp_calls (
		run_id VARCHAR,
		strain VARCHAR,
		sample VARCHAR,
		treatment VARCHAR,
		cosm VARCHAR,
		timepoint VARCHAR,
		chrom VARCHAR,
		pos BIGINT,
		qual DOUBLE,
		depth BIGINT,
		alt_depth_sum BIGINT,
		freq_sum DOUBLE,
		product VARCHAR
	)`)
	return err
}
