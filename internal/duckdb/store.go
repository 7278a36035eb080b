// Package duckdb persists annotation results and caches parsed catalogs.
// Catalog records are cached as gob files (fast, pure Go).
// Annotation results are stored in DuckDB (queryable, append-only).
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding annotation results.
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
			return nil, fmt.Errorf("create database directory: %w", err)
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

// Path returns the database file path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates the results table and its lookup indexes.
func (s *Store) ensureSchema() error {
	for _, stmt := range []string{resultsTable, siteIndex, featureIndex} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

const (
	resultsTable = `CREATE TABLE IF NOT EXISTS annotation_results (
		run_id VARCHAR,
		chrom VARCHAR,
		pos BIGINT,
		name VARCHAR,
		start BIGINT,
		end_ BIGINT,
		strand VARCHAR,
		tss_d BIGINT,
		rel_pos TINYINT,
		integration DOUBLE
	)`
	siteIndex    = `CREATE INDEX IF NOT EXISTS idx_results_site ON annotation_results (chrom, pos)`
	featureIndex = `CREATE INDEX IF NOT EXISTS idx_results_name ON annotation_results (name)`
)
