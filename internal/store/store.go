package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

const (
	currentSchemaVersion = 2
)

// Store represents the catalog database
type Store struct {
	db *sql.DB
}

// OpenOptions holds options for opening a database
type OpenOptions struct {
	MaxOpenConns int // Connection pool size; 0 means a single connection
	CacheSizeMB  int // Page cache size; 0 keeps the SQLite default
}

// DBTX is the subset of *sql.DB and *sql.Tx used by catalog reads and writes
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens or creates a SQLite database at the given path with default options
func Open(path string) (*Store, error) {
	return OpenWithOptions(path, nil)
}

// OpenWithOptions opens or creates a SQLite database with custom options
func OpenWithOptions(path string, opts *OpenOptions) (*Store, error) {
	if opts == nil {
		opts = &OpenOptions{}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writers are serialized by SQLite anyway; readers may share a small pool
	maxConns := opts.MaxOpenConns
	if maxConns < 1 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(0)

	store := &Store{db: db}

	if opts.CacheSizeMB > 0 {
		if err := store.applyCachePragma(opts.CacheSizeMB); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply cache pragma: %w", err)
		}
	}

	// Run migrations
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return store, nil
}

// applyCachePragma sizes the page cache and keeps temp tables in memory
func (s *Store) applyCachePragma(sizeMB int) error {
	pragmas := []string{
		"PRAGMA temp_store = MEMORY",
		// Negative value = KB
		fmt.Sprintf("PRAGMA cache_size = -%d", sizeMB*1000),
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for custom queries
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SQLiteVersion returns the SQLite version string
func SQLiteVersion() string {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return ""
	}
	defer db.Close()

	var version string
	err = db.QueryRow("SELECT sqlite_version()").Scan(&version)
	if err != nil {
		return ""
	}
	return version
}

// FTS5Available reports whether the driver was built with the FTS5 extension
func FTS5Available() bool {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return false
	}
	defer db.Close()

	_, err = db.Exec("CREATE VIRTUAL TABLE fts_probe USING fts5(body)")
	return err == nil
}

// CheckIntegrity runs PRAGMA integrity_check on the database
func (s *Store) CheckIntegrity() error {
	var result string
	err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result)
	if err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}

	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	// The full-text index must agree with its content table
	if _, err := s.db.Exec("INSERT INTO work_fts(work_fts) VALUES ('integrity-check')"); err != nil {
		return fmt.Errorf("full-text index check failed: %w", err)
	}

	return nil
}

// RebuildFullText rebuilds the full-text index from the work table
func (s *Store) RebuildFullText() error {
	if _, err := s.db.Exec("INSERT INTO work_fts(work_fts) VALUES ('rebuild')"); err != nil {
		return fmt.Errorf("failed to rebuild full-text index: %w", err)
	}
	return nil
}

// migrate applies database migrations
func (s *Store) migrate() error {
	version, err := s.getSchemaVersion()
	if err != nil {
		return err
	}

	if version >= currentSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Apply schema v1
	if version < 1 {
		if _, err := tx.Exec(schemaV1); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
		if err := s.setSchemaVersion(tx, 1); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	// Apply schema v2 - full-text index
	if version < 2 {
		if _, err := tx.Exec(schemaV2); err != nil {
			return fmt.Errorf("failed to apply schema v2: %w", err)
		}
		if err := s.setSchemaVersion(tx, 2); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}

// getSchemaVersion returns the current schema version
func (s *Store) getSchemaVersion() (int, error) {
	var exists int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}

	if exists == 0 {
		return 0, nil
	}

	var version int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion records a schema version in a transaction
func (s *Store) setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// Transaction executes a function within a transaction
func (s *Store) Transaction(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Stats holds row counts per catalog table
type Stats struct {
	Works       int
	WorksNoBWV  int
	Genres      int
	Keys        int
	Instruments int
	Persons     int
}

// Stats returns row counts for the catalog tables
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{}
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM work),
			(SELECT COUNT(*) FROM work WHERE bwv_id IS NULL),
			(SELECT COUNT(*) FROM genre),
			(SELECT COUNT(*) FROM musical_key),
			(SELECT COUNT(*) FROM instrument),
			(SELECT COUNT(*) FROM person)
	`).Scan(&st.Works, &st.WorksNoBWV, &st.Genres, &st.Keys, &st.Instruments, &st.Persons)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	return st, nil
}
