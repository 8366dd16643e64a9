package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added kv_index_by_key for index maintenance on overwrite and delete
const currentSchemaVersion = 1

// DefaultMaxConns is the default size of the connection pool. Read-only
// transactions may run concurrently up to this limit; read-write
// transactions are always serialized.
const DefaultMaxConns = 4

// Store is a transactional key-value engine over SQLite.
//
// Records live in named tables keyed by a string primary key. Tables may
// declare secondary indexes whose keys are extracted from the JSON value by a
// JSONPath key path; multi-entry indexes contribute one entry per array
// element. Index entries are written in the same SQL transaction as the row.
type Store struct {
	db     *sql.DB
	tables map[string]*table

	// writer is a one-slot semaphore held for the lifetime of a read-write
	// transaction.
	writer chan struct{}
}

// Option configures Open.
type Option func(*options)

type options struct {
	maxConns int
}

// WithMaxConns sets the connection pool size.
//
// Default: 4 (DefaultMaxConns)
// Use WithMaxConns(1) to serialize readers as well as writers.
func WithMaxConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConns = n
		}
	}
}

// Open creates or opens a SQLite database at the given path and declares the
// given tables. Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// If a table's index definitions differ from the ones recorded by a previous
// Open, the table's index entries are rebuilt before Open returns.
//
// This function is idempotent - safe to call multiple times.
func Open(ctx context.Context, path string, schema Schema, opts ...Option) (*Store, error) {
	o := options{maxConns: DefaultMaxConns}
	for _, opt := range opts {
		opt(&o)
	}

	tables, err := schema.compile()
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(o.maxConns)
	db.SetMaxIdleConns(o.maxConns)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:     db,
		tables: tables,
		writer: make(chan struct{}, 1),
	}

	if err := s.declareTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to declare tables: %w", err)
	}

	slog.Debug("store opened", "path", path, "tables", len(tables), "max_conns", o.maxConns)
	return s, nil
}

// Close closes the database connection.
// Should be called when the store is no longer needed.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer transactions opened with Begin.
func (s *Store) DB() *sql.DB {
	return s.db
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the reverse lookup used to drop a record's index entries.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS kv_index_by_key
		ON kv_index(tbl, key)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// declareTables records each table's index definitions and rebuilds the index
// entries of tables whose definitions changed since the last Open.
func (s *Store) declareTables(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for name, tbl := range s.tables {
		var stored string
		err := tx.QueryRowContext(ctx, `SELECT indexes FROM kv_tables WHERE name = ?`, name).Scan(&stored)
		switch {
		case err == sql.ErrNoRows:
		case err != nil:
			return fmt.Errorf("read table %s: %w", name, err)
		case stored == tbl.signature:
			continue
		}

		if err := rebuildIndexes(ctx, tx, tbl); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv_tables (name, indexes) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET indexes = excluded.indexes
		`, name, tbl.signature); err != nil {
			return fmt.Errorf("declare table %s: %w", name, err)
		}
		slog.Info("table declared", "table", name, "indexes", tbl.signature)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// rebuildIndexes drops and regenerates every index entry of tbl.
func rebuildIndexes(ctx context.Context, tx *sql.Tx, tbl *table) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM kv_index WHERE tbl = ?`, tbl.name); err != nil {
		return fmt.Errorf("rebuild %s: clear: %w", tbl.name, err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT key, value FROM kv_records WHERE tbl = ?`, tbl.name)
	if err != nil {
		return fmt.Errorf("rebuild %s: scan: %w", tbl.name, err)
	}

	type entry struct {
		key   string
		value []byte
	}
	var records []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.key, &e.value); err != nil {
			rows.Close()
			return fmt.Errorf("rebuild %s: scan row: %w", tbl.name, err)
		}
		records = append(records, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("rebuild %s: iterate: %w", tbl.name, err)
	}
	rows.Close()

	for _, e := range records {
		if err := writeIndexEntries(ctx, tx, tbl, e.key, e.value); err != nil {
			return fmt.Errorf("rebuild %s: %w", tbl.name, err)
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
