package poi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/cellstore/internal/store"
)

// DefaultStopKinds are the entity kinds rolled into level-16 and level-17
// statistics.
var DefaultStopKinds = []string{"POKESTOP", "GYM"}

// DefaultConcurrency bounds the number of read-only transactions
// StatsInBounds runs at once.
const DefaultConcurrency = 4

// Config configures a Store.
type Config struct {
	// Path is the SQLite database file.
	Path string

	// StopKinds lists the kinds counted in sub-cell statistics.
	// Default: DefaultStopKinds
	StopKinds []string

	// MaxConns is the connection pool size of the underlying engine.
	// Default: store.DefaultMaxConns
	MaxConns int

	// Concurrency bounds StatsInBounds fan-out.
	// Default: DefaultConcurrency
	Concurrency int
}

// Store is the spatial record store: POI and cell records indexed by the
// cells that contain them.
type Store struct {
	db          *store.Store
	stopKinds   map[string]bool
	concurrency int
}

// Open opens (creating if needed) the store at cfg.Path.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("open store: path is empty")
	}

	var opts []store.Option
	if cfg.MaxConns > 0 {
		opts = append(opts, store.WithMaxConns(cfg.MaxConns))
	}
	db, err := store.Open(ctx, cfg.Path, Schema, opts...)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	kinds := cfg.StopKinds
	if len(kinds) == 0 {
		kinds = DefaultStopKinds
	}
	stop := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		stop[k] = true
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	slog.Info("poi store opened", "path", cfg.Path, "stop_kinds", kinds)
	return &Store{db: db, stopKinds: stop, concurrency: concurrency}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Engine exposes the underlying key-value engine.
func (s *Store) Engine() *store.Store {
	return s.db
}

// IsStopKind reports whether kind is counted in sub-cell statistics.
func (s *Store) IsStopKind(kind string) bool {
	return s.stopKinds[kind]
}
