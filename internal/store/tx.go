package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ohler55/ojg/oj"
)

// Record is one row produced by a scan.
type Record struct {
	// Key is the key the scan is ordered by: the index key for index scans,
	// the primary key otherwise.
	Key        string
	PrimaryKey string
	Value      []byte
}

// KeyRange bounds a scan. A nil bound is unbounded on that side.
type KeyRange struct {
	Lower     *string
	Upper     *string
	LowerOpen bool
	UpperOpen bool
}

// All matches every key.
func All() KeyRange { return KeyRange{} }

// Only matches exactly key.
func Only(key string) KeyRange { return KeyRange{Lower: &key, Upper: &key} }

// Between matches lower <= key <= upper.
func Between(lower, upper string) KeyRange { return KeyRange{Lower: &lower, Upper: &upper} }

// Prefix matches every key starting with p.
func Prefix(p string) KeyRange {
	upper := p + "\xff"
	return KeyRange{Lower: &p, Upper: &upper, UpperOpen: true}
}

// Query selects the records a scan visits. An empty Index scans the table's
// primary keys.
type Query struct {
	Table string
	Index string
	Range KeyRange
}

// Tx is a transaction over a fixed set of tables.
//
// A Tx must be finished with exactly one Commit or Rollback; calling Rollback
// after Commit is a no-op, so deferring Rollback is safe.
type Tx struct {
	s     *Store
	tx    *sql.Tx
	mode  Mode
	scope map[string]*table

	mu       sync.Mutex
	done     bool
	releaseW func()
}

// Begin opens a transaction over tables. Read-write transactions wait for
// any other read-write transaction to finish; the wait honours ctx.
func (s *Store) Begin(ctx context.Context, mode Mode, tables ...string) (*Tx, error) {
	scope := make(map[string]*table, len(tables))
	for _, name := range tables {
		tbl, ok := s.tables[name]
		if !ok {
			return nil, fmt.Errorf("begin: %q: %w", name, ErrUnknownTable)
		}
		scope[name] = tbl
	}

	release := func() {}
	if mode == ReadWrite {
		select {
		case s.writer <- struct{}{}:
		case <-ctx.Done():
			return nil, fmt.Errorf("begin: wait for writer: %w", ctx.Err())
		}
		var once sync.Once
		release = func() { once.Do(func() { <-s.writer }) }
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		release()
		return nil, fmt.Errorf("begin: %w", err)
	}

	return &Tx{s: s, tx: tx, mode: mode, scope: scope, releaseW: release}, nil
}

// Mode reports the access mode the transaction was opened with.
func (t *Tx) Mode() Mode { return t.mode }

// Commit makes the transaction's writes durable.
func (t *Tx) Commit() error {
	if err := t.finish(); err != nil {
		return err
	}
	defer t.releaseW()
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards the transaction's writes.
func (t *Tx) Rollback() error {
	if err := t.finish(); err != nil {
		return nil
	}
	defer t.releaseW()
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func (t *Tx) finish() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrTxDone
	}
	t.done = true
	return nil
}

func (t *Tx) check(name string, write bool) (*table, error) {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done {
		return nil, ErrTxDone
	}
	if write && t.mode != ReadWrite {
		return nil, ErrReadOnly
	}
	tbl, ok := t.scope[name]
	if !ok {
		if _, declared := t.s.tables[name]; !declared {
			return nil, fmt.Errorf("%q: %w", name, ErrUnknownTable)
		}
		return nil, fmt.Errorf("%q: %w", name, ErrNotInScope)
	}
	return tbl, nil
}

// Get returns the value stored under key, or ok=false when absent.
func (t *Tx) Get(ctx context.Context, table, key string) (value []byte, ok bool, err error) {
	if _, err := t.check(table, false); err != nil {
		return nil, false, fmt.Errorf("get %s: %w", table, err)
	}

	err = t.tx.QueryRowContext(ctx,
		`SELECT value FROM kv_records WHERE tbl = ? AND key = ?`, table, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", table, key, err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous value and its index
// entries.
func (t *Tx) Put(ctx context.Context, table, key string, value []byte) error {
	tbl, err := t.check(table, true)
	if err != nil {
		return fmt.Errorf("put %s: %w", table, err)
	}

	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO kv_records (tbl, key, value) VALUES (?, ?, ?)
		ON CONFLICT(tbl, key) DO UPDATE SET value = excluded.value
	`, table, key, value); err != nil {
		return fmt.Errorf("put %s/%s: insert: %w", table, key, err)
	}

	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM kv_index WHERE tbl = ? AND key = ?`, table, key,
	); err != nil {
		return fmt.Errorf("put %s/%s: clear index: %w", table, key, err)
	}

	if err := writeIndexEntries(ctx, t.tx, tbl, key, value); err != nil {
		return fmt.Errorf("put %s/%s: %w", table, key, err)
	}
	return nil
}

// Delete removes key and its index entries. Deleting an absent key is not
// an error.
func (t *Tx) Delete(ctx context.Context, table, key string) error {
	if _, err := t.check(table, true); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}

	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM kv_index WHERE tbl = ? AND key = ?`, table, key,
	); err != nil {
		return fmt.Errorf("delete %s/%s: index: %w", table, key, err)
	}
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM kv_records WHERE tbl = ? AND key = ?`, table, key,
	); err != nil {
		return fmt.Errorf("delete %s/%s: %w", table, key, err)
	}
	return nil
}

// Scan visits the records selected by q in key order, then primary key
// order. fn returns false to stop the scan early.
func (t *Tx) Scan(ctx context.Context, q Query, fn func(Record) (bool, error)) error {
	tbl, err := t.check(q.Table, false)
	if err != nil {
		return fmt.Errorf("scan %s: %w", q.Table, err)
	}

	var (
		query strings.Builder
		args  []any
		col   string
	)
	if q.Index == "" {
		col = "r.key"
		query.WriteString(`SELECT r.key, r.key, r.value FROM kv_records r WHERE r.tbl = ?`)
		args = append(args, q.Table)
	} else {
		if _, ok := tbl.indexes[q.Index]; !ok {
			return fmt.Errorf("scan %s: %q: %w", q.Table, q.Index, ErrUnknownIndex)
		}
		col = "i.idx_key"
		query.WriteString(`SELECT i.idx_key, r.key, r.value
			FROM kv_index i
			JOIN kv_records r ON r.tbl = i.tbl AND r.key = i.key
			WHERE i.tbl = ? AND i.idx = ?`)
		args = append(args, q.Table, q.Index)
	}

	if r := q.Range; r.Lower != nil {
		op := ">="
		if r.LowerOpen {
			op = ">"
		}
		fmt.Fprintf(&query, " AND %s %s ?", col, op)
		args = append(args, *r.Lower)
	}
	if r := q.Range; r.Upper != nil {
		op := "<="
		if r.UpperOpen {
			op = "<"
		}
		fmt.Fprintf(&query, " AND %s %s ?", col, op)
		args = append(args, *r.Upper)
	}
	fmt.Fprintf(&query, " ORDER BY %s, r.key", col)

	rows, err := t.tx.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return fmt.Errorf("scan %s: query: %w", q.Table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Key, &rec.PrimaryKey, &rec.Value); err != nil {
			return fmt.Errorf("scan %s: row: %w", q.Table, err)
		}
		more, err := fn(rec)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", q.Table, err)
	}
	return nil
}

// writeIndexEntries inserts the index entries of one record.
func writeIndexEntries(ctx context.Context, tx *sql.Tx, tbl *table, key string, value []byte) error {
	if len(tbl.indexes) == 0 {
		return nil
	}

	doc, err := oj.Parse(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	for name, ix := range tbl.indexes {
		for _, k := range ix.keys(doc) {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO kv_index (tbl, idx, idx_key, key) VALUES (?, ?, ?, ?)
			`, tbl.name, name, k, key); err != nil {
				return fmt.Errorf("index %s: insert: %w", name, err)
			}
		}
	}
	return nil
}
