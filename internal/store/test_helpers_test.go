package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

// testSchema mirrors the shape of the point-of-interest tables: a record
// carries an array of cell ids indexed multi-entry.
var testSchema = Schema{Tables: []Table{
	{Name: "pois", Indexes: []Index{{Name: "cell_ids", KeyPath: "$.cell_ids", MultiEntry: true}}},
	{Name: "cells", Indexes: []Index{{Name: "ancestor_ids", KeyPath: "$.ancestor_ids", MultiEntry: true}}},
	{Name: "plain"},
}}

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	return openTestStore(t, filepath.Join(t.TempDir(), "test.db"), testSchema)
}

func openTestStore(t *testing.T, path string, schema Schema) *Store {
	t.Helper()
	s, err := Open(context.Background(), path, schema)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// put writes records in one read-write transaction.
func put(t *testing.T, s *Store, table string, kv map[string]string) {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx, ReadWrite, table)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	defer tx.Rollback()
	for k, v := range kv {
		if err := tx.Put(ctx, table, k, []byte(v)); err != nil {
			t.Fatalf("Put(%s) failed: %v", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
}

// scanKeys returns the primary keys a query visits, in order.
func scanKeys(t *testing.T, s *Store, q Query) []string {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx, ReadOnly, q.Table)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	defer tx.Rollback()

	var keys []string
	err = tx.Scan(ctx, q, func(r Record) (bool, error) {
		keys = append(keys, r.PrimaryKey)
		return true, nil
	})
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	return keys
}

// getTableIndexes returns all index names for a table.
func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query(
		"SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?",
		table,
	)
	if err != nil {
		t.Fatalf("failed to query indexes: %v", err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
