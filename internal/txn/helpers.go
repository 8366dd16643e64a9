package txn

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/cellstore/internal/store"
)

// Get reads the record under key and decodes it into a V.
func Get[V any](t *T, table, key string) (V, bool, error) {
	var v V
	res, err := t.Do(GetEffect{Table: table, Key: key})
	if err != nil || !res.Found {
		return v, false, err
	}
	if err := json.Unmarshal(res.Value, &v); err != nil {
		return v, false, fmt.Errorf("decode %s/%s: %w", table, key, err)
	}
	return v, true, nil
}

// Put encodes v as JSON and stores it under key.
func Put(t *T, table, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", table, key, err)
	}
	_, err = t.Do(PutEffect{Table: table, Key: key, Value: b})
	return err
}

// Delete removes the record under key.
func Delete(t *T, table, key string) error {
	_, err := t.Do(DeleteEffect{Table: table, Key: key})
	return err
}

// Each decodes every record selected by q into a V and passes it to fn along
// with the record's primary key.
func Each[V any](t *T, q store.Query, fn func(key string, v V) (Step, error)) error {
	_, err := t.Do(IterateEffect{Query: q, Fn: func(r store.Record) (Step, error) {
		var v V
		if err := json.Unmarshal(r.Value, &v); err != nil {
			return Break, fmt.Errorf("decode %s/%s: %w", q.Table, r.PrimaryKey, err)
		}
		return fn(r.PrimaryKey, v)
	}})
	return err
}

// Keys returns the distinct primary keys selected by q in scan order.
func Keys(t *T, q store.Query) ([]string, error) {
	var keys []string
	seen := make(map[string]bool)
	_, err := t.Do(IterateEffect{Query: q, Fn: func(r store.Record) (Step, error) {
		if !seen[r.PrimaryKey] {
			seen[r.PrimaryKey] = true
			keys = append(keys, r.PrimaryKey)
		}
		return Continue, nil
	}})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
