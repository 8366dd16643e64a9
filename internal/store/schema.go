package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// Mode is the access mode of a transaction.
type Mode int

const (
	// ReadOnly transactions may run concurrently with each other.
	ReadOnly Mode = iota
	// ReadWrite transactions are serialized against each other.
	ReadWrite
)

func (m Mode) String() string {
	if m == ReadWrite {
		return "readwrite"
	}
	return "readonly"
}

// Index declares a secondary index on a table.
type Index struct {
	Name string `json:"name"`

	// KeyPath is a JSONPath expression evaluated against the record value,
	// e.g. "$.cell_ids".
	KeyPath string `json:"key_path"`

	// MultiEntry indexes store one entry per element when the key path
	// resolves to an array.
	MultiEntry bool `json:"multi_entry"`
}

// Table declares a named record collection and its indexes.
type Table struct {
	Name    string
	Indexes []Index
}

// Schema is the set of tables a Store serves.
type Schema struct {
	Tables []Table
}

type table struct {
	name      string
	indexes   map[string]*index
	signature string
}

type index struct {
	Index
	expr jp.Expr
}

// compile validates the schema and parses every key path.
func (s Schema) compile() (map[string]*table, error) {
	tables := make(map[string]*table, len(s.Tables))
	for _, t := range s.Tables {
		if t.Name == "" {
			return nil, fmt.Errorf("table name is empty")
		}
		if _, dup := tables[t.Name]; dup {
			return nil, fmt.Errorf("duplicate table %q", t.Name)
		}

		tbl := &table{name: t.Name, indexes: make(map[string]*index, len(t.Indexes))}
		for _, ix := range t.Indexes {
			if ix.Name == "" {
				return nil, fmt.Errorf("table %s: index name is empty", t.Name)
			}
			if _, dup := tbl.indexes[ix.Name]; dup {
				return nil, fmt.Errorf("table %s: duplicate index %q", t.Name, ix.Name)
			}
			expr, err := jp.ParseString(ix.KeyPath)
			if err != nil {
				return nil, fmt.Errorf("table %s: index %s: key path %q: %w", t.Name, ix.Name, ix.KeyPath, err)
			}
			tbl.indexes[ix.Name] = &index{Index: ix, expr: expr}
		}

		sig, err := signature(t.Indexes)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		tbl.signature = sig
		tables[t.Name] = tbl
	}
	return tables, nil
}

// signature is a stable encoding of a table's index definitions.
func signature(indexes []Index) (string, error) {
	sorted := append([]Index(nil), indexes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	if sorted == nil {
		sorted = []Index{}
	}
	b, err := json.Marshal(sorted)
	if err != nil {
		return "", fmt.Errorf("encode indexes: %w", err)
	}
	return string(b), nil
}

// keys extracts the distinct index keys of a decoded record value.
// Non-string scalars are rendered with their JSON encoding so numbers and
// booleans remain indexable.
func (ix *index) keys(doc any) []string {
	var raw []any
	for _, v := range ix.expr.Get(doc) {
		if arr, ok := v.([]any); ok && ix.MultiEntry {
			raw = append(raw, arr...)
			continue
		}
		raw = append(raw, v)
	}

	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		k, ok := indexKey(v)
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func indexKey(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []any, map[string]any:
		return "", false
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", false
		}
		return strings.TrimSpace(string(b)), true
	}
}
