package txn

import (
	"fmt"

	"github.com/roach88/cellstore/internal/store"
)

// Step tells an iteration whether to keep reading rows.
type Step int

const (
	// Continue advances the cursor to the next row.
	Continue Step = iota
	// Break stops the cursor and resumes the program.
	Break
)

// Effect is a request a program makes of the driver. The set of effects is
// closed: GetEffect, PutEffect, DeleteEffect and IterateEffect.
type Effect interface {
	effect()
	String() string
}

// GetEffect reads one record by primary key.
type GetEffect struct {
	Table string
	Key   string
}

// PutEffect writes one record, replacing any previous value.
type PutEffect struct {
	Table string
	Key   string
	Value []byte
}

// DeleteEffect removes one record by primary key.
type DeleteEffect struct {
	Table string
	Key   string
}

// IterateEffect streams the records selected by Query through Fn.
//
// Fn runs on the driver's goroutine inside the cursor loop while the program
// is suspended. The program resumes once, after Fn returns Break, Fn fails,
// or the cursor is exhausted.
type IterateEffect struct {
	Query store.Query
	Fn    func(store.Record) (Step, error)
}

func (GetEffect) effect()     {}
func (PutEffect) effect()     {}
func (DeleteEffect) effect()  {}
func (IterateEffect) effect() {}

func (e GetEffect) String() string    { return fmt.Sprintf("get %s/%s", e.Table, e.Key) }
func (e PutEffect) String() string    { return fmt.Sprintf("put %s/%s", e.Table, e.Key) }
func (e DeleteEffect) String() string { return fmt.Sprintf("delete %s/%s", e.Table, e.Key) }
func (e IterateEffect) String() string {
	if e.Query.Index == "" {
		return fmt.Sprintf("iterate %s", e.Query.Table)
	}
	return fmt.Sprintf("iterate %s.%s", e.Query.Table, e.Query.Index)
}

// Result is the driver's answer to an effect.
type Result struct {
	// Value and Found are set by GetEffect.
	Value []byte
	Found bool

	// Rows is the number of rows an IterateEffect delivered to its callback.
	Rows int
}
