package store

import "errors"

var (
	// ErrUnknownTable is returned when a transaction names a table the
	// store's schema does not declare.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownIndex is returned when a scan names an index its table
	// does not declare.
	ErrUnknownIndex = errors.New("unknown index")

	// ErrNotInScope is returned when a transaction touches a table outside
	// the set it was opened over.
	ErrNotInScope = errors.New("table not in transaction scope")

	// ErrReadOnly is returned by writes on a read-only transaction.
	ErrReadOnly = errors.New("transaction is read-only")

	// ErrTxDone is returned by any operation on a committed or rolled back
	// transaction.
	ErrTxDone = errors.New("transaction already finished")

	// ErrInvalidValue is returned when a stored value is not a JSON document.
	ErrInvalidValue = errors.New("value is not valid JSON")
)
