// Package store provides a SQLite-backed transactional key-value engine.
//
// A Store serves a fixed set of named tables. Each record is a JSON document
// under a string primary key. Tables may declare secondary indexes:
//   - KeyPath: a JSONPath expression (github.com/ohler55/ojg/jp) evaluated
//     against the record value
//   - MultiEntry: when the key path yields an array, every distinct element
//     becomes its own index entry
//
// Index entries are maintained in the same SQL transaction as the record, so
// a committed transaction never exposes a record without its entries.
//
// # Transactions
//
// Begin opens a transaction over an explicit set of tables in ReadOnly or
// ReadWrite mode. Read-write transactions are serialized by a one-slot
// semaphore held from Begin until Commit or Rollback. Read-only transactions
// run concurrently up to the connection pool size.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Schema upgrades are tracked with PRAGMA user_version. Index definitions are
// recorded per table; when they change between opens, the table's index
// entries are rebuilt.
package store
