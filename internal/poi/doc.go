// Package poi is the spatial record store: points of interest and scanned
// cells, indexed by the level-14 cells that contain them.
//
// Two tables back a Store:
//   - pois: PoiRecord by guid, multi-entry index cell_ids over the record's
//     level-14 and level-15 cells
//   - cells: CellRecord by cell id, multi-entry index ancestor_ids over the
//     record's level-14 ancestor
//
// Ingest is the only writer. It runs as one read-write transaction, so a
// failed or cancelled ingestion leaves nothing behind. CellStats and the
// other queries run in read-only transactions and may run concurrently.
//
// Statistics are recomputed on every call; nothing here caches them.
package poi
