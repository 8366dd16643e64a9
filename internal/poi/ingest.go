package poi

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/cellstore/internal/cell"
	"github.com/roach88/cellstore/internal/store"
	"github.com/roach88/cellstore/internal/txn"
)

// IngestReport summarizes one committed ingestion.
type IngestReport struct {
	// BatchID is a UUIDv7 identifying the ingestion, time-ordered across runs.
	BatchID       string    `json:"batch_id"`
	FetchTime     time.Time `json:"fetch_time"`
	ScannedCells  int       `json:"scanned_cells"`
	EmptyCells    int       `json:"empty_cells"`
	PoisUpserted  int       `json:"pois_upserted"`
	PoisRemoved   int       `json:"pois_removed"`
	LeavesWritten int       `json:"leaves_written"`
}

// Ingest reconciles a scan against stored state in one read-write
// transaction.
//
// Every level-14 cell covered by bounds that the scan has no entry for is an
// empty cell. For each scanned cell, POIs previously indexed under it that
// the batch no longer reports are removed. Every reported POI is merged into
// its previous record. Finally, all 64 level-17 leaves of every scanned and
// empty cell are written with fetchTime as their last fetch date.
//
// If ctx ends first nothing is written and the error matches
// txn.ErrCancelled.
func (s *Store) Ingest(ctx context.Context, scan Scan, bounds []cell.Bounds, fetchTime time.Time) (IngestReport, error) {
	scanned := make([]cell.ID, 0, len(scan))
	for id := range scan {
		if err := id.Check(ScanLevel); err != nil {
			return IngestReport{}, fmt.Errorf("ingest: scanned cell: %w", err)
		}
		scanned = append(scanned, id)
	}
	sort.Slice(scanned, func(i, j int) bool { return scanned[i] < scanned[j] })

	empty := emptyCells(scan, bounds)

	plan := ingestPlan{
		scan:      scan,
		scanned:   scanned,
		empty:     empty,
		fetchTime: fetchTime.UnixMilli(),
	}
	report, err := txn.Run(ctx, s.db, store.ReadWrite, []string{PoisTable, CellsTable}, plan.run)
	if err != nil {
		if txn.IsCancelled(err) {
			slog.Info("ingest cancelled", "scanned_cells", len(scanned))
		}
		return IngestReport{}, fmt.Errorf("ingest: %w", err)
	}

	report.BatchID = uuid.Must(uuid.NewV7()).String()
	report.FetchTime = fetchTime
	slog.Info("ingest committed",
		"batch_id", report.BatchID,
		"scanned_cells", report.ScannedCells,
		"empty_cells", report.EmptyCells,
		"pois_upserted", report.PoisUpserted,
		"pois_removed", report.PoisRemoved,
		"leaves_written", report.LeavesWritten,
	)
	return report, nil
}

// emptyCells returns, in discovery order, the level-14 cells covered by
// bounds that the scan did not report.
func emptyCells(scan Scan, bounds []cell.Bounds) []cell.ID {
	var out []cell.ID
	seen := make(map[cell.ID]bool)
	for _, b := range bounds {
		for _, c := range NearbyCells(b, ScanLevel) {
			id := c.ID()
			if _, ok := scan[id]; ok || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

type ingestPlan struct {
	scan      Scan
	scanned   []cell.ID
	empty     []cell.ID
	fetchTime int64
}

func (p ingestPlan) run(t *txn.T) (IngestReport, error) {
	report := IngestReport{ScannedCells: len(p.scanned), EmptyCells: len(p.empty)}

	reported := make(map[string]bool)
	for _, pois := range p.scan {
		for _, sp := range pois {
			reported[sp.GUID] = true
		}
	}

	removed, err := p.removeStale(t, reported)
	if err != nil {
		return report, err
	}
	report.PoisRemoved = removed

	upserted, err := p.mergeAll(t)
	if err != nil {
		return report, err
	}
	report.PoisUpserted = upserted

	for _, ids := range [][]cell.ID{p.scanned, p.empty} {
		for _, id := range ids {
			n, err := p.writeLeaves(t, id)
			if err != nil {
				return report, err
			}
			report.LeavesWritten += n
		}
	}
	return report, nil
}

// removeStale deletes POIs indexed under a scanned cell that the batch does
// not report anywhere. A POI that moved to another scanned cell is kept so
// the merge step preserves its first fetch date.
func (p ingestPlan) removeStale(t *txn.T, reported map[string]bool) (int, error) {
	removed := 0
	for _, id := range p.scanned {
		guids, err := txn.Keys(t, store.Query{Table: PoisTable, Index: CellIDsIndex, Range: store.Only(string(id))})
		if err != nil {
			return removed, fmt.Errorf("stale pois in %s: %w", id, err)
		}
		for _, guid := range guids {
			if reported[guid] {
				continue
			}
			if err := txn.Delete(t, PoisTable, guid); err != nil {
				return removed, fmt.Errorf("remove poi %s: %w", guid, err)
			}
			removed++
		}
	}
	return removed, nil
}

// mergeAll merges every reported POI, visiting scanned cells in key order. A
// guid reported twice is merged twice, the second time over the first.
func (p ingestPlan) mergeAll(t *txn.T) (int, error) {
	merged := make(map[string]PoiRecord)
	for _, id := range p.scanned {
		for _, sp := range p.scan[id] {
			var old *PoiRecord
			if prev, ok := merged[sp.GUID]; ok {
				old = &prev
			} else {
				rec, found, err := txn.Get[PoiRecord](t, PoisTable, sp.GUID)
				if err != nil {
					return len(merged), fmt.Errorf("read poi %s: %w", sp.GUID, err)
				}
				if found {
					old = &rec
				}
			}
			merged[sp.GUID] = Merge(old, sp, p.fetchTime)
		}
	}

	guids := make([]string, 0, len(merged))
	for guid := range merged {
		guids = append(guids, guid)
	}
	sort.Strings(guids)
	for _, guid := range guids {
		if err := txn.Put(t, PoisTable, guid, merged[guid]); err != nil {
			return 0, fmt.Errorf("write poi %s: %w", guid, err)
		}
	}
	return len(merged), nil
}

// writeLeaves upserts the level-17 leaves of a level-14 cell, keeping the
// first fetch date of leaves that already exist.
func (p ingestPlan) writeLeaves(t *txn.T, id cell.ID) (int, error) {
	c, err := cell.FromID(id)
	if err != nil {
		return 0, fmt.Errorf("leaves of %s: %w", id, err)
	}
	leaves, err := cell.Descendants(c, LeafLevel)
	if err != nil {
		return 0, fmt.Errorf("leaves of %s: %w", id, err)
	}

	first := make(map[cell.ID]int64, len(leaves))
	err = txn.Each(t, store.Query{Table: CellsTable, Index: AncestorIDsIndex, Range: store.Only(string(id))},
		func(_ string, rec CellRecord) (txn.Step, error) {
			if rec.Level == LeafLevel {
				first[rec.CellID] = rec.FirstFetchDate
			}
			return txn.Continue, nil
		})
	if err != nil {
		return 0, fmt.Errorf("existing leaves of %s: %w", id, err)
	}

	for _, leaf := range leaves {
		leafID := leaf.ID()
		rec := CellRecord{
			CellID:         leafID,
			Level:          LeafLevel,
			AncestorIDs:    []cell.ID{id},
			FirstFetchDate: p.fetchTime,
			LastFetchDate:  p.fetchTime,
			Center:         leaf.Center(),
		}
		if prev, ok := first[leafID]; ok {
			rec.FirstFetchDate = prev
		}
		if err := txn.Put(t, CellsTable, string(leafID), rec); err != nil {
			return 0, fmt.Errorf("write leaf %s: %w", leafID, err)
		}
	}
	return len(leaves), nil
}
