package poi

import (
	"context"
	"fmt"

	"github.com/roach88/cellstore/internal/cell"
	"github.com/roach88/cellstore/internal/store"
	"github.com/roach88/cellstore/internal/txn"
)

// Poi returns the record with guid, or nil if there is none.
func (s *Store) Poi(ctx context.Context, guid string) (*PoiRecord, error) {
	rec, err := txn.Run(ctx, s.db, store.ReadOnly, []string{PoisTable},
		func(t *txn.T) (*PoiRecord, error) {
			rec, ok, err := txn.Get[PoiRecord](t, PoisTable, guid)
			if err != nil || !ok {
				return nil, err
			}
			return &rec, nil
		})
	if err != nil {
		return nil, fmt.Errorf("poi %s: %w", guid, err)
	}
	return rec, nil
}

// PoisInCell returns the records indexed under a level-14 or level-15 cell,
// ordered by guid.
func (s *Store) PoisInCell(ctx context.Context, id cell.ID) ([]PoiRecord, error) {
	if lvl := id.Level(); lvl != ScanLevel && lvl != Level15 {
		if err := id.Check(ScanLevel); err != nil {
			return nil, fmt.Errorf("pois in cell: %w", err)
		}
	}

	pois, err := txn.Run(ctx, s.db, store.ReadOnly, []string{PoisTable},
		func(t *txn.T) ([]PoiRecord, error) {
			var out []PoiRecord
			err := txn.Each(t, store.Query{Table: PoisTable, Index: CellIDsIndex, Range: store.Only(string(id))},
				func(_ string, p PoiRecord) (txn.Step, error) {
					out = append(out, p)
					return txn.Continue, nil
				})
			return out, err
		})
	if err != nil {
		return nil, fmt.Errorf("pois in cell %s: %w", id, err)
	}
	return pois, nil
}
