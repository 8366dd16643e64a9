package poi

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/cellstore/internal/cell"
	"github.com/roach88/cellstore/internal/store"
	"github.com/roach88/cellstore/internal/txn"
)

// SubCellStats aggregates the stop-class POIs of one level-16 or level-17
// cell. LastFetchDate is 0 until a POI or a scan of the cell sets it.
type SubCellStats struct {
	Kinds         map[string]int `json:"kinds"`
	LastFetchDate int64          `json:"last_fetch_date"`
}

// CellStats is computed on demand for one level-14 cell and never stored.
type CellStats struct {
	ID      cell.ID        `json:"id"`
	Cell    cell.Cell      `json:"-"`
	Center  cell.LatLng    `json:"center"`
	Corners [4]cell.LatLng `json:"corners"`

	// Pois holds one record per distinct coordinate, first seen wins.
	Pois       []PoiRecord            `json:"pois"`
	KindToPois map[string][]PoiRecord `json:"kind_to_pois"`

	Level16 map[cell.ID]*SubCellStats `json:"level16"`
	Level17 map[cell.ID]*SubCellStats `json:"level17"`
}

func newCellStats(c cell.Cell) *CellStats {
	return &CellStats{
		ID:         c.ID(),
		Cell:       c,
		Center:     c.Center(),
		Corners:    c.Corners,
		KindToPois: make(map[string][]PoiRecord),
		Level16:    make(map[cell.ID]*SubCellStats),
		Level17:    make(map[cell.ID]*SubCellStats),
	}
}

func subCell(m map[cell.ID]*SubCellStats, id cell.ID) *SubCellStats {
	sc, ok := m[id]
	if !ok {
		sc = &SubCellStats{Kinds: make(map[string]int)}
		m[id] = sc
	}
	return sc
}

// CellStats computes the statistics of the level-14 cell id in one read-only
// transaction. It returns nil when the cell was never scanned.
func (s *Store) CellStats(ctx context.Context, id cell.ID) (*CellStats, error) {
	if err := id.Check(ScanLevel); err != nil {
		return nil, fmt.Errorf("cell stats: %w", err)
	}
	c, err := cell.FromID(id)
	if err != nil {
		return nil, fmt.Errorf("cell stats: %w", err)
	}

	stats, err := txn.Run(ctx, s.db, store.ReadOnly, []string{PoisTable, CellsTable},
		func(t *txn.T) (*CellStats, error) {
			return s.collect(t, c)
		})
	if err != nil {
		return nil, fmt.Errorf("cell stats %s: %w", id, err)
	}
	return stats, nil
}

// CellStatsAt computes the statistics of the level-14 cell containing ll.
func (s *Store) CellStatsAt(ctx context.Context, ll cell.LatLng) (*CellStats, error) {
	return s.CellStats(ctx, cell.MustIDOf(ll, ScanLevel))
}

func (s *Store) collect(t *txn.T, c cell.Cell) (*CellStats, error) {
	stats := newCellStats(c)
	id := string(stats.ID)

	seen := make(map[cell.LatLng]bool)
	err := txn.Each(t, store.Query{Table: PoisTable, Index: CellIDsIndex, Range: store.Only(id)},
		func(_ string, p PoiRecord) (txn.Step, error) {
			ll := p.LatLng()
			if seen[ll] {
				return txn.Continue, nil
			}
			seen[ll] = true

			kind := p.Kind()
			stats.Pois = append(stats.Pois, p)
			stats.KindToPois[kind] = append(stats.KindToPois[kind], p)
			if !s.stopKinds[kind] {
				return txn.Continue, nil
			}
			for _, m := range []struct {
				level int
				stats map[cell.ID]*SubCellStats
			}{{Level16, stats.Level16}, {LeafLevel, stats.Level17}} {
				sc := subCell(m.stats, cell.MustIDOf(ll, m.level))
				sc.Kinds[kind]++
				if p.LastFetchDate > sc.LastFetchDate {
					sc.LastFetchDate = p.LastFetchDate
				}
			}
			return txn.Continue, nil
		})
	if err != nil {
		return nil, fmt.Errorf("pois: %w", err)
	}

	err = txn.Each(t, store.Query{Table: CellsTable, Index: AncestorIDsIndex, Range: store.Only(id)},
		func(_ string, rec CellRecord) (txn.Step, error) {
			if rec.Level != LeafLevel {
				return txn.Continue, nil
			}
			sc := subCell(stats.Level17, rec.CellID)
			if sc.LastFetchDate == 0 {
				sc.LastFetchDate = rec.LastFetchDate
			}
			return txn.Continue, nil
		})
	if err != nil {
		return nil, fmt.Errorf("cells: %w", err)
	}

	if len(stats.Pois) == 0 && len(stats.Level17) == 0 {
		return nil, nil
	}
	return stats, nil
}

// StatsInBounds computes CellStats for every level-14 cell intersecting
// bounds, skipping cells that were never scanned. Cells are queried
// concurrently in separate read-only transactions; the result follows
// NearbyCells order.
func (s *Store) StatsInBounds(ctx context.Context, bounds cell.Bounds) ([]*CellStats, error) {
	cells := NearbyCells(bounds, ScanLevel)
	results := make([]*CellStats, len(cells))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for k, c := range cells {
		g.Go(func() error {
			stats, err := s.CellStats(gctx, c.ID())
			if err != nil {
				return err
			}
			results[k] = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("stats in bounds: %w", err)
	}

	out := make([]*CellStats, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}
