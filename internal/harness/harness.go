package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/cellstore/internal/cell"
	"github.com/roach88/cellstore/internal/poi"
	"github.com/roach88/cellstore/internal/scan"
)

// Harness executes one scenario against its own store.
type Harness struct {
	store  *poi.Store
	logger *slog.Logger
	guids  map[string]bool
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh database inside a temporary directory that
// is removed afterwards. Steps are ingested in order; the first ingestion
// error aborts the run. Assertion failures are collected in the result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "cellstore-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := poi.Open(ctx, poi.Config{
		Path:      filepath.Join(dir, "scenario.db"),
		StopKinds: scenario.StopKinds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		guids:  make(map[string]bool),
	}

	result := NewResult(scenario.Name)
	for i, step := range scenario.Steps {
		report, err := h.ingest(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		result.Steps = append(result.Steps, StepReport{
			ScannedCells:  report.ScannedCells,
			EmptyCells:    report.EmptyCells,
			PoisUpserted:  report.PoisUpserted,
			PoisRemoved:   report.PoisRemoved,
			LeavesWritten: report.LeavesWritten,
		})
		h.logger.Info("step ingested", "step", i, "batch_id", report.BatchID)
	}

	if err := h.snapshotPois(ctx, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// ingest converts a step into a batch keyed by level-14 cell and ingests it.
func (h *Harness) ingest(ctx context.Context, step Step) (poi.IngestReport, error) {
	batch := scan.Batch{
		FetchTime: step.FetchTime,
		Bounds:    step.Bounds,
		Cells:     make(map[string][]scan.Poi),
	}
	for _, p := range step.Pois {
		key := string(cell.MustIDOf(cell.LatLng{Lat: p.Lat, Lng: p.Lng}, poi.ScanLevel))
		batch.Cells[key] = append(batch.Cells[key], p)
		h.guids[p.GUID] = true
	}
	for _, ll := range step.Scanned {
		key := string(cell.MustIDOf(cell.LatLng{Lat: ll[0], Lng: ll[1]}, poi.ScanLevel))
		if _, ok := batch.Cells[key]; !ok {
			batch.Cells[key] = []scan.Poi{}
		}
	}

	if err := batch.Validate(); err != nil {
		return poi.IngestReport{}, err
	}
	sc, err := batch.Scan()
	if err != nil {
		return poi.IngestReport{}, err
	}
	return h.store.Ingest(ctx, sc, batch.ScannedBounds(), batch.Time())
}

// snapshotPois records every POI the scenario ever reported that is still
// stored, ordered by guid.
func (h *Harness) snapshotPois(ctx context.Context, result *Result) error {
	guids := make([]string, 0, len(h.guids))
	for g := range h.guids {
		guids = append(guids, g)
	}
	sort.Strings(guids)

	for _, g := range guids {
		rec, err := h.store.Poi(ctx, g)
		if err != nil {
			return err
		}
		if rec == nil {
			continue
		}
		result.Pois = append(result.Pois, PoiSnapshot{
			GUID:           rec.GUID,
			Name:           rec.Name,
			Kind:           rec.Kind(),
			FirstFetchDate: rec.FirstFetchDate,
			LastFetchDate:  rec.LastFetchDate,
		})
	}
	return nil
}
