package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellstore/internal/scan"
)

var (
	bigBen = scan.Poi{GUID: "bigben", Lat: 51.5007, Lng: -0.1246, Title: "Big Ben", Tags: []string{"POKESTOP/ACTIVE"}}
	eiffel = scan.Poi{GUID: "eiffel", Lat: 48.8584, Lng: 2.2945, Title: "Eiffel Tower", Tags: []string{"GYM/ACTIVE"}}
)

func at(lat, lng float64) *[2]float64 {
	return &[2]float64{lat, lng}
}

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_SingleStep(t *testing.T) {
	scenario := &Scenario{
		Name:        "single",
		Description: "one step",
		Steps: []Step{
			{FetchTime: 1000, Pois: []scan.Poi{bigBen, eiffel}},
		},
		Assertions: []Assertion{
			{Type: AssertPoiExists, GUID: "bigben", Expect: map[string]any{"name": "Big Ben", "first_fetch_date": 1000}},
			{Type: AssertCellKindCount, At: at(eiffel.Lat, eiffel.Lng), Kind: "GYM", Count: 1},
			{Type: AssertLeafCount, At: at(bigBen.Lat, bigBen.Lng), Count: 64},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, StepReport{ScannedCells: 2, PoisUpserted: 2, LeavesWritten: 128}, result.Steps[0])
	require.Len(t, result.Pois, 2)
	assert.Equal(t, "bigben", result.Pois[0].GUID)
	assert.Equal(t, "eiffel", result.Pois[1].GUID)
}

func TestRun_FailingAssertionIsReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "failing",
		Description: "wrong count",
		Steps:       []Step{{FetchTime: 1000, Pois: []scan.Poi{bigBen}}},
		Assertions: []Assertion{
			{Type: AssertCellKindCount, At: at(bigBen.Lat, bigBen.Lng), Kind: "POKESTOP", Count: 2},
			{Type: AssertPoiAbsent, GUID: "bigben"},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "cell_kind_count")
	assert.Contains(t, result.Errors[0], "Actual: 1")
	assert.Contains(t, result.Errors[1], "poi_absent")
}

func TestRun_BoundsProduceEmptyCells(t *testing.T) {
	scenario := &Scenario{
		Name:        "empty_cells",
		Description: "bounds without POIs",
		Steps: []Step{
			{FetchTime: 5000, Bounds: [][4]float64{{-0.1250, 51.5000, -0.1240, 51.5010}}},
		},
		Assertions: []Assertion{
			{Type: AssertCellPoiCount, At: at(bigBen.Lat, bigBen.Lng), Count: 0},
			{Type: AssertLeafCount, At: at(bigBen.Lat, bigBen.Lng), Count: 64},
			{Type: AssertLeafLastFetch, At: at(bigBen.Lat, bigBen.Lng), FetchDate: 5000},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Steps, 1)
	step := result.Steps[0]
	assert.Equal(t, 0, step.ScannedCells)
	assert.GreaterOrEqual(t, step.EmptyCells, 1)
	assert.Equal(t, 64*step.EmptyCells, step.LeavesWritten)
	assert.Empty(t, result.Pois)
}

func TestRun_StopKindsOverride(t *testing.T) {
	scenario := &Scenario{
		Name:        "stop_kinds",
		Description: "only gyms count in sub-cells",
		StopKinds:   []string{"GYM"},
		Steps:       []Step{{FetchTime: 1000, Pois: []scan.Poi{bigBen}}},
		Assertions: []Assertion{
			{Type: AssertCellKindCount, At: at(bigBen.Lat, bigBen.Lng), Kind: "POKESTOP", Count: 1},
			{Type: AssertLeafKindCount, At: at(bigBen.Lat, bigBen.Lng), Kind: "POKESTOP", Count: 0},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_NeverScannedCellIsAbsent(t *testing.T) {
	scenario := &Scenario{
		Name:        "absent",
		Description: "unscanned cell has no statistics",
		Steps:       []Step{{FetchTime: 1000, Pois: []scan.Poi{bigBen}}},
		Assertions: []Assertion{
			{Type: AssertCellAbsent, At: at(eiffel.Lat, eiffel.Lng)},
			{Type: AssertLeafCount, At: at(eiffel.Lat, eiffel.Lng), Count: 0},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Deterministic(t *testing.T) {
	scenario := &Scenario{
		Name:        "deterministic",
		Description: "same snapshot twice",
		Steps: []Step{
			{FetchTime: 1000, Pois: []scan.Poi{eiffel, bigBen}},
			{FetchTime: 2000, Pois: []scan.Poi{bigBen}, Scanned: [][2]float64{{eiffel.Lat, eiffel.Lng}}},
		},
	}

	first, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	second, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	a, err := first.Snapshot()
	require.NoError(t, err)
	b, err := second.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scenario := &Scenario{
		Name:        "cancelled",
		Description: "cancelled before the first step",
		Steps:       []Step{{FetchTime: 1000, Pois: []scan.Poi{bigBen}}},
	}

	_, err := Run(ctx, scenario)
	assert.Error(t, err)
}
