package testutil

import (
	"path/filepath"
	"testing"

	"github.com/roach88/cellstore/internal/cell"
)

// DBPath returns a fresh database path inside the test's temp directory.
func DBPath(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "cellstore.db")
}

// CellAt returns the cell at level containing ll, failing the test on error.
func CellAt(t testing.TB, ll cell.LatLng, level int) cell.Cell {
	t.Helper()
	c, err := cell.CellAt(ll, level)
	if err != nil {
		t.Fatalf("CellAt(%v, %d): %v", ll, level, err)
	}
	return c
}

// Offset returns a coordinate displaced from the center of c by the given
// fractions of the cell's corner rectangle, so small fractions (within 0.15) stay
// well inside small cells.
func Offset(c cell.Cell, fLat, fLng float64) cell.LatLng {
	b := c.Bound()
	center := c.Center()
	return cell.LatLng{
		Lat: center.Lat + fLat*(b.Max.Lat()-b.Min.Lat()),
		Lng: center.Lng + fLng*(b.Max.Lon()-b.Min.Lon()),
	}
}
