package poi

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellstore/internal/cell"
	"github.com/roach88/cellstore/internal/testutil"
)

func TestNearbyCells_Soundness(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))

	for n := 0; n < 50; n++ {
		lat := r.Float64()*120 - 60
		lng := r.Float64()*360 - 180
		b := cell.NewBounds(lng, lat, lng+r.Float64()*0.05, lat+r.Float64()*0.05)
		level := 12 + r.IntN(4)

		cells := NearbyCells(b, level)
		require.NotEmpty(t, cells)

		seen := make(map[cell.ID]bool)
		for _, c := range cells {
			assert.Equal(t, level, c.Level)
			assert.True(t, c.Bound().Intersects(b), "cell %s does not intersect %v", c.ID(), b)
			assert.False(t, seen[c.ID()], "cell %s returned twice", c.ID())
			seen[c.ID()] = true
		}
	}
}

func TestNearbyCells_CellRectangleFindsCell(t *testing.T) {
	for _, ll := range []cell.LatLng{westminster, {Lat: -33.8568, Lng: 151.2153}, {Lat: 64.1466, Lng: -21.9426}} {
		c := testutil.CellAt(t, ll, ScanLevel)

		var ids []cell.ID
		for _, got := range NearbyCells(c.Bound(), ScanLevel) {
			ids = append(ids, got.ID())
		}
		assert.Contains(t, ids, c.ID())
	}
}

func TestNearbyCells_ContainsCellsOfInteriorPoints(t *testing.T) {
	c := testutil.CellAt(t, westminster, 13)
	b := c.Bound()

	got := make(map[cell.ID]bool)
	for _, n := range NearbyCells(b, 15) {
		got[n.ID()] = true
	}

	children, err := cell.Descendants(c, 15)
	require.NoError(t, err)
	for _, child := range children {
		assert.True(t, got[child.ID()], "child %s of %s missing", child.ID(), c.ID())
	}
}

func TestNearbyCells_Antimeridian(t *testing.T) {
	b := cell.NewBounds(179.99, -0.01, -179.99, 0.01)

	cells := NearbyCells(b, ScanLevel)
	require.NotEmpty(t, cells)

	var east, west bool
	for _, c := range cells {
		assert.True(t, c.Bound().Intersects(b))
		if c.Center().Lng > 0 {
			east = true
		} else {
			west = true
		}
	}
	assert.True(t, east, "expected cells east of the antimeridian")
	assert.True(t, west, "expected cells west of the antimeridian")
}

func TestNearbyCells_InvalidLevel(t *testing.T) {
	assert.Nil(t, NearbyCells(cell.NewBounds(0, 0, 1, 1), 31))
}
