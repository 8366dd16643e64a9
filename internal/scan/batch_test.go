package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellstore/internal/cell"
)

var westminster = cell.LatLng{Lat: 51.5007, Lng: -0.1246}

func batchYAML(key string) string {
	return fmt.Sprintf(`
fetch_time: 1000
bounds:
  - [-0.13, 51.50, -0.12, 51.51]
  - [179.9, -0.1, -179.9, 0.1]
cells:
  %q:
    - guid: g1
      lat: 51.5007
      lng: -0.1246
      title: Big Ben
      tags: [POKESTOP/ACTIVE]
      data:
        sponsor: none
        rank: 3
    - guid: g2
      lat: 51.5008
      lng: -0.1247
`, key)
}

func TestParse(t *testing.T) {
	id := cell.MustIDOf(westminster, 14)

	b, err := Parse([]byte(batchYAML(string(id))))
	require.NoError(t, err)

	assert.Equal(t, int64(1000), b.Time().UnixMilli())

	bounds := b.ScannedBounds()
	require.Len(t, bounds, 2)
	assert.False(t, bounds[0].Wraps())
	assert.True(t, bounds[1].Wraps())

	scan, err := b.Scan()
	require.NoError(t, err)
	require.Contains(t, scan, id)
	pois := scan[id]
	require.Len(t, pois, 2)
	assert.Equal(t, "Big Ben", pois[0].Title)
	assert.Equal(t, []string{"POKESTOP/ACTIVE"}, pois[0].Tags)
	assert.JSONEq(t, `{"sponsor":"none","rank":3}`, string(pois[0].Data))
	assert.Empty(t, pois[1].Data)
}

func TestParse_TokenKeys(t *testing.T) {
	c, err := cell.CellAt(westminster, 14)
	require.NoError(t, err)

	b, err := Parse([]byte(batchYAML(cell.Token(c.PackedID()))))
	require.NoError(t, err)

	scan, err := b.Scan()
	require.NoError(t, err)
	assert.Contains(t, scan, c.ID())
}

func TestParse_JSON(t *testing.T) {
	id := cell.MustIDOf(westminster, 14)
	doc := fmt.Sprintf(`{"fetch_time": 5, "cells": {%q: []}}`, id)

	b, err := Parse([]byte(doc))
	require.NoError(t, err)

	scan, err := b.Scan()
	require.NoError(t, err)
	pois, ok := scan[id]
	require.True(t, ok, "an empty payload still marks the cell as scanned")
	assert.Empty(t, pois)
}

func TestParse_Invalid(t *testing.T) {
	id := cell.MustIDOf(westminster, 14)
	id15 := cell.MustIDOf(westminster, 15)

	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", `{"fetch_time": 1, "cels": {}}`},
		{"missing fetch time", fmt.Sprintf(`{"cells": {%q: []}}`, id)},
		{"bad bounds latitude", `{"fetch_time": 1, "bounds": [[0, -91, 1, 1]]}`},
		{"bad bounds longitude", `{"fetch_time": 1, "bounds": [[0, 0, 181, 1]]}`},
		{"wrong cell level", fmt.Sprintf(`{"fetch_time": 1, "cells": {%q: []}}`, id15)},
		{"bad token", `{"fetch_time": 1, "cells": {"zz": []}}`},
		{"missing guid", fmt.Sprintf(`{"fetch_time": 1, "cells": {%q: [{"lat": 1, "lng": 1}]}}`, id)},
		{"bad coordinate", fmt.Sprintf(`{"fetch_time": 1, "cells": {%q: [{"guid": "g", "lat": 100, "lng": 1}]}}`, id)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(batchYAML(string(cell.MustIDOf(westminster, 14)))), 0o644))

	b, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, b.Cells, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
