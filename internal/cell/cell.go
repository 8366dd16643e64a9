package cell

import (
	"fmt"

	"github.com/golang/geo/s2"
)

// LatLng is a geographic coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

func (ll LatLng) toS2() s2.LatLng {
	return s2.LatLngFromDegrees(ll.Lat, ll.Lng)
}

func latLngFromPoint(p s2.Point) LatLng {
	ll := s2.LatLngFromPoint(p)
	return LatLng{Lat: ll.Lat.Degrees(), Lng: ll.Lng.Degrees()}
}

// Cell is an in-memory handle on one cell of the hierarchy.
//
// I and J are the cell's grid coordinates on its face at its own level, so
// both lie in [0, 2^Level). Corners are in counter-clockwise order starting at
// the cell's lower-left (in face (u, v) space) vertex.
type Cell struct {
	Face    int
	I, J    uint32
	Level   int
	Corners [4]LatLng

	key QuadKey
}

const (
	swapMask   = 1
	invertMask = 2
)

// Hilbert curve traversal tables. posToIJ maps (orientation, digit) to the
// packed (i<<1 | j) quadrant, posToOrientation gives the orientation change
// when descending through a digit.
var (
	posToIJ = [4][4]uint8{
		{0, 1, 3, 2},
		{0, 2, 3, 1},
		{3, 2, 0, 1},
		{3, 1, 0, 2},
	}
	posToOrientation = [4]int{swapMask, 0, 0, invertMask | swapMask}
)

// FromQuadKey builds the cell addressed by q.
func FromQuadKey(q QuadKey) Cell {
	var i, j uint32
	orientation := q.Face & swapMask
	for _, d := range q.Digits {
		ij := posToIJ[orientation][d]
		i = i<<1 | uint32(ij>>1)
		j = j<<1 | uint32(ij&1)
		orientation ^= posToOrientation[d]
	}

	sc := s2.CellFromCellID(s2.CellID(q.Pack()))
	var corners [4]LatLng
	for k := range corners {
		corners[k] = latLngFromPoint(sc.Vertex(k))
	}

	return Cell{
		Face:    q.Face,
		I:       i,
		J:       j,
		Level:   q.Level(),
		Corners: corners,
		key:     q,
	}
}

// FromID builds the cell addressed by a storage key.
func FromID(id ID) (Cell, error) {
	q, err := ParseQuadKey(string(id))
	if err != nil {
		return Cell{}, err
	}
	return FromQuadKey(q), nil
}

// FromPacked builds the cell addressed by a packed identifier.
func FromPacked(id uint64) (Cell, error) {
	q, err := Unpack(id)
	if err != nil {
		return Cell{}, err
	}
	return FromQuadKey(q), nil
}

// CellAt returns the cell at level containing ll.
func CellAt(ll LatLng, level int) (Cell, error) {
	q, err := quadKeyAt(ll, level)
	if err != nil {
		return Cell{}, err
	}
	return FromQuadKey(q), nil
}

// IDOf returns the storage key of the cell at level containing ll. Two
// coordinates produce the same ID iff they fall in the same cell.
func IDOf(ll LatLng, level int) (ID, error) {
	q, err := quadKeyAt(ll, level)
	if err != nil {
		return "", err
	}
	return q.ID(), nil
}

// MustIDOf is like IDOf but panics if level is out of range. It is meant for
// callers passing a constant level.
func MustIDOf(ll LatLng, level int) ID {
	id, err := IDOf(ll, level)
	if err != nil {
		panic(err)
	}
	return id
}

func quadKeyAt(ll LatLng, level int) (QuadKey, error) {
	if level < 0 || level > MaxLevel {
		return QuadKey{}, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	leaf := s2.CellIDFromLatLng(ll.toS2())
	return Unpack(uint64(leaf.Parent(level)))
}

// QuadKey returns the cell's hierarchical path.
func (c Cell) QuadKey() QuadKey {
	return c.key
}

// ID returns the cell's storage key.
func (c Cell) ID() ID {
	return c.key.ID()
}

// PackedID returns the cell's 64-bit identifier.
func (c Cell) PackedID() uint64 {
	return c.key.Pack()
}

// PackedIDOf returns the 64-bit identifier of c.
func PackedIDOf(c Cell) uint64 {
	return c.PackedID()
}

// Center returns the cell's center coordinate.
func (c Cell) Center() LatLng {
	return latLngFromPoint(s2.CellID(c.PackedID()).Point())
}

// Bound returns the rectangle spanned by the cell's four corners.
func (c Cell) Bound() Bounds {
	return BoundsFromCorners(c.Corners)
}

// Contains reports whether ll falls inside the cell.
func (c Cell) Contains(ll LatLng) bool {
	return s2.CellID(c.PackedID()).Contains(s2.CellIDFromLatLng(ll.toS2()))
}

// Neighbors returns the four cells sharing an edge with c, at c's level.
func (c Cell) Neighbors() [4]Cell {
	var out [4]Cell
	for k, n := range s2.CellID(c.PackedID()).EdgeNeighbors() {
		q, err := Unpack(uint64(n))
		if err != nil {
			panic(fmt.Sprintf("cell: edge neighbor of %s is not a cell: %v", c.ID(), err))
		}
		out[k] = FromQuadKey(q)
	}
	return out
}

// ChildCells returns the four children of c in digit order 0..3.
func ChildCells(c Cell) ([4]Cell, error) {
	var out [4]Cell
	if c.Level >= MaxLevel {
		return out, fmt.Errorf("%w: %s is at level %d", ErrMaxLevelExceeded, c.ID(), c.Level)
	}
	for d := range out {
		out[d] = FromQuadKey(c.key.Child(uint8(d)))
	}
	return out, nil
}

// Descendants returns every descendant of c at level, in quadkey order.
func Descendants(c Cell, level int) ([]Cell, error) {
	if level < c.Level || level > MaxLevel {
		return nil, fmt.Errorf("%w: cannot descend from %d to %d", ErrInvalidLevel, c.Level, level)
	}
	out := []Cell{c}
	for l := c.Level; l < level; l++ {
		next := make([]Cell, 0, len(out)*4)
		for _, p := range out {
			children, err := ChildCells(p)
			if err != nil {
				return nil, err
			}
			next = append(next, children[:]...)
		}
		out = next
	}
	return out, nil
}
