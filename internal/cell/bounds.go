package cell

import (
	"math"

	"github.com/paulmach/orb"
)

// Bounds is a lon/lat rectangle. When Min.Lon() > Max.Lon() the rectangle
// wraps across the antimeridian and covers [Min.Lon(), 180] plus
// [-180, Max.Lon()].
type Bounds struct {
	orb.Bound
}

// NewBounds builds a rectangle from its west, south, east and north edges.
// west > east describes a rectangle crossing the antimeridian.
func NewBounds(west, south, east, north float64) Bounds {
	return Bounds{orb.Bound{
		Min: orb.Point{west, math.Min(south, north)},
		Max: orb.Point{east, math.Max(south, north)},
	}}
}

// Wraps reports whether the rectangle crosses the antimeridian.
func (b Bounds) Wraps() bool {
	return b.Min.Lon() > b.Max.Lon()
}

// Center returns the rectangle's midpoint, honoring wraparound.
func (b Bounds) Center() LatLng {
	lat := (b.Min.Lat() + b.Max.Lat()) / 2
	if !b.Wraps() {
		return LatLng{Lat: lat, Lng: (b.Min.Lon() + b.Max.Lon()) / 2}
	}
	lng := (b.Min.Lon() + b.Max.Lon() + 360) / 2
	if lng > 180 {
		lng -= 360
	}
	return LatLng{Lat: lat, Lng: lng}
}

// Contains reports whether ll lies inside the rectangle.
func (b Bounds) Contains(ll LatLng) bool {
	p := orb.Point{ll.Lng, ll.Lat}
	for _, part := range b.parts() {
		if part.Contains(p) {
			return true
		}
	}
	return false
}

// Intersects reports whether the two rectangles overlap or touch.
func (b Bounds) Intersects(o Bounds) bool {
	for _, x := range b.parts() {
		for _, y := range o.parts() {
			if x.Intersects(y) {
				return true
			}
		}
	}
	return false
}

// parts splits a wrapping rectangle into its two non-wrapping halves.
func (b Bounds) parts() []orb.Bound {
	if !b.Wraps() {
		return []orb.Bound{b.Bound}
	}
	return []orb.Bound{
		{Min: b.Min, Max: orb.Point{180, b.Max.Lat()}},
		{Min: orb.Point{-180, b.Min.Lat()}, Max: b.Max},
	}
}

// BoundsFromCorners returns the smallest rectangle holding all corners. A set
// of corners spanning more than 180 degrees of longitude is taken to straddle
// the antimeridian.
func BoundsFromCorners(corners [4]LatLng) Bounds {
	mp := make(orb.MultiPoint, len(corners))
	for k, c := range corners {
		mp[k] = orb.Point{c.Lng, c.Lat}
	}
	bound := mp.Bound()
	if bound.Max.Lon()-bound.Min.Lon() <= 180 {
		return Bounds{bound}
	}

	for k := range mp {
		if mp[k][0] < 0 {
			mp[k][0] += 360
		}
	}
	shifted := mp.Bound()
	return Bounds{orb.Bound{
		Min: shifted.Min,
		Max: orb.Point{shifted.Max.Lon() - 360, shifted.Max.Lat()},
	}}
}
