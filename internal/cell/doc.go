// Package cell implements the cell algebra used to key spatial records.
//
// The sphere is divided into six faces, each recursively split into four
// children down to MaxLevel. A cell is addressed three ways:
//
//   - QuadKey: face plus one base-4 digit per level, printed as "face/d1d2..dL"
//   - ID: the quadkey string, used as the storage key for a cell
//   - packed uint64: face in bits 61-63, two bits per level from bit 61 down,
//     then a single sentinel bit at position 60-2*level, zeros below
//
// The packed layout is bit-compatible with S2 cell ids, so the spherical
// geometry (coordinate to leaf cell, cell vertices, edge neighbors) is taken
// from github.com/golang/geo/s2 while the codec itself is owned here.
//
// Every function in this package is pure. Nothing here logs, touches storage,
// or keeps mutable package-level state.
package cell
