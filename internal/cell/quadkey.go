package cell

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

const (
	// MaxLevel is the depth of the leaf cells.
	MaxLevel = 30

	// NumFaces is the number of top-level cells.
	NumFaces = 6

	faceShift   = 61
	tokenDigits = 16
)

// QuadKey is the hierarchical path of a cell: a face and one base-4 digit per
// level. Level is len(Digits).
type QuadKey struct {
	Face   int
	Digits []uint8
}

// Level returns the depth of the cell.
func (q QuadKey) Level() int {
	return len(q.Digits)
}

// String renders the quadkey as "face/d1d2...dL".
func (q QuadKey) String() string {
	var b strings.Builder
	b.Grow(2 + len(q.Digits))
	b.WriteByte(byte('0' + q.Face))
	b.WriteByte('/')
	for _, d := range q.Digits {
		b.WriteByte('0' + d)
	}
	return b.String()
}

// ID returns the storage key of the cell.
func (q QuadKey) ID() ID {
	return ID(q.String())
}

// Child returns the quadkey one level deeper along digit d.
// The receiver's digit slice is never shared with the result.
func (q QuadKey) Child(d uint8) QuadKey {
	digits := make([]uint8, len(q.Digits)+1)
	copy(digits, q.Digits)
	digits[len(q.Digits)] = d
	return QuadKey{Face: q.Face, Digits: digits}
}

// Parent returns the ancestor quadkey at level. level must not exceed q.Level().
func (q QuadKey) Parent(level int) QuadKey {
	digits := make([]uint8, level)
	copy(digits, q.Digits[:level])
	return QuadKey{Face: q.Face, Digits: digits}
}

// Pack encodes the quadkey into its 64-bit identifier.
func (q QuadKey) Pack() uint64 {
	id := uint64(q.Face) << faceShift
	for k, d := range q.Digits {
		id |= uint64(d&3) << (faceShift - 2*(k+1))
	}
	return id | 1<<(60-2*len(q.Digits))
}

// Unpack decodes a 64-bit identifier into its quadkey.
//
// The level is recovered from the sentinel bit: the number of trailing zeros
// must be even and at most 60.
func Unpack(id uint64) (QuadKey, error) {
	tz := bits.TrailingZeros64(id)
	if tz > 60 || tz%2 != 0 {
		return QuadKey{}, fmt.Errorf("%w: %#016x has no valid sentinel", ErrInvalidIdentifier, id)
	}
	face := int(id >> faceShift)
	if face >= NumFaces {
		return QuadKey{}, fmt.Errorf("%w: %#016x has face %d", ErrInvalidIdentifier, id, face)
	}

	level := (60 - tz) / 2
	digits := make([]uint8, level)
	for k := range digits {
		digits[k] = uint8(id>>(faceShift-2*(k+1))) & 3
	}
	return QuadKey{Face: face, Digits: digits}, nil
}

// ParseQuadKey parses the "face/digits" form.
func ParseQuadKey(s string) (QuadKey, error) {
	face, path, ok := strings.Cut(s, "/")
	if !ok || len(face) != 1 || face[0] < '0' || face[0] >= '0'+NumFaces {
		return QuadKey{}, fmt.Errorf("%w: quadkey %q", ErrInvalidIdentifier, s)
	}
	if len(path) > MaxLevel {
		return QuadKey{}, fmt.Errorf("%w: quadkey %q is deeper than level %d", ErrInvalidIdentifier, s, MaxLevel)
	}

	digits := make([]uint8, len(path))
	for k := 0; k < len(path); k++ {
		c := path[k]
		if c < '0' || c > '3' {
			return QuadKey{}, fmt.Errorf("%w: quadkey %q has digit %q", ErrInvalidIdentifier, s, c)
		}
		digits[k] = c - '0'
	}
	return QuadKey{Face: int(face[0] - '0'), Digits: digits}, nil
}

// Token renders a packed id as a hex token with trailing zeros removed.
func Token(id uint64) string {
	if id == 0 {
		return "X"
	}
	s := fmt.Sprintf("%016x", id)
	return strings.TrimRight(s, "0")
}

// TokenToCell decodes a hex token into a cell of the given level.
// Short tokens are right-padded with zeros, long tokens are truncated to 16
// hex digits.
func TokenToCell(token string, level int) (Cell, error) {
	if len(token) < tokenDigits {
		token += strings.Repeat("0", tokenDigits-len(token))
	}
	token = token[:tokenDigits]

	id, err := strconv.ParseUint(token, 16, 64)
	if err != nil {
		return Cell{}, fmt.Errorf("%w: token %q: %v", ErrInvalidIdentifier, token, err)
	}
	q, err := Unpack(id)
	if err != nil {
		return Cell{}, err
	}
	if q.Level() != level {
		return Cell{}, fmt.Errorf("%w: token %q is level %d, want %d", ErrInvalidIdentifier, token, q.Level(), level)
	}
	return FromQuadKey(q), nil
}
