package cell

import (
	"math/rand/v2"
	"testing"

	"github.com/golang/geo/s2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomQuadKey(r *rand.Rand) QuadKey {
	level := r.IntN(MaxLevel + 1)
	digits := make([]uint8, level)
	for k := range digits {
		digits[k] = uint8(r.IntN(4))
	}
	return QuadKey{Face: r.IntN(NumFaces), Digits: digits}
}

func TestPackUnpack_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(14, 17))

	for n := 0; n < 2000; n++ {
		q := randomQuadKey(r)
		id := q.Pack()

		got, err := Unpack(id)
		require.NoError(t, err, "unpack %#016x", id)
		assert.Equal(t, q.Face, got.Face)
		assert.Equal(t, q.Level(), got.Level())
		assert.Equal(t, q.String(), got.String())
		assert.Equal(t, id, got.Pack(), "pack(unpack(id)) must be id")
	}
}

func TestPack_MatchesS2Layout(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	for n := 0; n < 1000; n++ {
		q := randomQuadKey(r)
		id := s2.CellID(q.Pack())

		require.True(t, id.IsValid(), "packed %s is not a valid s2 id", q)
		assert.Equal(t, q.Face, id.Face())
		assert.Equal(t, q.Level(), id.Level())
	}
}

func TestPack_SentinelPosition(t *testing.T) {
	tests := []struct {
		name string
		q    QuadKey
		want uint64
	}{
		{"face 0 level 0", QuadKey{Face: 0}, 1 << 60},
		{"face 5 level 0", QuadKey{Face: 5}, 5<<61 | 1<<60},
		{"face 2 level 1 digit 3", QuadKey{Face: 2, Digits: []uint8{3}}, 2<<61 | 3<<59 | 1<<58},
		{"face 1 level 2 digits 01", QuadKey{Face: 1, Digits: []uint8{0, 1}}, 1<<61 | 1<<57 | 1<<56},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.Pack())
		})
	}
}

func TestPack_LeafLevel(t *testing.T) {
	digits := make([]uint8, MaxLevel)
	for k := range digits {
		digits[k] = 3
	}
	q := QuadKey{Face: 4, Digits: digits}

	id := q.Pack()
	assert.Equal(t, uint64(1), id&1, "leaf sentinel sits in bit 0")

	got, err := Unpack(id)
	require.NoError(t, err)
	assert.Equal(t, MaxLevel, got.Level())
}

func TestUnpack_Invalid(t *testing.T) {
	tests := []struct {
		name string
		id   uint64
	}{
		{"zero", 0},
		{"sentinel beyond level 0", 1 << 62},
		{"odd trailing zeros", 1 << 59},
		{"odd trailing zeros low", 2},
		{"face 6", 6<<61 | 1<<60},
		{"face 7", 7<<61 | 1<<60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unpack(tt.id)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidIdentifier)
		})
	}
}

func TestParseQuadKey(t *testing.T) {
	q, err := ParseQuadKey("3/0123")
	require.NoError(t, err)
	assert.Equal(t, 3, q.Face)
	assert.Equal(t, []uint8{0, 1, 2, 3}, q.Digits)
	assert.Equal(t, "3/0123", q.String())

	q, err = ParseQuadKey("0/")
	require.NoError(t, err)
	assert.Equal(t, 0, q.Level())
}

func TestParseQuadKey_Invalid(t *testing.T) {
	for _, s := range []string{"", "3", "6/01", "a/01", "1/014", "12/0", "1/0123012301230123012301230123012"} {
		t.Run(s, func(t *testing.T) {
			_, err := ParseQuadKey(s)
			assert.ErrorIs(t, err, ErrInvalidIdentifier)
		})
	}
}

func TestTokenToCell(t *testing.T) {
	ll := s2.LatLngFromDegrees(51.5007, -0.1246)
	want := s2.CellIDFromLatLng(ll).Parent(14)

	c, err := TokenToCell(want.ToToken(), 14)
	require.NoError(t, err)
	assert.Equal(t, uint64(want), c.PackedID())
	assert.Equal(t, 14, c.Level)
	assert.Equal(t, want.ToToken(), Token(c.PackedID()))
}

func TestTokenToCell_TruncatesLongTokens(t *testing.T) {
	want := s2.CellIDFromLatLng(s2.LatLngFromDegrees(-33.86, 151.21)).Parent(30)
	token := want.ToToken()
	for len(token) < 16 {
		token += "0"
	}

	c, err := TokenToCell(token+"ffff", 30)
	require.NoError(t, err)
	assert.Equal(t, uint64(want), c.PackedID())
}

func TestTokenToCell_Errors(t *testing.T) {
	_, err := TokenToCell("zz", 14)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = TokenToCell("0", 0)
	assert.ErrorIs(t, err, ErrInvalidIdentifier, "all-zero id has no sentinel")

	c := s2.CellIDFromLatLng(s2.LatLngFromDegrees(10, 10)).Parent(13)
	_, err = TokenToCell(c.ToToken(), 14)
	assert.ErrorIs(t, err, ErrInvalidIdentifier, "level mismatch")
}

func TestQuadKey_ChildDoesNotAlias(t *testing.T) {
	parent := QuadKey{Face: 1, Digits: make([]uint8, 2, 8)}
	a := parent.Child(1)
	b := parent.Child(2)

	assert.Equal(t, "1/001", a.String())
	assert.Equal(t, "1/002", b.String())
}
