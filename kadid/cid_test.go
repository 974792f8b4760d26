package kadid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsRandomAndWellFormed(t *testing.T) {
	a, err := New()
	require.NoError(t, err)
	b, err := New()
	require.NoError(t, err)

	assert.False(t, a.IsZero())
	assert.NotEqual(t, a, b)
}

func TestHexRoundTrip(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	s := c.String()
	assert.Len(t, s, Length*2)

	parsed, err := ParseHex(s)
	require.NoError(t, err)
	assert.Equal(t, c, parsed)
}

func TestParseHexRejectsWrongLength(t *testing.T) {
	_, err := ParseHex("deadbeef")
	assert.Error(t, err)
}

func TestDistanceIsZeroForSelf(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	assert.Equal(t, Zero, Distance(c, c))
}

func TestBucketIndexRejectsSelf(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	_, ok := BucketIndex(c, c)
	assert.False(t, ok)
}

func TestBucketIndexHighestDifferingBit(t *testing.T) {
	var local, other CID
	// local = all zero, other differs only in the lowest bit of the last byte.
	other[Length-1] = 0x01
	idx, ok := BucketIndex(local, other)
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	// other differs in the top bit of the first byte: furthest bucket.
	other = CID{}
	other[0] = 0x80
	idx, ok = BucketIndex(local, other)
	require.True(t, ok)
	assert.Equal(t, Bits-1, idx)
}

func TestRandomInBucketLandsInDeclaredBucket(t *testing.T) {
	local, err := New()
	require.NoError(t, err)

	for _, i := range []int{0, 1, 79, 158, 159} {
		target, err := RandomInBucket(local, i)
		require.NoError(t, err)

		idx, ok := BucketIndex(local, target)
		require.True(t, ok)
		assert.Equal(t, i, idx, "bucket %d produced a target that maps to bucket %d", i, idx)
	}
}

func TestRandomInBucketRejectsOutOfRange(t *testing.T) {
	local, err := New()
	require.NoError(t, err)

	_, err = RandomInBucket(local, -1)
	assert.Error(t, err)
	_, err = RandomInBucket(local, Bits)
	assert.Error(t, err)
}

func TestLessIsStrictOrdering(t *testing.T) {
	a := CID{0x00}
	b := CID{0x01}
	assert.True(t, Less(a, b))
	assert.False(t, Less(b, a))
	assert.False(t, Less(a, a))
}
