// Package kadid implements the 160-bit content identifier and the XOR
// metric the routing table and lookup engine are built on.
package kadid

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

// Length is the size of a CID in bytes (SHA-1 digest size).
const Length = 20

// Bits is the size of a CID in bits, and the number of buckets a routing
// table indexed by bit-length of XOR distance needs.
const Bits = Length * 8

// CID is a 160-bit Kademlia identifier.
type CID [Length]byte

// Zero is the all-zero CID. It never legitimately identifies a node (New
// draws from crypto/rand and a collision with Zero has negligible
// probability), but it is useful as a sentinel.
var Zero CID

// New generates a fresh CID the way the reference node does: 20 bytes of
// cryptographic randomness, hashed with SHA-1.
func New() (CID, error) {
	seed := make([]byte, Length)
	if _, err := rand.Read(seed); err != nil {
		return Zero, fmt.Errorf("kadid: read random seed: %w", err)
	}
	sum := sha1.Sum(seed)
	return CID(sum), nil
}

// ParseHex decodes the 40-character lowercase hex wire encoding of a CID.
func ParseHex(s string) (CID, error) {
	if len(s) != Length*2 {
		return Zero, fmt.Errorf("kadid: hex CID must be %d chars, got %d", Length*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Zero, fmt.Errorf("kadid: decode hex CID: %w", err)
	}
	var c CID
	copy(c[:], b)
	return c, nil
}

// String renders the CID as 40 lowercase hex characters, the wire encoding.
func (c CID) String() string {
	return hex.EncodeToString(c[:])
}

// IsZero reports whether c is the all-zero CID.
func (c CID) IsZero() bool {
	return c == Zero
}

// Equal reports whether c and other identify the same node.
func (c CID) Equal(other CID) bool {
	return c == other
}

// Distance returns the XOR distance between a and b.
func Distance(a, b CID) CID {
	var out CID
	for i := 0; i < Length; i++ {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// Less reports whether a is strictly closer to nothing in particular — it
// compares two CIDs (or distances) as big-endian unsigned integers, which is
// how every distance comparison in this package is defined.
func Less(a, b CID) bool {
	for i := 0; i < Length; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// bitLen returns the position (1-based, like math/bits.Len) of the highest
// set bit in d, or 0 if d is all zero.
func bitLen(d CID) int {
	for i := 0; i < Length; i++ {
		if d[i] == 0 {
			continue
		}
		// byte i holds the highest nonzero byte; find its top bit.
		b := d[i]
		bit := 0
		for b != 0 {
			b >>= 1
			bit++
		}
		return (Length-1-i)*8 + bit
	}
	return 0
}

// BucketIndex returns the routing-table bucket that other belongs in from
// local's point of view: the index of the highest bit at which the two CIDs
// differ, i.e. bit_length(local XOR other) - 1. ok is false when other
// equals local (no self-entries).
func BucketIndex(local, other CID) (idx int, ok bool) {
	if local.Equal(other) {
		return 0, false
	}
	d := Distance(local, other)
	return bitLen(d) - 1, true
}

// RandomInBucket draws a CID uniformly from the range that bucket i of
// local's routing table covers: local XOR d, where d is a random integer in
// [2^i, 2^(i+1)-1]. This is used by the refresh loop to probe a specific,
// possibly sparsely populated, region of the address space.
func RandomInBucket(local CID, i int) (CID, error) {
	if i < 0 || i >= Bits {
		return Zero, fmt.Errorf("kadid: bucket index %d out of range [0,%d)", i, Bits)
	}

	lo := new(big.Int).Lsh(big.NewInt(1), uint(i))
	hi := new(big.Int).Lsh(big.NewInt(1), uint(i+1))
	span := new(big.Int).Sub(hi, lo) // 2^(i+1) - 2^i == 2^i

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return Zero, fmt.Errorf("kadid: draw random offset: %w", err)
	}
	d := new(big.Int).Add(lo, n)

	var dCID CID
	db := d.Bytes()
	if len(db) > Length {
		return Zero, errors.New("kadid: random distance overflowed CID length")
	}
	copy(dCID[Length-len(db):], db)

	return Distance(local, dCID), nil
}
