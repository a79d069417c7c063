// Package ring implements Chord identifier-space arithmetic: hashing,
// modular interval predicates and distance, all parametric on the ring's
// bit width M.
package ring

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math/big"
)

// ID is a point on the ring, represented as an arbitrary-precision integer
// in [0, 2^M).
type ID struct {
	val *big.Int
}

// Space fixes the ring's bit width and derives the modulus 2^M. The
// reference choice is M=160 (SHA-1); tests commonly shrink it to keep
// ring walks short.
type Space struct {
	Bits    uint
	modulus *big.Int
}

// NewSpace builds a Space for the given bit width.
func NewSpace(bits uint) Space {
	mod := new(big.Int).Lsh(big.NewInt(1), bits)
	return Space{Bits: bits, modulus: mod}
}

// ByteLen is the number of bytes needed to hold an M-bit identifier.
func (s Space) ByteLen() int {
	return (int(s.Bits) + 7) / 8
}

// Hash maps an arbitrary string (a key or a peer address) onto the ring.
// It hashes with SHA-1 and truncates to the space's bit width.
func (s Space) Hash(data string) ID {
	sum := sha1.Sum([]byte(data))
	v := new(big.Int).SetBytes(sum[:])
	v.Mod(v, s.modulus)
	return ID{val: v}
}

// Zero returns the identity element of the ring.
func (s Space) Zero() ID {
	return ID{val: new(big.Int)}
}

// FromUint64 builds an ID from a small integer, useful in tests and for
// computing finger-table starts.
func (s Space) FromUint64(n uint64) ID {
	v := new(big.Int).SetUint64(n)
	v.Mod(v, s.modulus)
	return ID{val: v}
}

// FromString parses a decimal string into an ID. Ids travel the wire as
// decimal strings to sidestep fixed-width integer limits.
func (s Space) FromString(dec string) (ID, error) {
	v, ok := new(big.Int).SetString(dec, 10)
	if !ok {
		return ID{}, fmt.Errorf("ring: invalid decimal id %q", dec)
	}
	v = new(big.Int).Mod(v, s.modulus)
	return ID{val: v}, nil
}

// FromHex parses a hex-encoded identifier, as used by bootstrap record
// names.
func (s Space) FromHex(h string) (ID, error) {
	raw, err := hex.DecodeString(h)
	if err != nil {
		return ID{}, fmt.Errorf("ring: invalid hex id %q: %w", h, err)
	}
	v := new(big.Int).SetBytes(raw)
	v.Mod(v, s.modulus)
	return ID{val: v}, nil
}

// Start returns (self + 2^i) mod 2^M, the identifier that finger-table
// slot i is responsible for.
func (s Space) Start(self ID, i uint) ID {
	offset := new(big.Int).Lsh(big.NewInt(1), i)
	v := new(big.Int).Add(self.val, offset)
	v.Mod(v, s.modulus)
	return ID{val: v}
}

// Add returns (a + delta) mod 2^M.
func (s Space) Add(a ID, delta uint64) ID {
	v := new(big.Int).Add(a.val, new(big.Int).SetUint64(delta))
	v.Mod(v, s.modulus)
	return ID{val: v}
}

// Pred returns (a - 1) mod 2^M, the ring point immediately counter-clockwise
// of a.
func (s Space) Pred(a ID) ID {
	one := big.NewInt(1)
	v := new(big.Int).Sub(a.val, one)
	v.Mod(v, s.modulus)
	return ID{val: v}
}

// Distance returns (b - a) mod 2^M, the clockwise arc length from a to b.
func (s Space) Distance(a, b ID) *big.Int {
	d := new(big.Int).Sub(b.val, a.val)
	d.Mod(d, s.modulus)
	return d
}

// InRange reports whether v lies in the ring interval (start, end) with
// the requested endpoint inclusivity, honoring wraparound when
// start > end. If start == end the interval is empty unless an endpoint
// is inclusive, in which case it spans the whole ring.
func (s Space) InRange(v, start, end ID, inclStart, inclEnd bool) bool {
	if start.Equal(end) {
		return inclStart || inclEnd
	}
	if inclStart && v.Equal(start) {
		return true
	}
	if inclEnd && v.Equal(end) {
		return true
	}
	if start.Cmp(end) < 0 {
		return start.val.Cmp(v.val) < 0 && v.val.Cmp(end.val) < 0
	}
	// start > end: interval wraps through zero.
	return start.val.Cmp(v.val) < 0 || v.val.Cmp(end.val) < 0
}

// Cmp compares two ids as plain integers (not ring-aware).
func (id ID) Cmp(other ID) int {
	return id.val.Cmp(other.val)
}

// Equal reports whether two ids are the same ring point.
func (id ID) Equal(other ID) bool {
	return id.val.Cmp(other.val) == 0
}

// String renders the id as a decimal string, the wire format used by the
// RPC surface.
func (id ID) String() string {
	if id.val == nil {
		return "0"
	}
	return id.val.String()
}

// Hex renders the id as a fixed-width hex string, used for bootstrap
// record names.
func (id ID) Hex(s Space) string {
	b := id.val.FillBytes(make([]byte, s.ByteLen()))
	return hex.EncodeToString(b)
}

// IsZero reports whether the id is the ring's zero element.
func (id ID) IsZero() bool {
	return id.val == nil || id.val.Sign() == 0
}
