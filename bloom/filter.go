// Package bloom provides the compact bloom filters and the chunk-level
// bloom index used by the BSPC container.
//
// The seeded FNV-1a hash below is part of the wire format: filter bits
// are persisted inside .bspc files, so the hash family must never change.
package bloom

import (
	"bytes"
	"encoding/binary"
)

// Filter sizes in bytes. The on-disk chunk index leaf is always
// LeafSize bytes regardless of the in-memory variant used.
const (
	Size64   = 8
	Size256  = 32
	Size1024 = 128

	// LeafSize is the fixed serialized leaf size of the chunked index.
	LeafSize = Size64
)

// Hash function constraints.
const (
	MinHashCount = 1
	MaxHashCount = 8

	// defaultHashCount is used when the expected element count is zero.
	defaultHashCount = 3
)

// FNV-1a constants. The filter deliberately mixes the 32-bit basis and
// prime in 64-bit wrapping arithmetic to match the persisted bit layout.
const (
	fnvOffsetBasis = 2166136261
	fnvPrime       = 16777619
)

// Filter is a fixed-size bloom filter: a bitset of 8*len(bits) bits
// probed by hashCount seeded hashes.
//
// The zero value is not usable; construct with New64/New256/New1024 or
// FromBits.
type Filter struct {
	bits      []byte
	hashCount uint8
}

// New64 returns an 8-byte filter sized for the expected element count.
func New64(expected uint64) *Filter { return newFilter(Size64, expected) }

// New256 returns a 32-byte filter sized for the expected element count.
func New256(expected uint64) *Filter { return newFilter(Size256, expected) }

// New1024 returns a 128-byte filter sized for the expected element count.
func New1024(expected uint64) *Filter { return newFilter(Size1024, expected) }

// NewWithHashCount returns a filter of nbytes with a pinned hash count.
// The hash count is clamped to [MinHashCount, MaxHashCount].
func NewWithHashCount(nbytes int, hashCount uint8) *Filter {
	return &Filter{
		bits:      make([]byte, nbytes),
		hashCount: clampHashCount(hashCount),
	}
}

// newFilter computes the optimal hash count k = (m/n) * ln 2 using the
// integer approximation ln 2 ~ 693/1000, clamped to [1, 8].
func newFilter(nbytes int, expected uint64) *Filter {
	hashCount := uint8(defaultHashCount)

	if expected > 0 {
		m := uint64(nbytes) * 8
		kTimes1000 := m * 693 / expected
		k := (kTimes1000 + 999) / 1000

		switch {
		case k < MinHashCount:
			hashCount = MinHashCount
		case k > MaxHashCount:
			hashCount = MaxHashCount
		default:
			hashCount = uint8(k)
		}
	}

	return &Filter{
		bits:      make([]byte, nbytes),
		hashCount: hashCount,
	}
}

// FromBits rebuilds a filter from serialized bits and a hash count.
// The bits are copied.
func FromBits(bits []byte, hashCount uint8) *Filter {
	f := &Filter{
		bits:      make([]byte, len(bits)),
		hashCount: clampHashCount(hashCount),
	}
	copy(f.bits, bits)

	return f
}

func clampHashCount(k uint8) uint8 {
	switch {
	case k < MinHashCount:
		return MinHashCount
	case k > MaxHashCount:
		return MaxHashCount
	default:
		return k
	}
}

// Insert sets the k bits for value. Idempotent.
func (f *Filter) Insert(value uint64) {
	for seed := uint8(0); seed < f.hashCount; seed++ {
		bit := f.hash(value, seed) % f.BitCount()
		f.bits[bit/8] |= 1 << (bit % 8)
	}
}

// Contains reports whether all k bits for value are set. False positives
// are possible; false negatives are not.
func (f *Filter) Contains(value uint64) bool {
	for seed := uint8(0); seed < f.hashCount; seed++ {
		bit := f.hash(value, seed) % f.BitCount()
		if f.bits[bit/8]&(1<<(bit%8)) == 0 {
			return false
		}
	}

	return true
}

// Clear zeroes all bits; the hash count is unchanged.
func (f *Filter) Clear() {
	for i := range f.bits {
		f.bits[i] = 0
	}
}

// HashCount returns the number of hash functions.
func (f *Filter) HashCount() uint8 { return f.hashCount }

// BitCount returns the number of bits in the filter.
func (f *Filter) BitCount() uint64 { return uint64(len(f.bits)) * 8 }

// Bits returns the backing byte array for serialization. The slice must
// not be mutated.
func (f *Filter) Bits() []byte { return f.bits }

// Equal reports whether two filters have identical bits and hash count.
func (f *Filter) Equal(other *Filter) bool {
	return f.hashCount == other.hashCount && bytes.Equal(f.bits, other.bits)
}

// hash is seeded FNV-1a over the 8-byte little-endian encoding of value,
// with the seed XORed in and multiplied by the prime after the main loop.
func (f *Filter) hash(value uint64, seed uint8) uint64 {
	var encoded [8]byte

	binary.LittleEndian.PutUint64(encoded[:], value)

	hash := uint64(fnvOffsetBasis)
	for _, b := range encoded {
		hash ^= uint64(b)
		hash *= fnvPrime
	}

	hash ^= uint64(seed)
	hash *= fnvPrime

	return hash
}
