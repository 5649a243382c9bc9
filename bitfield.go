package plotdisk

import (
	"math/bits"

	"github.com/bits-and-blooms/bitset"
)

// wordCheckpointStride is how many 64-bit words separate cached rank
// checkpoints. Rank(i) (the popcount of bits [0,i)) re-scans only the
// words between the nearest checkpoint and i instead of the whole
// bitfield; a checkpoint every few words keeps that re-scan short without
// doubling memory.
const wordCheckpointStride = 64

// Bitfield is a dense bitmap over table-sized indices (spec §4.1, C1). It
// backs the per-table survival markers F_1..F_6 produced by Phase2 and
// consumed by Phase3's FilteredScratch.
//
// Set/Get use github.com/bits-and-blooms/bitset for storage; Bitfield adds
// a popcount-prefix (rank) query on top. FilteredScratch itself walks the
// filter with Get and does not call Rank.
type Bitfield struct {
	bits *bitset.BitSet
	size uint64

	// checkpoints[i] is the popcount of words [0, i*wordCheckpointStride).
	// Built lazily by Freeze once the bitfield is done being written; Set
	// after a Freeze invalidates the cache (rebuilt on next Rank).
	checkpoints []uint64
	frozen      bool
}

// NewBitfield returns a zeroed Bitfield able to hold size bits.
func NewBitfield(size uint64) *Bitfield {
	return &Bitfield{bits: bitset.New(uint(size)), size: size}
}

// Len returns the number of bits in the field.
func (f *Bitfield) Len() uint64 { return f.size }

// Get reports whether bit i is set. i must be < Len().
func (f *Bitfield) Get(i uint64) bool {
	return f.bits.Test(uint(i))
}

// Set sets bit i to 1. i must be < Len().
func (f *Bitfield) Set(i uint64) {
	f.bits.Set(uint(i))
	f.frozen = false
}

// Count returns the total number of set bits.
func (f *Bitfield) Count() uint64 {
	return uint64(f.bits.Count())
}

// Freeze builds the rank checkpoint table. Calling it is optional — Rank
// builds the cache on first use — but Phase2 calls it once per table right
// after it finishes marking that table, so a later Rank call doesn't pay
// for it.
func (f *Bitfield) Freeze() {
	words := f.words()
	n := (len(words) + wordCheckpointStride - 1) / wordCheckpointStride
	f.checkpoints = make([]uint64, n+1)
	var running uint64
	for i, w := range words {
		if i%wordCheckpointStride == 0 {
			f.checkpoints[i/wordCheckpointStride] = running
		}
		running += uint64(bits.OnesCount64(w))
	}
	f.checkpoints[n] = running
	f.frozen = true
}

// Rank returns the number of set bits in [0, i) — the popcount-prefix the
// spec's §3 "Bitfield F_t" calls for and FilteredScratch's bijection
// property (§8) is defined in terms of.
func (f *Bitfield) Rank(i uint64) uint64 {
	if !f.frozen {
		f.Freeze()
	}
	wordIdx := i / 64
	checkpointIdx := wordIdx / wordCheckpointStride
	rank := f.checkpoints[checkpointIdx]

	words := f.words()
	start := checkpointIdx * wordCheckpointStride
	for w := uint64(start); w < wordIdx; w++ {
		rank += uint64(bits.OnesCount64(words[w]))
	}
	if rem := i % 64; rem > 0 && wordIdx < uint64(len(words)) {
		mask := words[wordIdx] & ((uint64(1) << rem) - 1)
		rank += uint64(bits.OnesCount64(mask))
	}
	return rank
}

// words exposes the bitset's backing storage as a little-endian word
// slice. bits-and-blooms/bitset stores its words contiguously and this
// name (kept from the library's own history) returns that slice directly.
func (f *Bitfield) words() []uint64 {
	return f.bits.Bytes()
}
