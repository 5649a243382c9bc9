// Package uniformsort implements the in-memory UniformSort primitive used
// by the sort manager to order one bucket's entries by a bit-range key.
//
// The algorithm is expected-position hashing: each entry is placed at the
// position its key bits predict in a destination array roughly twice the
// bucket size, probing linearly on collision and keeping the smaller key at
// each slot, the way original_source/src/uniformsort.hpp does it. It is
// not a general-purpose sort — it relies on the destination being zeroed
// and on no entry's key bytes being all-zero (zero is the "slot empty"
// sentinel).
package uniformsort

import (
	"fmt"

	plotbits "github.com/chia-network/go-plotdisk/internal/bits"
)

// Sorter holds a single reusable swap buffer so repeated calls to SortInto
// across many buckets (the sort manager's steady state) do not allocate.
// This mirrors the teacher's internal/ptrhash solver: a small struct with
// scratch that every SortInto call reuses, rather than a free function that
// reallocates every call.
type Sorter struct {
	swap []byte
}

// NewSorter returns a Sorter with an empty swap buffer; SortInto grows it
// to the entry width on first use.
func NewSorter() *Sorter {
	return &Sorter{}
}

// SortInto sorts numEntries entries of entryLen bytes each, found
// concatenated in src (which is mutated: entries are swapped in place as
// the algorithm runs, exactly as chiapos's SortToMemory mutates
// input_disk), into the first numEntries*entryLen bytes of dst.
//
// dst must be zeroed and at least bits.RoundSize(numEntries)*entryLen bytes.
// bitsBegin is the bit offset (from the start of each entry) where the sort
// key begins; the key runs to the end of the entry.
//
// Entries whose full byte pattern is all zero are forbidden: zero marks
// "this slot is empty" within dst. Per spec §4.3, it is the caller's job to
// arrange that: the sort manager pre-filters all-zero entries out of src
// before calling SortInto and reserves their (sorted-first, since an
// all-zero entry's key is the minimum possible key) slots itself.
func (s *Sorter) SortInto(src []byte, dst []byte, entryLen int, numEntries uint64, bitsBegin int) error {
	if entryLen <= 0 {
		return fmt.Errorf("uniformsort: entry_len must be positive, got %d", entryLen)
	}
	if numEntries == 0 {
		return nil
	}
	if uint64(len(src)) < numEntries*uint64(entryLen) {
		return fmt.Errorf("uniformsort: src too short: have %d bytes, need %d", len(src), numEntries*uint64(entryLen))
	}
	memoryLen := plotbits.RoundSize(numEntries) * uint64(entryLen)
	if uint64(len(dst)) < memoryLen {
		return fmt.Errorf("uniformsort: dst too short: have %d bytes, need %d", len(dst), memoryLen)
	}

	if cap(s.swap) < entryLen {
		s.swap = make([]byte, entryLen)
	}
	swap := s.swap[:entryLen]

	bucketLength := 0
	for (uint64(1) << bucketLength) < 2*numEntries {
		bucketLength++
	}

	var overflow [][]byte
	bufPtr := uint64(0)
	for i := uint64(0); i < numEntries; i++ {
		entry := src[bufPtr : bufPtr+uint64(entryLen)]
		pos := plotbits.ExtractNum(entry, bitsBegin, bucketLength) * uint64(entryLen)

		for pos < memoryLen && !isEmpty(dst[pos:pos+uint64(entryLen)]) {
			occupant := dst[pos : pos+uint64(entryLen)]
			if plotbits.CompareBits(occupant, entry, bitsBegin, entryLen*8-bitsBegin) > 0 {
				copy(swap, occupant)
				copy(occupant, entry)
				copy(entry, swap)
			}
			pos += uint64(entryLen)
		}
		if pos < memoryLen {
			copy(dst[pos:pos+uint64(entryLen)], entry)
		} else {
			// Carried past the last slot: no smaller than any key in dst.
			j := len(overflow)
			overflow = append(overflow, append([]byte(nil), entry...))
			for ; j > 0 && plotbits.CompareBits(overflow[j-1], overflow[j], bitsBegin, entryLen*8-bitsBegin) > 0; j-- {
				overflow[j-1], overflow[j] = overflow[j], overflow[j-1]
			}
		}
		bufPtr += uint64(entryLen)
	}

	// Compaction pass: pack occupied slots contiguously at the front.
	written := uint64(0)
	for pos := uint64(0); written < numEntries && pos < memoryLen; pos += uint64(entryLen) {
		slot := dst[pos : pos+uint64(entryLen)]
		if !isEmpty(slot) {
			if pos != written*uint64(entryLen) {
				copy(dst[written*uint64(entryLen):written*uint64(entryLen)+uint64(entryLen)], slot)
			}
			written++
		}
	}
	for _, e := range overflow {
		copy(dst[written*uint64(entryLen):], e)
		written++
	}
	if written != numEntries {
		return fmt.Errorf("uniformsort: expected to write %d entries, wrote %d", numEntries, written)
	}
	return nil
}

func isEmpty(entry []byte) bool {
	for _, b := range entry {
		if b != 0 {
			return false
		}
	}
	return true
}
