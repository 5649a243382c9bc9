package plotdisk

import (
	plotdiskerrors "github.com/chia-network/go-plotdisk/errors"
)

// FilteredScratch is a read-only logical view over a BufferedScratch that
// skips entries marked absent by a Bitfield (spec §4.2, C3). Logical
// offset i*entrySize corresponds to the physical offset of the i-th set
// bit of the filter, times entrySize (the bijection property spec §8
// tests directly).
//
// Reads must be strictly forward (monotonically non-decreasing begin);
// FilteredScratch has no backward path, unlike BufferedScratch.
type FilteredScratch struct {
	underlying *BufferedScratch
	filter     *Bitfield
	entrySize  uint64

	lastIdx      uint64
	lastPhysical uint64
	lastLogical  uint64
	empty        bool
}

// NewFilteredScratch builds a view over underlying, showing only the
// entries of entrySize bytes each for which filter is set.
func NewFilteredScratch(underlying *BufferedScratch, filter *Bitfield, entrySize uint64) (*FilteredScratch, error) {
	f := &FilteredScratch{underlying: underlying, filter: filter, entrySize: entrySize}
	idx := uint64(0)
	for idx < filter.Len() && !filter.Get(idx) {
		idx++
	}
	if idx >= filter.Len() {
		f.empty = true
		return f, nil
	}
	f.lastIdx = idx
	f.lastPhysical = idx * entrySize
	f.lastLogical = 0
	return f, nil
}

// Read serves length bytes from logical offset begin (spec §4.2
// "Contract"): begin must be entrySize-aligned, non-decreasing across
// calls, and the filter must have at least ceil(begin/entrySize)+1 bits.
func (f *FilteredScratch) Read(begin, length uint64) ([]byte, error) {
	if begin%f.entrySize != 0 {
		return nil, plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "FilteredScratch.Read begin %d not entry-aligned (entrySize=%d)", begin, f.entrySize)
	}
	target := begin / f.entrySize
	if target < f.lastLogical {
		return nil, plotdiskerrors.Newf(plotdiskerrors.InvalidState, "FilteredScratch.Read begin %d is behind last served offset %d", begin, f.lastLogical*f.entrySize)
	}
	if target+1 > f.filter.Len() {
		return nil, plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "FilteredScratch.Read begin %d needs %d filter bits, have %d", begin, target+1, f.filter.Len())
	}
	if f.empty {
		return nil, plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "FilteredScratch.Read on an all-clear filter")
	}

	if target != f.lastLogical {
		idx := f.lastIdx
		logical := f.lastLogical
		for logical != target {
			idx++
			if idx >= f.filter.Len() {
				return nil, plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "FilteredScratch.Read ran past the end of the filter seeking logical index %d", target)
			}
			if f.filter.Get(idx) {
				logical++
			}
		}
		// idx now lands on the target-th set bit (loop above only
		// advances logical on a set bit, so it always stops on one).
		f.lastIdx = idx
		f.lastLogical = logical
		f.lastPhysical = idx * f.entrySize
	}

	return f.underlying.Read(f.lastPhysical, length)
}

// Truncate and Write are unsupported: FilteredScratch is a read-only view
// (spec §4.2 "Writes are unsupported").
func (f *FilteredScratch) Truncate(uint64) error {
	return plotdiskerrors.New(plotdiskerrors.InvalidState, "FilteredScratch does not support Truncate")
}

func (f *FilteredScratch) Write(uint64, []byte) error {
	return plotdiskerrors.New(plotdiskerrors.InvalidState, "FilteredScratch does not support Write")
}

// FreeMemory releases the underlying BufferedScratch. FilteredScratch does
// not own any buffers of its own.
func (f *FilteredScratch) FreeMemory() {
	f.underlying.FreeMemory()
}
