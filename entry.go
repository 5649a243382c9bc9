package plotdisk

import (
	plotbits "github.com/chia-network/go-plotdisk/internal/bits"
)

// Entry is the decoded form of one fixed-width bit-packed table record
// (spec §3 "Entry"). Key is the entry's sort prefix (always the leading
// bits of the packed form); LeftPos and RightPos are positions into table
// t-1 and are only meaningful for table 2..7 entries.
type Entry struct {
	Key      uint64
	LeftPos  uint64
	RightPos uint64
}

// packEntry serializes e into dst, which must be at least entrySize(k,t)
// bytes. table 1 writes only Key (k bits); table 2..7 writes Key, LeftPos,
// RightPos (k bits each), matching entrySize's bit layout.
func packEntry(dst []byte, e Entry, k uint8, table int) {
	for i := range dst {
		dst[i] = 0
	}
	kb := int(k)
	writeBitsBE(dst, 0, kb, e.Key)
	if table > 1 {
		writeBitsBE(dst, kb, kb, e.LeftPos)
		writeBitsBE(dst, 2*kb, kb, e.RightPos)
	}
}

// unpackEntry is the inverse of packEntry.
func unpackEntry(src []byte, k uint8, table int) Entry {
	kb := int(k)
	e := Entry{Key: plotbits.ExtractNum(src, 0, kb)}
	if table > 1 {
		e.LeftPos = plotbits.ExtractNum(src, kb, kb)
		e.RightPos = plotbits.ExtractNum(src, 2*kb, kb)
	}
	return e
}

// writeBitsBE writes the low numBits bits of v into dst starting at bit
// offset beginBits, most-significant-bit first, the big-endian counterpart
// to plotbits.ExtractNum. numBits must be <= 64.
func writeBitsBE(dst []byte, beginBits, numBits int, v uint64) {
	for i := numBits - 1; i >= 0; i-- {
		bitPos := beginBits + (numBits - 1 - i)
		byteIdx := bitPos / 8
		if byteIdx >= len(dst) {
			return
		}
		shift := 7 - (bitPos % 8)
		bit := byte((v >> i) & 1)
		if bit != 0 {
			dst[byteIdx] |= 1 << shift
		} else {
			dst[byteIdx] &^= 1 << shift
		}
	}
}
