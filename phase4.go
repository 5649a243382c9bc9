package plotdisk

import (
	"encoding/binary"

	plotdiskerrors "github.com/chia-network/go-plotdisk/errors"
	parkcodec "github.com/chia-network/go-plotdisk/internal/park"
)

// kCheckpoint1Interval and kCheckpoint2Interval set how densely C1 and C2
// sample table 7's sorted keys (spec §4.5 "Phase4 — checkpoints", C9).
// C1 samples one key per kCheckpoint1Interval entries; C2 samples one C1
// entry per kCheckpoint2Interval C1 entries, letting a lookup binary-search
// C2 then C1 before falling back to C3's delta-packed detail for the final
// linear scan.
const (
	kCheckpoint1Interval = 10000
	kCheckpoint2Interval = 1000
)

// phase4Result is Phase4's output: the concatenated C1/C2/C3 region plus
// each table's offset within it, mirroring phase3Result's shape so
// Plotter.CreatePlot can patch both sets of pointers the same way.
type phase4Result struct {
	checkpointsRegion []byte
	checkpointOffsets [3]uint64
}

// runPhase4 builds checkpoint tables C1, C2 and C3 over table 7, the only
// table Phase3 leaves uncompressed, so a prover can recover a table 7
// position from its key without scanning the whole table (spec §4.5
// "Phase4").
func runPhase4(cfg *phaseConfig, p3 *phase3Result) (*phase4Result, error) {
	es7 := entrySize(cfg.k, 7)
	off := p3.tableBeginOffsets[6]
	if off+8 > uint64(len(p3.tablesRegion)) {
		return nil, plotdiskerrors.New(plotdiskerrors.InvalidValue, "phase4: table 7 region missing its count prefix")
	}
	n7 := binary.BigEndian.Uint64(p3.tablesRegion[off : off+8])
	base := off + 8

	keys := make([]uint64, n7)
	for i := uint64(0); i < n7; i++ {
		start := base + i*uint64(es7)
		if start+uint64(es7) > uint64(len(p3.tablesRegion)) {
			return nil, plotdiskerrors.New(plotdiskerrors.InvalidValue, "phase4: table 7 region truncated")
		}
		e := unpackEntry(p3.tablesRegion[start:start+uint64(es7)], cfg.k, 7)
		keys[i] = e.Key
	}

	res := &phase4Result{}
	keyBits := int(cfg.k)
	keyEntrySize := entrySize(cfg.k, 1)

	// C1: one key per kCheckpoint1Interval entries, plus a trailing
	// sentinel so a consumer always has an upper bound for the last block.
	res.checkpointOffsets[0] = uint64(len(res.checkpointsRegion))
	var c1Keys []uint64
	for i := uint64(0); i < n7; i += kCheckpoint1Interval {
		c1Keys = append(c1Keys, keys[i])
	}
	if n7 > 0 {
		c1Keys = append(c1Keys, keys[n7-1])
	}
	res.checkpointsRegion = appendKeyTable(res.checkpointsRegion, c1Keys, keyEntrySize, cfg.k)

	// C2: one key per kCheckpoint2Interval C1 entries, same trailing
	// sentinel convention.
	res.checkpointOffsets[1] = uint64(len(res.checkpointsRegion))
	var c2Keys []uint64
	for i := 0; i < len(c1Keys); i += kCheckpoint2Interval {
		c2Keys = append(c2Keys, c1Keys[i])
	}
	if len(c1Keys) > 0 {
		c2Keys = append(c2Keys, c1Keys[len(c1Keys)-1])
	}
	res.checkpointsRegion = appendKeyTable(res.checkpointsRegion, c2Keys, keyEntrySize, cfg.k)

	// C3: for each C1 block, a park of the block's own keys (no
	// left/right positions; a block's position is implicit from its
	// index) so a lookup that has narrowed to a C1 block can recover the
	// exact table 7 position by linear scan without re-reading table 7.
	res.checkpointOffsets[2] = uint64(len(res.checkpointsRegion))
	var blockCountBuf [8]byte
	numBlocks := uint64(0)
	if n7 > 0 {
		numBlocks = (n7 + kCheckpoint1Interval - 1) / kCheckpoint1Interval
	}
	binary.BigEndian.PutUint64(blockCountBuf[:], numBlocks)
	res.checkpointsRegion = append(res.checkpointsRegion, blockCountBuf[:]...)

	for b := uint64(0); b < numBlocks; b++ {
		start := b * kCheckpoint1Interval
		end := start + kCheckpoint1Interval
		if end > n7 {
			end = n7
		}
		entries := make([]parkcodec.Entry, end-start)
		for i := start; i < end; i++ {
			entries[i-start] = parkcodec.Entry{Key: keys[i]}
		}
		encoded, err := parkcodec.Encode(entries, keyBits, 0)
		if err != nil {
			return nil, err
		}
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(encoded)))
		res.checkpointsRegion = append(res.checkpointsRegion, lenBuf[:]...)
		res.checkpointsRegion = append(res.checkpointsRegion, encoded...)
	}

	return res, nil
}

// appendKeyTable appends an 8-byte count followed by count fixed-width
// k-bit keys, the layout shared by C1 and C2.
func appendKeyTable(region []byte, keys []uint64, entrySizeBytes int, k uint8) []byte {
	var countBuf [8]byte
	binary.BigEndian.PutUint64(countBuf[:], uint64(len(keys)))
	region = append(region, countBuf[:]...)
	buf := make([]byte, entrySizeBytes)
	for _, key := range keys {
		packEntry(buf, Entry{Key: key}, k, 1)
		region = append(region, buf...)
	}
	return region
}
