package plotdisk

import (
	"encoding/binary"

	parkcodec "github.com/chia-network/go-plotdisk/internal/park"
)

// phase3Result is Phase3's output: the concatenated compressed tables
// region plus, for each of T1..T7, its byte offset within that region
// (spec §4.5 "Records final_table_begin_pointers[1..] into the 10x8
// header area").
type phase3Result struct {
	tablesRegion      []byte
	tableBeginOffsets [7]uint64
}

// runPhase3 compresses tables 1..6 through a FilteredScratch bound to
// their survival bitfield, park-encoding runs of surviving entries; table
// 7 has no filter (every entry survives) and is copied through verbatim
// (spec §4.5 "Phase3").
func runPhase3(cfg *phaseConfig, p1 *phase1Result, filters [8]*Bitfield) (*phase3Result, error) {
	res := &phase3Result{}
	keyBits := int(cfg.k)
	posBits := int(cfg.k)

	for t := 1; t <= 6; t++ {
		res.tableBeginOffsets[t-1] = uint64(len(res.tablesRegion))
		es := entrySize(cfg.k, t)
		f := filters[t]

		view, err := NewFilteredScratch(p1.sortedCaches[t], f, uint64(es))
		if err != nil {
			return nil, err
		}
		survivors := f.Count()

		var countBuf [8]byte
		binary.BigEndian.PutUint64(countBuf[:], survivors)
		res.tablesRegion = append(res.tablesRegion, countBuf[:]...)

		pk := make([]parkcodec.Entry, 0, parkcodec.MaxEntries)
		flush := func() error {
			if len(pk) == 0 {
				return nil
			}
			encoded, err := parkcodec.Encode(pk, keyBits, posBits)
			if err != nil {
				return err
			}
			var parkLen [4]byte
			binary.BigEndian.PutUint32(parkLen[:], uint32(len(encoded)))
			res.tablesRegion = append(res.tablesRegion, parkLen[:]...)
			res.tablesRegion = append(res.tablesRegion, encoded...)
			pk = pk[:0]
			return nil
		}

		for i := uint64(0); i < survivors; i++ {
			buf, err := view.Read(i*uint64(es), uint64(es))
			if err != nil {
				return nil, err
			}
			e := unpackEntry(buf, cfg.k, t)
			pk = append(pk, parkcodec.Entry{Key: e.Key, Left: e.LeftPos, Right: e.RightPos})
			if len(pk) == parkcodec.MaxEntries {
				if err := flush(); err != nil {
					return nil, err
				}
			}
		}
		if err := flush(); err != nil {
			return nil, err
		}
	}

	// Table 7: every entry survives, copy verbatim in sorted order.
	res.tableBeginOffsets[6] = uint64(len(res.tablesRegion))
	es7 := entrySize(cfg.k, 7)
	n7 := p1.tableSizes[7]
	var countBuf [8]byte
	binary.BigEndian.PutUint64(countBuf[:], n7)
	res.tablesRegion = append(res.tablesRegion, countBuf[:]...)
	for pos := uint64(0); pos < n7; pos++ {
		buf, err := p1.sortedCaches[7].Read(pos*uint64(es7), uint64(es7))
		if err != nil {
			return nil, err
		}
		res.tablesRegion = append(res.tablesRegion, buf[:es7]...)
	}

	return res, nil
}
