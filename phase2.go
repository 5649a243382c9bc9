package plotdisk

// runPhase2 back-propagates survival from table 7 down to table 1 (spec
// §4.5 "Phase2"), producing bitfields F_1..F_6. F_7 is never materialized:
// every table 7 entry survives by definition (it has no successor to be
// pruned by).
func runPhase2(cfg *phaseConfig, p1 *phase1Result) ([8]*Bitfield, error) {
	var filters [8]*Bitfield

	for t := 7; t >= 2; t-- {
		es := entrySize(cfg.k, t)
		n := p1.tableSizes[t]
		prevSize := p1.tableSizes[t-1]
		f := NewBitfield(prevSize)

		var parentFilter *Bitfield
		if t < 7 {
			parentFilter = filters[t]
		}

		var src Disk = p1.sortedCaches[t]
		for pos := uint64(0); pos < n; pos++ {
			if parentFilter != nil && !parentFilter.Get(pos) {
				continue
			}
			buf, err := src.Read(pos*uint64(es), uint64(es))
			if err != nil {
				return filters, err
			}
			e := unpackEntry(buf, cfg.k, t)
			f.Set(e.LeftPos)
			f.Set(e.RightPos)
		}
		f.Freeze()
		filters[t-1] = f
	}

	return filters, nil
}
