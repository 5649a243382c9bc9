package plotdisk

// Constants fixed by the proof-of-space construction (spec §6). None of
// these are tunable at runtime; they are properties of the scheme itself,
// not of a particular plot.
const (
	// kIDLen is the length in bytes of a plot id.
	kIDLen = 32

	// kMinPlotSize and kMaxPlotSize bound the accepted k parameter.
	kMinPlotSize = 17
	kMaxPlotSize = 50

	// kMinBuckets and kMaxBuckets bound the sort manager's bucket count.
	// Both must be satisfied by a power of two.
	kMinBuckets = 16
	kMaxBuckets = 1 << 20

	// kMemSortProportion is the fraction of the memory budget the plotter
	// reserves for UniformSort's destination arena, versus bucket-vector
	// and housekeeping overhead.
	kMemSortProportion = 0.77

	// kBC and kExtraBits parameterize the match function's window; carried
	// here (rather than into internal/match) because SortManager's
	// prev-bucket buffer sizing formula (§4.4, §9 "Prev-bucket size
	// formula") depends on them directly, independent of which match
	// function implementation is plugged in.
	kBC         = 10000
	kExtraBits  = 6
	matchWindow = 4 // how many forward entries Phase1 probes per left entry

	// kFormatDescription identifies this implementation's plot format; it
	// is not bit-compatible with the original chiapos format (spec §7,
	// SPEC_FULL.md §7).
	kFormatDescription = "go-plotdisk.v1"
)

// entrySize returns entry_size(k, t): the width in bytes of one bit-packed
// entry of table t for plot size k (spec §3).
//
// Table 1 entries carry only a k-bit key (the output of the match
// function's F1 seeding step). Tables 2-7 additionally carry left_pos and
// right_pos, k-bit indices into table t-1, used by Phase2's
// back-propagation (spec §4.5). All three fields are packed back-to-back,
// most-significant-bit first, and rounded up to a whole number of bytes.
func entrySize(k uint8, table int) int {
	bits := int(k)
	if table > 1 {
		bits = 3 * int(k)
	}
	return (bits + 7) / 8
}

// posBits is the number of bits used to encode a position (index into the
// previous table) within a table-2..7 entry.
func posBits(k uint8) int {
	return int(k)
}
