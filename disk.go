package plotdisk

// Disk is the capability set shared by BufferedScratch, FilteredScratch,
// and SortManager (spec §9 "Virtual dispatch over scratch"). Phases hold
// values of this interface where a component may be backed by any of the
// three; they switch to the concrete type where only one makes sense (a
// phase's own sort manager) to keep monomorphised call sites fast.
//
// Read's contract, true for all three implementations: the returned slice
// is a borrowed view valid only until the next call to Read, Write,
// Truncate, or FreeMemory on the same receiver. Callers must copy out
// anything they need to keep past the next call.
type Disk interface {
	// Read returns length bytes starting at logical offset begin, plus
	// (for implementations that promise it) a decoder overread tail; see
	// each implementation's doc comment for its exact overread guarantee.
	Read(begin, length uint64) ([]byte, error)
	// Truncate releases backing storage beyond newSize. Some
	// implementations only support newSize == 0.
	Truncate(newSize uint64) error
	// FreeMemory releases all buffers the receiver owns. The receiver must
	// not be used afterward except by calling FreeMemory again.
	FreeMemory()
}
