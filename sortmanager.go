package plotdisk

import (
	plotbits "github.com/chia-network/go-plotdisk/internal/bits"
	"github.com/chia-network/go-plotdisk/internal/uniformsort"

	plotdiskerrors "github.com/chia-network/go-plotdisk/errors"
)

// SortManager is the external sort: a bucketed write-side cache, drained
// once (forward only) into a logically sorted byte stream (spec §4.4,
// C5). Each bucket is sorted in memory by UniformSort only when the read
// side first needs it, so only one bucket's sorted copy exists at a time;
// the unsorted buckets all stay in memory until each is sorted.
type SortManager struct {
	memorySize    uint64
	entrySize     int
	beginBits     int
	logNumBuckets int

	buckets []bucketCache
	closed  bool // true once the first bucket has been sorted (read phase)

	arena        []byte
	sorter       *uniformsort.Sorter
	nextBucket   uint32
	posStart     uint64
	posEnd       uint64
	prevBufSize  uint64
	prevBuf      []byte
	prevPosStart uint64

	name string
}

// bucketCache is one bucket's unsorted write-side byte vector.
type bucketCache struct {
	data []byte
}

// NewSortManager constructs a SortManager (spec §4.4 "Configuration").
// numBuckets must be a power of two in [kMinBuckets, kMaxBuckets] and
// agree with logNumBuckets. stripeSize sizes the prev-bucket look-back
// buffer via the formula in spec §9 ("Prev-bucket size formula").
func NewSortManager(name string, memorySize uint64, numBuckets uint32, logNumBuckets int, entrySize int, beginBits int, stripeSize uint64) (*SortManager, error) {
	if numBuckets == 0 || numBuckets&(numBuckets-1) != 0 {
		return nil, plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "%s: num_buckets %d is not a power of two", name, numBuckets)
	}
	if uint32(1)<<uint(logNumBuckets) != numBuckets {
		return nil, plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "%s: log_num_buckets %d disagrees with num_buckets %d", name, logNumBuckets, numBuckets)
	}
	prevBufSize := 2 * (stripeSize + 10*(kBC/(uint64(1)<<kExtraBits))) * uint64(entrySize)
	return &SortManager{
		memorySize:    memorySize,
		entrySize:     entrySize,
		beginBits:     beginBits,
		logNumBuckets: logNumBuckets,
		buckets:       make([]bucketCache, numBuckets),
		prevBufSize:   prevBufSize,
		sorter:        uniformsort.NewSorter(),
		name:          name,
	}, nil
}

// AddToCache appends one entry to its bucket's write-side vector (spec
// §4.4 "Write phase"). Fails once the read phase has started (the first
// bucket has been sorted): the original chiapos source closes writes the
// moment the reader needs its first bucket, not on the first add, per
// original_source/src/sort_manager.hpp's `done` flag.
func (m *SortManager) AddToCache(entry []byte) error {
	if m.closed {
		return plotdiskerrors.Newf(plotdiskerrors.InvalidState, "%s: AddToCache after the read phase has started", m.name)
	}
	if len(entry) != m.entrySize {
		return plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "%s: entry is %d bytes, want %d", m.name, len(entry), m.entrySize)
	}
	b := plotbits.ExtractNum(entry, m.beginBits, m.logNumBuckets)
	m.buckets[b].data = append(m.buckets[b].data, entry...)
	return nil
}

// Read serves length bytes from logical position p in the concatenation of
// sorted buckets (spec §4.4 "Read phase"). Sorting happens lazily: as many
// buckets as are needed to cover p are sorted before this call returns.
func (m *SortManager) Read(p, length uint64) ([]byte, error) {
	if p < m.posStart {
		if p < m.prevPosStart {
			return nil, plotdiskerrors.Newf(plotdiskerrors.InvalidState, "%s: read position %d is before the prev-bucket window start %d", m.name, p, m.prevPosStart)
		}
		off := p - m.prevPosStart
		if off+length > uint64(len(m.prevBuf)) {
			return nil, plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "%s: read past the end of the prev-bucket buffer", m.name)
		}
		return m.prevBuf[off : off+length], nil
	}

	for p >= m.posEnd {
		if err := m.sortBucket(); err != nil {
			return nil, err
		}
	}
	off := p - m.posStart
	if off+length > uint64(len(m.arena)) {
		return nil, plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "%s: read past the end of the sorted arena", m.name)
	}
	return m.arena[off : off+length], nil
}

// TriggerNewBucket bounds Phase1's stripe joins: it snapshots the tail of
// the currently sorted bucket (from position p onward) into a prev-bucket
// buffer, then eagerly sorts the next bucket (spec §4.4).
func (m *SortManager) TriggerNewBucket(p uint64) error {
	if p > m.posEnd || p < m.posStart {
		return plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "%s: TriggerNewBucket(%d) out of [%d,%d]", m.name, p, m.posStart, m.posEnd)
	}
	if m.arena != nil {
		cacheSize := m.posEnd - p
		m.prevBuf = make([]byte, m.prevBufSize)
		prefaultRegion(m.prevBuf)
		copy(m.prevBuf, m.arena[p-m.posStart:m.posEnd-m.posStart])
		_ = cacheSize
	}
	if err := m.sortBucket(); err != nil {
		return err
	}
	m.prevPosStart = p
	return nil
}

// CloseToNewBucket reports whether the caller is within half a
// prev-bucket buffer of needing the next bucket, and one remains.
func (m *SortManager) CloseToNewBucket(p uint64) bool {
	if p > m.posEnd {
		return m.nextBucket < uint32(len(m.buckets))
	}
	return p+m.prevBufSize/2 >= m.posEnd && m.nextBucket < uint32(len(m.buckets))
}

func (m *SortManager) sortBucket() error {
	if m.arena == nil {
		m.arena = make([]byte, m.memorySize)
		// This is the single largest allocation in the pipeline (up to
		// memory_size bytes); prefaulting it once up front, same as
		// BufferedScratch's mmap arena, keeps the first bucket's sort pass
		// from taking a page fault per 4KiB as it scatters entries across
		// the whole arena.
		prefaultRegion(m.arena)
	}
	m.closed = true
	if m.nextBucket >= uint32(len(m.buckets)) {
		return plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "%s: no more buckets to sort", m.name)
	}
	b := &m.buckets[m.nextBucket]
	entrySize := uint64(m.entrySize)
	numEntries := uint64(len(b.data)) / entrySize
	fitsInMemory := m.memorySize / entrySize
	if numEntries > fitsInMemory {
		return plotdiskerrors.Newf(plotdiskerrors.InsufficientMemory, "%s: bucket %d needs %d entries, arena holds %d", m.name, m.nextBucket, numEntries, fitsInMemory)
	}

	// UniformSort uses an all-zero entry as its "slot empty" sentinel
	// (spec §4.3), so an entry whose full byte pattern is already zero
	// (table 1's x == 0, for instance) must never reach it; spec §4.3
	// assigns the sort manager the job of "only sorting non-zero
	// entries". Segregate those here: an all-zero entry's key bits are
	// zero too, the minimum possible key, so it belongs at the very front
	// of the bucket's sorted output. Leaving its slot untouched in the
	// freshly-zeroed arena achieves exactly that, with no special casing
	// in UniformSort itself.
	zeroEntries := uint64(0)
	nz := b.data[:0]
	for i := uint64(0); i < numEntries; i++ {
		e := b.data[i*entrySize : (i+1)*entrySize]
		if isAllZero(e) {
			zeroEntries++
			continue
		}
		nz = append(nz, e...)
	}
	nonZeroEntries := numEntries - zeroEntries

	needed := zeroEntries*entrySize + plotbits.RoundSize(nonZeroEntries)*entrySize
	if uint64(len(m.arena)) < needed {
		clear(m.arena[:])
	} else {
		clear(m.arena[:needed])
	}
	dst := m.arena[zeroEntries*entrySize:]
	if err := m.sorter.SortInto(nz, dst, m.entrySize, nonZeroEntries, m.beginBits+m.logNumBuckets); err != nil {
		return plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "%s: sorting bucket %d: %v", m.name, m.nextBucket, err)
	}

	m.posStart = m.posEnd
	m.posEnd += uint64(len(b.data))
	m.nextBucket++
	// Release the unsorted bucket's write-side storage; it has now been
	// copied into the sorted arena.
	b.data = nil
	return nil
}

func isAllZero(entry []byte) bool {
	for _, v := range entry {
		if v != 0 {
			return false
		}
	}
	return true
}

// FlushCache drops the in-memory sorted arena and resets the end of the
// sorted range to 0. Nothing is re-sorted: the dropped bucket's unsorted
// data was already released when it was sorted. Used by Truncate.
func (m *SortManager) FlushCache() {
	m.posEnd = 0
	m.arena = nil
}

// Truncate only supports newSize == 0, meaning "release all backing
// memory" (spec §4.4).
func (m *SortManager) Truncate(newSize uint64) error {
	if newSize != 0 {
		return plotdiskerrors.New(plotdiskerrors.InvalidState, "SortManager.Truncate only supports newSize == 0")
	}
	m.FlushCache()
	m.FreeMemory()
	return nil
}

// FreeMemory releases the sorted arena, the prev-bucket buffer and every
// bucket's unsorted write-side vector.
func (m *SortManager) FreeMemory() {
	for i := range m.buckets {
		m.buckets[i].data = nil
	}
	m.prevBuf = nil
	m.arena = nil
	m.posEnd = 0
}
