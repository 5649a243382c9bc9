package plotdisk

import (
	"log"
	"math"

	"github.com/edsrzf/mmap-go"

	plotdiskerrors "github.com/chia-network/go-plotdisk/errors"
)

// mmapThreshold is the region size above which BufferedScratch backs
// itself with an anonymous mmap instead of a plain Go slice, mirroring the
// teacher's indexWriter switching its payload/metadata regions to
// mmap.MapRegion once they cross a size where the allocator and GC scan
// cost of a giant slice starts to matter.
const mmapThreshold = 64 << 20

// defaultReadAhead and defaultWriteCache are BufferedScratch's two buffer
// sizes (spec §4.1), matching chiapos's 1 MiB defaults.
const (
	defaultReadAhead  = 1 << 20
	defaultWriteCache = 1 << 20
)

// noWindow is the sentinel read-window start meaning "no window filled
// yet" (spec §9 open question: the source's read_buffer_start_ = u64::MAX
// sentinel). The sentinel itself is a package constant; the state it marks
// (readWindowStart) and the fallback array are struct fields, so each
// BufferedScratch gets its own fallback state (spec §9 "Global static
// scratch for backward reads").
const noWindow = math.MaxUint64

// BufferedScratch wraps a mutable byte region of known size with a
// forward-biased read cache and a write-combining cache (spec §4.1, C2).
type BufferedScratch struct {
	region   []byte
	mmapped  mmap.MMap
	fileSize uint64

	readAhead  uint64
	writeCache uint64

	readWindow      []byte
	readWindowStart uint64

	writeBuf   []byte
	writeStart uint64
	writeSize  uint64

	fallback [128]byte

	name string // used only in the backward-read diagnostic
}

// NewBufferedScratch allocates a region of fileSize bytes (mmap-backed
// above mmapThreshold, a plain slice below it) and wraps it in a
// BufferedScratch with default buffer sizes.
func NewBufferedScratch(name string, fileSize uint64) (*BufferedScratch, error) {
	b := &BufferedScratch{
		fileSize:        fileSize,
		readAhead:       defaultReadAhead,
		writeCache:      defaultWriteCache,
		readWindowStart: noWindow,
		name:            name,
	}
	if fileSize >= mmapThreshold {
		m, err := mmap.MapRegion(nil, int(fileSize), mmap.RDWR, mmap.ANON, 0)
		if err != nil {
			return nil, plotdiskerrors.Newf(plotdiskerrors.InsufficientMemory, "%s: mmap %d bytes: %v", name, fileSize, err)
		}
		b.mmapped = m
		b.region = m
		// An mmap-backed arena is populated by Phase1/Phase3's own writes
		// almost immediately; prefaulting it now (best-effort, a no-op off
		// Linux 5.14+) avoids paying for the page faults one at a time
		// during the hot forward-scan loop.
		prefaultRegion(b.region)
	} else {
		b.region = make([]byte, fileSize)
	}
	return b, nil
}

// Read returns length bytes starting at logical offset begin, with at
// least 7 bytes of valid tail beyond length where available (the entry
// decoder's documented overread allowance, spec §9). Callers must
// guarantee length < readAhead; violating that is an internal invariant
// failure, not a recoverable error. A read behind the current window (case
// 3) is the exception: it returns up to 121 bytes copied into the 128-byte
// fallback array, whatever length is.
//
// The three cases below (hit, slide, backwards) are the spec's own
// resolution of the source's subtle sentinel-driven branching (§9 open
// question) and must be evaluated in this order.
func (b *BufferedScratch) Read(begin, length uint64) ([]byte, error) {
	if length >= b.readAhead {
		panic("plotdisk: BufferedScratch.Read length must be < readAhead")
	}
	if begin+length > b.fileSize {
		return nil, plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "%s: read past end of file: begin=%d length=%d size=%d", b.name, begin, length, b.fileSize)
	}
	tailWant := length + 7

	// Case 1: fully inside the current window with the tail available.
	if b.readWindowStart != noWindow && begin >= b.readWindowStart {
		off := begin - b.readWindowStart
		if off+tailWant <= uint64(len(b.readWindow)) {
			return b.readWindow[off : off+tailWant], nil
		}
	}

	// Case 2: slide the window forward (also covers "no window yet").
	if b.readWindowStart == noWindow || begin >= b.readWindowStart {
		avail := b.fileSize - begin
		winLen := b.readAhead
		if avail < winLen {
			winLen = avail
		}
		if cap(b.readWindow) < int(winLen) {
			b.readWindow = make([]byte, winLen)
		}
		b.readWindow = b.readWindow[:winLen]
		copy(b.readWindow, b.region[begin:begin+winLen])
		b.readWindowStart = begin
		end := tailWant
		if end > winLen {
			end = winLen
		}
		return b.readWindow[:end], nil
	}

	// Case 3: begin is behind the current window. Slow path; callers are
	// expected to scan forward, not backward.
	log.Printf("plotdisk: %s: backward BufferedScratch.Read(begin=%d) behind window start %d", b.name, begin, b.readWindowStart)
	n := uint64(len(b.fallback)) - 7
	if avail := b.fileSize - begin; avail < n {
		n = avail
	}
	copy(b.fallback[:n], b.region[begin:begin+n])
	return b.fallback[:n], nil
}

// Write appends or copies bytes at logical offset begin (spec §4.1 "Write
// policy"). A write that continues the cached run, or starts one while the
// cache is empty, is cached as long as the run fits the write cache;
// anything else forces a flush and a direct copy.
func (b *BufferedScratch) Write(begin uint64, data []byte) error {
	if begin+uint64(len(data)) > b.fileSize {
		return plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "%s: write past end of file: begin=%d length=%d size=%d", b.name, begin, len(data), b.fileSize)
	}

	if b.writeSize > 0 && begin == b.writeStart+b.writeSize && b.writeSize+uint64(len(data)) <= b.writeCache {
		b.ensureWriteCap(b.writeSize + uint64(len(data)))
		copy(b.writeBuf[b.writeSize:], data)
		b.writeSize += uint64(len(data))
		return nil
	}
	if b.writeSize == 0 && uint64(len(data)) <= b.writeCache {
		b.ensureWriteCap(uint64(len(data)))
		copy(b.writeBuf, data)
		b.writeStart = begin
		b.writeSize = uint64(len(data))
		return nil
	}

	if err := b.FlushCache(); err != nil {
		return err
	}
	copy(b.region[begin:], data)
	b.invalidateWindowOverlapping(begin, uint64(len(data)))
	return nil
}

func (b *BufferedScratch) ensureWriteCap(n uint64) {
	if uint64(cap(b.writeBuf)) < n {
		grown := make([]byte, n, max64(n, b.writeCache))
		copy(grown, b.writeBuf)
		b.writeBuf = grown
	} else if uint64(len(b.writeBuf)) < n {
		b.writeBuf = b.writeBuf[:n]
	}
}

// FlushCache writes any pending write-cache contents to the region.
// Idempotent, and must be called before Truncate or FreeMemory (spec
// §4.1).
func (b *BufferedScratch) FlushCache() error {
	if b.writeSize == 0 {
		return nil
	}
	copy(b.region[b.writeStart:b.writeStart+b.writeSize], b.writeBuf[:b.writeSize])
	b.invalidateWindowOverlapping(b.writeStart, b.writeSize)
	b.writeSize = 0
	return nil
}

// invalidateWindowOverlapping drops the read window if a write touched
// bytes it has already cached, so a subsequent Read doesn't serve stale
// data.
func (b *BufferedScratch) invalidateWindowOverlapping(begin, length uint64) {
	if b.readWindowStart == noWindow {
		return
	}
	winEnd := b.readWindowStart + uint64(len(b.readWindow))
	if begin < winEnd && begin+length > b.readWindowStart {
		b.readWindowStart = noWindow
	}
}

// Truncate shrinks the logical file size. Growing is not supported.
func (b *BufferedScratch) Truncate(newSize uint64) error {
	if err := b.FlushCache(); err != nil {
		return err
	}
	if newSize > b.fileSize {
		return plotdiskerrors.New(plotdiskerrors.InvalidValue, "BufferedScratch.Truncate cannot grow a region")
	}
	b.fileSize = newSize
	b.readWindowStart = noWindow
	return nil
}

// FreeMemory flushes any pending writes and releases all buffers,
// including unmapping the backing mmap if one was used.
func (b *BufferedScratch) FreeMemory() {
	_ = b.FlushCache()
	b.readWindow = nil
	b.writeBuf = nil
	if b.mmapped != nil {
		_ = b.mmapped.Unmap()
		b.mmapped = nil
	}
	b.region = nil
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
