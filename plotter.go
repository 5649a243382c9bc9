package plotdisk

import (
	"context"
	"log"
	"math/bits"
	"runtime"

	"github.com/klauspost/cpuid/v2"

	plotdiskerrors "github.com/chia-network/go-plotdisk/errors"
	"github.com/chia-network/go-plotdisk/internal/match"
)

// matchFunction is plotdisk's name for the out-of-scope match-function
// collaborator's contract (spec §1); an alias rather than a fresh type so
// internal/match stays the single source of truth for it.
type matchFunction = match.Function

// Plotter orchestrates Phase1..Phase4, sizing memory and bucket counts
// from k and emitting the final plot file (spec §4.5, C10).
type Plotter struct {
	k   uint8
	id  [kIDLen]byte
	cfg *plotConfig
}

// NewPlotter constructs a Plotter for plot size k and seed id. Validation
// of k happens in CreatePlot, matching the Plotter's documented
// responsibilities (spec §4.5) rather than at construction time.
func NewPlotter(k uint8, id [kIDLen]byte, opts ...PlotOption) *Plotter {
	cfg := defaultPlotConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.matchFn == nil {
		cfg.matchFn = match.XXH3Function{}
	}
	return &Plotter{k: k, id: id, cfg: cfg}
}

// CreatePlot runs all four phases and returns the finished plot file
// bytes (spec §6 "Plotter entry point"). All owned buffers are released
// on every exit path, success or failure (spec §5 "Scoped acquisition").
func (p *Plotter) CreatePlot(ctx context.Context) ([]byte, error) {
	if p.k < kMinPlotSize || p.k > kMaxPlotSize {
		return nil, plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "k=%d out of range [%d,%d]", p.k, kMinPlotSize, kMaxPlotSize)
	}
	if p.cfg.enableBitfield && runtime.GOARCH == "amd64" && !cpuid.CPU.Supports(cpuid.POPCNT) {
		return nil, plotdiskerrors.New(plotdiskerrors.InvalidValue, "ENABLE_BITFIELD requested but CPU lacks POPCNT")
	}

	threadMemory := 2 * (p.stripeSize() + 5000) * uint64(entrySize(p.k, 4))
	memoryBudget := uint64(p.cfg.bufMegabytes) << 20
	minRequired := uint64(10)<<20 + threadMemory
	if memoryBudget <= minRequired {
		return nil, plotdiskerrors.Newf(plotdiskerrors.InsufficientMemory, "buf_megabytes=%d leaves no room after %d bytes of thread overhead", p.cfg.bufMegabytes, threadMemory)
	}
	arenaMemory := memoryBudget - threadMemory

	numBuckets, logNumBuckets, err := p.bucketCount(arenaMemory)
	if err != nil {
		return nil, err
	}
	stripe := p.stripeSize()
	maxTableBytes := (uint64(1) << p.k) * uint64(entrySize(p.k, 2))
	if maxTableBytes/uint64(numBuckets) < stripe*30 {
		return nil, plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "stripe_size=%d too large for %d buckets at k=%d", stripe, numBuckets, p.k)
	}

	if p.cfg.verbose {
		log.Printf("plotdisk: k=%d buckets=%d (log2=%d) stripe=%d arena=%d bytes", p.k, numBuckets, logNumBuckets, stripe, arenaMemory)
	}

	workers := p.cfg.workers
	if workers < 1 {
		workers = 1
	}
	phaseCfg := &phaseConfig{
		k:             p.k,
		id:            p.id,
		matchFn:       p.cfg.matchFn,
		arenaMemory:   arenaMemory,
		numBuckets:    numBuckets,
		logNumBuckets: logNumBuckets,
		stripeSize:    stripe,
		workers:       workers,
		verbose:       p.cfg.verbose,
	}

	if p.cfg.verbose {
		log.Printf("plotdisk: phase 1/4: forward propagation")
	}
	p1, err := runPhase1(ctx, phaseCfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, c := range p1.sortedCaches {
			if c != nil {
				c.FreeMemory()
			}
		}
	}()

	if p.cfg.verbose {
		log.Printf("plotdisk: phase 2/4: back-propagation")
	}
	filters, err := runPhase2(phaseCfg, p1)
	if err != nil {
		return nil, err
	}

	header := &plotHeader{ID: p.id, K: p.k, FormatDescription: kFormatDescription}
	headerBuf := encodeHeader(header)

	if p.cfg.verbose {
		log.Printf("plotdisk: phase 3/4: compression")
	}
	p3, err := runPhase3(phaseCfg, p1, filters)
	if err != nil {
		return nil, err
	}

	if p.cfg.verbose {
		log.Printf("plotdisk: phase 4/4: checkpoints")
	}
	p4, err := runPhase4(phaseCfg, p3)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(headerBuf)+len(p3.tablesRegion)+len(p4.checkpointsRegion)+8)
	out = append(out, headerBuf...)
	baseOff := uint64(len(headerBuf))
	for i, off := range p3.tableBeginOffsets {
		setPointer(out, len(header.FormatDescription), i, baseOff+off)
	}
	out = append(out, p3.tablesRegion...)
	checkpointsBase := baseOff + uint64(len(p3.tablesRegion))
	for i, off := range p4.checkpointOffsets {
		setPointer(out, len(header.FormatDescription), 7+i, checkpointsBase+off)
	}
	out = append(out, p4.checkpointsRegion...)

	trailer := footerHash(out[baseOff:])
	var trailerBuf [8]byte
	for i := 0; i < 8; i++ {
		trailerBuf[i] = byte(trailer >> (56 - 8*i))
	}
	out = append(out, trailerBuf[:]...)

	return out, nil
}

func (p *Plotter) stripeSize() uint64 {
	if p.cfg.stripeSize == 0 {
		return 65536
	}
	return p.cfg.stripeSize
}

// bucketCount resolves num_buckets/log_num_buckets per spec §4.5's sizing
// formula, or validates an explicitly requested count.
func (p *Plotter) bucketCount(arenaMemory uint64) (uint32, int, error) {
	if p.cfg.numBuckets != 0 {
		n := p.cfg.numBuckets
		if n < kMinBuckets || n > kMaxBuckets {
			return 0, 0, plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "num_buckets=%d out of range [%d,%d]", n, kMinBuckets, kMaxBuckets)
		}
		rounded := nextPow2(uint64(n))
		if rounded != uint64(n) {
			return 0, 0, plotdiskerrors.Newf(plotdiskerrors.InvalidValue, "num_buckets=%d is not a power of two", n)
		}
		return n, bits.TrailingZeros64(rounded), nil
	}

	maxTableBytes := (uint64(1) << p.k) * uint64(entrySize(p.k, 2))
	target := float64(2*maxTableBytes) / (float64(arenaMemory) * kMemSortProportion)
	n := nextPow2(uint64(target) + 1)
	if n < kMinBuckets {
		n = kMinBuckets
	}
	if n > kMaxBuckets {
		n = kMaxBuckets
	}
	return uint32(n), bits.TrailingZeros64(n), nil
}

func nextPow2(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	return uint64(1) << bits.Len64(n-1)
}
