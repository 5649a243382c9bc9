package plotdisk

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	plotdiskerrors "github.com/chia-network/go-plotdisk/errors"
)

// phaseConfig carries the sizing decisions Plotter.CreatePlot makes once,
// shared by all four phases.
type phaseConfig struct {
	k             uint8
	id            [kIDLen]byte
	matchFn       matchFunction
	arenaMemory   uint64
	numBuckets    uint32
	logNumBuckets int
	stripeSize    uint64
	workers       int
	verbose       bool
}

// phase1Result is Phase1's output: each table's entry count and a plain,
// sequentially-readable copy of its sorted entries (spec §4.5 "Output:
// table_sizes[1..7] and ... a sorted stream per table").
//
// sortedCaches exist because each table's SortManager is read forward exactly once in its lifetime, and
// that one read-through is spent here, while generating the *next*
// table. Phase1 mirrors every entry it reads out of sortManager[t-1]
// into sortedCaches[t-1] in the same order, so Phase2 and Phase3 have a
// plain, re-readable copy without needing to re-drain a SortManager that
// has already moved past the position they'd want.
type phase1Result struct {
	tableSizes   [8]uint64 // index 1..7
	sortedCaches [8]*BufferedScratch
}

// runPhase1 generates tables T1..T7 by forward-propagating matches (spec
// §4.5 "Phase1").
func runPhase1(ctx context.Context, cfg *phaseConfig) (*phase1Result, error) {
	res := &phase1Result{}
	done := false
	defer func() {
		for _, c := range res.sortedCaches {
			if c != nil && !done {
				c.FreeMemory()
			}
		}
	}()

	es1 := entrySize(cfg.k, 1)
	n1 := uint64(1) << cfg.k
	prevSM, err := NewSortManager("T1", cfg.arenaMemory, cfg.numBuckets, cfg.logNumBuckets, es1, 0, cfg.stripeSize)
	if err != nil {
		return nil, err
	}
	if err := seedTable1(ctx, cfg, prevSM, es1, n1); err != nil {
		return nil, err
	}
	res.tableSizes[1] = n1

	for t := 2; t <= 7; t++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		esPrev := entrySize(cfg.k, t-1)
		esCur := entrySize(cfg.k, t)
		n := res.tableSizes[t-1]

		sortedPrev, err := NewBufferedScratch(tableName(t-1)+".cache", n*uint64(esPrev))
		if err != nil {
			return nil, err
		}
		res.sortedCaches[t-1] = sortedPrev
		smCur, err := NewSortManager(tableName(t), cfg.arenaMemory, cfg.numBuckets, cfg.logNumBuckets, esCur, 0, cfg.stripeSize)
		if err != nil {
			return nil, err
		}

		var tableSize uint64
		curBuf := make([]byte, esCur)
		for pos := uint64(0); pos < n; pos++ {
			p := pos * uint64(esPrev)
			if prevSM.CloseToNewBucket(p) {
				if err := prevSM.TriggerNewBucket(p); err != nil {
					return nil, err
				}
			}
			leftBuf, err := prevSM.Read(p, uint64(esPrev))
			if err != nil {
				return nil, err
			}
			if err := sortedPrev.Write(p, leftBuf[:esPrev]); err != nil {
				return nil, err
			}
			left := unpackEntry(leftBuf, cfg.k, t-1)

			for w := uint64(1); w <= matchWindow && pos+w < n; w++ {
				rp := (pos + w) * uint64(esPrev)
				rightBuf, err := prevSM.Read(rp, uint64(esPrev))
				if err != nil {
					return nil, err
				}
				right := unpackEntry(rightBuf, cfg.k, t-1)
				key, ok := cfg.matchFn.Match(cfg.id, t, left.Key, right.Key)
				if !ok {
					continue
				}
				packEntry(curBuf, Entry{Key: key, LeftPos: pos, RightPos: pos + w}, cfg.k, t)
				if err := smCur.AddToCache(curBuf); err != nil {
					return nil, err
				}
				tableSize++
			}
		}
		if err := sortedPrev.FlushCache(); err != nil {
			return nil, err
		}
		prevSM.FreeMemory()

		res.tableSizes[t] = tableSize

		if cfg.verbose {
			log.Printf("plotdisk: phase1: table %d has %d entries", t, tableSize)
		}

		prevSM = smCur
	}

	// Table 7 has no successor table whose generation would materialize
	// its sortedCache as a side effect; drain it once here instead.
	es7 := entrySize(cfg.k, 7)
	n7 := res.tableSizes[7]
	cache7, err := NewBufferedScratch("T7.cache", n7*uint64(es7))
	if err != nil {
		return nil, err
	}
	res.sortedCaches[7] = cache7
	for pos := uint64(0); pos < n7; pos++ {
		buf, err := prevSM.Read(pos*uint64(es7), uint64(es7))
		if err != nil {
			return nil, err
		}
		if err := cache7.Write(pos*uint64(es7), buf[:es7]); err != nil {
			return nil, err
		}
	}
	if err := cache7.FlushCache(); err != nil {
		return nil, err
	}
	prevSM.FreeMemory()

	if res.tableSizes[7] == 0 {
		return nil, plotdiskerrors.New(plotdiskerrors.InvalidValue, "phase1 produced an empty table 7; k too small for the configured match density")
	}

	done = true
	return res, nil
}

// seedTable1 evaluates F1 over every x in [0, n1) and feeds the results,
// in x order, into sm. F1 has no dependency between seeds (spec §4.5
// Phase1's base case), so the evaluation itself is split across
// cfg.workers goroutines via errgroup (SPEC_FULL.md §3's domain-stack
// entry for golang.org/x/sync/errgroup); sm stays single-producer, since
// only this function ever calls AddToCache on it and does so from one
// goroutine after every worker has finished.
func seedTable1(ctx context.Context, cfg *phaseConfig, sm *SortManager, es1 int, n1 uint64) error {
	if cfg.workers <= 1 || n1 < uint64(cfg.workers) {
		buf := make([]byte, es1)
		for x := uint64(0); x < n1; x++ {
			key := cfg.matchFn.F1(cfg.id, cfg.k, x)
			packEntry(buf, Entry{Key: key}, cfg.k, 1)
			if err := sm.AddToCache(buf); err != nil {
				return err
			}
		}
		return nil
	}

	chunks := uint64(cfg.workers)
	chunkLen := (n1 + chunks - 1) / chunks
	buffers := make([][]byte, chunks)

	g, gctx := errgroup.WithContext(ctx)
	for c := uint64(0); c < chunks; c++ {
		c := c
		start := c * chunkLen
		end := start + chunkLen
		if end > n1 {
			end = n1
		}
		if start >= end {
			continue
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			buf := make([]byte, (end-start)*uint64(es1))
			for x := start; x < end; x++ {
				key := cfg.matchFn.F1(cfg.id, cfg.k, x)
				off := (x - start) * uint64(es1)
				packEntry(buf[off:off+uint64(es1)], Entry{Key: key}, cfg.k, 1)
			}
			buffers[c] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, buf := range buffers {
		for off := 0; off < len(buf); off += es1 {
			if err := sm.AddToCache(buf[off : off+es1]); err != nil {
				return err
			}
		}
	}
	return nil
}

func tableName(t int) string {
	return "T" + string(rune('0'+t))
}
