package plotdisk

// PlotOption configures a Plotter, following the teacher's BuildOption
// functional-options idiom (builder_options.go).
type PlotOption func(*plotConfig)

type plotConfig struct {
	bufMegabytes   uint32
	numBuckets     uint32
	stripeSize     uint64
	enableBitfield bool
	workers        int
	matchFn        matchFunction
	verbose        bool
}

// defaultPlotConfig mirrors the teacher's defaultBuildConfig: every field
// has a sane zero-cost default, and 0 for numBuckets/stripeSize means
// "auto" (spec §6 "Plotter entry point").
func defaultPlotConfig() *plotConfig {
	return &plotConfig{
		bufMegabytes: 4608,
		numBuckets:   0,
		stripeSize:   0,
		workers:      1,
	}
}

// WithBufMegabytes sets the total memory budget in megabytes (default
// 4608, minimum 10 plus dynamic per-table overhead; spec §6).
func WithBufMegabytes(mb uint32) PlotOption {
	return func(c *plotConfig) { c.bufMegabytes = mb }
}

// WithNumBuckets explicitly requests a bucket count; 0 (the default)
// means auto-sized by the Plotter from k and the memory budget.
func WithNumBuckets(n uint32) PlotOption {
	return func(c *plotConfig) { c.numBuckets = n }
}

// WithStripeSize sets Phase1's forward-scan window; 0 (the default) means
// 65536, per spec §6.
func WithStripeSize(n uint64) PlotOption {
	return func(c *plotConfig) { c.stripeSize = n }
}

// WithBitfieldPhases enables the ENABLE_BITFIELD phases_flags bit (spec
// §6), requiring popcount CPU support when targeting x86.
func WithBitfieldPhases() PlotOption {
	return func(c *plotConfig) { c.enableBitfield = true }
}

// WithWorkers sets how many goroutines evaluate the match function's
// hashing sub-step concurrently (SPEC_FULL.md §6's concurrency
// clarification: the match function itself may be threaded, never the
// sort manager's single-producer write side). Table 1's seeding step
// (F1 over [0, 2^k), spec §4.5 Phase1's base case) has no left/right
// dependency between seeds and is the one point in Phase1 safe to split
// this way; tables 2..7 keep a single producer per table, matching spec
// §5.
func WithWorkers(n int) PlotOption {
	return func(c *plotConfig) { c.workers = n }
}

// WithVerbose gates the phase-boundary and sizing-decision progress lines
// Plotter.CreatePlot prints, the Go counterpart of the teacher's
// _PRINT_LOGS-gated std::cout lines in plotter_disk.hpp.
func WithVerbose(v bool) PlotOption {
	return func(c *plotConfig) { c.verbose = v }
}

// withMatchFunction overrides the match function collaborator (spec §1).
// Unexported, and nothing in this module calls it, so every Plotter uses
// the reference XXH3Function.
func withMatchFunction(fn matchFunction) PlotOption {
	return func(c *plotConfig) { c.matchFn = fn }
}
