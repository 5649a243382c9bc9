// Package plotdisk implements the plot construction pipeline for a
// proof-of-space scheme of the Chia family: given a plot size parameter k
// and a 32-byte seed, it produces a persistent table structure from which a
// prover can answer arbitrary 32-byte challenges with proofs that are cheap
// to verify.
//
// The hard engineering is not in the cryptographic proof (a thin keyed-hash
// construction, see the match and prove packages) but in constructing the
// tables: billions of fixed-width bit-packed entries generated, joined,
// back-propagated and compressed under bounded RAM and a large scratch
// area, while preserving sort order by specific bit ranges.
//
// # Basic usage
//
// Building a plot:
//
//	plotter := plotdisk.NewPlotter(k, id, plotdisk.WithStripeSize(65536))
//	plot, err := plotter.CreatePlot(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("plot.dat", plot, 0o644)
//
// Proving and verifying against the produced plot is handled by the prove
// package; the match function collaborator (out of scope per the design's
// purpose statement) lives in internal/match.
//
// # Package structure
//
//   - Public API: plotter.go (NewPlotter, CreatePlot), options.go (PlotOption)
//   - File format: header.go (plot file header/footer codec)
//   - Scratch primitives: bitfield.go (C1), bufferedscratch.go (C2),
//     filteredscratch.go (C3), disk.go (shared Disk interface)
//   - External sort: sortmanager.go (C5), internal/uniformsort (C4)
//   - Orchestration: phase1.go..phase4.go (C6-C9)
//   - Entry codec: entry.go (bit-packed fixed-width records per table)
//   - Collaborators: internal/match (match function contract), prove
//     (reference prover/verifier), internal/park (park-encoded output)
//   - Platform: fallocate_*.go, fadvise_*.go, prefault_*.go, platform.go
//     (exported WriteFilePreallocated/AdviseSequentialRead wrappers)
package plotdisk
