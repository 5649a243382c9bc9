// plotdisk builds a plot file for a given k and seed id, the CLI entry
// point over Plotter.CreatePlot.
//
// Usage:
//
//	go run ./cmd/plotdisk -k 20 -out plot.dat
//	go run ./cmd/plotdisk -k 25 -id deadbeef... -buf-mb 8192 -out plot.dat
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	plotdisk "github.com/chia-network/go-plotdisk"
)

func main() {
	k := flag.Int("k", 25, "plot size parameter")
	idHex := flag.String("id", "", "32-byte seed id as hex (default: random)")
	bufMB := flag.Uint("buf-mb", 4608, "memory budget in megabytes")
	buckets := flag.Uint("buckets", 0, "sort manager bucket count (0 = auto)")
	stripe := flag.Uint64("stripe", 0, "phase1 forward-scan stripe size (0 = default)")
	enableBitfield := flag.Bool("enable-bitfield", false, "require CPU popcount support and enable bitfield phases")
	workers := flag.Int("workers", 1, "goroutines evaluating table 1's seeding step")
	out := flag.String("out", "plot.dat", "output plot file path")
	verbose := flag.Bool("verbose", true, "print phase progress")
	flag.Parse()

	id, err := resolveID(*idHex)
	if err != nil {
		fmt.Fprintln(os.Stderr, "plotdisk:", err)
		os.Exit(1)
	}

	opts := []plotdisk.PlotOption{
		plotdisk.WithBufMegabytes(uint32(*bufMB)),
		plotdisk.WithWorkers(*workers),
		plotdisk.WithVerbose(*verbose),
	}
	if *buckets != 0 {
		opts = append(opts, plotdisk.WithNumBuckets(uint32(*buckets)))
	}
	if *stripe != 0 {
		opts = append(opts, plotdisk.WithStripeSize(*stripe))
	}
	if *enableBitfield {
		opts = append(opts, plotdisk.WithBitfieldPhases())
	}

	p := plotdisk.NewPlotter(uint8(*k), id, opts...)

	start := time.Now()
	data, err := p.CreatePlot(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "plotdisk: create plot:", err)
		os.Exit(1)
	}

	if err := plotdisk.WriteFilePreallocated(*out, data, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "plotdisk: write plot:", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s: %d bytes in %s (k=%d, id=%x)\n", *out, len(data), time.Since(start), *k, id)
}

func resolveID(idHex string) ([32]byte, error) {
	var id [32]byte
	if idHex == "" {
		if _, err := rand.Read(id[:]); err != nil {
			return id, fmt.Errorf("generate random id: %w", err)
		}
		return id, nil
	}
	decoded, err := hex.DecodeString(idHex)
	if err != nil {
		return id, fmt.Errorf("decode -id: %w", err)
	}
	if len(decoded) != 32 {
		return id, fmt.Errorf("-id must decode to 32 bytes, got %d", len(decoded))
	}
	copy(id[:], decoded)
	return id, nil
}
