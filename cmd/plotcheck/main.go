// plotcheck opens a plot file produced by cmd/plotdisk and reports the hit
// rate of N pseudo-random challenges, the read-side counterpart of
// cmd/plotdisk the way the teacher's cmd/bench_io benchmarks the read path
// of what cmd/bench writes.
//
// Usage:
//
//	go run ./cmd/plotcheck -plot plot.dat -challenges 1000
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	plotdisk "github.com/chia-network/go-plotdisk"
	"github.com/chia-network/go-plotdisk/prove"
)

func main() {
	plotPath := flag.String("plot", "plot.dat", "plot file to open")
	numChallenges := flag.Uint("challenges", 100, "number of challenges to try")
	flag.Parse()

	f, err := os.Open(*plotPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "plotcheck:", err)
		os.Exit(1)
	}
	// plotcheck reads the whole file once, start to finish, the textbook
	// case for a sequential-access hint.
	plotdisk.AdviseSequentialRead(f)
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "plotcheck:", err)
		os.Exit(1)
	}

	plot, err := plotdisk.OpenPlot(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, "plotcheck: open plot:", err)
		os.Exit(1)
	}

	start := time.Now()
	var hits, verified int
	for i := uint(0); i < *numChallenges; i++ {
		var seed [8]byte
		if _, err := rand.Read(seed[:]); err != nil {
			fmt.Fprintln(os.Stderr, "plotcheck: read random challenge seed:", err)
			os.Exit(1)
		}
		challenge := prove.ChallengeFromBytes(seed[:])

		proof, ok, err := prove.Find(plot, challenge)
		if err != nil {
			fmt.Fprintln(os.Stderr, "plotcheck: find:", err)
			os.Exit(1)
		}
		if !ok {
			continue
		}
		hits++

		accepted, err := prove.Verify(plot, challenge, proof)
		if err != nil {
			fmt.Fprintln(os.Stderr, "plotcheck: verify:", err)
			os.Exit(1)
		}
		if accepted {
			verified++
		}
	}

	elapsed := time.Since(start)
	fmt.Printf("k=%d id=%x\n", plot.K(), plot.ID())
	fmt.Printf("%d/%d challenges produced a proof (%.1f%%), %d/%d verified, in %s\n",
		hits, *numChallenges, 100*float64(hits)/float64(*numChallenges), verified, hits, elapsed)
}
