package prove

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	plotdisk "github.com/chia-network/go-plotdisk"
)

func buildTestPlot(t *testing.T) *plotdisk.PlotFile {
	t.Helper()
	var id [32]byte
	for i := range id {
		id[i] = byte(i*13 + 1)
	}
	// The default 65536-entry stripe fails the stripe-size check at k=17.
	p := plotdisk.NewPlotter(17, id, plotdisk.WithBufMegabytes(256), plotdisk.WithStripeSize(1000), plotdisk.WithWorkers(4))
	out, err := p.CreatePlot(context.Background())
	require.NoError(t, err)
	plot, err := plotdisk.OpenPlot(out)
	require.NoError(t, err)
	return plot
}

func TestFindThenVerifyAccepts(t *testing.T) {
	plot := buildTestPlot(t)

	var hits int
	const trials = 100
	for i := 0; i < trials; i++ {
		challenge := ChallengeFromBytes([]byte{byte(i), byte(i >> 8)})
		proof, ok, err := Find(plot, challenge)
		require.NoError(t, err)
		if !ok {
			continue
		}
		hits++
		accepted, err := Verify(plot, challenge, proof)
		require.NoError(t, err)
		require.True(t, accepted, "verifier rejected a proof its own prover produced")
	}
	require.Greater(t, hits, 0, "expected at least one challenge to yield a proof out of 100 tries")
}

func TestVerifyRejectsForgedKey(t *testing.T) {
	plot := buildTestPlot(t)
	challenge := ChallengeFromBytes([]byte("forged key test"))
	proof, ok, err := Find(plot, challenge)
	require.NoError(t, err)
	if !ok {
		t.Skip("no proof found for this challenge at this plot size; not a verifier bug")
	}
	proof.Key ^= 1
	accepted, err := Verify(plot, challenge, proof)
	require.NoError(t, err)
	require.False(t, accepted)
}

func TestVerifyRejectsOutOfRangePosition(t *testing.T) {
	plot := buildTestPlot(t)
	challenge := ChallengeFromBytes([]byte("out of range"))
	accepted, err := Verify(plot, challenge, Proof{Position: 1 << 40, Key: 0})
	require.NoError(t, err)
	require.False(t, accepted)
}

func TestTargetIsDeterministic(t *testing.T) {
	var id [32]byte
	var challenge [32]byte
	require.Equal(t, Target(id, 32, challenge), Target(id, 32, challenge))
}
