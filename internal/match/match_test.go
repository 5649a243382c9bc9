package match

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestF1IsPureAndDeterministic(t *testing.T) {
	var id [32]byte
	copy(id[:], []byte("plotdisk test plot id 0123456789"))
	fn := XXH3Function{}

	a := fn.F1(id, 20, 7)
	b := fn.F1(id, 20, 7)
	require.Equal(t, a, b)
	require.Less(t, a, uint64(1)<<20)
}

func TestF1VariesWithX(t *testing.T) {
	var id [32]byte
	fn := XXH3Function{}
	seen := make(map[uint64]bool)
	for x := uint64(0); x < 64; x++ {
		seen[fn.F1(id, 30, x)] = true
	}
	require.Greater(t, len(seen), 1, "F1 should not collapse every seed to the same key")
}

func TestMatchIsPureAndDeterministic(t *testing.T) {
	var id [32]byte
	fn := XXH3Function{}

	var found bool
	for left := uint64(0); left < 200 && !found; left++ {
		for right := left + 1; right < left+5; right++ {
			k1, ok1 := fn.Match(id, 2, left, right)
			k2, ok2 := fn.Match(id, 2, left, right)
			require.Equal(t, ok1, ok2)
			require.Equal(t, k1, k2)
			if ok1 {
				found = true
				break
			}
		}
	}
	require.True(t, found, "expected at least one match in a 200x4 window at the configured density")
}

func TestMatchDiffersByTable(t *testing.T) {
	var id [32]byte
	fn := XXH3Function{}
	k2, ok2 := fn.Match(id, 2, 10, 11)
	k3, ok3 := fn.Match(id, 3, 10, 11)
	// Not a hard correctness requirement, just documents that table index
	// is mixed into the hash rather than ignored.
	if ok2 && ok3 {
		require.NotEqual(t, k2, k3)
	}
}
