package plotdisk

import (
	"encoding/binary"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSortManagerWriteThenReadIsSorted(t *testing.T) {
	const entryLen = 8
	const numBuckets = 16
	const logNumBuckets = 4
	const n = 2000

	sm, err := NewSortManager("test", 16384, numBuckets, logNumBuckets, entryLen, 0, 64)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < n; i++ {
		var buf [entryLen]byte
		binary.BigEndian.PutUint64(buf[:], rng.Uint64())
		require.NoError(t, sm.AddToCache(buf[:]))
	}

	var prev uint64
	for i := 0; i < n; i++ {
		got, err := sm.Read(uint64(i)*entryLen, entryLen)
		require.NoError(t, err)
		cur := binary.BigEndian.Uint64(got[:entryLen])
		require.GreaterOrEqualf(t, cur, prev, "entry %d out of order: %d < %d", i, cur, prev)
		prev = cur
	}
}

// TestSortManagerHandlesZeroKeyEntry exercises spec §4.3's all-zero "slot
// empty" sentinel edge case: a fully zero entry (table 1's x == 0, for
// instance) must still come out of the sort manager, sorted to the front,
// rather than being silently dropped.
func TestSortManagerHandlesZeroKeyEntry(t *testing.T) {
	const entryLen = 8
	const numBuckets = 16
	const logNumBuckets = 4

	sm, err := NewSortManager("zerokey", 16384, numBuckets, logNumBuckets, entryLen, 0, 64)
	require.NoError(t, err)

	values := []uint64{0, 7, 3, 1 << 40, 0x00FF000000000001}
	for _, v := range values {
		var buf [entryLen]byte
		binary.BigEndian.PutUint64(buf[:], v)
		require.NoError(t, sm.AddToCache(buf[:]))
	}

	var prev uint64
	seen := make([]uint64, 0, len(values))
	for i := range values {
		got, err := sm.Read(uint64(i)*entryLen, entryLen)
		require.NoError(t, err)
		cur := binary.BigEndian.Uint64(got[:entryLen])
		require.GreaterOrEqualf(t, cur, prev, "entry %d out of order: %d < %d", i, cur, prev)
		prev = cur
		seen = append(seen, cur)
	}
	require.ElementsMatch(t, values, seen)
	require.Equal(t, uint64(0), seen[0])
}

func TestSortManagerClosesAfterFirstSort(t *testing.T) {
	const entryLen = 8
	sm, err := NewSortManager("closetest", 4096, 16, 4, entryLen, 0, 64)
	require.NoError(t, err)

	require.NoError(t, sm.AddToCache(make([]byte, entryLen)))
	_, err = sm.Read(0, entryLen)
	require.NoError(t, err)

	err = sm.AddToCache(make([]byte, entryLen))
	require.Error(t, err)
}

func TestSortManagerRejectsWrongEntryLength(t *testing.T) {
	sm, err := NewSortManager("badlen", 4096, 16, 4, 8, 0, 64)
	require.NoError(t, err)
	require.Error(t, sm.AddToCache(make([]byte, 4)))
}

func TestSortManagerRejectsBadBucketConfig(t *testing.T) {
	_, err := NewSortManager("oddbuckets", 4096, 15, 4, 8, 0, 64)
	require.Error(t, err)

	_, err = NewSortManager("mismatch", 4096, 16, 3, 8, 0, 64)
	require.Error(t, err)
}

func TestSortManagerTruncateZeroReleasesMemory(t *testing.T) {
	sm, err := NewSortManager("trunc", 4096, 16, 4, 8, 0, 64)
	require.NoError(t, err)
	require.NoError(t, sm.AddToCache(make([]byte, 8)))
	require.NoError(t, sm.Truncate(0))
	require.Error(t, sm.Truncate(123))
}
