package plotdisk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilteredScratchSkipsClearedEntries(t *testing.T) {
	const entryLen = 8
	const n = 20
	b, err := NewBufferedScratch("filtered", n*entryLen)
	require.NoError(t, err)
	defer b.FreeMemory()

	for i := uint64(0); i < n; i++ {
		buf := make([]byte, entryLen)
		buf[0] = byte(i)
		require.NoError(t, b.Write(i*entryLen, buf))
	}
	require.NoError(t, b.FlushCache())

	f := NewBitfield(n)
	var want []uint64
	for i := uint64(0); i < n; i++ {
		if i%3 == 0 {
			f.Set(i)
			want = append(want, i)
		}
	}
	f.Freeze()

	view, err := NewFilteredScratch(b, f, entryLen)
	require.NoError(t, err)

	for logical, physical := range want {
		got, err := view.Read(uint64(logical)*entryLen, entryLen)
		require.NoError(t, err)
		require.Equal(t, byte(physical), got[0], "logical index %d should map to physical entry %d", logical, physical)
	}
}

func TestFilteredScratchRejectsUnalignedReads(t *testing.T) {
	b, err := NewBufferedScratch("unaligned", 80)
	require.NoError(t, err)
	defer b.FreeMemory()
	f := NewBitfield(10)
	f.Set(0)
	f.Freeze()

	view, err := NewFilteredScratch(b, f, 8)
	require.NoError(t, err)
	_, err = view.Read(3, 8)
	require.Error(t, err)
}

func TestFilteredScratchRejectsBackwardReads(t *testing.T) {
	const entryLen = 8
	b, err := NewBufferedScratch("backfilter", 80)
	require.NoError(t, err)
	defer b.FreeMemory()
	f := NewBitfield(10)
	for i := uint64(0); i < 10; i++ {
		f.Set(i)
	}
	f.Freeze()

	view, err := NewFilteredScratch(b, f, entryLen)
	require.NoError(t, err)
	_, err = view.Read(5*entryLen, entryLen)
	require.NoError(t, err)
	_, err = view.Read(2*entryLen, entryLen)
	require.Error(t, err)
}

func TestFilteredScratchAllClearIsEmpty(t *testing.T) {
	const entryLen = 8
	b, err := NewBufferedScratch("empty", 80)
	require.NoError(t, err)
	defer b.FreeMemory()
	f := NewBitfield(10)
	f.Freeze()

	view, err := NewFilteredScratch(b, f, entryLen)
	require.NoError(t, err)
	_, err = view.Read(0, entryLen)
	require.Error(t, err)
}

func TestFilteredScratchWriteUnsupported(t *testing.T) {
	b, err := NewBufferedScratch("rw", 80)
	require.NoError(t, err)
	defer b.FreeMemory()
	f := NewBitfield(10)
	f.Set(0)
	f.Freeze()
	view, err := NewFilteredScratch(b, f, 8)
	require.NoError(t, err)
	require.Error(t, view.Write(0, make([]byte, 8)))
	require.Error(t, view.Truncate(0))
}
