package plotdisk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferedScratchWriteReadRoundTrip(t *testing.T) {
	b, err := NewBufferedScratch("test", 4096)
	require.NoError(t, err)
	defer b.FreeMemory()

	payload := []byte("hello plotdisk scratch region")
	require.NoError(t, b.Write(100, payload))
	require.NoError(t, b.FlushCache())

	got, err := b.Read(100, uint64(len(payload)))
	require.NoError(t, err)
	require.Equal(t, payload, got[:len(payload)])
}

func TestBufferedScratchSequentialForwardReads(t *testing.T) {
	const size = 1 << 21 // force past the small read-ahead window multiple times
	b, err := NewBufferedScratch("seq", size)
	require.NoError(t, err)
	defer b.FreeMemory()

	const entryLen = 8
	n := size / entryLen
	for i := uint64(0); i < n; i++ {
		buf := []byte{byte(i), byte(i >> 8), byte(i >> 16), byte(i >> 24), 0, 0, 0, 0}
		require.NoError(t, b.Write(i*entryLen, buf))
	}
	require.NoError(t, b.FlushCache())

	for i := uint64(0); i < n; i++ {
		got, err := b.Read(i*entryLen, entryLen)
		require.NoError(t, err)
		require.Equal(t, byte(i), got[0], "mismatch at entry %d", i)
	}
}

func TestBufferedScratchBackwardReadFallback(t *testing.T) {
	b, err := NewBufferedScratch("back", 4096)
	require.NoError(t, err)
	defer b.FreeMemory()

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, b.Write(0, payload))
	require.NoError(t, b.FlushCache())

	_, err = b.Read(2000, 8) // slides the window forward
	require.NoError(t, err)

	got, err := b.Read(0, 8) // now behind the window
	require.NoError(t, err)
	require.Equal(t, payload, got[:8])
}

func TestBufferedScratchReadPastEndFails(t *testing.T) {
	b, err := NewBufferedScratch("bounds", 16)
	require.NoError(t, err)
	defer b.FreeMemory()
	_, err = b.Read(10, 16)
	require.Error(t, err)
}

func TestBufferedScratchReadLengthMustBeBelowReadAhead(t *testing.T) {
	b, err := NewBufferedScratch("panic", 1<<21)
	require.NoError(t, err)
	defer b.FreeMemory()
	require.Panics(t, func() {
		_, _ = b.Read(0, defaultReadAhead)
	})
}

func TestBufferedScratchTruncateShrinksOnly(t *testing.T) {
	b, err := NewBufferedScratch("trunc", 1024)
	require.NoError(t, err)
	defer b.FreeMemory()

	require.NoError(t, b.Truncate(512))
	require.Error(t, b.Truncate(2048))
}

func TestBufferedScratchUsesMmapAboveThreshold(t *testing.T) {
	b, err := NewBufferedScratch("big", mmapThreshold+1)
	require.NoError(t, err)
	defer b.FreeMemory()
	require.NotNil(t, b.mmapped)
}
