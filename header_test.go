package plotdisk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	var id [kIDLen]byte
	for i := range id {
		id[i] = byte(i)
	}
	h := &plotHeader{ID: id, K: 32, FormatDescription: kFormatDescription}
	for i := range h.TableBeginPointers {
		h.TableBeginPointers[i] = uint64(i) * 1000
	}

	buf := encodeHeader(h)
	require.Equal(t, headerSize(h.FormatDescription), len(buf))

	got, err := decodeHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h.ID, got.ID)
	require.Equal(t, h.K, got.K)
	require.Equal(t, h.FormatDescription, got.FormatDescription)
	require.Equal(t, h.TableBeginPointers, got.TableBeginPointers)
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, headerSize(kFormatDescription))
	copy(buf, "not a plot file at all")
	_, err := decodeHeader(buf)
	require.Error(t, err)
}

func TestDecodeHeaderRejectsTruncated(t *testing.T) {
	_, err := decodeHeader([]byte(plotMagic))
	require.Error(t, err)
}

func TestSetPointerPatchesInPlace(t *testing.T) {
	h := &plotHeader{FormatDescription: kFormatDescription}
	buf := encodeHeader(h)

	setPointer(buf, len(h.FormatDescription), 3, 0xDEADBEEF)
	got, err := decodeHeader(buf)
	require.NoError(t, err)
	require.Equal(t, uint64(0xDEADBEEF), got.TableBeginPointers[3])
	for i, p := range got.TableBeginPointers {
		if i != 3 {
			require.Zero(t, p)
		}
	}
}

func TestFooterHashIsDeterministic(t *testing.T) {
	data := []byte("plotdisk footer integrity region")
	require.Equal(t, footerHash(data), footerHash(data))
	require.NotEqual(t, footerHash(data), footerHash(append(data, 0)))
}
