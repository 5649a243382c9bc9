package plotdisk

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	plotdiskerrors "github.com/chia-network/go-plotdisk/errors"
)

// plotMagic is the 19-byte ASCII magic stamped at the start of every plot
// file (spec §6).
const plotMagic = "Proof of Space Plot"

// numPointers is the count of big-endian u64 offsets following the format
// description: one per table T1..T7, plus one per checkpoint table
// C1..C3 (spec §6, §4.5 "Phase3... Phase4...").
const numPointers = 10

// plotHeader is the decoded form of a plot file's fixed preamble (spec
// §6's layout table, offsets 0 through 54+L+80).
type plotHeader struct {
	ID                 [kIDLen]byte
	K                  uint8
	FormatDescription  string
	TableBeginPointers [numPointers]uint64
}

// headerSize returns the byte length of the preamble for a given format
// description, i.e. everything before the compressed tables begin.
func headerSize(formatDescription string) int {
	return 19 + kIDLen + 1 + 2 + len(formatDescription) + numPointers*8
}

// encodeHeader serializes h per spec §6's bit-exact layout.
func encodeHeader(h *plotHeader) []byte {
	buf := make([]byte, headerSize(h.FormatDescription))
	off := 0
	copy(buf[off:], plotMagic)
	off += 19
	copy(buf[off:], h.ID[:])
	off += kIDLen
	buf[off] = h.K
	off++
	binary.BigEndian.PutUint16(buf[off:], uint16(len(h.FormatDescription)))
	off += 2
	copy(buf[off:], h.FormatDescription)
	off += len(h.FormatDescription)
	for _, p := range h.TableBeginPointers {
		binary.BigEndian.PutUint64(buf[off:], p)
		off += 8
	}
	return buf
}

// decodeHeader parses a plot file's preamble from buf.
func decodeHeader(buf []byte) (*plotHeader, error) {
	if len(buf) < 19+kIDLen+1+2 {
		return nil, plotdiskerrors.New(plotdiskerrors.InvalidValue, "plot file too short for header")
	}
	if string(buf[:19]) != plotMagic {
		return nil, plotdiskerrors.New(plotdiskerrors.InvalidValue, "bad plot magic")
	}
	h := &plotHeader{}
	off := 19
	copy(h.ID[:], buf[off:off+kIDLen])
	off += kIDLen
	h.K = buf[off]
	off++
	l := int(binary.BigEndian.Uint16(buf[off:]))
	off += 2
	if len(buf) < off+l+numPointers*8 {
		return nil, plotdiskerrors.New(plotdiskerrors.InvalidValue, "plot file too short for format description/pointers")
	}
	h.FormatDescription = string(buf[off : off+l])
	off += l
	for i := range h.TableBeginPointers {
		h.TableBeginPointers[i] = binary.BigEndian.Uint64(buf[off:])
		off += 8
	}
	return h, nil
}

// setPointer patches one of the ten begin-pointers directly into an
// already-serialized header buffer (Plotter.CreatePlot writes the pointers
// from the offsets Phase3 and Phase4 report, without re-encoding the whole
// header).
func setPointer(headerBuf []byte, formatDescriptionLen, index int, value uint64) {
	off := 19 + kIDLen + 1 + 2 + formatDescriptionLen + index*8
	binary.BigEndian.PutUint64(headerBuf[off:], value)
}

// footerHash computes the integrity trailer SPEC_FULL.md's data-model
// addendum describes: an xxhash64 over the compressed-tables-plus-
// checkpoints region, appended as the plot file's last 8 bytes. It is not
// part of spec.md's own invariants and is ignored by the soundness test,
// the way the teacher's footer.PayloadRegionHash/MetadataRegionHash are
// ambient integrity checks rather than correctness-critical fields.
func footerHash(region []byte) uint64 {
	return xxhash.Sum64(region)
}
