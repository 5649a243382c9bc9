package plotdisk

import (
	"encoding/binary"

	plotdiskerrors "github.com/chia-network/go-plotdisk/errors"
	parkcodec "github.com/chia-network/go-plotdisk/internal/park"
)

// PlotFile is a read-only view over an already-produced plot's raw bytes
// (spec §6's "Plot file"), the counterpart `prove` needs to read challenges
// against without re-running Plotter.CreatePlot. It holds no decoded state
// beyond the header: table 7 and the checkpoint tables are decoded lazily
// on each call, exactly as a prover would read them off disk.
type PlotFile struct {
	header *plotHeader
	data   []byte
}

// OpenPlot parses a plot file's header and returns a PlotFile ready to
// answer ReadTable7/Checkpoints (spec §6).
func OpenPlot(data []byte) (*PlotFile, error) {
	h, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}
	return &PlotFile{header: h, data: data}, nil
}

// ID returns the plot's seed id.
func (p *PlotFile) ID() [kIDLen]byte { return p.header.ID }

// K returns the plot's size parameter.
func (p *PlotFile) K() uint8 { return p.header.K }

// ReadTable7 decodes every entry of table 7 (spec §4.5's final output
// table), the only table Phase3 leaves uncompressed.
func (p *PlotFile) ReadTable7() ([]Entry, error) {
	off := p.header.TableBeginPointers[6]
	es := entrySize(p.header.K, 7)
	n, rest, err := readCountPrefix(p.data, off)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, n)
	for i := uint64(0); i < n; i++ {
		start := rest + i*uint64(es)
		if start+uint64(es) > uint64(len(p.data)) {
			return nil, plotdiskerrors.New(plotdiskerrors.InvalidValue, "plot file: table 7 region truncated")
		}
		entries[i] = unpackEntry(p.data[start:start+uint64(es)], p.header.K, 7)
	}
	return entries, nil
}

// Checkpoints decodes C1, C2, and C3 (spec §4.5 Phase4), returning C1 and
// C2 as flat key slices and C3 as one key slice per C1 block, mirroring the
// layout runPhase4 wrote.
func (p *PlotFile) Checkpoints() (c1, c2 []uint64, c3 [][]uint64, err error) {
	c1, err = p.readKeyTable(p.header.TableBeginPointers[7])
	if err != nil {
		return nil, nil, nil, err
	}
	c2, err = p.readKeyTable(p.header.TableBeginPointers[8])
	if err != nil {
		return nil, nil, nil, err
	}

	off := p.header.TableBeginPointers[9]
	numBlocks, pos, err := readCountPrefix(p.data, off)
	if err != nil {
		return nil, nil, nil, err
	}
	keyBits := int(p.header.K)
	for b := uint64(0); b < numBlocks; b++ {
		if pos+4 > uint64(len(p.data)) {
			return nil, nil, nil, plotdiskerrors.New(plotdiskerrors.InvalidValue, "plot file: C3 region truncated")
		}
		l := uint64(binary.BigEndian.Uint32(p.data[pos:]))
		pos += 4
		if pos+l > uint64(len(p.data)) {
			return nil, nil, nil, plotdiskerrors.New(plotdiskerrors.InvalidValue, "plot file: C3 block truncated")
		}
		entries, err := parkcodec.Decode(p.data[pos:pos+l], keyBits, 0)
		if err != nil {
			return nil, nil, nil, err
		}
		keys := make([]uint64, len(entries))
		for i, e := range entries {
			keys[i] = e.Key
		}
		c3 = append(c3, keys)
		pos += l
	}
	return c1, c2, c3, nil
}

func (p *PlotFile) readKeyTable(off uint64) ([]uint64, error) {
	es := entrySize(p.header.K, 1)
	n, pos, err := readCountPrefix(p.data, off)
	if err != nil {
		return nil, err
	}
	keys := make([]uint64, n)
	for i := uint64(0); i < n; i++ {
		start := pos + i*uint64(es)
		if start+uint64(es) > uint64(len(p.data)) {
			return nil, plotdiskerrors.New(plotdiskerrors.InvalidValue, "plot file: checkpoint table truncated")
		}
		keys[i] = unpackEntry(p.data[start:start+uint64(es)], p.header.K, 1).Key
	}
	return keys, nil
}

func readCountPrefix(data []byte, off uint64) (count, pos uint64, err error) {
	if off+8 > uint64(len(data)) {
		return 0, 0, plotdiskerrors.New(plotdiskerrors.InvalidValue, "plot file: missing count prefix")
	}
	return binary.BigEndian.Uint64(data[off : off+8]), off + 8, nil
}
