// Package match implements the match-function collaborator spec.md §1
// deliberately leaves out of scope: the concrete bit-mixing/matching
// function (kBC matching, f1..f7). It is specified there only by its
// input/output arity and purity; this package supplies one concrete,
// testable implementation so Phase1..Phase3 and prove have something real
// to call, grounded on the teacher's own keyed-mixing idiom
// (prehash.go's xxh3.Hash128, key.go's k0/k1 mixing).
package match

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/xxh3"
)

// Function is the contract Phase1 and prove hold a value of: a keyed,
// pure mapping from a plot id, a table index, and one or two input keys
// to an output key.
//
// Implementations must be pure: the same (id, table, left, right) always
// produces the same result, with no hidden state (spec §1 "specified only
// by its input/output arity and purity").
type Function interface {
	// F1 derives table 1's key for seed index x (spec §4.5 Phase1's base
	// case: table 1 has no left/right match, only a seeding step over
	// [0, 2^k)).
	F1(id [32]byte, k uint8, x uint64) uint64

	// Match decides whether left and right (both table t-1 keys) produce
	// a table t entry, and if so what its key is. ok is false when the
	// pair does not match; Phase1 skips non-matching pairs.
	Match(id [32]byte, table int, left, right uint64) (key uint64, ok bool)
}

// XXH3Function is the reference Function: a keyed xxh3/xxhash mix over
// (id, table, left, right); F1's output is masked to k bits, Match's to 32
// bits. It is purposefully NOT
// bit-compatible with chiapos's real f1..f7/kBC matching (spec §1) — it
// exists to make the pipeline end-to-end testable.
type XXH3Function struct{}

// F1 seeds table 1 by hashing the plot id together with x, matching the
// teacher's PreHash shape (xxh3.Hash128 over a byte key) but folded down
// to the table's k-bit width.
func (XXH3Function) F1(id [32]byte, k uint8, x uint64) uint64 {
	var buf [40]byte
	copy(buf[:32], id[:])
	binary.LittleEndian.PutUint64(buf[32:], x)
	h := xxh3.Hash128(buf[:])
	return maskBits(h.Lo^h.Hi, k)
}

// Match mixes (id, table, left, right) through xxhash64 and treats a low
// residue as a hit, mirroring kBC matching's sparse-match density without
// reproducing its bucket structure: roughly 1 in matchDensity candidate
// pairs match, which is enough for Phase1 to build non-trivial tables at
// small k while keeping runtime bounded. The output key is derived
// independently of the match decision, from the same keyed hash, the way
// chiapos derives Fx from both sides of the pair.
func (XXH3Function) Match(id [32]byte, table int, left, right uint64) (uint64, bool) {
	var buf [52]byte
	copy(buf[:32], id[:])
	binary.LittleEndian.PutUint32(buf[32:36], uint32(table))
	binary.LittleEndian.PutUint64(buf[36:44], left)
	binary.LittleEndian.PutUint64(buf[44:52], right)
	h := xxhash.Sum64(buf[:])
	const matchDensity = 3
	if h%matchDensity != 0 {
		return 0, false
	}
	return maskBits(h>>32, 32), true
}

func maskBits(v uint64, bits uint8) uint64 {
	if bits >= 64 {
		return v
	}
	return v & ((uint64(1) << bits) - 1)
}
