package bits

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// TestFastRange32Monotonicity verifies that for a fixed n,
// FastRange32 is monotone: h1 < h2 implies FastRange32(h1,n) <= FastRange32(h2,n).
func TestFastRange32Monotonicity(t *testing.T) {
	rng := newTestRNG(t)
	const iterations = 10000

	for i := 0; i < iterations; i++ {
		n := uint32(rng.Uint32N(math.MaxUint32)) + 1 // n in [1, MaxUint32]
		h1 := rng.Uint64()
		h2 := rng.Uint64()
		if h1 > h2 {
			h1, h2 = h2, h1
		}

		r1 := FastRange32(h1, n)
		r2 := FastRange32(h2, n)
		if r1 > r2 {
			t.Fatalf("iter %d: monotonicity violated: FastRange32(0x%X, %d)=%d > FastRange32(0x%X, %d)=%d",
				i, h1, n, r1, h2, n, r2)
		}
	}
}

// TestFastRange32Range verifies that the result is always in [0, n).
func TestFastRange32Range(t *testing.T) {
	rng := newTestRNG(t)
	const iterations = 10000

	for i := 0; i < iterations; i++ {
		n := uint32(rng.Uint32N(math.MaxUint32)) + 1 // n in [1, MaxUint32]
		h := rng.Uint64()

		got := FastRange32(h, n)
		if got >= n {
			t.Fatalf("iter %d: FastRange32(0x%X, %d)=%d >= %d",
				i, h, n, got, n)
		}
	}
}

// TestFastRange32EdgeCases tests deterministic edge cases:
// n=0->0, n=1->0, n=MaxUint32->result<MaxUint32, n=MaxUint32-1->result<MaxUint32-1,
// h=0->0, h=MaxUint64->n-1.
func TestFastRange32EdgeCases(t *testing.T) {
	// n=0 always returns 0
	for _, h := range []uint64{0, 1, math.MaxUint64, 0xDEADBEEF} {
		if got := FastRange32(h, 0); got != 0 {
			t.Errorf("FastRange32(0x%X, 0) = %d, want 0", h, got)
		}
	}

	// n=1 always returns 0
	for _, h := range []uint64{0, 1, math.MaxUint64, 0xDEADBEEF, math.MaxUint64 / 2} {
		if got := FastRange32(h, 1); got != 0 {
			t.Errorf("FastRange32(0x%X, 1) = %d, want 0", h, got)
		}
	}

	// n=MaxUint32 -> result < MaxUint32
	got := FastRange32(math.MaxUint64, math.MaxUint32)
	if got >= math.MaxUint32 {
		t.Errorf("FastRange32(MaxUint64, MaxUint32) = %d, want < MaxUint32", got)
	}
	if got != math.MaxUint32-1 {
		t.Errorf("FastRange32(MaxUint64, MaxUint32) = %d, want %d", got, uint32(math.MaxUint32-1))
	}

	// n=MaxUint32-1 -> result < MaxUint32-1
	got2 := FastRange32(math.MaxUint64, math.MaxUint32-1)
	if got2 >= math.MaxUint32-1 {
		t.Errorf("FastRange32(MaxUint64, MaxUint32-1) = %d, want < %d", got2, uint32(math.MaxUint32-1))
	}

	// h=0 always maps to 0 for any n
	for n := uint32(1); n <= 100; n++ {
		if got := FastRange32(0, n); got != 0 {
			t.Errorf("FastRange32(0, %d) = %d, want 0", n, got)
		}
	}

	// h=MaxUint64 maps to n-1 for any n >= 2
	for n := uint32(2); n <= 100; n++ {
		got := FastRange32(math.MaxUint64, n)
		if got != n-1 {
			t.Errorf("FastRange32(MaxUint64, %d) = %d, want %d", n, got, n-1)
		}
	}
}

func TestExtractNumByteAligned(t *testing.T) {
	entry := []byte{0xAB, 0xCD, 0xEF, 0x01}
	if got := ExtractNum(entry, 0, 8); got != 0xAB {
		t.Errorf("ExtractNum(0,8) = %#x, want 0xAB", got)
	}
	if got := ExtractNum(entry, 8, 16); got != 0xCDEF {
		t.Errorf("ExtractNum(8,16) = %#x, want 0xCDEF", got)
	}
	if got := ExtractNum(entry, 0, 32); got != 0xABCDEF01 {
		t.Errorf("ExtractNum(0,32) = %#x, want 0xABCDEF01", got)
	}
}

func TestExtractNumUnaligned(t *testing.T) {
	// 0xF0 = 1111 0000; bits [4,8) should read 0000 = 0
	entry := []byte{0xF0, 0x0F}
	if got := ExtractNum(entry, 4, 4); got != 0 {
		t.Errorf("ExtractNum(4,4) = %#x, want 0", got)
	}
	// bits [0,4) of 0xF0 -> 1111
	if got := ExtractNum(entry, 0, 4); got != 0xF {
		t.Errorf("ExtractNum(0,4) = %#x, want 0xF", got)
	}
	// crossing the byte boundary: bits [6,10) of {0xF0,0x0F} = 00 00 -> 0
	if got := ExtractNum(entry, 6, 4); got != 0 {
		t.Errorf("ExtractNum(6,4) = %#x, want 0", got)
	}
}

func TestExtractNumOutOfRangeIsZero(t *testing.T) {
	entry := []byte{0xFF}
	// requesting bits beyond the entry's length pads with zero.
	if got := ExtractNum(entry, 4, 8); got != 0xF0 {
		t.Errorf("ExtractNum(4,8) = %#x, want 0xF0", got)
	}
}

func TestCompareBitsByteAligned(t *testing.T) {
	a := []byte{0x00, 0x01}
	b := []byte{0x00, 0x02}
	if CompareBits(a, b, 0, 16) >= 0 {
		t.Errorf("expected a < b")
	}
	if CompareBits(a, a, 0, 16) != 0 {
		t.Errorf("expected a == a")
	}
	if CompareBits(b, a, 0, 16) <= 0 {
		t.Errorf("expected b > a")
	}
}

func TestCompareBitsUnaligned(t *testing.T) {
	// Compare only bits [4,8): a has 0x05 there, b has 0x0A.
	a := []byte{0xF5}
	b := []byte{0xFA}
	if CompareBits(a, b, 4, 4) >= 0 {
		t.Errorf("expected a < b on the low nibble")
	}
}

func TestRoundUpPow2(t *testing.T) {
	cases := map[uint64]uint64{
		0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 1023: 1024, 1024: 1024,
	}
	for in, want := range cases {
		if got := RoundUpPow2(in); got != want {
			t.Errorf("RoundUpPow2(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestRoundSizeAtLeastDouble(t *testing.T) {
	for _, n := range []uint64{0, 1, 2, 3, 100, 1000, 1 << 20} {
		got := RoundSize(n)
		if n > 0 && got < 2*n {
			t.Errorf("RoundSize(%d) = %d, want >= %d", n, got, 2*n)
		}
		// must be a power of two
		if got&(got-1) != 0 {
			t.Errorf("RoundSize(%d) = %d, not a power of two", n, got)
		}
	}
}
