package piz

import (
	"math/rand"
	"testing"
)

func TestHuffmanRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	cases := [][]uint16{
		{0},
		{1, 1, 1, 1},
		{1, 2, 3, 4, 5, 1, 2, 3},
	}
	big := make([]uint16, 5000)
	for i := range big {
		big[i] = uint16(rng.Intn(200))
	}
	cases = append(cases, big)

	for i, symbols := range cases {
		encoded := huffEncode(symbols)
		decoded, err := huffDecode(encoded, len(symbols))
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if len(decoded) != len(symbols) {
			t.Fatalf("case %d: got %d symbols, want %d", i, len(decoded), len(symbols))
		}
		for j := range symbols {
			if decoded[j] != symbols[j] {
				t.Fatalf("case %d: symbol %d got %d want %d", i, j, decoded[j], symbols[j])
			}
		}
	}
}

func TestHuffmanSingleSymbolAlphabet(t *testing.T) {
	symbols := []uint16{42, 42, 42, 42, 42}
	encoded := huffEncode(symbols)
	decoded, err := huffDecode(encoded, len(symbols))
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range decoded {
		if v != 42 {
			t.Fatalf("expected all 42, got %d", v)
		}
	}
}
