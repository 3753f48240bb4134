package compress

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/coreexr/go-openexr/attr"
)

func TestDeinterleaveRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 2, 3, 17, 256, 1023} {
		in := make([]byte, n)
		rng.Read(in)
		got := Reinterleave(Deinterleave(in))
		if !bytes.Equal(got, in) {
			t.Fatalf("round trip failed at n=%d", n)
		}
	}
}

func TestRegistryUnknownCompression(t *testing.T) {
	// DWAA has no codec implementation registered, so lookup must
	// fail rather than silently pass through.
	if _, err := Get(attr.CompressionDWAA); err == nil {
		t.Fatal("expected error for unregistered compression")
	}
}
