package piz

import (
	"math/rand"
	"testing"
)

func TestLiftRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 2, 3, 5, 16, 17, 257} {
		data := make([]uint16, n)
		for i := range data {
			data[i] = uint16(rng.Intn(65536))
		}
		orig := append([]uint16(nil), data...)
		liftForward1D(data)
		liftInverse1D(data)
		for i := range data {
			if data[i] != orig[i] {
				t.Fatalf("n=%d: index %d got %d want %d", n, i, data[i], orig[i])
			}
		}
	}
}

func TestForward2DRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for _, dims := range [][2]int{{1, 1}, {4, 4}, {8, 1}, {1, 8}, {5, 7}, {32, 32}} {
		w, h := dims[0], dims[1]
		data := make([]uint16, w*h)
		for i := range data {
			data[i] = uint16(rng.Intn(65536))
		}
		orig := append([]uint16(nil), data...)
		Forward2D(data, w, h)
		Inverse2D(data, w, h)
		for i := range data {
			if data[i] != orig[i] {
				t.Fatalf("%dx%d: index %d got %d want %d", w, h, i, data[i], orig[i])
			}
		}
	}
}
