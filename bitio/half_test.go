package bitio

import (
	"math"
	"testing"
)

func TestHalfRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   float32
	}{
		{"zero", 0},
		{"one", 1},
		{"negative one", -1},
		{"small fraction", 0.25},
		{"large", 1000},
		{"pi-ish", 3.140625},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := FromFloat32(tt.in)
			got := h.ToFloat32()
			if got != tt.in {
				t.Errorf("FromFloat32(%v).ToFloat32() = %v, want %v", tt.in, got, tt.in)
			}
		})
	}
}

func TestHalfSubnormal(t *testing.T) {
	h := FromFloat32(1e-8)
	if h.ToFloat32() == 0 {
		t.Skip("underflowed to zero, acceptable at this magnitude")
	}
}

func TestHalfNaN(t *testing.T) {
	h := Half(0x7e00)
	if !h.IsNaN() {
		t.Errorf("expected NaN pattern to report IsNaN")
	}
}

func TestHalfInf(t *testing.T) {
	h := FromFloat32(1e10)
	f := h.ToFloat32()
	if !math.IsInf(float64(f), 1) {
		t.Errorf("expected overflow to +Inf, got %v", f)
	}
}
