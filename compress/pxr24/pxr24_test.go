package pxr24

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/coreexr/go-openexr/attr"
)

func encodeHalfBlock(values [][]float32, channels attr.ChannelList, width, height int) []byte {
	rowStride := 0
	for _, c := range channels {
		rowStride += c.Type.SampleSize() * width
	}
	block := make([]byte, rowStride*height)
	for y := 0; y < height; y++ {
		off := y * rowStride
		for ci, c := range channels {
			for x := 0; x < width; x++ {
				v := values[ci][y*width+x]
				switch c.Type {
				case attr.PixelFloat:
					binary.LittleEndian.PutUint32(block[off:off+4], math.Float32bits(v))
					off += 4
				case attr.PixelUint:
					binary.LittleEndian.PutUint32(block[off:off+4], uint32(v))
					off += 4
				case attr.PixelHalf:
					binary.LittleEndian.PutUint16(block[off:off+2], uint16(v))
					off += 2
				}
			}
		}
	}
	return block
}

func TestU32AndHalfRoundTripExactly(t *testing.T) {
	channels := attr.ChannelList{
		{Name: "Y", Type: attr.PixelHalf, XSampling: 1, YSampling: 1},
		{Name: "Z", Type: attr.PixelUint, XSampling: 1, YSampling: 1},
	}
	width, height := 4, 3
	yVals := make([]float32, width*height)
	zVals := make([]float32, width*height)
	for i := range yVals {
		yVals[i] = float32(i)
		zVals[i] = float32(1000 + i)
	}
	block := encodeHalfBlock([][]float32{yVals, zVals}, channels, width, height)

	c := Codec{}
	compressed, err := c.Compress(block, channels, width, height)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Decompress(compressed, channels, width, height, len(block))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(block) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(block))
	}
	for i := range got {
		if got[i] != block[i] {
			t.Fatalf("byte %d differs: got %d want %d (u32/f16 channels must round-trip losslessly under PXR24)", i, got[i], block[i])
		}
	}
}

func TestFloatChannelQuantizesWithinTolerance(t *testing.T) {
	channels := attr.ChannelList{
		{Name: "Z", Type: attr.PixelFloat, XSampling: 1, YSampling: 1},
	}
	width, height := 2, 2
	vals := []float32{1.0, -2.5, 100.25, 0.0001}
	block := encodeHalfBlock([][]float32{vals}, channels, width, height)

	c := Codec{}
	compressed, err := c.Compress(block, channels, width, height)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Decompress(compressed, channels, width, height, len(block))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < width*height; i++ {
		want := vals[i]
		gotBits := binary.LittleEndian.Uint32(got[i*4 : i*4+4])
		gotVal := math.Float32frombits(gotBits)
		if math.Abs(float64(gotVal-want)) > math.Abs(float64(want))*0.01+1e-6 {
			t.Errorf("sample %d: got %v, want ~%v", i, gotVal, want)
		}
	}
}

func TestDecompressRejectsTruncatedStream(t *testing.T) {
	channels := attr.ChannelList{{Name: "Z", Type: attr.PixelFloat, XSampling: 1, YSampling: 1}}
	c := Codec{}
	if _, err := c.Decompress([]byte{1, 2, 3}, channels, 4, 4, 64); err == nil {
		t.Fatal("expected error for malformed stream")
	}
}
