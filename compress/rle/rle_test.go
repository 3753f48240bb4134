package rle

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/coreexr/go-openexr/attr"
)

func TestRunLengthRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{1},
		{1, 1, 1, 1, 1, 1, 1, 1},
		{1, 2, 3, 4, 5},
		{1, 1, 2, 2, 2, 2, 3, 4, 4, 4, 4, 4, 4, 4},
		bytes.Repeat([]byte{7}, 200),
	}
	for i, c := range cases {
		enc := runLengthEncode(c)
		dec, err := runLengthDecode(enc, len(c))
		if err != nil {
			t.Fatalf("case %d: decode error: %v", i, err)
		}
		if !bytes.Equal(dec, c) {
			t.Fatalf("case %d: round trip mismatch: got %v want %v", i, dec, c)
		}
	}
}

func TestRunLengthRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	in := make([]byte, 4096)
	rng.Read(in)
	enc := runLengthEncode(in)
	dec, err := runLengthDecode(enc, len(in))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, in) {
		t.Fatal("round trip mismatch on random data")
	}
}

func TestCodecCompressDecompressRoundTrip(t *testing.T) {
	channels := attr.ChannelList{
		{Name: "Y", Type: attr.PixelHalf, XSampling: 1, YSampling: 1},
	}
	block := make([]byte, 8*8*2)
	for i := range block {
		block[i] = byte(i % 5)
	}
	c := Codec{}
	compressed, err := c.Compress(block, channels, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Decompress(compressed, channels, 8, 8, len(block))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, block) {
		t.Fatal("codec round trip mismatch")
	}
}

func TestCodecRejectsWrongDecompressedSize(t *testing.T) {
	channels := attr.ChannelList{{Name: "Y", Type: attr.PixelHalf, XSampling: 1, YSampling: 1}}
	c := Codec{}
	block := bytes.Repeat([]byte{1, 2, 3}, 10)
	compressed, _ := c.Compress(block, channels, 1, 1)
	if _, err := c.Decompress(compressed, channels, 1, 1, len(block)+5); err == nil {
		t.Fatal("expected error for size mismatch")
	}
}
