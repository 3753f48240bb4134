// Package piz implements OpenEXR's PIZ codec: a lossless pipeline of
// occurrence-bitmap remapping, a 2D reversible wavelet transform per
// channel, and canonical Huffman entropy coding over the whole block.
package piz

import (
	"encoding/binary"

	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/compress"
	"github.com/coreexr/go-openexr/exrerrors"
)

func init() {
	compress.Register(Codec{})
}

// Codec implements compress.Codec for PIZ.
type Codec struct{}

func (Codec) Compression() attr.Compression { return attr.CompressionPIZ }

func (Codec) Compress(block []byte, channels attr.ChannelList, width, height int) ([]byte, error) {
	if len(block)%2 != 0 {
		return nil, exrerrors.Invalidf("piz", "block length %d is not a whole number of 16-bit words", len(block))
	}
	words := bytesToWords(block)

	lo, hi, toRank, fromRank := buildBitmap(words)
	remapped := make([]uint16, len(words))
	for i, w := range words {
		remapped[i] = toRank[w]
	}

	offset := 0
	for _, c := range channels {
		wordsPerSample := c.Type.SampleSize() / 2
		rowWords := wordsPerSample * width
		chanWords := remapped[offset : offset+rowWords*height]
		Forward2D(chanWords, rowWords, height)
		offset += rowWords * height
	}

	huff := huffEncode(remapped)

	out := make([]byte, 0, 4+len(fromRank)*2+len(huff))
	out = append(out, byte(lo), byte(lo>>8), byte(hi), byte(hi>>8))
	out = appendU32(out, uint32(len(fromRank)))
	for _, v := range fromRank {
		out = append(out, byte(v), byte(v>>8))
	}
	out = append(out, huff...)

	if len(out) >= len(block) {
		return append([]byte(nil), block...), nil
	}
	return out, nil
}

func (Codec) Decompress(data []byte, channels attr.ChannelList, width, height, expectedSize int) ([]byte, error) {
	if expectedSize%2 != 0 {
		return nil, exrerrors.Invalidf("piz", "expected size %d is not a whole number of 16-bit words", expectedSize)
	}
	wantWords := expectedSize / 2

	if len(data) == expectedSize {
		return append([]byte(nil), data...), nil
	}
	if len(data) < 8 {
		return nil, exrerrors.Invalidf("piz", "piz block truncated before header")
	}
	pos := 4
	n, pos2, err := readU32(data, pos)
	if err != nil {
		return nil, err
	}
	pos = pos2
	if int(n) < 0 || pos+int(n)*2 > len(data) {
		return nil, exrerrors.Invalidf("piz", "bitmap table declares %d entries, exceeds available data", n)
	}
	fromRank := make([]uint16, n)
	for i := range fromRank {
		fromRank[i] = binary.LittleEndian.Uint16(data[pos : pos+2])
		pos += 2
	}

	remapped, err := huffDecode(data[pos:], wantWords)
	if err != nil {
		return nil, err
	}

	offset := 0
	for _, c := range channels {
		wordsPerSample := c.Type.SampleSize() / 2
		rowWords := wordsPerSample * width
		n := rowWords * height
		if offset+n > len(remapped) {
			return nil, exrerrors.Invalidf("piz", "channel %q exceeds decoded word count", c.Name)
		}
		Inverse2D(remapped[offset:offset+n], rowWords, height)
		offset += n
	}

	words := make([]uint16, len(remapped))
	for i, rank := range remapped {
		if int(rank) >= len(fromRank) {
			return nil, exrerrors.Invalidf("piz", "decoded rank %d out of range for bitmap of size %d", rank, len(fromRank))
		}
		words[i] = fromRank[rank]
	}

	out := wordsToBytes(words)
	if len(out) != expectedSize {
		return nil, exrerrors.Invalidf("piz", "decompressed size %d does not match expected %d", len(out), expectedSize)
	}
	return out, nil
}

func bytesToWords(b []byte) []uint16 {
	words := make([]uint16, len(b)/2)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(b[i*2 : i*2+2])
	}
	return words
}

func wordsToBytes(w []uint16) []byte {
	out := make([]byte, len(w)*2)
	for i, v := range w {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], v)
	}
	return out
}

// buildBitmap scans every word, computes the occurrence range
// [lo,hi], and returns a rank remapping that compacts the alphabet to
// only the values that actually occur.
func buildBitmap(words []uint16) (lo, hi uint16, toRank, fromRank []uint16) {
	var seen [65536]bool
	for _, w := range words {
		seen[w] = true
	}
	lo, hi = 0, 0
	found := false
	for v := 0; v < 65536; v++ {
		if seen[v] {
			if !found {
				lo = uint16(v)
				found = true
			}
			hi = uint16(v)
		}
	}
	if !found {
		lo, hi = 0, 0
	}

	toRank = make([]uint16, 65536)
	for v := int(lo); v <= int(hi) && found; v++ {
		if seen[v] {
			toRank[v] = uint16(len(fromRank))
			fromRank = append(fromRank, uint16(v))
		}
	}
	if len(fromRank) == 0 {
		fromRank = []uint16{0}
	}
	return lo, hi, toRank, fromRank
}

func appendU32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func readU32(data []byte, pos int) (uint32, int, error) {
	if pos+4 > len(data) {
		return 0, 0, exrerrors.Invalidf("piz", "truncated before u32 field")
	}
	v := uint32(data[pos]) | uint32(data[pos+1])<<8 | uint32(data[pos+2])<<16 | uint32(data[pos+3])<<24
	return v, pos + 4, nil
}
