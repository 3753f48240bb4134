// Package rle implements OpenEXR's RLE codec: byte-deinterleave plus
// delta preprocessing (package compress), then classic run-length
// coding of the result.
//
// Grounded on compress.Deinterleave/Reinterleave for the shared
// preprocessing step and on codec.Registry's init-time self-registration
// pattern for wiring into the parent registry.
package rle

import (
	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/compress"
	"github.com/coreexr/go-openexr/exrerrors"
)

const (
	minRunLength = 3
	maxRunLength = 127
)

func init() {
	compress.Register(Codec{})
}

// Codec implements compress.Codec for RLE.
type Codec struct{}

func (Codec) Compression() attr.Compression { return attr.CompressionRLE }

// Compress deinterleaves+delta-encodes block, then run-length-encodes
// the result. If the encoded form would be no smaller than block, a
// copy of block itself is returned instead, so output never exceeds
// input size; Decompress treats a payload of exactly expectedSize bytes
// as such a raw block.
func (Codec) Compress(block []byte, channels attr.ChannelList, width, height int) ([]byte, error) {
	pre := compress.Deinterleave(block)
	encoded := runLengthEncode(pre)
	if len(encoded) >= len(block) {
		return append([]byte(nil), block...), nil
	}
	return encoded, nil
}

func (Codec) Decompress(data []byte, channels attr.ChannelList, width, height, expectedSize int) ([]byte, error) {
	if len(data) == expectedSize {
		return append([]byte(nil), data...), nil
	}
	pre, err := runLengthDecode(data, expectedSize)
	if err != nil {
		return nil, err
	}
	out := compress.Reinterleave(pre)
	if len(out) != expectedSize {
		return nil, exrerrors.Invalidf("rle", "decompressed size %d does not match expected %d", len(out), expectedSize)
	}
	return out, nil
}

// EncodeRaw run-length-encodes in without the byte-deinterleave/delta
// preprocessing package compress.Codec applies. Used by package deep,
// whose offset tables and sample data are compressed "raw" —
// unlike the block codec, deep sections have no raw fallback encoding
// to distinguish from RLE-encoded bytes, so this always emits the RLE
// form even when it doesn't shrink the input.
func EncodeRaw(in []byte) []byte {
	return runLengthEncode(in)
}

// DecodeRaw is the inverse of EncodeRaw.
func DecodeRaw(data []byte, expectedSize int) ([]byte, error) {
	return runLengthDecode(data, expectedSize)
}

// runLengthEncode implements OpenEXR's RLE scheme:
// a negative count byte -n (1..127, stored as 256-n) introduces exactly
// n literal bytes that follow (not n+1); a non-negative count n (0..127) introduces
// one byte repeated n+1 times.
func runLengthEncode(in []byte) []byte {
	n := len(in)
	out := make([]byte, 0, n)
	i := 0
	for i < n {
		runLen := 1
		for i+runLen < n && runLen < maxRunLength+1 && in[i+runLen] == in[i] {
			runLen++
		}
		if runLen >= minRunLength {
			out = append(out, byte(runLen-1), in[i])
			i += runLen
			continue
		}

		litStart := i
		for i < n {
			look := 1
			for i+look < n && look < minRunLength && in[i+look] == in[i] {
				look++
			}
			if look >= minRunLength || i-litStart >= maxRunLength {
				break
			}
			i++
		}
		litLen := i - litStart
		out = append(out, byte(-litLen))
		out = append(out, in[litStart:i]...)
	}
	return out
}

func runLengthDecode(in []byte, expectedSize int) ([]byte, error) {
	out := make([]byte, 0, min(expectedSize, 1<<20))
	i := 0
	for i < len(in) {
		count := int(int8(in[i]))
		i++
		if count >= 0 {
			if i >= len(in) {
				return nil, exrerrors.Invalidf("rle", "truncated run at byte %d", i)
			}
			n := count + 1
			for j := 0; j < n; j++ {
				out = append(out, in[i])
			}
			i++
		} else {
			n := -count
			if i+n > len(in) {
				return nil, exrerrors.Invalidf("rle", "truncated literal run at byte %d", i)
			}
			out = append(out, in[i:i+n]...)
			i += n
		}
		if len(out) > expectedSize {
			return nil, exrerrors.Invalidf("rle", "decoded output exceeds expected size %d", expectedSize)
		}
	}
	return out, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
