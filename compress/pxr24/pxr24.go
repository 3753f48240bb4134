// Package pxr24 implements OpenEXR's PXR24 codec: lossy quantization
// of f32 channels to 24 bits (u32/f16 channels pass through at full
// width), byte-plane splitting, horizontal delta prediction, and
// deflate.
//
// Grounded on compress.Deinterleave's delta-prediction idea
// (generalized here from a single interleaved stream to one plane per
// output byte position) and, like package zip, on the stdlib
// compress/zlib package for the entropy stage — no pack repo vendors
// an alternate deflate implementation (see package zip's doc comment).
package pxr24

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/compress"
	"github.com/coreexr/go-openexr/exrerrors"
)

func init() {
	compress.Register(Codec{})
}

// Codec implements compress.Codec for PXR24.
type Codec struct{}

func (Codec) Compression() attr.Compression { return attr.CompressionPXR24 }

// planeByteSize is the number of on-disk bytes PXR24 stores per
// sample of a channel's type: f32 is quantized to 24 bits, u32 and f16
// pass through at their native width.
func planeByteSize(t attr.PixelType) int {
	if t == attr.PixelFloat {
		return 3
	}
	return t.SampleSize()
}

func (Codec) Compress(block []byte, channels attr.ChannelList, width, height int) ([]byte, error) {
	pre, err := planarize(block, channels, width, height)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(pre); err != nil {
		return nil, exrerrors.IOf("pxr24", err, "deflate write")
	}
	if err := w.Close(); err != nil {
		return nil, exrerrors.IOf("pxr24", err, "deflate close")
	}
	if buf.Len() >= len(block) {
		return append([]byte(nil), block...), nil
	}
	return buf.Bytes(), nil
}

func (Codec) Decompress(data []byte, channels attr.ChannelList, width, height, expectedSize int) ([]byte, error) {
	preSize := planarSize(channels, width, height)
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, exrerrors.Invalidf("pxr24", "malformed deflate stream: %v", err)
	}
	defer r.Close()
	pre, err := readBounded(r, preSize)
	if err != nil {
		return nil, err
	}
	if len(pre) != preSize {
		return nil, exrerrors.Invalidf("pxr24", "inflated size %d does not match expected %d", len(pre), preSize)
	}
	out, err := unplanarize(pre, channels, width, height)
	if err != nil {
		return nil, err
	}
	if len(out) != expectedSize {
		return nil, exrerrors.Invalidf("pxr24", "decompressed size %d does not match expected %d", len(out), expectedSize)
	}
	return out, nil
}

func planarSize(channels attr.ChannelList, width, height int) int {
	n := 0
	for _, c := range channels {
		n += planeByteSize(c.Type) * width * height
	}
	return n
}

// planarize walks block row by row, channel by channel (the native
// layout: outer scanline loop, inner channel loop in alphabetical
// order), quantizing each sample to its on-disk byte width and writing
// one plane per byte position, delta-encoded across the row.
func planarize(block []byte, channels attr.ChannelList, width, height int) ([]byte, error) {
	rowStride := compress.BytesPerPixel(channels) * width
	if len(block) != rowStride*height {
		return nil, exrerrors.Invalidf("pxr24", "block size %d does not match %d rows of stride %d", len(block), height, rowStride)
	}

	out := make([]byte, 0, planarSize(channels, width, height))
	for y := 0; y < height; y++ {
		row := block[y*rowStride : (y+1)*rowStride]
		off := 0
		for _, c := range channels {
			ss := c.Type.SampleSize()
			ps := planeByteSize(c.Type)
			chRow := row[off : off+ss*width]
			off += ss * width

			planes := make([][]byte, ps)
			for p := range planes {
				planes[p] = make([]byte, width)
			}
			for x := 0; x < width; x++ {
				sampleBytes := quantizeSample(chRow[x*ss:(x+1)*ss], c.Type)
				for p := 0; p < ps; p++ {
					planes[p][x] = sampleBytes[p]
				}
			}
			for _, plane := range planes {
				out = append(out, deltaEncodeRow(plane)...)
			}
		}
	}
	return out, nil
}

func unplanarize(pre []byte, channels attr.ChannelList, width, height int) ([]byte, error) {
	rowStride := compress.BytesPerPixel(channels) * width
	out := make([]byte, rowStride*height)

	pos := 0
	for y := 0; y < height; y++ {
		off := y * rowStride
		for _, c := range channels {
			ss := c.Type.SampleSize()
			ps := planeByteSize(c.Type)
			planes := make([][]byte, ps)
			for p := 0; p < ps; p++ {
				if pos+width > len(pre) {
					return nil, exrerrors.Invalidf("pxr24", "truncated plane data for channel %q", c.Name)
				}
				planes[p] = deltaDecodeRow(pre[pos : pos+width])
				pos += width
			}
			for x := 0; x < width; x++ {
				sampleBytes := make([]byte, ps)
				for p := 0; p < ps; p++ {
					sampleBytes[p] = planes[p][x]
				}
				dequantizeSample(sampleBytes, c.Type, out[off+x*ss:off+(x+1)*ss])
			}
			off += ss * width
		}
	}
	return out, nil
}

func deltaEncodeRow(in []byte) []byte {
	out := make([]byte, len(in))
	var prev byte
	for i, b := range in {
		out[i] = b - prev
		prev = b
	}
	return out
}

func deltaDecodeRow(in []byte) []byte {
	out := make([]byte, len(in))
	var prev byte
	for i, b := range in {
		prev = prev + b
		out[i] = prev
	}
	return out
}

// quantizeSample converts one native-endian sample to its on-disk byte
// planes, high byte first: f32 is quantized to 24 bits by dropping the
// low byte of its IEEE 754 representation; u32 and f16 pass through.
func quantizeSample(sample []byte, t attr.PixelType) []byte {
	switch t {
	case attr.PixelFloat:
		bits := binary.LittleEndian.Uint32(sample)
		q := bits >> 8
		return []byte{byte(q >> 16), byte(q >> 8), byte(q)}
	case attr.PixelUint:
		bits := binary.LittleEndian.Uint32(sample)
		return []byte{byte(bits >> 24), byte(bits >> 16), byte(bits >> 8), byte(bits)}
	default: // PixelHalf
		bits := binary.LittleEndian.Uint16(sample)
		return []byte{byte(bits >> 8), byte(bits)}
	}
}

func dequantizeSample(planes []byte, t attr.PixelType, dst []byte) {
	switch t {
	case attr.PixelFloat:
		q := uint32(planes[0])<<16 | uint32(planes[1])<<8 | uint32(planes[2])
		bits := q << 8
		binary.LittleEndian.PutUint32(dst, bits)
	case attr.PixelUint:
		bits := uint32(planes[0])<<24 | uint32(planes[1])<<16 | uint32(planes[2])<<8 | uint32(planes[3])
		binary.LittleEndian.PutUint32(dst, bits)
	default:
		bits := uint16(planes[0])<<8 | uint16(planes[1])
		binary.LittleEndian.PutUint16(dst, bits)
	}
}

func readBounded(r io.Reader, expectedSize int) ([]byte, error) {
	softCap := expectedSize
	if softCap > bitio.DefaultSoftCap {
		softCap = bitio.DefaultSoftCap
	}
	if softCap < 0 {
		softCap = 0
	}
	buf := make([]byte, 0, softCap)
	chunk := make([]byte, 64*1024)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if len(buf) > expectedSize {
				return nil, exrerrors.Invalidf("pxr24", "inflated output exceeds expected size %d", expectedSize)
			}
		}
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, exrerrors.IOf("pxr24", err, "inflate read")
		}
	}
}
