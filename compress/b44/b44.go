// Package b44 implements OpenEXR's B44 and B44A codecs: per-channel,
// per-4x4-block quantization of f16 samples to a shared (max,min,
// 6-bit-per-sample) encoding. B44A additionally special-cases flat
// (all-equal) blocks to three bytes. u32/f32 channels pass through
// uncompressed.
//
// Grounded on the fixed-size block-coding shape of t1's coefficient
// blocks (mrjoshuak-go-jpeg2000's tier-1 coder splits a block's
// samples into a fixed per-block header plus packed coefficient bits)
// adapted here to f16 quantization instead of bitplane coding.
package b44

import (
	"encoding/binary"
	"math"

	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/compress"
	"github.com/coreexr/go-openexr/exrerrors"
)

const blockDim = 4

func init() {
	compress.Register(Codec{variant: attr.CompressionB44})
	compress.Register(Codec{variant: attr.CompressionB44A})
}

// Codec implements compress.Codec for B44 (variant=CompressionB44) and
// B44A (variant=CompressionB44A).
type Codec struct {
	variant attr.Compression
}

func (c Codec) Compression() attr.Compression { return c.variant }

func (c Codec) Compress(block []byte, channels attr.ChannelList, width, height int) ([]byte, error) {
	rowStride := compress.BytesPerPixel(channels) * width
	if len(block) != rowStride*height {
		return nil, exrerrors.Invalidf("b44", "block size %d does not match %d rows of stride %d", len(block), height, rowStride)
	}

	var out []byte
	off := 0
	for _, ch := range channels {
		ss := ch.Type.SampleSize()
		if ch.Type != attr.PixelHalf {
			// Pass through uncompressed, row by row, at this channel's offset.
			for y := 0; y < height; y++ {
				start := y*rowStride + off
				out = append(out, block[start:start+ss*width]...)
			}
			off += ss * width
			continue
		}

		grid := extractHalfGrid(block, rowStride, off, width, height)
		for by := 0; by < height; by += blockDim {
			bh := min(blockDim, height-by)
			for bx := 0; bx < width; bx += blockDim {
				bw := min(blockDim, width-bx)
				out = append(out, c.encodeBlock(grid, width, bx, by, bw, bh)...)
			}
		}
		off += ss * width
	}

	if len(out) >= len(block) {
		return append([]byte(nil), block...), nil
	}
	return out, nil
}

func (c Codec) Decompress(data []byte, channels attr.ChannelList, width, height, expectedSize int) ([]byte, error) {
	if len(data) == expectedSize {
		return append([]byte(nil), data...), nil
	}
	rowStride := compress.BytesPerPixel(channels) * width
	out := make([]byte, rowStride*height)

	pos := 0
	off := 0
	for _, ch := range channels {
		ss := ch.Type.SampleSize()
		if ch.Type != attr.PixelHalf {
			n := ss * width * height
			if pos+n > len(data) {
				return nil, exrerrors.Invalidf("b44", "truncated pass-through channel %q", ch.Name)
			}
			for y := 0; y < height; y++ {
				start := y*rowStride + off
				copy(out[start:start+ss*width], data[pos+y*ss*width:pos+(y+1)*ss*width])
			}
			pos += n
			off += ss * width
			continue
		}

		grid := make([]uint16, width*height)
		for by := 0; by < height; by += blockDim {
			bh := min(blockDim, height-by)
			for bx := 0; bx < width; bx += blockDim {
				bw := min(blockDim, width-bx)
				n, err := c.decodeBlock(data[pos:], grid, width, bx, by, bw, bh)
				if err != nil {
					return nil, err
				}
				pos += n
			}
		}
		injectHalfGrid(out, rowStride, off, width, height, grid)
		off += ss * width
	}

	if len(out) != expectedSize {
		return nil, exrerrors.Invalidf("b44", "decompressed size %d does not match expected %d", len(out), expectedSize)
	}
	return out, nil
}

func extractHalfGrid(block []byte, rowStride, chanOff, width, height int) []uint16 {
	grid := make([]uint16, width*height)
	for y := 0; y < height; y++ {
		rowStart := y*rowStride + chanOff
		for x := 0; x < width; x++ {
			grid[y*width+x] = binary.LittleEndian.Uint16(block[rowStart+x*2 : rowStart+x*2+2])
		}
	}
	return grid
}

func injectHalfGrid(out []byte, rowStride, chanOff, width, height int, grid []uint16) {
	for y := 0; y < height; y++ {
		rowStart := y*rowStride + chanOff
		for x := 0; x < width; x++ {
			binary.LittleEndian.PutUint16(out[rowStart+x*2:rowStart+x*2+2], grid[y*width+x])
		}
	}
}

func (c Codec) encodeBlock(grid []uint16, stride, bx, by, bw, bh int) []byte {
	n := bw * bh
	samples := make([]float32, n)
	allEqual := true
	for i := 0; i < n; i++ {
		y := by + i/bw
		x := bx + i%bw
		samples[i] = bitio.Half(grid[y*stride+x]).ToFloat32()
		if samples[i] != samples[0] {
			allEqual = false
		}
	}

	if c.variant == attr.CompressionB44A && allEqual {
		out := make([]byte, 3)
		out[0] = 1
		binary.LittleEndian.PutUint16(out[1:3], grid[by*stride+bx])
		return out
	}

	lo, hi := samples[0], samples[0]
	for _, v := range samples {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	header := make([]byte, 5)
	header[0] = 0
	binary.LittleEndian.PutUint16(header[1:3], uint16(bitio.FromFloat32(hi)))
	binary.LittleEndian.PutUint16(header[3:5], uint16(bitio.FromFloat32(lo)))

	span := hi - lo
	w := &bitPacker{}
	for _, v := range samples {
		var code uint32
		if span > 0 {
			code = uint32(math.Round(float64((hi - v) / span * 63)))
			if code > 63 {
				code = 63
			}
		}
		w.writeBits(code, 6)
	}
	return append(header, w.flush()...)
}

func (c Codec) decodeBlock(data []byte, grid []uint16, stride, bx, by, bw, bh int) (int, error) {
	if len(data) < 1 {
		return 0, exrerrors.Invalidf("b44", "truncated block header")
	}
	flag := data[0]
	n := bw * bh

	if flag == 1 {
		if len(data) < 3 {
			return 0, exrerrors.Invalidf("b44", "truncated flat block")
		}
		v := binary.LittleEndian.Uint16(data[1:3])
		for i := 0; i < n; i++ {
			y := by + i/bw
			x := bx + i%bw
			grid[y*stride+x] = v
		}
		return 3, nil
	}
	if flag != 0 {
		return 0, exrerrors.Invalidf("b44", "unrecognized block flag %d", flag)
	}

	if len(data) < 5 {
		return 0, exrerrors.Invalidf("b44", "truncated block header")
	}
	hi := bitio.Half(binary.LittleEndian.Uint16(data[1:3])).ToFloat32()
	lo := bitio.Half(binary.LittleEndian.Uint16(data[3:5])).ToFloat32()
	span := hi - lo

	packedBytes := (n*6 + 7) / 8
	if len(data) < 5+packedBytes {
		return 0, exrerrors.Invalidf("b44", "truncated packed codes")
	}
	r := &bitUnpacker{buf: data[5 : 5+packedBytes]}
	for i := 0; i < n; i++ {
		code, err := r.readBits(6)
		if err != nil {
			return 0, err
		}
		var v float32
		if span > 0 {
			v = hi - float32(code)/63*span
		} else {
			v = hi
		}
		y := by + i/bw
		x := bx + i%bw
		grid[y*stride+x] = uint16(bitio.FromFloat32(v))
	}
	return 5 + packedBytes, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
