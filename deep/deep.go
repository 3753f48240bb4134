// Package deep implements deep scanline/tile chunk I/O: the
// pixel-offset table plus variable-length per-pixel sample data that
// makes a deep block different from an ordinary block.
//
// Built on package chunkio's chunk state machine and coordinate
// reader/writer (the coordinate shapes, including the three deep-only
// u64 sizes, are already handled there) and on compress/rle and
// compress/zip's "raw" entry points — deep sections skip the
// byte-deinterleave/delta preprocessing an ordinary block gets.
package deep

import (
	"encoding/binary"

	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/chunkio"
	"github.com/coreexr/go-openexr/compress"
	"github.com/coreexr/go-openexr/compress/rle"
	"github.com/coreexr/go-openexr/compress/zip"
	"github.com/coreexr/go-openexr/exrerrors"
	"github.com/coreexr/go-openexr/header"
)

// Block is one decoded deep chunk: a cumulative per-pixel sample-count
// table and the concatenated sample records it indexes (sample count
// of pixel i = offsets[i] - offsets[i-1]).
type Block struct {
	PartIndex int
	Rect      chunkio.Rect
	Offsets   []int32 // length Rect.Width*Rect.Height, cumulative
	Samples   []byte  // length Offsets[last]*recordSize, native-endian
}

// recordSize returns the byte width of one sample record: every
// channel contributes one sample's worth of bytes, interleaved in
// channel order.
func recordSize(channels attr.ChannelList) int {
	return compress.BytesPerPixel(channels)
}

func checkPermitted(section string, c attr.Compression) error {
	switch c {
	case attr.CompressionNone, attr.CompressionRLE, attr.CompressionZIPS, attr.CompressionZIP:
		return nil
	default:
		return exrerrors.NotSupportedf(section, "compression %v not permitted for deep data", c)
	}
}

func rawCompress(c attr.Compression, data []byte) ([]byte, error) {
	switch c {
	case attr.CompressionNone:
		return append([]byte(nil), data...), nil
	case attr.CompressionRLE:
		return rle.EncodeRaw(data), nil
	case attr.CompressionZIPS, attr.CompressionZIP:
		return zip.DeflateRaw(data)
	default:
		return nil, exrerrors.NotSupportedf("deep", "compression %v not permitted for deep data", c)
	}
}

func rawDecompress(c attr.Compression, data []byte, expectedSize int) ([]byte, error) {
	switch c {
	case attr.CompressionNone:
		if len(data) != expectedSize {
			return nil, exrerrors.Invalidf("deep", "raw section size %d does not match expected %d", len(data), expectedSize)
		}
		return append([]byte(nil), data...), nil
	case attr.CompressionRLE:
		return rle.DecodeRaw(data, expectedSize)
	case attr.CompressionZIPS, attr.CompressionZIP:
		return zip.InflateRaw(data, expectedSize)
	default:
		return nil, exrerrors.NotSupportedf("deep", "compression %v not permitted for deep data", c)
	}
}

func encodeOffsets(offsets []int32) []byte {
	buf := make([]byte, 4*len(offsets))
	for i, v := range offsets {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return buf
}

func decodeOffsets(data []byte, count int) ([]int32, error) {
	if len(data) != 4*count {
		return nil, exrerrors.Invalidf("deep", "offset table size %d does not match pixel count %d", len(data), count)
	}
	offsets := make([]int32, count)
	for i := range offsets {
		offsets[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return offsets, nil
}

func deepKind(t header.PartType) (chunkio.Kind, error) {
	switch t {
	case header.TypeDeepScanline:
		return chunkio.KindDeepScanline, nil
	case header.TypeDeepTile:
		return chunkio.KindDeepTile, nil
	default:
		return 0, exrerrors.Invalidf("deep", "part type %q is not a deep type", t)
	}
}
