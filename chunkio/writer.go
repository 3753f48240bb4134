package chunkio

import (
	"context"

	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/compress"
	"github.com/coreexr/go-openexr/exrerrors"
	"github.com/coreexr/go-openexr/header"
)

// WriteChunks compresses and serializes blocks (already ordered by the
// caller) to w, returning the absolute byte offset each chunk's
// ReadIndex state began at, for the caller to backpatch into the
// part's offset table. Compression itself may run on a worker pool
// when Options.Parallel is set; the writes to w always happen
// sequentially and in blocks' order, so file order matches submission
// order regardless of compression completion order.
func WriteChunks(w *bitio.Writer, section string, partIndex int, p *header.Part, multipart bool, blocks []*Block, opts Options) (OffsetTable, error) {
	channels, err := p.Channels()
	if err != nil {
		return nil, err
	}
	compression, err := p.Compression()
	if err != nil {
		return nil, err
	}
	var codec compress.Codec
	if compression != attr.CompressionNone {
		codec, err = compress.Get(compression)
		if err != nil {
			return nil, err
		}
	}

	i := 0
	next := func() (Job, bool, error) {
		if i >= len(blocks) {
			return Job{}, false, nil
		}
		b := blocks[i]
		i++
		return Job{Run: func() ([]byte, error) {
			if compression == attr.CompressionNone {
				return b.Data, nil
			}
			return codec.Compress(b.Data, channels, b.Rect.Width, b.Rect.Height)
		}}, true, nil
	}

	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	var compressed [][]byte
	if opts.Parallel && compression != attr.CompressionNone {
		compressed, err = RunParallel(ctx, next, opts.Workers)
	} else {
		compressed, err = RunSequential(ctx, next)
	}
	if err != nil {
		return nil, err
	}

	table := make(OffsetTable, len(blocks))
	for i, b := range blocks {
		if err := pollCancel(ctx); err != nil {
			return nil, err
		}
		off, err := writeCompressedChunk(w, section, partIndex, multipart, b.Rect, compressed[i])
		if err != nil {
			return nil, err
		}
		table[i] = off
	}
	return table, nil
}

// WriteOneChunk compresses and writes a single chunk belonging to
// partIndex, returning the absolute offset it was written at. It shares
// writeCompressedChunk with WriteChunks, which calls that helper once
// per block after running its whole batch through the scheduler;
// exr.WriteParts calls WriteOneChunk directly
// to interleave chunks across parts instead of writing one part's
// chunks as an uninterrupted run.
func WriteOneChunk(w *bitio.Writer, section string, partIndex int, multipart bool, channels attr.ChannelList, compression attr.Compression, codec compress.Codec, b *Block) (uint64, error) {
	var payload []byte
	if compression == attr.CompressionNone {
		payload = b.Data
	} else {
		var err error
		payload, err = codec.Compress(b.Data, channels, b.Rect.Width, b.Rect.Height)
		if err != nil {
			return 0, err
		}
	}
	return writeCompressedChunk(w, section, partIndex, multipart, b.Rect, payload)
}

func writeCompressedChunk(w *bitio.Writer, section string, partIndex int, multipart bool, rect Rect, payload []byte) (uint64, error) {
	offset := uint64(w.Offset())
	coord := coordFor(rect)
	if err := WriteCoordinates(w, section, multipart, int32(partIndex), coord); err != nil {
		return 0, err
	}
	if err := w.WriteI32(section, int32(len(payload))); err != nil {
		return 0, err
	}
	if err := w.WriteBytes(section, payload); err != nil {
		return 0, err
	}
	return offset, nil
}

func coordFor(r Rect) Coord {
	if r.Kind == KindTile {
		return Coord{Kind: KindTile, TileX: int32(r.TileX), TileY: int32(r.TileY), LevelX: int32(r.LevelX), LevelY: int32(r.LevelY)}
	}
	return Coord{Kind: KindScanline, Y: int32(r.Y0)}
}

// ValidateChunkCount compares a declared chunkCount (from header or
// offset-table length) against the geometry-derived count, returning
// an Invalid error naming the mismatch.
func ValidateChunkCount(section string, declared, computed int) error {
	if declared != computed {
		return exrerrors.Invalidf(section, "chunk count attribute %d does not match computed geometry count %d", declared, computed)
	}
	return nil
}
