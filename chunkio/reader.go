package chunkio

import (
	"context"

	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/compress"
	"github.com/coreexr/go-openexr/exrerrors"
	"github.com/coreexr/go-openexr/header"
)

// Block is one decompressed, native-endian chunk ready for the caller
// to slice into per-line/per-channel views. Channels within Data are
// interleaved in the header's alphabetical channel order, matching
// package compress's Codec contract.
type Block struct {
	PartIndex int
	Rect      Rect
	Data      []byte
}

// Options configures a part read/write. A zero Options reads
// sequentially with no cancellation.
type Options struct {
	// Parallel enables the bounded worker pool. Sequential mode is
	// used when false, or implicitly when the part's compression is
	// None (decompression has nothing to parallelize).
	Parallel bool
	// Workers caps pool size; <=0 defaults to runtime.GOMAXPROCS(0).
	Workers int
	// Context, if non-nil, is polled once per chunk; cancellation
	// aborts the whole read.
	Context context.Context
}

// ReadPart reads every chunk belonging to one part, in file order, and
// returns the fully decompressed blocks in that same order. multipart
// selects whether each chunk carries a leading part-index field.
//
// The read itself is always sequential (one underlying io.Reader
// cannot be consumed out of order); what Options.Parallel controls is
// whether the per-chunk decompression is handed to a worker pool. The
// read of chunk i+1's bytes and the decode of chunk i's bytes overlap:
// ReadPart hands the scheduler a JobSource that pulls one chunk off r
// at a time, only as fast as the scheduler's bounded reorder buffer
// drains, so a large part is never held fully buffered in memory
// before decoding starts. Grounded on jpeg2000/codestream's
// single-pass segment-by-segment parser, extended with
// chunkio.RunParallel's job/result split.
func ReadPart(r *bitio.Reader, section string, partIndex int, p *header.Part, multipart bool, opts Options) ([]*Block, error) {
	channels, err := p.Channels()
	if err != nil {
		return nil, err
	}
	dw, err := p.DataWindow()
	if err != nil {
		return nil, err
	}
	partType := p.Type()
	if partType.IsDeep() {
		return nil, exrerrors.Invalidf(section, "ReadPart does not handle deep parts; use package deep")
	}
	compression, err := p.Compression()
	if err != nil {
		return nil, err
	}
	codec, err := compress.Get(compression)
	if err != nil && compression != attr.CompressionNone {
		return nil, err
	}
	chunkCount, err := p.ChunkCount()
	if err != nil {
		return nil, err
	}

	kind := kindFor(partType)
	var td attr.TileDesc
	if kind == KindTile {
		td, err = p.Tiles()
		if err != nil {
			return nil, err
		}
	}

	rects := make([]Rect, chunkCount)
	i := 0
	next := func() (Job, bool, error) {
		if i >= chunkCount {
			return Job{}, false, nil
		}
		if err := pollCancel(opts.Context); err != nil {
			return Job{}, false, err
		}
		pend, err := readOneChunk(r, section, multipart, kind, dw, td, compression)
		if err != nil {
			return Job{}, false, err
		}
		rects[i] = pend.rect
		i++
		return decodeJob(section, channels, compression, codec, pend), true, nil
	}

	return buildBlocks(partIndex, compression, rects, next, opts)
}

// pendingChunk holds a chunk's geometry and raw (still compressed)
// payload between the sequential read pass and the decode pass.
type pendingChunk struct {
	rect       Rect
	compressed []byte
}

// readOneChunk reads one chunk's coordinates, length, and payload from
// r's current position, without decompressing it. Shared by ReadPart
// (contiguous scan) and ReadPartAtOffsets (seek-then-read).
func readOneChunk(r *bitio.Reader, section string, multipart bool, kind Kind, dw attr.Box2I, td attr.TileDesc, compression attr.Compression) (pendingChunk, error) {
	_, coord, err := ReadCoordinates(r, section, multipart, kind)
	if err != nil {
		return pendingChunk{}, err
	}
	var rect Rect
	if kind == KindTile {
		rect = PlanTile(dw, td, coord.TileX, coord.TileY, coord.LevelX, coord.LevelY)
	} else {
		rect = PlanScanline(dw, compression, coord.Y)
	}

	size, err := r.ReadI32(section)
	if err != nil {
		return pendingChunk{}, err
	}
	if size < 0 {
		return pendingChunk{}, exrerrors.Invalidf(section, "negative chunk payload size %d", size)
	}
	payload, err := r.ReadBytes(section, int(size), bitio.DefaultSoftCap)
	if err != nil {
		return pendingChunk{}, err
	}
	return pendingChunk{rect: rect, compressed: payload}, nil
}

// decodeJob builds the decode Job for one already-read chunk. Shared
// by ReadPart and ReadPartAtOffsets.
func decodeJob(section string, channels attr.ChannelList, compression attr.Compression, codec compress.Codec, pend pendingChunk) Job {
	expected := compress.BytesPerPixel(channels) * pend.rect.Width * pend.rect.Height
	return Job{Run: func() ([]byte, error) {
		if compression == attr.CompressionNone {
			if len(pend.compressed) != expected {
				return nil, exrerrors.Invalidf(section, "uncompressed chunk size %d does not match expected %d", len(pend.compressed), expected)
			}
			return pend.compressed, nil
		}
		return codec.Decompress(pend.compressed, channels, pend.rect.Width, pend.rect.Height, expected)
	}}
}

// buildBlocks drains next through the sequential or parallel scheduler
// (per opts) and zips the resulting decoded payloads back up with
// their rects (recorded by next's caller as each chunk was read) into
// Blocks, in chunk order. Shared by ReadPart and ReadPartAtOffsets.
func buildBlocks(partIndex int, compression attr.Compression, rects []Rect, next JobSource, opts Options) ([]*Block, error) {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	var results [][]byte
	var err error
	if opts.Parallel && compression != attr.CompressionNone {
		results, err = RunParallel(ctx, next, opts.Workers)
	} else {
		results, err = RunSequential(ctx, next)
	}
	if err != nil {
		return nil, err
	}

	blocks := make([]*Block, len(results))
	for i, data := range results {
		blocks[i] = &Block{PartIndex: partIndex, Rect: rects[i], Data: data}
	}
	return blocks, nil
}

func pollCancel(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return exrerrors.Abortedf("chunkio", "read cancelled")
	default:
		return nil
	}
}
