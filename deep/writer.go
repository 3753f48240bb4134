package deep

import (
	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/chunkio"
	"github.com/coreexr/go-openexr/exrerrors"
	"github.com/coreexr/go-openexr/header"
)

// WriteChunks serializes blocks (already ordered by the caller) to w,
// returning the absolute offset each chunk began at for the caller to
// backpatch into the part's offset table, mirroring
// chunkio.WriteChunks. Offset table and sample data are compressed
// independently.
func WriteChunks(w *bitio.Writer, section string, partIndex int, p *header.Part, multipart bool, blocks []*Block) (chunkio.OffsetTable, error) {
	compression, err := p.Compression()
	if err != nil {
		return nil, err
	}
	if err := checkPermitted(section, compression); err != nil {
		return nil, err
	}
	kind, err := deepKind(p.Type())
	if err != nil {
		return nil, err
	}

	table := make(chunkio.OffsetTable, len(blocks))
	for i, b := range blocks {
		off, err := writeOneChunk(w, section, partIndex, multipart, compression, kind, b)
		if err != nil {
			return nil, err
		}
		table[i] = off
	}
	return table, nil
}

// WriteOneChunk writes a single deep chunk belonging to partIndex,
// returning the absolute offset it was written at. It is the
// single-chunk primitive WriteChunks loops over; exr.WriteParts calls
// it directly to interleave a deep part's chunks with other parts'
// instead of writing the whole part as an uninterrupted run.
func WriteOneChunk(w *bitio.Writer, section string, partIndex int, p *header.Part, multipart bool, b *Block) (uint64, error) {
	compression, err := p.Compression()
	if err != nil {
		return 0, err
	}
	if err := checkPermitted(section, compression); err != nil {
		return 0, err
	}
	kind, err := deepKind(p.Type())
	if err != nil {
		return 0, err
	}
	return writeOneChunk(w, section, partIndex, multipart, compression, kind, b)
}

func writeOneChunk(w *bitio.Writer, section string, partIndex int, multipart bool, compression attr.Compression, kind chunkio.Kind, b *Block) (uint64, error) {
	pixelCount := b.Rect.Width * b.Rect.Height
	if len(b.Offsets) != pixelCount {
		return 0, exrerrors.Invalidf(section, "block offset table length %d does not match pixel count %d", len(b.Offsets), pixelCount)
	}

	offsetTableBytes, err := rawCompress(compression, encodeOffsets(b.Offsets))
	if err != nil {
		return 0, err
	}
	sampleBytes, err := rawCompress(compression, b.Samples)
	if err != nil {
		return 0, err
	}

	coord := chunkio.Coord{
		Kind:               kind,
		Y:                  int32(b.Rect.Y0),
		TileX:              int32(b.Rect.TileX),
		TileY:              int32(b.Rect.TileY),
		LevelX:             int32(b.Rect.LevelX),
		LevelY:             int32(b.Rect.LevelY),
		OffsetTableSize:    uint64(len(offsetTableBytes)),
		PackedSampleSize:   uint64(len(sampleBytes)),
		UnpackedSampleSize: uint64(len(b.Samples)),
	}

	offset := uint64(w.Offset())
	if err := chunkio.WriteCoordinates(w, section, multipart, int32(partIndex), coord); err != nil {
		return 0, err
	}
	if err := w.WriteBytes(section, offsetTableBytes); err != nil {
		return 0, err
	}
	if err := w.WriteBytes(section, sampleBytes); err != nil {
		return 0, err
	}
	return offset, nil
}
