package deep

import (
	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/chunkio"
	"github.com/coreexr/go-openexr/exrerrors"
	"github.com/coreexr/go-openexr/header"
)

// ReadPart reads every deep chunk belonging to one part, in file
// order. Unlike chunkio.ReadPart, a deep chunk's two sections (offset
// table, sample data) are each independently sized and independently
// compressed, so the state machine reads both lengths up front (as
// part of ReadCoordinates) before either payload.
func ReadPart(r *bitio.Reader, section string, partIndex int, p *header.Part, multipart bool) ([]*Block, error) {
	channels, err := p.Channels()
	if err != nil {
		return nil, err
	}
	compression, err := p.Compression()
	if err != nil {
		return nil, err
	}
	if err := checkPermitted(section, compression); err != nil {
		return nil, err
	}
	dw, err := p.DataWindow()
	if err != nil {
		return nil, err
	}
	kind, err := deepKind(p.Type())
	if err != nil {
		return nil, err
	}
	var td attr.TileDesc
	if kind == chunkio.KindDeepTile {
		td, err = p.Tiles()
		if err != nil {
			return nil, err
		}
	}
	chunkCount, err := p.ChunkCount()
	if err != nil {
		return nil, err
	}
	rsize := recordSize(channels)

	blocks := make([]*Block, chunkCount)
	for i := 0; i < chunkCount; i++ {
		b, err := readOneDeepChunk(r, section, partIndex, multipart, kind, dw, td, compression, rsize)
		if err != nil {
			return nil, err
		}
		blocks[i] = b
	}
	return blocks, nil
}

// ReadPartAtOffsets is the random-access counterpart to ReadPart: it
// seeks to each entry of table rather than assuming the part's chunks
// are contiguous at the reader's current position, mirroring
// chunkio.ReadPartAtOffsets.
func ReadPartAtOffsets(r *bitio.Reader, section string, partIndex int, p *header.Part, multipart bool, table chunkio.OffsetTable) ([]*Block, error) {
	channels, err := p.Channels()
	if err != nil {
		return nil, err
	}
	compression, err := p.Compression()
	if err != nil {
		return nil, err
	}
	if err := checkPermitted(section, compression); err != nil {
		return nil, err
	}
	dw, err := p.DataWindow()
	if err != nil {
		return nil, err
	}
	kind, err := deepKind(p.Type())
	if err != nil {
		return nil, err
	}
	var td attr.TileDesc
	if kind == chunkio.KindDeepTile {
		td, err = p.Tiles()
		if err != nil {
			return nil, err
		}
	}
	rsize := recordSize(channels)

	blocks := make([]*Block, len(table))
	for i, off := range table {
		if err := r.SeekTo(section, int64(off)); err != nil {
			return nil, err
		}
		b, err := readOneDeepChunk(r, section, partIndex, multipart, kind, dw, td, compression, rsize)
		if err != nil {
			return nil, err
		}
		blocks[i] = b
	}
	return blocks, nil
}

// readOneDeepChunk reads one deep chunk from r's current position.
func readOneDeepChunk(r *bitio.Reader, section string, partIndex int, multipart bool, kind chunkio.Kind, dw attr.Box2I, td attr.TileDesc, compression attr.Compression, rsize int) (*Block, error) {
	_, coord, err := chunkio.ReadCoordinates(r, section, multipart, kind)
	if err != nil {
		return nil, err
	}

	var rect chunkio.Rect
	if kind == chunkio.KindDeepTile {
		rect = chunkio.PlanTile(dw, td, coord.TileX, coord.TileY, coord.LevelX, coord.LevelY)
	} else {
		rect = chunkio.PlanScanline(dw, attr.CompressionNone, coord.Y) // deep chunks always cover a single scanline
	}
	rect.Kind = kind
	pixelCount := rect.Width * rect.Height

	offsetTableBytes, err := r.ReadBytes(section, int(coord.OffsetTableSize), bitio.DefaultSoftCap)
	if err != nil {
		return nil, err
	}
	sampleBytes, err := r.ReadBytes(section, int(coord.PackedSampleSize), bitio.DefaultSoftCap)
	if err != nil {
		return nil, err
	}

	offsetsRaw, err := rawDecompress(compression, offsetTableBytes, pixelCount*4)
	if err != nil {
		return nil, err
	}
	offsets, err := decodeOffsets(offsetsRaw, pixelCount)
	if err != nil {
		return nil, err
	}

	var totalSamples int32
	if pixelCount > 0 {
		totalSamples = offsets[pixelCount-1]
	}
	if totalSamples < 0 {
		return nil, exrerrors.Invalidf(section, "negative cumulative sample count %d", totalSamples)
	}
	expectedSampleBytes := int(totalSamples) * rsize
	if expectedSampleBytes != int(coord.UnpackedSampleSize) {
		return nil, exrerrors.Invalidf(section, "unpacked sample size %d does not match offset table total %d", coord.UnpackedSampleSize, expectedSampleBytes)
	}

	samples, err := rawDecompress(compression, sampleBytes, expectedSampleBytes)
	if err != nil {
		return nil, err
	}

	return &Block{PartIndex: partIndex, Rect: rect, Offsets: offsets, Samples: samples}, nil
}
