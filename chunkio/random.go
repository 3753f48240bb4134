package chunkio

import (
	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/compress"
	"github.com/coreexr/go-openexr/exrerrors"
	"github.com/coreexr/go-openexr/header"
)

// ReadPartAtOffsets reads one part's chunks by seeking directly to
// each entry of table rather than assuming the part's chunks sit
// contiguously at the reader's current position. This is what lets a
// multipart file interleave every part's chunks in arbitrary file
// order: the offset table, not stream position, is the authority on
// where a chunk lives.
//
// Requires a seekable r (bitio.Reader.CanSeek); package exr falls back
// to the plain contiguous ReadPart when the source is forward-only.
func ReadPartAtOffsets(r *bitio.Reader, section string, partIndex int, p *header.Part, multipart bool, table OffsetTable, opts Options) ([]*Block, error) {
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
		return nil, exrerrors.Invalidf(section, "ReadPartAtOffsets does not handle deep parts; use package deep")
	}
	compression, err := p.Compression()
	if err != nil {
		return nil, err
	}
	codec, err := compress.Get(compression)
	if err != nil && compression != attr.CompressionNone {
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

	rects := make([]Rect, len(table))
	i := 0
	next := func() (Job, bool, error) {
		if i >= len(table) {
			return Job{}, false, nil
		}
		if err := pollCancel(opts.Context); err != nil {
			return Job{}, false, err
		}
		if err := r.SeekTo(section, int64(table[i])); err != nil {
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
