package exr

import (
	"io"

	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/chunkio"
	"github.com/coreexr/go-openexr/deep"
	"github.com/coreexr/go-openexr/exrerrors"
	"github.com/coreexr/go-openexr/header"
)

// Reader opens an OpenEXR file for reading: the magic/version pair,
// every part's header, and every part's offset table are parsed and
// validated up front — a malformed header or a chunkCount/geometry
// mismatch is reported before any chunk is touched. Per-part pixel
// data is read lazily via ReadPart/ReadDeepPart.
type Reader struct {
	r       *bitio.Reader
	vf      VersionField
	parts   []*header.Part
	offsets []chunkio.OffsetTable
	section string
}

// Open parses the header of r (magic, version, per-part attribute
// sequences, and offset tables) without reading any chunk payload.
func Open(r io.Reader, section string) (*Reader, error) {
	br := bitio.NewReader(r)
	vf, err := readMagicAndVersion(br, section)
	if err != nil {
		return nil, err
	}
	parts, err := readHeaders(br, section, vf)
	if err != nil {
		return nil, err
	}
	if err := header.ValidateParts(parts); err != nil {
		return nil, err
	}

	offsets := make([]chunkio.OffsetTable, len(parts))
	for i, p := range parts {
		computed, err := p.ChunkCount()
		if err != nil {
			return nil, err
		}
		if declared, ok := p.DeclaredChunkCount(); ok {
			if err := chunkio.ValidateChunkCount(p.Section, int(declared), computed); err != nil {
				return nil, err
			}
		}
		table, err := chunkio.ReadOffsetTable(br, section, computed)
		if err != nil {
			return nil, err
		}
		offsets[i] = table
	}

	return &Reader{r: br, vf: vf, parts: parts, offsets: offsets, section: section}, nil
}

// VersionField returns the file's decoded version field.
func (f *Reader) VersionField() VersionField { return f.vf }

// PartCount returns the number of parts in the file.
func (f *Reader) PartCount() int { return len(f.parts) }

// Part returns part i's header.
func (f *Reader) Part(i int) *header.Part { return f.parts[i] }

// ReadPart decodes every chunk of the i'th part, a non-deep part.
// When the underlying source supports random access, chunks are
// fetched directly via their offset-table entries — the OpenEXR
// format allows chunks to appear in any order, with positions given by
// the offset tables — which also lets a multipart file's parts
// interleave on disk in any order. Forward-only sources fall back to a
// single contiguous scan, which only succeeds when the part's chunks
// are in fact laid out contiguously — true of every file this
// package's Writer produces.
func (f *Reader) ReadPart(i int, opts chunkio.Options) ([]*chunkio.Block, error) {
	p := f.parts[i]
	if p.Type().IsDeep() {
		return nil, exrerrors.Invalidf(f.section, "part %d is deep; use ReadDeepPart", i)
	}
	if f.r.CanSeek() {
		return chunkio.ReadPartAtOffsets(f.r, f.section, i, p, f.vf.Multipart, f.offsets[i], opts)
	}
	return chunkio.ReadPart(f.r, f.section, i, p, f.vf.Multipart, opts)
}

// ReadDeepPart decodes every chunk of the i'th part, a deep part.
func (f *Reader) ReadDeepPart(i int) ([]*deep.Block, error) {
	p := f.parts[i]
	if !p.Type().IsDeep() {
		return nil, exrerrors.Invalidf(f.section, "part %d is not deep", i)
	}
	if f.r.CanSeek() {
		return deep.ReadPartAtOffsets(f.r, f.section, i, p, f.vf.Multipart, f.offsets[i])
	}
	return deep.ReadPart(f.r, f.section, i, p, f.vf.Multipart)
}
