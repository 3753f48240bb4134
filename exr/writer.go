package exr

import (
	"io"

	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/chunkio"
	"github.com/coreexr/go-openexr/deep"
	"github.com/coreexr/go-openexr/exrerrors"
	"github.com/coreexr/go-openexr/header"
)

// Writer assembles an OpenEXR file: it writes the magic/version pair,
// every part's header, and a zeroed placeholder offset table for every
// part, then lets the caller fill in each part's pixel data with
// WritePart/WriteDeepPart in any order, backpatching that part's
// offset table once its chunks are known.
//
// The sink must implement io.WriterAt for the backpatch step; an
// in-memory buffer or an *os.File both qualify.
type Writer struct {
	w            *bitio.Writer
	vf           VersionField
	parts        []*header.Part
	section      string
	placeholders []int64
	counts       []int
}

// Create validates parts, writes the file header (magic, version,
// every part's attribute sequence, and a reserved offset table per
// part), and returns a Writer ready for WritePart/WriteDeepPart calls.
//
// vf.Multipart and vf.DeepData are set automatically from parts (more
// than one part, or any deep part, forces them on); callers only need
// to set vf.LongNames if a name exceeds 31 bytes. The version number
// is bumped to at least 2 whenever either flag ends up set, as the
// format requires.
func Create(w io.Writer, section string, vf VersionField, parts []*header.Part) (*Writer, error) {
	if len(parts) == 0 {
		return nil, exrerrors.Invalidf(section, "a file must declare at least one part")
	}
	if err := header.ValidateParts(parts); err != nil {
		return nil, err
	}

	if len(parts) > 1 {
		vf.Multipart = true
	}
	for _, p := range parts {
		if p.Type().IsDeep() {
			vf.DeepData = true
		}
	}
	if (vf.Multipart || vf.DeepData) && vf.Version < 2 {
		vf.Version = 2
	}

	bw := bitio.NewWriter(w)
	if err := writeMagicAndVersion(bw, section, vf); err != nil {
		return nil, err
	}
	if err := writeHeaders(bw, section, vf, parts); err != nil {
		return nil, err
	}

	placeholders := make([]int64, len(parts))
	counts := make([]int, len(parts))
	for i, p := range parts {
		n, err := p.ChunkCount()
		if err != nil {
			return nil, err
		}
		counts[i] = n
		off, err := chunkio.WritePlaceholder(bw, section, n)
		if err != nil {
			return nil, err
		}
		placeholders[i] = off
	}

	return &Writer{w: bw, vf: vf, parts: parts, section: section, placeholders: placeholders, counts: counts}, nil
}

// WritePart compresses and writes every chunk of the i'th part (a
// non-deep part), then backpatches that part's offset table.
func (f *Writer) WritePart(i int, blocks []*chunkio.Block, opts chunkio.Options) error {
	p := f.parts[i]
	if p.Type().IsDeep() {
		return exrerrors.Invalidf(f.section, "part %d is deep; use WriteDeepPart", i)
	}
	if len(blocks) != f.counts[i] {
		return exrerrors.Invalidf(f.section, "part %d: %d blocks given, geometry expects %d", i, len(blocks), f.counts[i])
	}
	table, err := chunkio.WriteChunks(f.w, f.section, i, p, f.vf.Multipart, blocks, opts)
	if err != nil {
		return err
	}
	return chunkio.Backpatch(f.w, f.section, f.placeholders[i], table)
}

// WriteDeepPart compresses and writes every chunk of the i'th part (a
// deep part), then backpatches that part's offset table.
func (f *Writer) WriteDeepPart(i int, blocks []*deep.Block) error {
	p := f.parts[i]
	if !p.Type().IsDeep() {
		return exrerrors.Invalidf(f.section, "part %d is not deep", i)
	}
	if len(blocks) != f.counts[i] {
		return exrerrors.Invalidf(f.section, "part %d: %d blocks given, geometry expects %d", i, len(blocks), f.counts[i])
	}
	table, err := deep.WriteChunks(f.w, f.section, i, p, f.vf.Multipart, blocks)
	if err != nil {
		return err
	}
	return chunkio.Backpatch(f.w, f.section, f.placeholders[i], table)
}
