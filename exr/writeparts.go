package exr

import (
	"io"

	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/chunkio"
	"github.com/coreexr/go-openexr/compress"
	"github.com/coreexr/go-openexr/deep"
	"github.com/coreexr/go-openexr/exrerrors"
	"github.com/coreexr/go-openexr/header"
)

// PartSource supplies one part's pixel data to WriteParts, one chunk
// at a time. Exactly one of Next/NextDeep is set, matching whether
// Part is a deep part; the unused one is never called. Either
// returns ok=false once the part has no more chunks.
type PartSource struct {
	Part     *header.Part
	Next     func() (*chunkio.Block, bool, error)
	NextDeep func() (*deep.Block, bool, error)
}

// WriteParts writes a complete file from N parts and N per-part
// PartSources, interleaving their chunks round-robin by part instead
// of writing one part's chunks as an uninterrupted run: it calls
// source i's Next/NextDeep once, writes whatever chunk comes back,
// then moves on to source i+1, cycling until every source is
// exhausted. This keeps peak memory at roughly one in-flight chunk per
// part rather than a whole part's pixel buffer, applying the OpenEXR
// format's "chunks may appear in any order" permission to the write
// side the same way Reader's random-access path applies it to reads.
//
// Each source is polled sequentially and compressed inline — there is
// no worker pool here, since the interleaving itself is what bounds
// memory; callers wanting parallel compression within a single part
// should use Writer.WritePart/WriteDeepPart instead.
func WriteParts(w io.Writer, section string, vf VersionField, sources []PartSource) error {
	parts := make([]*header.Part, len(sources))
	for i, s := range sources {
		parts[i] = s.Part
	}
	f, err := Create(w, section, vf, parts)
	if err != nil {
		return err
	}

	channelsByPart := make([]attr.ChannelList, len(parts))
	compressionByPart := make([]attr.Compression, len(parts))
	codecByPart := make([]compress.Codec, len(parts))
	for i, p := range parts {
		if p.Type().IsDeep() {
			continue
		}
		channels, err := p.Channels()
		if err != nil {
			return err
		}
		compression, err := p.Compression()
		if err != nil {
			return err
		}
		var codec compress.Codec
		if compression != attr.CompressionNone {
			codec, err = compress.Get(compression)
			if err != nil {
				return err
			}
		}
		channelsByPart[i] = channels
		compressionByPart[i] = compression
		codecByPart[i] = codec
	}

	tables := make([]chunkio.OffsetTable, len(parts))
	done := make([]bool, len(parts))
	remaining := len(parts)
	for remaining > 0 {
		for i, s := range sources {
			if done[i] {
				continue
			}
			p := parts[i]
			if p.Type().IsDeep() {
				b, ok, err := s.NextDeep()
				if err != nil {
					return err
				}
				if !ok {
					done[i] = true
					remaining--
					continue
				}
				off, err := deep.WriteOneChunk(f.w, section, i, p, f.vf.Multipart, b)
				if err != nil {
					return err
				}
				tables[i] = append(tables[i], off)
				continue
			}
			b, ok, err := s.Next()
			if err != nil {
				return err
			}
			if !ok {
				done[i] = true
				remaining--
				continue
			}
			off, err := chunkio.WriteOneChunk(f.w, section, i, f.vf.Multipart, channelsByPart[i], compressionByPart[i], codecByPart[i], b)
			if err != nil {
				return err
			}
			tables[i] = append(tables[i], off)
		}
	}

	for i := range parts {
		if len(tables[i]) != f.counts[i] {
			return exrerrors.Invalidf(section, "part %d: source produced %d chunks, geometry expects %d", i, len(tables[i]), f.counts[i])
		}
		if err := chunkio.Backpatch(f.w, section, f.placeholders[i], tables[i]); err != nil {
			return err
		}
	}
	return nil
}
