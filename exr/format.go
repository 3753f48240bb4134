// Package exr is the top-level file façade: the magic number and
// version field, the multipart header sequence, and the per-part
// offset tables that tie package header's metadata to package
// chunkio's and package deep's block I/O.
//
// Grounded on jpeg2000/codestream's top-level Parser, which drives a
// marker-segment scanner the same way Reader here drives an
// attribute-sequence scanner, and on codec.Registry's dispatch pattern
// for picking the scanline/tile/deep read path per part.
package exr

import (
	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/exrerrors"
)

// Magic is the four bytes every OpenEXR file begins with.
const Magic uint32 = 0x01312f76

// Version flag bits within the upper 24 bits of the version field.
// The low byte is the format version number; OpenEXR requires it be
// at least 2 for a multipart or deep-data file.
const (
	flagSingleTile = 1 << 9
	flagLongNames  = 1 << 10
	flagDeepData   = 1 << 11
	flagMultipart  = 1 << 12
)

// VersionField decodes the u32 that follows the magic number.
type VersionField struct {
	Version    uint8
	SingleTile bool
	LongNames  bool
	DeepData   bool
	Multipart  bool
}

// MaxNameLen returns the attribute/channel name length limit implied
// by the long-name flag.
func (vf VersionField) MaxNameLen() int {
	if vf.LongNames {
		return attr.MaxNameLong
	}
	return attr.MaxNameShort
}

func decodeVersionField(v uint32) VersionField {
	return VersionField{
		Version:    uint8(v & 0xff),
		SingleTile: v&flagSingleTile != 0,
		LongNames:  v&flagLongNames != 0,
		DeepData:   v&flagDeepData != 0,
		Multipart:  v&flagMultipart != 0,
	}
}

func encodeVersionField(vf VersionField) uint32 {
	v := uint32(vf.Version)
	if vf.SingleTile {
		v |= flagSingleTile
	}
	if vf.LongNames {
		v |= flagLongNames
	}
	if vf.DeepData {
		v |= flagDeepData
	}
	if vf.Multipart {
		v |= flagMultipart
	}
	return v
}

// readMagicAndVersion reads and validates the eight leading bytes of
// an OpenEXR file.
func readMagicAndVersion(r *bitio.Reader, section string) (VersionField, error) {
	magic, err := r.ReadU32(section)
	if err != nil {
		return VersionField{}, err
	}
	if magic != Magic {
		return VersionField{}, exrerrors.Invalidf(section, "bad magic number %#08x", magic)
	}
	raw, err := r.ReadU32(section)
	if err != nil {
		return VersionField{}, err
	}
	vf := decodeVersionField(raw)
	if vf.Version < 2 && (vf.Multipart || vf.DeepData) {
		return VersionField{}, exrerrors.Invalidf(section, "version %d cannot carry multipart/deep flags", vf.Version)
	}
	return vf, nil
}

func writeMagicAndVersion(w *bitio.Writer, section string, vf VersionField) error {
	if err := w.WriteU32(section, Magic); err != nil {
		return err
	}
	return w.WriteU32(section, encodeVersionField(vf))
}
