// Package header assembles and validates per-part OpenEXR headers: the
// named attribute sequence described by package attr, plus the
// geometry rules (chunk counts, mip/rip level sizing, tile layout)
// that connect metadata to block I/O.
//
// Grounded on jpeg2000/codestream's structured per-segment field
// access (types.go) generalized from marker segments to named
// attributes, and on dwt53.go's recursive halving of a dimension for
// successive transform levels, generalized here to mip/rip level
// sizing.
package header

import (
	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/exrerrors"
)

// PartType identifies what kind of image data a part stores.
type PartType string

const (
	TypeScanlineImage PartType = "scanlineimage"
	TypeTiledImage    PartType = "tiledimage"
	TypeDeepScanline  PartType = "deepscanline"
	TypeDeepTile      PartType = "deeptile"
)

func (t PartType) IsTiled() bool { return t == TypeTiledImage || t == TypeDeepTile }
func (t PartType) IsDeep() bool  { return t == TypeDeepScanline || t == TypeDeepTile }

// Part is one image part's header: an ordered attribute sequence plus
// accessors for the attributes block I/O and compression need. A
// Part is immutable for the lifetime of an I/O operation: callers
// build it once, then read or write blocks against it.
type Part struct {
	Attributes []attr.Attribute
	Section    string // for error messages, e.g. "part 0" or a part name
}

// NewPart wraps an attribute sequence. section is used to scope error
// messages so they identify the attribute/section/chunk at fault.
func NewPart(attrs []attr.Attribute, section string) *Part {
	return &Part{Attributes: attrs, Section: section}
}

func (p *Part) find(name string) (attr.Value, bool) {
	return attr.Find(p.Attributes, name)
}

func (p *Part) required(name string) (attr.Value, error) {
	v, ok := p.find(name)
	if !ok {
		return nil, exrerrors.Invalidf(p.Section, "missing required attribute %q", name)
	}
	return v, nil
}

// Channels returns the "channels" attribute.
func (p *Part) Channels() (attr.ChannelList, error) {
	v, err := p.required("channels")
	if err != nil {
		return nil, err
	}
	cl, ok := v.(attr.ChannelList)
	if !ok {
		return nil, exrerrors.Invalidf(p.Section, "channels attribute has wrong type %T", v)
	}
	return cl, nil
}

// Compression returns the "compression" attribute.
func (p *Part) Compression() (attr.Compression, error) {
	v, err := p.required("compression")
	if err != nil {
		return 0, err
	}
	c, ok := v.(attr.Compression)
	if !ok {
		return 0, exrerrors.Invalidf(p.Section, "compression attribute has wrong type %T", v)
	}
	return c, nil
}

// DataWindow returns the "dataWindow" attribute.
func (p *Part) DataWindow() (attr.Box2I, error) {
	v, err := p.required("dataWindow")
	if err != nil {
		return attr.Box2I{}, err
	}
	b, ok := v.(attr.Box2I)
	if !ok {
		return attr.Box2I{}, exrerrors.Invalidf(p.Section, "dataWindow attribute has wrong type %T", v)
	}
	return b, nil
}

// DisplayWindow returns the "displayWindow" attribute.
func (p *Part) DisplayWindow() (attr.Box2I, error) {
	v, err := p.required("displayWindow")
	if err != nil {
		return attr.Box2I{}, err
	}
	b, ok := v.(attr.Box2I)
	if !ok {
		return attr.Box2I{}, exrerrors.Invalidf(p.Section, "displayWindow attribute has wrong type %T", v)
	}
	return b, nil
}

// LineOrder returns the "lineOrder" attribute.
func (p *Part) LineOrder() (attr.LineOrder, error) {
	v, err := p.required("lineOrder")
	if err != nil {
		return 0, err
	}
	lo, ok := v.(attr.LineOrder)
	if !ok {
		return 0, exrerrors.Invalidf(p.Section, "lineOrder attribute has wrong type %T", v)
	}
	return lo, nil
}

// Name returns the "name" attribute, or "" if absent (single-part
// files need not carry one).
func (p *Part) Name() string {
	v, ok := p.find("name")
	if !ok {
		return ""
	}
	s, _ := v.(attr.String)
	return string(s)
}

// Type returns the "type" attribute, defaulting to scanlineimage when
// absent (single-part files predating the type attribute).
func (p *Part) Type() PartType {
	v, ok := p.find("type")
	if !ok {
		return TypeScanlineImage
	}
	s, _ := v.(attr.String)
	return PartType(s)
}

// Tiles returns the "tiles" attribute. Required when Type().IsTiled().
func (p *Part) Tiles() (attr.TileDesc, error) {
	v, err := p.required("tiles")
	if err != nil {
		return attr.TileDesc{}, err
	}
	td, ok := v.(attr.TileDesc)
	if !ok {
		return attr.TileDesc{}, exrerrors.Invalidf(p.Section, "tiles attribute has wrong type %T", v)
	}
	return td, nil
}

// DeclaredChunkCount returns the "chunkCount" attribute if present.
// Multipart and tiled files must carry one; single-part scanline files
// may omit it, with the count implied by geometry.
func (p *Part) DeclaredChunkCount() (int32, bool) {
	v, ok := p.find("chunkCount")
	if !ok {
		return 0, false
	}
	n, ok := v.(attr.Int)
	if !ok {
		return 0, false
	}
	return int32(n), true
}
