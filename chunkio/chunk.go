// Package chunkio implements the OpenEXR block I/O engine: the
// four-state chunk state machine, the per-part offset table, and a
// scheduler that turns a file into a stream of decompressed pixel
// blocks (or the reverse on write).
//
// Grounded on jpeg2000/codestream's marker-by-marker segment parser
// (types.go, parser.go) generalized here from codestream markers to
// chunk coordinate records, and on package header for the geometry
// (scanlines-per-chunk, tile/mip sizing) that turns a chunk index into
// a pixel rectangle.
package chunkio

import (
	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/exrerrors"
	"github.com/coreexr/go-openexr/header"
)

// Kind distinguishes the four chunk coordinate shapes a part's type
// implies.
type Kind int

const (
	KindScanline Kind = iota
	KindTile
	KindDeepScanline
	KindDeepTile
)

func kindFor(t header.PartType) Kind {
	switch t {
	case header.TypeTiledImage:
		return KindTile
	case header.TypeDeepScanline:
		return KindDeepScanline
	case header.TypeDeepTile:
		return KindDeepTile
	default:
		return KindScanline
	}
}

// Coord holds the coordinate fields read during the ReadCoordinates
// state, before the length/payload fields. Only the fields relevant to
// Kind are meaningful.
type Coord struct {
	Kind Kind

	Y int32 // scanline, deep scanline

	TileX, TileY   int32 // tile, deep tile
	LevelX, LevelY int32

	// Deep-only sizes: a deep chunk's coordinate block carries
	// offset_table_size, packed_sample_size, and unpacked_sample_size
	// as u64 fields ahead of the payload.
	OffsetTableSize    uint64
	PackedSampleSize   uint64
	UnpackedSampleSize uint64
}

// ReadCoordinates implements the chunk state machine's
// Idle->ReadIndex->ReadCoordinates transition for one chunk: it reads
// the optional part index (multipart files only) and the
// kind-appropriate coordinate fields. The length/payload states are
// handled separately by readOneChunk (this package) and package deep's
// readOneDeepChunk
// since their shape differs (single length-prefixed blob vs. two
// independently-sized deep sections).
func ReadCoordinates(r *bitio.Reader, section string, multipart bool, kind Kind) (partIndex int32, coord Coord, err error) {
	coord.Kind = kind
	if multipart {
		partIndex, err = r.ReadI32(section)
		if err != nil {
			return 0, coord, err
		}
	}

	switch kind {
	case KindScanline:
		coord.Y, err = r.ReadI32(section)
	case KindDeepScanline:
		if coord.Y, err = r.ReadI32(section); err != nil {
			return partIndex, coord, err
		}
		err = readDeepSizes(r, section, &coord)
	case KindTile:
		err = readTileCoord(r, section, &coord)
	case KindDeepTile:
		if err = readTileCoord(r, section, &coord); err != nil {
			return partIndex, coord, err
		}
		err = readDeepSizes(r, section, &coord)
	default:
		err = exrerrors.Invalidf(section, "unrecognized chunk kind %d", kind)
	}
	return partIndex, coord, err
}

func readTileCoord(r *bitio.Reader, section string, c *Coord) (err error) {
	if c.TileX, err = r.ReadI32(section); err != nil {
		return err
	}
	if c.TileY, err = r.ReadI32(section); err != nil {
		return err
	}
	if c.LevelX, err = r.ReadI32(section); err != nil {
		return err
	}
	c.LevelY, err = r.ReadI32(section)
	return err
}

func readDeepSizes(r *bitio.Reader, section string, c *Coord) (err error) {
	if c.OffsetTableSize, err = r.ReadU64(section); err != nil {
		return err
	}
	if c.PackedSampleSize, err = r.ReadU64(section); err != nil {
		return err
	}
	c.UnpackedSampleSize, err = r.ReadU64(section)
	return err
}

// WriteCoordinates is the write-side inverse of ReadCoordinates.
func WriteCoordinates(w *bitio.Writer, section string, multipart bool, partIndex int32, c Coord) error {
	if multipart {
		if err := w.WriteI32(section, partIndex); err != nil {
			return err
		}
	}
	switch c.Kind {
	case KindScanline:
		return w.WriteI32(section, c.Y)
	case KindDeepScanline:
		if err := w.WriteI32(section, c.Y); err != nil {
			return err
		}
		return writeDeepSizes(w, section, c)
	case KindTile:
		return writeTileCoord(w, section, c)
	case KindDeepTile:
		if err := writeTileCoord(w, section, c); err != nil {
			return err
		}
		return writeDeepSizes(w, section, c)
	default:
		return exrerrors.Invalidf(section, "unrecognized chunk kind %d", c.Kind)
	}
}

func writeTileCoord(w *bitio.Writer, section string, c Coord) error {
	for _, v := range [...]int32{c.TileX, c.TileY, c.LevelX, c.LevelY} {
		if err := w.WriteI32(section, v); err != nil {
			return err
		}
	}
	return nil
}

func writeDeepSizes(w *bitio.Writer, section string, c Coord) error {
	for _, v := range [...]uint64{c.OffsetTableSize, c.PackedSampleSize, c.UnpackedSampleSize} {
		if err := w.WriteU64(section, v); err != nil {
			return err
		}
	}
	return nil
}

// Rect describes the pixel region one non-deep chunk covers: an
// absolute scanline range for scanline parts, or a clipped tile
// rectangle within a mip/rip level for tiled parts.
type Rect struct {
	Kind           Kind
	Y0, Y1         int // [Y0,Y1) absolute scanline range, scanline parts only
	LevelX, LevelY int
	TileX, TileY   int // tile index, not pixel position
	Width, Height  int // pixel dimensions covered by this chunk
}

// PlanScanline computes the Rect for a scanline chunk starting at y,
// clipped to the data window.
func PlanScanline(dw attr.Box2I, c attr.Compression, y int32) Rect {
	width := int(dw.Width())
	linesPerChunk := header.ScanlinesPerChunk(c)
	y0 := int(y)
	remaining := int(dw.YMax) - y0 + 1
	h := linesPerChunk
	if h > remaining {
		h = remaining
	}
	return Rect{Kind: KindScanline, Y0: y0, Y1: y0 + h, Width: width, Height: h}
}

// PlanTile computes the Rect for a tile chunk, clipped to its mip/rip
// level's dimensions.
func PlanTile(dw attr.Box2I, td attr.TileDesc, tileX, tileY, levelX, levelY int32) Rect {
	levelW := header.LevelSize(int(dw.Width()), int(levelX), td.Rounding)
	levelH := header.LevelSize(int(dw.Height()), int(levelY), td.Rounding)
	x0 := int(tileX) * int(td.XSize)
	y0 := int(tileY) * int(td.YSize)
	w := int(td.XSize)
	if x0+w > levelW {
		w = levelW - x0
	}
	h := int(td.YSize)
	if y0+h > levelH {
		h = levelH - y0
	}
	return Rect{
		Kind: KindTile, LevelX: int(levelX), LevelY: int(levelY),
		TileX: int(tileX), TileY: int(tileY), Width: w, Height: h,
	}
}
