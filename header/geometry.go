package header

import (
	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/exrerrors"
)

// LevelSize computes the pixel extent of mip/rip level L given the
// full-resolution extent base, per OpenEXR's tile-descriptor rounding
// rule:
//
//	Down: max(1, floor(base/2^L))
//	Up:   max(1, floor((base+1)/2^L))
func LevelSize(base int, level int, rounding attr.RoundingMode) int {
	if level <= 0 {
		if base < 1 {
			return 1
		}
		return base
	}
	var n int
	if rounding == attr.RoundUp {
		n = (base + 1) >> uint(level)
	} else {
		n = base >> uint(level)
	}
	if n < 1 {
		n = 1
	}
	return n
}

// LevelCount returns floor(log2(maxDim)) + 1, the number of mip levels
// spanning a dimension of size maxDim down to 1x1.
func LevelCount(maxDim int) int {
	if maxDim < 1 {
		return 1
	}
	count := 1
	for n := maxDim; n > 1; n >>= 1 {
		count++
	}
	return count
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// ScanlinesPerChunk returns the number of scanlines one chunk spans
// for a given compression, matching the OpenEXR file format's fixed
// per-compression chunk geometry.
func ScanlinesPerChunk(c attr.Compression) int {
	switch c {
	case attr.CompressionNone, attr.CompressionRLE, attr.CompressionZIPS:
		return 1
	case attr.CompressionZIP, attr.CompressionPXR24:
		return 16
	case attr.CompressionPIZ, attr.CompressionB44, attr.CompressionB44A:
		return 32
	case attr.CompressionDWAA:
		return 32
	case attr.CompressionDWAB:
		return 256
	default:
		return 1
	}
}

// ScanlineChunkCount computes the chunk count for a scanline part of
// the given data-window height and compression.
func ScanlineChunkCount(height int, c attr.Compression) int {
	return ceilDiv(height, ScanlinesPerChunk(c))
}

// TiledChunkCount sums, over every mip/rip level the tile descriptor
// implies, ceil(level_w/tile_w) * ceil(level_h/tile_h).
func TiledChunkCount(dw attr.Box2I, td attr.TileDesc) (int, error) {
	w := int(dw.Width())
	h := int(dw.Height())
	if w <= 0 || h <= 0 {
		return 0, exrerrors.Invalidf("header", "zero-area data window")
	}
	tw, th := int(td.XSize), int(td.YSize)
	if tw <= 0 || th <= 0 {
		return 0, exrerrors.Invalidf("header", "non-positive tile size %dx%d", tw, th)
	}

	count := 0
	switch td.Mode {
	case attr.LevelOne:
		count = ceilDiv(w, tw) * ceilDiv(h, th)
	case attr.LevelMip:
		levels := LevelCount(max(w, h))
		for l := 0; l < levels; l++ {
			lw := LevelSize(w, l, td.Rounding)
			lh := LevelSize(h, l, td.Rounding)
			count += ceilDiv(lw, tw) * ceilDiv(lh, th)
		}
	case attr.LevelRip:
		xLevels := LevelCount(w)
		yLevels := LevelCount(h)
		for ly := 0; ly < yLevels; ly++ {
			for lx := 0; lx < xLevels; lx++ {
				lw := LevelSize(w, lx, td.Rounding)
				lh := LevelSize(h, ly, td.Rounding)
				count += ceilDiv(lw, tw) * ceilDiv(lh, th)
			}
		}
	default:
		return 0, exrerrors.Invalidf("header", "unrecognized tile level mode %d", td.Mode)
	}
	return count, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ChunkCount computes the expected chunk count for p from its header
// geometry. Deep parts use the scanline/tile formula
// of their non-deep counterpart (one chunk per scanline-range or tile,
// regardless of compression, since deep compression never groups
// multiple scanlines per chunk — see package deep).
func (p *Part) ChunkCount() (int, error) {
	dw, err := p.DataWindow()
	if err != nil {
		return 0, err
	}
	t := p.Type()
	if t.IsTiled() {
		td, err := p.Tiles()
		if err != nil {
			return 0, err
		}
		return TiledChunkCount(dw, td)
	}
	if t.IsDeep() {
		return ceilDiv(int(dw.Height()), 1), nil
	}
	c, err := p.Compression()
	if err != nil {
		return 0, err
	}
	return ScanlineChunkCount(int(dw.Height()), c), nil
}
