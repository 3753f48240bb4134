package attr

import (
	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/exrerrors"
)

// Int is the "int" attribute type: a signed 32-bit integer.
type Int int32

func (Int) TypeName() string { return "int" }
func (Int) ByteSize() int    { return 4 }
func (v Int) WriteTo(w *bitio.Writer, s string) error { return w.WriteI32(s, int32(v)) }

// Float is the "float" attribute type.
type Float float32

func (Float) TypeName() string { return "float" }
func (Float) ByteSize() int    { return 4 }
func (v Float) WriteTo(w *bitio.Writer, s string) error { return w.WriteF32(s, float32(v)) }

// Double is the "double" attribute type.
type Double float64

func (Double) TypeName() string { return "double" }
func (Double) ByteSize() int    { return 8 }
func (v Double) WriteTo(w *bitio.Writer, s string) error { return w.WriteF64(s, float64(v)) }

// String is the "string" attribute type: raw bytes of the declared
// size, no internal length prefix.
type String string

func (String) TypeName() string { return "string" }
func (v String) ByteSize() int  { return len(v) }
func (v String) WriteTo(w *bitio.Writer, s string) error { return w.WriteBytes(s, []byte(v)) }

// StringVector is the "stringvector" type: repeated {length:i32, bytes}.
type StringVector []string

func (StringVector) TypeName() string { return "stringvector" }
func (v StringVector) ByteSize() int {
	n := 0
	for _, s := range v {
		n += 4 + len(s)
	}
	return n
}
func (v StringVector) WriteTo(w *bitio.Writer, s string) error {
	for _, item := range v {
		if err := w.WriteI32(s, int32(len(item))); err != nil {
			return err
		}
		if err := w.WriteBytes(s, []byte(item)); err != nil {
			return err
		}
	}
	return nil
}

// Rational is the "rational" type: a numerator/denominator pair.
type Rational struct {
	Numerator   int32
	Denominator uint32
}

func (Rational) TypeName() string { return "rational" }
func (Rational) ByteSize() int    { return 8 }
func (v Rational) WriteTo(w *bitio.Writer, s string) error {
	if err := w.WriteI32(s, v.Numerator); err != nil {
		return err
	}
	return w.WriteU32(s, v.Denominator)
}

// V2i is the "v2i" type.
type V2i struct{ X, Y int32 }

func (V2i) TypeName() string { return "v2i" }
func (V2i) ByteSize() int    { return 8 }
func (v V2i) WriteTo(w *bitio.Writer, s string) error {
	if err := w.WriteI32(s, v.X); err != nil {
		return err
	}
	return w.WriteI32(s, v.Y)
}

// V2f is the "v2f" type.
type V2f struct{ X, Y float32 }

func (V2f) TypeName() string { return "v2f" }
func (V2f) ByteSize() int    { return 8 }
func (v V2f) WriteTo(w *bitio.Writer, s string) error {
	if err := w.WriteF32(s, v.X); err != nil {
		return err
	}
	return w.WriteF32(s, v.Y)
}

// V3i is the "v3i" type.
type V3i struct{ X, Y, Z int32 }

func (V3i) TypeName() string { return "v3i" }
func (V3i) ByteSize() int    { return 12 }
func (v V3i) WriteTo(w *bitio.Writer, s string) error {
	for _, c := range [...]int32{v.X, v.Y, v.Z} {
		if err := w.WriteI32(s, c); err != nil {
			return err
		}
	}
	return nil
}

// V3f is the "v3f" type.
type V3f struct{ X, Y, Z float32 }

func (V3f) TypeName() string { return "v3f" }
func (V3f) ByteSize() int    { return 12 }
func (v V3f) WriteTo(w *bitio.Writer, s string) error {
	for _, c := range [...]float32{v.X, v.Y, v.Z} {
		if err := w.WriteF32(s, c); err != nil {
			return err
		}
	}
	return nil
}

// Box2I is the "box2i" type: an inclusive integer pixel rectangle.
type Box2I struct{ XMin, YMin, XMax, YMax int32 }

func (Box2I) TypeName() string { return "box2i" }
func (Box2I) ByteSize() int    { return 16 }
func (v Box2I) WriteTo(w *bitio.Writer, s string) error {
	for _, c := range [...]int32{v.XMin, v.YMin, v.XMax, v.YMax} {
		if err := w.WriteI32(s, c); err != nil {
			return err
		}
	}
	return nil
}

// Width returns the inclusive rectangle's pixel width. Callers must
// have already validated XMax >= XMin-1 (empty allowed transiently
// during construction, rejected by header validation).
func (v Box2I) Width() int64 { return int64(v.XMax) - int64(v.XMin) + 1 }

// Height returns the inclusive rectangle's pixel height.
func (v Box2I) Height() int64 { return int64(v.YMax) - int64(v.YMin) + 1 }

// Area returns Width*Height, or 0 if either dimension is non-positive.
func (v Box2I) Area() int64 {
	w, h := v.Width(), v.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Box2F is the "box2f" type.
type Box2F struct{ XMin, YMin, XMax, YMax float32 }

func (Box2F) TypeName() string { return "box2f" }
func (Box2F) ByteSize() int    { return 16 }
func (v Box2F) WriteTo(w *bitio.Writer, s string) error {
	for _, c := range [...]float32{v.XMin, v.YMin, v.XMax, v.YMax} {
		if err := w.WriteF32(s, c); err != nil {
			return err
		}
	}
	return nil
}

// M33f is the "m33f" type: a row-major 3x3 float matrix.
type M33f [9]float32

func (M33f) TypeName() string { return "m33f" }
func (M33f) ByteSize() int    { return 36 }
func (v M33f) WriteTo(w *bitio.Writer, s string) error {
	for _, c := range v {
		if err := w.WriteF32(s, c); err != nil {
			return err
		}
	}
	return nil
}

// M44f is the "m44f" type: a row-major 4x4 float matrix.
type M44f [16]float32

func (M44f) TypeName() string { return "m44f" }
func (M44f) ByteSize() int    { return 64 }
func (v M44f) WriteTo(w *bitio.Writer, s string) error {
	for _, c := range v {
		if err := w.WriteF32(s, c); err != nil {
			return err
		}
	}
	return nil
}

// Chromaticities is the "chromaticities" type: CIE xy pairs for RGB
// primaries and the white point.
type Chromaticities struct {
	RedX, RedY     float32
	GreenX, GreenY float32
	BlueX, BlueY   float32
	WhiteX, WhiteY float32
}

func (Chromaticities) TypeName() string { return "chromaticities" }
func (Chromaticities) ByteSize() int    { return 32 }
func (v Chromaticities) WriteTo(w *bitio.Writer, s string) error {
	for _, c := range [...]float32{v.RedX, v.RedY, v.GreenX, v.GreenY, v.BlueX, v.BlueY, v.WhiteX, v.WhiteY} {
		if err := w.WriteF32(s, c); err != nil {
			return err
		}
	}
	return nil
}

// Compression is the "compression" enum byte attribute.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionRLE
	CompressionZIPS // ZIP, one scanline per block
	CompressionZIP  // ZIP16, sixteen scanlines per block
	CompressionPIZ
	CompressionPXR24
	CompressionB44
	CompressionB44A
	CompressionDWAA
	CompressionDWAB
)

func (Compression) TypeName() string { return "compression" }
func (Compression) ByteSize() int    { return 1 }
func (v Compression) WriteTo(w *bitio.Writer, s string) error { return w.WriteU8(s, uint8(v)) }

func (v Compression) String() string {
	names := [...]string{"None", "RLE", "ZIPS", "ZIP", "PIZ", "PXR24", "B44", "B44A", "DWAA", "DWAB"}
	if int(v) < len(names) {
		return names[v]
	}
	return "Unknown"
}

// LineOrder is the "lineOrder" enum byte attribute.
type LineOrder uint8

const (
	IncreasingY LineOrder = iota
	DecreasingY
	RandomY
)

func (LineOrder) TypeName() string { return "lineOrder" }
func (LineOrder) ByteSize() int    { return 1 }
func (v LineOrder) WriteTo(w *bitio.Writer, s string) error { return w.WriteU8(s, uint8(v)) }

// Envmap is the "envmap" enum byte attribute.
type Envmap uint8

const (
	EnvmapLatLong Envmap = iota
	EnvmapCube
)

func (Envmap) TypeName() string { return "envmap" }
func (Envmap) ByteSize() int    { return 1 }
func (v Envmap) WriteTo(w *bitio.Writer, s string) error { return w.WriteU8(s, uint8(v)) }

// DeepImageState is the "deepImageState" enum byte attribute.
type DeepImageState uint8

const (
	DeepStateMessy DeepImageState = iota
	DeepStateSorted
	DeepStateNonOverlapping
	DeepStateTidy
)

func (DeepImageState) TypeName() string { return "deepImageState" }
func (DeepImageState) ByteSize() int    { return 1 }
func (v DeepImageState) WriteTo(w *bitio.Writer, s string) error { return w.WriteU8(s, uint8(v)) }

// KeyCode is the "keycode" type: film edge-code identification.
type KeyCode struct {
	FilmMfcCode, FilmType, Prefix, Count, PerfOffset int32
	PerfsPerFrame, PerfsPerCount                     int32
}

func (KeyCode) TypeName() string { return "keycode" }
func (KeyCode) ByteSize() int    { return 28 }
func (v KeyCode) WriteTo(w *bitio.Writer, s string) error {
	for _, c := range [...]int32{v.FilmMfcCode, v.FilmType, v.Prefix, v.Count, v.PerfOffset, v.PerfsPerFrame, v.PerfsPerCount} {
		if err := w.WriteI32(s, c); err != nil {
			return err
		}
	}
	return nil
}

// TimeCode is the "timecode" type: SMPTE time and user bits.
type TimeCode struct{ TimeAndFlags, UserData uint32 }

func (TimeCode) TypeName() string { return "timecode" }
func (TimeCode) ByteSize() int    { return 8 }
func (v TimeCode) WriteTo(w *bitio.Writer, s string) error {
	if err := w.WriteU32(s, v.TimeAndFlags); err != nil {
		return err
	}
	return w.WriteU32(s, v.UserData)
}

// Preview is the "preview" type: a small RGBA thumbnail.
type Preview struct {
	Width, Height uint32
	Pixels        []byte // width*height*4 bytes, RGBA
}

func (Preview) TypeName() string { return "preview" }
func (v Preview) ByteSize() int  { return 8 + len(v.Pixels) }
func (v Preview) WriteTo(w *bitio.Writer, s string) error {
	if err := w.WriteU32(s, v.Width); err != nil {
		return err
	}
	if err := w.WriteU32(s, v.Height); err != nil {
		return err
	}
	return w.WriteBytes(s, v.Pixels)
}

// RoundingMode controls mip/rip level-size rounding.
type RoundingMode uint8

const (
	RoundDown RoundingMode = iota
	RoundUp
)

// LevelMode controls how many mip/rip levels a tiled part stores.
type LevelMode uint8

const (
	LevelOne LevelMode = iota
	LevelMip
	LevelRip
)

// TileDesc is the "tiledesc" type: tile size plus level/rounding mode,
// packed per OpenEXR's single mode-byte convention (low nibble = level
// mode, high nibble = rounding mode).
type TileDesc struct {
	XSize, YSize uint32
	Mode         LevelMode
	Rounding     RoundingMode
}

func (TileDesc) TypeName() string { return "tiledesc" }
func (TileDesc) ByteSize() int    { return 9 }
func (v TileDesc) WriteTo(w *bitio.Writer, s string) error {
	if err := w.WriteU32(s, v.XSize); err != nil {
		return err
	}
	if err := w.WriteU32(s, v.YSize); err != nil {
		return err
	}
	mode := uint8(v.Mode) | uint8(v.Rounding)<<4
	return w.WriteU8(s, mode)
}

// Unknown preserves an attribute of a type this codec does not
// recognize, byte-for-byte, so forward compatibility is never broken
// by a round trip.
type Unknown struct {
	Type string
	Data []byte
}

func (v Unknown) TypeName() string { return v.Type }
func (v Unknown) ByteSize() int    { return len(v.Data) }
func (v Unknown) WriteTo(w *bitio.Writer, s string) error { return w.WriteBytes(s, v.Data) }

// decode dispatches on the on-disk type name and validates that the
// declared size matches the type's expected byte_size where the type
// has a fixed size (the size field in the attribute preamble must
// match byte_size). Variable-size types (string, stringvector,
// chlist, preview, unknown) validate structurally instead.
func decode(r *bitio.Reader, section, typeName string, size int) (Value, error) {
	checkFixed := func(want int) error {
		if size != want {
			return exrerrors.Invalidf(section, "attribute type %q declared size %d, expected %d", typeName, size, want)
		}
		return nil
	}

	switch typeName {
	case "int":
		if err := checkFixed(4); err != nil {
			return nil, err
		}
		v, err := r.ReadI32(section)
		return Int(v), err
	case "float":
		if err := checkFixed(4); err != nil {
			return nil, err
		}
		v, err := r.ReadF32(section)
		return Float(v), err
	case "double":
		if err := checkFixed(8); err != nil {
			return nil, err
		}
		v, err := r.ReadF64(section)
		return Double(v), err
	case "string":
		b, err := r.ReadBytes(section, size, 1<<20)
		if err != nil {
			return nil, err
		}
		return String(b), nil
	case "stringvector":
		return decodeStringVector(r, section, size)
	case "rational":
		if err := checkFixed(8); err != nil {
			return nil, err
		}
		n, err := r.ReadI32(section)
		if err != nil {
			return nil, err
		}
		d, err := r.ReadU32(section)
		return Rational{n, d}, err
	case "v2i":
		if err := checkFixed(8); err != nil {
			return nil, err
		}
		x, err := r.ReadI32(section)
		if err != nil {
			return nil, err
		}
		y, err := r.ReadI32(section)
		return V2i{x, y}, err
	case "v2f":
		if err := checkFixed(8); err != nil {
			return nil, err
		}
		x, err := r.ReadF32(section)
		if err != nil {
			return nil, err
		}
		y, err := r.ReadF32(section)
		return V2f{x, y}, err
	case "v3i":
		if err := checkFixed(12); err != nil {
			return nil, err
		}
		var v V3i
		var err error
		if v.X, err = r.ReadI32(section); err != nil {
			return nil, err
		}
		if v.Y, err = r.ReadI32(section); err != nil {
			return nil, err
		}
		v.Z, err = r.ReadI32(section)
		return v, err
	case "v3f":
		if err := checkFixed(12); err != nil {
			return nil, err
		}
		var v V3f
		var err error
		if v.X, err = r.ReadF32(section); err != nil {
			return nil, err
		}
		if v.Y, err = r.ReadF32(section); err != nil {
			return nil, err
		}
		v.Z, err = r.ReadF32(section)
		return v, err
	case "box2i":
		if err := checkFixed(16); err != nil {
			return nil, err
		}
		var v Box2I
		var err error
		if v.XMin, err = r.ReadI32(section); err != nil {
			return nil, err
		}
		if v.YMin, err = r.ReadI32(section); err != nil {
			return nil, err
		}
		if v.XMax, err = r.ReadI32(section); err != nil {
			return nil, err
		}
		v.YMax, err = r.ReadI32(section)
		return v, err
	case "box2f":
		if err := checkFixed(16); err != nil {
			return nil, err
		}
		var v Box2F
		var err error
		if v.XMin, err = r.ReadF32(section); err != nil {
			return nil, err
		}
		if v.YMin, err = r.ReadF32(section); err != nil {
			return nil, err
		}
		if v.XMax, err = r.ReadF32(section); err != nil {
			return nil, err
		}
		v.YMax, err = r.ReadF32(section)
		return v, err
	case "m33f":
		if err := checkFixed(36); err != nil {
			return nil, err
		}
		var v M33f
		for i := range v {
			f, err := r.ReadF32(section)
			if err != nil {
				return nil, err
			}
			v[i] = f
		}
		return v, nil
	case "m44f":
		if err := checkFixed(64); err != nil {
			return nil, err
		}
		var v M44f
		for i := range v {
			f, err := r.ReadF32(section)
			if err != nil {
				return nil, err
			}
			v[i] = f
		}
		return v, nil
	case "chromaticities":
		if err := checkFixed(32); err != nil {
			return nil, err
		}
		var v Chromaticities
		fields := []*float32{&v.RedX, &v.RedY, &v.GreenX, &v.GreenY, &v.BlueX, &v.BlueY, &v.WhiteX, &v.WhiteY}
		for _, f := range fields {
			val, err := r.ReadF32(section)
			if err != nil {
				return nil, err
			}
			*f = val
		}
		return v, nil
	case "compression":
		if err := checkFixed(1); err != nil {
			return nil, err
		}
		v, err := r.ReadU8(section)
		return Compression(v), err
	case "lineOrder":
		if err := checkFixed(1); err != nil {
			return nil, err
		}
		v, err := r.ReadU8(section)
		return LineOrder(v), err
	case "envmap":
		if err := checkFixed(1); err != nil {
			return nil, err
		}
		v, err := r.ReadU8(section)
		return Envmap(v), err
	case "deepImageState":
		if err := checkFixed(1); err != nil {
			return nil, err
		}
		v, err := r.ReadU8(section)
		return DeepImageState(v), err
	case "keycode":
		if err := checkFixed(28); err != nil {
			return nil, err
		}
		var v KeyCode
		fields := []*int32{&v.FilmMfcCode, &v.FilmType, &v.Prefix, &v.Count, &v.PerfOffset, &v.PerfsPerFrame, &v.PerfsPerCount}
		for _, f := range fields {
			val, err := r.ReadI32(section)
			if err != nil {
				return nil, err
			}
			*f = val
		}
		return v, nil
	case "timecode":
		if err := checkFixed(8); err != nil {
			return nil, err
		}
		t, err := r.ReadU32(section)
		if err != nil {
			return nil, err
		}
		u, err := r.ReadU32(section)
		return TimeCode{t, u}, err
	case "tiledesc":
		if err := checkFixed(9); err != nil {
			return nil, err
		}
		xs, err := r.ReadU32(section)
		if err != nil {
			return nil, err
		}
		ys, err := r.ReadU32(section)
		if err != nil {
			return nil, err
		}
		mode, err := r.ReadU8(section)
		if err != nil {
			return nil, err
		}
		return TileDesc{XSize: xs, YSize: ys, Mode: LevelMode(mode & 0x0f), Rounding: RoundingMode((mode >> 4) & 0x0f)}, nil
	case "preview":
		return decodePreview(r, section, size)
	case "chlist":
		return decodeChannelList(r, section, size)
	default:
		data, err := r.ReadBytes(section, size, 1<<20)
		if err != nil {
			return nil, err
		}
		return Unknown{Type: typeName, Data: data}, nil
	}
}

func decodeStringVector(r *bitio.Reader, section string, size int) (Value, error) {
	var out StringVector
	remaining := size
	for remaining > 0 {
		if remaining < 4 {
			return nil, exrerrors.Invalidf(section, "stringvector truncated before length prefix")
		}
		l, err := r.ReadI32(section)
		if err != nil {
			return nil, err
		}
		remaining -= 4
		if l < 0 || int(l) > remaining {
			return nil, exrerrors.Invalidf(section, "stringvector entry length %d exceeds remaining %d", l, remaining)
		}
		b, err := r.ReadBytes(section, int(l), 1<<16)
		if err != nil {
			return nil, err
		}
		out = append(out, string(b))
		remaining -= int(l)
	}
	return out, nil
}

func decodePreview(r *bitio.Reader, section string, size int) (Value, error) {
	w, err := r.ReadU32(section)
	if err != nil {
		return nil, err
	}
	h, err := r.ReadU32(section)
	if err != nil {
		return nil, err
	}
	want := int64(w) * int64(h) * 4
	if want != int64(size)-8 {
		return nil, exrerrors.Invalidf(section, "preview size mismatch: %dx%d implies %d bytes, declared %d", w, h, want, size-8)
	}
	pixels, err := r.ReadBytes(section, int(want), 1<<20)
	if err != nil {
		return nil, err
	}
	return Preview{Width: w, Height: h, Pixels: pixels}, nil
}
