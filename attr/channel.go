package attr

import (
	"sort"

	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/exrerrors"
)

// PixelType is a channel's sample encoding.
type PixelType int32

const (
	PixelUint PixelType = iota
	PixelHalf
	PixelFloat
)

func (p PixelType) String() string {
	switch p {
	case PixelUint:
		return "uint"
	case PixelHalf:
		return "half"
	case PixelFloat:
		return "float"
	default:
		return "unknown"
	}
}

// SampleSize returns the on-disk byte size of one sample of this type.
func (p PixelType) SampleSize() int {
	switch p {
	case PixelUint, PixelFloat:
		return 4
	case PixelHalf:
		return 2
	default:
		return 0
	}
}

// Channel is one entry of a "chlist" attribute: a named sample plane
// with its pixel type, linear-interpretation hint, and subsampling
// factors.
type Channel struct {
	Name          string
	Type          PixelType
	PLinear       bool
	XSampling     int32
	YSampling     int32
}

// ChannelList is the "chlist" attribute type: the ordered set of
// sample planes stored per pixel. Entries are always kept sorted by
// name on disk; ReadHeader preserves file order but a writer must sort
// before calling WriteTo.
type ChannelList []Channel

func (ChannelList) TypeName() string { return "chlist" }

func (v ChannelList) ByteSize() int {
	n := 1 // trailing NUL that terminates the list
	for _, c := range v {
		n += len(c.Name) + 1 // name + NUL
		n += 4                // pixel type
		n += 1                // pLinear
		n += 3                // reserved
		n += 4                // xSampling
		n += 4                // ySampling
	}
	return n
}

func (v ChannelList) WriteTo(w *bitio.Writer, section string) error {
	for _, c := range v {
		if err := writeText(w, section, c.Name, MaxNameLong); err != nil {
			return err
		}
		if err := w.WriteI32(section, int32(c.Type)); err != nil {
			return err
		}
		var linear uint8
		if c.PLinear {
			linear = 1
		}
		if err := w.WriteU8(section, linear); err != nil {
			return err
		}
		if err := w.WriteBytes(section, []byte{0, 0, 0}); err != nil {
			return err
		}
		if err := w.WriteI32(section, c.XSampling); err != nil {
			return err
		}
		if err := w.WriteI32(section, c.YSampling); err != nil {
			return err
		}
	}
	return w.WriteU8(section, 0)
}

// Sorted returns a copy of v ordered alphabetically by channel name,
// the canonical on-disk order.
func (v ChannelList) Sorted() ChannelList {
	out := make(ChannelList, len(v))
	copy(out, v)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Find looks up a channel by name.
func (v ChannelList) Find(name string) (Channel, bool) {
	for _, c := range v {
		if c.Name == name {
			return c, true
		}
	}
	return Channel{}, false
}

func decodeChannelList(r *bitio.Reader, section string, size int) (Value, error) {
	var list ChannelList
	seen := map[string]bool{}
	for {
		name, err := readText(r, section, MaxNameLong)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return list, nil
		}
		if seen[name] {
			return nil, exrerrors.Invalidf(section, "duplicate channel %q", name)
		}
		seen[name] = true

		pt, err := r.ReadI32(section)
		if err != nil {
			return nil, err
		}
		if pt != int32(PixelUint) && pt != int32(PixelHalf) && pt != int32(PixelFloat) {
			return nil, exrerrors.Invalidf(section, "channel %q has unrecognized pixel type %d", name, pt)
		}
		linear, err := r.ReadU8(section)
		if err != nil {
			return nil, err
		}
		if err := r.ReadExact(section, make([]byte, 3)); err != nil {
			return nil, err
		}
		xs, err := r.ReadI32(section)
		if err != nil {
			return nil, err
		}
		ys, err := r.ReadI32(section)
		if err != nil {
			return nil, err
		}
		if xs < 1 || ys < 1 {
			return nil, exrerrors.Invalidf(section, "channel %q has non-positive sampling (%d,%d)", name, xs, ys)
		}
		list = append(list, Channel{
			Name:      name,
			Type:      PixelType(pt),
			PLinear:   linear != 0,
			XSampling: xs,
			YSampling: ys,
		})
	}
}
