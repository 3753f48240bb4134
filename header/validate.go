package header

import (
	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/exrerrors"
)

// Validate checks every invariant OpenEXR places on a single part's
// header. It does not check cross-part invariants (unique part names);
// call ValidateParts for that once every part is assembled.
func (p *Part) Validate() error {
	channels, err := p.Channels()
	if err != nil {
		return err
	}
	if err := validateChannelOrder(p.Section, channels); err != nil {
		return err
	}

	t := p.Type()
	if t.IsTiled() || t.IsDeep() {
		for _, c := range channels {
			if c.XSampling != 1 || c.YSampling != 1 {
				return exrerrors.Invalidf(p.Section, "channel %q has sampling (%d,%d), tiled/deep parts require (1,1)", c.Name, c.XSampling, c.YSampling)
			}
		}
	}

	dw, err := p.DataWindow()
	if err != nil {
		return err
	}
	if dw.Area() <= 0 {
		return exrerrors.Invalidf(p.Section, "data window %+v has zero or negative area", dw)
	}

	lo, err := p.LineOrder()
	if err != nil {
		return err
	}
	if lo == attr.RandomY && !t.IsTiled() {
		return exrerrors.Invalidf(p.Section, "lineOrder RandomY is not permitted on scanline parts")
	}

	if t.IsTiled() {
		if _, err := p.Tiles(); err != nil {
			return err
		}
	}

	computed, err := p.ChunkCount()
	if err != nil {
		return err
	}
	if declared, ok := p.DeclaredChunkCount(); ok {
		if int(declared) != computed {
			return exrerrors.Invalidf(p.Section, "chunkCount attribute says %d, geometry computes %d", declared, computed)
		}
	}

	return nil
}

func validateChannelOrder(section string, channels attr.ChannelList) error {
	seen := map[string]bool{}
	for i, c := range channels {
		if seen[c.Name] {
			return exrerrors.Invalidf(section, "duplicate channel name %q", c.Name)
		}
		seen[c.Name] = true
		if i > 0 && channels[i-1].Name >= c.Name {
			return exrerrors.Invalidf(section, "channel list is not sorted: %q precedes %q", channels[i-1].Name, c.Name)
		}
	}
	return nil
}

// ValidateParts checks cross-part invariants: every part must
// individually validate, and when more than one part exists, part
// names must be unique.
func ValidateParts(parts []*Part) error {
	names := map[string]bool{}
	multipart := len(parts) > 1
	for _, p := range parts {
		if err := p.Validate(); err != nil {
			return err
		}
		if multipart {
			name := p.Name()
			if name == "" {
				return exrerrors.Invalidf(p.Section, "multipart files require a name attribute on every part")
			}
			if names[name] {
				return exrerrors.Invalidf(p.Section, "duplicate part name %q", name)
			}
			names[name] = true
		}
	}
	return nil
}
