package header

import (
	"testing"

	"github.com/coreexr/go-openexr/attr"
)

func scanlinePart(channels attr.ChannelList, compression attr.Compression, dw attr.Box2I) *Part {
	attrs := []attr.Attribute{
		{Name: "channels", Value: channels},
		{Name: "compression", Value: compression},
		{Name: "dataWindow", Value: dw},
		{Name: "displayWindow", Value: dw},
		{Name: "lineOrder", Value: attr.IncreasingY},
		{Name: "pixelAspectRatio", Value: attr.Float(1)},
		{Name: "screenWindowCenter", Value: attr.V2f{}},
		{Name: "screenWindowWidth", Value: attr.Float(1)},
	}
	return NewPart(attrs, "test")
}

func rgbaChannels() attr.ChannelList {
	return attr.ChannelList{
		{Name: "A", Type: attr.PixelFloat, XSampling: 1, YSampling: 1},
		{Name: "B", Type: attr.PixelFloat, XSampling: 1, YSampling: 1},
		{Name: "G", Type: attr.PixelFloat, XSampling: 1, YSampling: 1},
		{Name: "R", Type: attr.PixelFloat, XSampling: 1, YSampling: 1},
	}
}

func TestValidateAcceptsWellFormedPart(t *testing.T) {
	dw := attr.Box2I{XMin: 0, YMin: 0, XMax: 3, YMax: 3}
	p := scanlinePart(rgbaChannels(), attr.CompressionNone, dw)
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUnsortedChannels(t *testing.T) {
	dw := attr.Box2I{XMin: 0, YMin: 0, XMax: 3, YMax: 3}
	unsorted := attr.ChannelList{
		{Name: "R", Type: attr.PixelFloat, XSampling: 1, YSampling: 1},
		{Name: "A", Type: attr.PixelFloat, XSampling: 1, YSampling: 1},
	}
	p := scanlinePart(unsorted, attr.CompressionNone, dw)
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for unsorted channels")
	}
}

func TestValidateRejectsDuplicateChannels(t *testing.T) {
	dw := attr.Box2I{XMin: 0, YMin: 0, XMax: 3, YMax: 3}
	dup := attr.ChannelList{
		{Name: "A", Type: attr.PixelFloat, XSampling: 1, YSampling: 1},
		{Name: "A", Type: attr.PixelFloat, XSampling: 1, YSampling: 1},
	}
	p := scanlinePart(dup, attr.CompressionNone, dw)
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for duplicate channels")
	}
}

func TestValidateRejectsZeroAreaDataWindow(t *testing.T) {
	dw := attr.Box2I{XMin: 5, YMin: 5, XMax: 4, YMax: 4}
	p := scanlinePart(rgbaChannels(), attr.CompressionNone, dw)
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for zero-area data window")
	}
}

func TestValidateRejectsRandomYOnScanline(t *testing.T) {
	dw := attr.Box2I{XMin: 0, YMin: 0, XMax: 3, YMax: 3}
	p := scanlinePart(rgbaChannels(), attr.CompressionNone, dw)
	for i, a := range p.Attributes {
		if a.Name == "lineOrder" {
			p.Attributes[i].Value = attr.RandomY
		}
	}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for RandomY on scanline part")
	}
}

func TestValidateRejectsTiledSamplingNotOne(t *testing.T) {
	dw := attr.Box2I{XMin: 0, YMin: 0, XMax: 63, YMax: 63}
	channels := attr.ChannelList{
		{Name: "Y", Type: attr.PixelHalf, XSampling: 2, YSampling: 2},
	}
	attrs := []attr.Attribute{
		{Name: "channels", Value: channels},
		{Name: "compression", Value: attr.CompressionNone},
		{Name: "dataWindow", Value: dw},
		{Name: "displayWindow", Value: dw},
		{Name: "lineOrder", Value: attr.IncreasingY},
		{Name: "pixelAspectRatio", Value: attr.Float(1)},
		{Name: "screenWindowWidth", Value: attr.Float(1)},
		{Name: "type", Value: attr.String("tiledimage")},
		{Name: "tiles", Value: attr.TileDesc{XSize: 32, YSize: 32, Mode: attr.LevelOne}},
	}
	p := NewPart(attrs, "test")
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for non-(1,1) sampling on tiled part")
	}
}

func TestValidateRejectsChunkCountMismatch(t *testing.T) {
	dw := attr.Box2I{XMin: 0, YMin: 0, XMax: 3, YMax: 3}
	p := scanlinePart(rgbaChannels(), attr.CompressionNone, dw)
	p.Attributes = append(p.Attributes, attr.Attribute{Name: "chunkCount", Value: attr.Int(999)})
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for chunkCount mismatch")
	}
}

func TestValidatePartsRejectsDuplicateNames(t *testing.T) {
	dw := attr.Box2I{XMin: 0, YMin: 0, XMax: 3, YMax: 3}
	p1 := scanlinePart(rgbaChannels(), attr.CompressionNone, dw)
	p1.Attributes = append(p1.Attributes, attr.Attribute{Name: "name", Value: attr.String("layer")}, attr.Attribute{Name: "type", Value: attr.String("scanlineimage")})
	p2 := scanlinePart(rgbaChannels(), attr.CompressionNone, dw)
	p2.Attributes = append(p2.Attributes, attr.Attribute{Name: "name", Value: attr.String("layer")}, attr.Attribute{Name: "type", Value: attr.String("scanlineimage")})
	if err := ValidateParts([]*Part{p1, p2}); err == nil {
		t.Fatal("expected error for duplicate part names")
	}
}
