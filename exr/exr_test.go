package exr

import (
	"bytes"
	"testing"

	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/chunkio"
	"github.com/coreexr/go-openexr/deep"
	"github.com/coreexr/go-openexr/header"

	_ "github.com/coreexr/go-openexr/compress/piz"
	_ "github.com/coreexr/go-openexr/compress/rle"
	_ "github.com/coreexr/go-openexr/compress/zip"
)

// memSink is a growable byte buffer implementing io.Writer and
// io.WriterAt, so bitio.Writer can backpatch offset tables once
// chunks have been appended past them.
type memSink struct{ buf []byte }

func (m *memSink) Write(p []byte) (int, error) {
	m.buf = append(m.buf, p...)
	return len(p), nil
}

func (m *memSink) WriteAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	if end > len(m.buf) {
		t := make([]byte, end)
		copy(t, m.buf)
		m.buf = t
	}
	copy(m.buf[off:end], p)
	return len(p), nil
}

func rgbaChannels() attr.ChannelList {
	return attr.ChannelList{
		{Name: "A", Type: attr.PixelFloat, XSampling: 1, YSampling: 1},
		{Name: "B", Type: attr.PixelFloat, XSampling: 1, YSampling: 1},
		{Name: "G", Type: attr.PixelFloat, XSampling: 1, YSampling: 1},
		{Name: "R", Type: attr.PixelFloat, XSampling: 1, YSampling: 1},
	}
}

func scanlinePart(name string, channels attr.ChannelList, compression attr.Compression, dw attr.Box2I) *header.Part {
	attrs := []attr.Attribute{
		{Name: "channels", Value: channels},
		{Name: "compression", Value: compression},
		{Name: "dataWindow", Value: dw},
		{Name: "displayWindow", Value: dw},
		{Name: "lineOrder", Value: attr.IncreasingY},
		{Name: "type", Value: attr.String("scanlineimage")},
	}
	if name != "" {
		attrs = append(attrs, attr.Attribute{Name: "name", Value: attr.String(name)})
	}
	return header.NewPart(attrs, "test")
}

// buildScanlineBlocks covers dw with deterministic, non-repeating
// bytes so a block codec can't accidentally "succeed" on an all-zero
// input.
func buildScanlineBlocks(dw attr.Box2I, compression attr.Compression, channels attr.ChannelList) []*chunkio.Block {
	bpp := 0
	for _, c := range channels {
		bpp += c.Type.SampleSize()
	}
	width := int(dw.Width())
	var blocks []*chunkio.Block
	y := int(dw.YMin)
	for y <= int(dw.YMax) {
		rect := chunkio.PlanScanline(dw, compression, int32(y))
		data := make([]byte, rect.Height*width*bpp)
		for i := range data {
			data[i] = byte((y*61 + i*7) % 256)
		}
		blocks = append(blocks, &chunkio.Block{Rect: rect, Data: data})
		y = rect.Y1
	}
	return blocks
}

func roundTripScanlinePart(t *testing.T, compression attr.Compression) {
	t.Helper()
	dw := attr.Box2I{XMin: 0, YMin: 0, XMax: 3, YMax: 3}
	channels := rgbaChannels()
	p := scanlinePart("", channels, compression, dw)
	blocks := buildScanlineBlocks(dw, compression, channels)

	sink := &memSink{}
	w, err := Create(sink, "test", VersionField{}, []*header.Part{p})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WritePart(0, blocks, chunkio.Options{}); err != nil {
		t.Fatal(err)
	}

	f, err := Open(bytes.NewReader(sink.buf), "test")
	if err != nil {
		t.Fatal(err)
	}
	if f.PartCount() != 1 {
		t.Fatalf("part count %d, want 1", f.PartCount())
	}
	got, err := f.ReadPart(0, chunkio.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(blocks) {
		t.Fatalf("got %d blocks, want %d", len(got), len(blocks))
	}
	for i := range blocks {
		if !bytes.Equal(got[i].Data, blocks[i].Data) {
			t.Fatalf("block %d data mismatch", i)
		}
	}
}

// TestRoundTripUncompressed4x4RGBA round-trips a small uncompressed
// scanline part through Create/WritePart and Open/ReadPart.
func TestRoundTripUncompressed4x4RGBA(t *testing.T) {
	roundTripScanlinePart(t, attr.CompressionNone)
}

// TestRoundTripRLE is TestRoundTripUncompressed4x4RGBA with RLE
// compression enabled.
func TestRoundTripRLE(t *testing.T) {
	roundTripScanlinePart(t, attr.CompressionRLE)
}

// TestRoundTripPIZ round-trips a 16x16 scanline part compressed with
// PIZ, exercising a full wavelet/Huffman block.
func TestRoundTripPIZ(t *testing.T) {
	dw := attr.Box2I{XMin: 0, YMin: 0, XMax: 15, YMax: 15}
	roundTripPIZLikePart(t, dw, attr.CompressionPIZ)
}

func roundTripPIZLikePart(t *testing.T, dw attr.Box2I, compression attr.Compression) {
	t.Helper()
	channels := rgbaChannels()
	p := scanlinePart("", channels, compression, dw)
	blocks := buildScanlineBlocks(dw, compression, channels)

	sink := &memSink{}
	w, err := Create(sink, "test", VersionField{}, []*header.Part{p})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WritePart(0, blocks, chunkio.Options{}); err != nil {
		t.Fatal(err)
	}

	f, err := Open(bytes.NewReader(sink.buf), "test")
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.ReadPart(0, chunkio.Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i := range blocks {
		if !bytes.Equal(got[i].Data, blocks[i].Data) {
			t.Fatalf("block %d data mismatch", i)
		}
	}
}

// TestRoundTripZIP16BlockCoverage round-trips a window taller than
// one ZIP group of 16 scanlines, checking every chunk (including the
// final, partial one) survives round trip.
func TestRoundTripZIP16BlockCoverage(t *testing.T) {
	dw := attr.Box2I{XMin: 0, YMin: 0, XMax: 7, YMax: 33} // 34 rows: 16, 16, 2
	channels := rgbaChannels()
	p := scanlinePart("", channels, attr.CompressionZIP, dw)
	blocks := buildScanlineBlocks(dw, attr.CompressionZIP, channels)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 chunks (16/16/2), got %d", len(blocks))
	}
	if blocks[2].Rect.Height != 2 {
		t.Fatalf("final chunk height %d, want 2", blocks[2].Rect.Height)
	}

	sink := &memSink{}
	w, err := Create(sink, "test", VersionField{}, []*header.Part{p})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WritePart(0, blocks, chunkio.Options{Parallel: true, Workers: 4}); err != nil {
		t.Fatal(err)
	}

	f, err := Open(bytes.NewReader(sink.buf), "test")
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.ReadPart(0, chunkio.Options{Parallel: true, Workers: 4})
	if err != nil {
		t.Fatal(err)
	}
	for i := range blocks {
		if !bytes.Equal(got[i].Data, blocks[i].Data) {
			t.Fatalf("block %d data mismatch", i)
		}
	}
}

func tiledPart(name string, channels attr.ChannelList, dw attr.Box2I, td attr.TileDesc) *header.Part {
	attrs := []attr.Attribute{
		{Name: "channels", Value: channels},
		{Name: "compression", Value: attr.CompressionNone},
		{Name: "dataWindow", Value: dw},
		{Name: "displayWindow", Value: dw},
		{Name: "lineOrder", Value: attr.IncreasingY},
		{Name: "type", Value: attr.String("tiledimage")},
		{Name: "tiles", Value: td},
		{Name: "name", Value: attr.String(name)},
	}
	return header.NewPart(attrs, "test")
}

func buildTileBlocks(dw attr.Box2I, td attr.TileDesc, channels attr.ChannelList) []*chunkio.Block {
	bpp := 0
	for _, c := range channels {
		bpp += c.Type.SampleSize()
	}
	w := int(dw.Width())
	h := int(dw.Height())
	tw, th := int(td.XSize), int(td.YSize)
	var blocks []*chunkio.Block
	for ty := 0; ty*th < h; ty++ {
		for tx := 0; tx*tw < w; tx++ {
			rect := chunkio.PlanTile(dw, td, int32(tx), int32(ty), 0, 0)
			data := make([]byte, rect.Width*rect.Height*bpp)
			for i := range data {
				data[i] = byte((tx*17 + ty*29 + i) % 256)
			}
			blocks = append(blocks, &chunkio.Block{Rect: rect, Data: data})
		}
	}
	return blocks
}

// TestMultipartRoundTrip writes a multipart file with one scanline
// part and one tiled part, out of index order, and reads it back
// through the random-access (offset-table driven) path so each part's
// chunks needn't be contiguous on disk.
func TestMultipartRoundTrip(t *testing.T) {
	dw1 := attr.Box2I{XMin: 0, YMin: 0, XMax: 3, YMax: 3}
	channels := rgbaChannels()
	p1 := scanlinePart("beauty", channels, attr.CompressionNone, dw1)
	blocks1 := buildScanlineBlocks(dw1, attr.CompressionNone, channels)

	dw2 := attr.Box2I{XMin: 0, YMin: 0, XMax: 9, YMax: 9}
	td := attr.TileDesc{XSize: 4, YSize: 4, Mode: attr.LevelOne}
	p2 := tiledPart("detail", channels, dw2, td)
	blocks2 := buildTileBlocks(dw2, td, channels)

	sink := &memSink{}
	w, err := Create(sink, "test", VersionField{}, []*header.Part{p1, p2})
	if err != nil {
		t.Fatal(err)
	}
	if !w.vf.Multipart {
		t.Fatal("expected Multipart flag to be set automatically for a 2-part file")
	}
	if err := w.WritePart(1, blocks2, chunkio.Options{}); err != nil {
		t.Fatal(err)
	}
	if err := w.WritePart(0, blocks1, chunkio.Options{}); err != nil {
		t.Fatal(err)
	}

	f, err := Open(bytes.NewReader(sink.buf), "test")
	if err != nil {
		t.Fatal(err)
	}
	if f.PartCount() != 2 {
		t.Fatalf("part count %d, want 2", f.PartCount())
	}
	got1, err := f.ReadPart(0, chunkio.Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i := range blocks1 {
		if !bytes.Equal(got1[i].Data, blocks1[i].Data) {
			t.Fatalf("part 0 block %d mismatch", i)
		}
	}
	got2, err := f.ReadPart(1, chunkio.Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i := range blocks2 {
		if !bytes.Equal(got2[i].Data, blocks2[i].Data) {
			t.Fatalf("part 1 block %d mismatch", i)
		}
	}
}

// TestChunkCountMismatchRejected checks that a declared chunkCount
// attribute disagreeing with the geometry-derived count is rejected
// before any chunk is read.
func TestChunkCountMismatchRejected(t *testing.T) {
	dw := attr.Box2I{XMin: 0, YMin: 0, XMax: 3, YMax: 3}
	channels := rgbaChannels()
	p := scanlinePart("", channels, attr.CompressionNone, dw)
	p.Attributes = append(p.Attributes, attr.Attribute{Name: "chunkCount", Value: attr.Int(999)})

	if _, err := Create(&memSink{}, "test", VersionField{}, []*header.Part{p}); err == nil {
		t.Fatal("expected Create to reject a chunkCount/geometry mismatch")
	}
}

func deepScanlinePart(channels attr.ChannelList, compression attr.Compression, dw attr.Box2I) *header.Part {
	attrs := []attr.Attribute{
		{Name: "channels", Value: channels},
		{Name: "compression", Value: compression},
		{Name: "dataWindow", Value: dw},
		{Name: "displayWindow", Value: dw},
		{Name: "lineOrder", Value: attr.IncreasingY},
		{Name: "type", Value: attr.String("deepscanline")},
		{Name: "name", Value: attr.String("depth")},
	}
	return header.NewPart(attrs, "test")
}

func depthChannels() attr.ChannelList {
	return attr.ChannelList{
		{Name: "Z", Type: attr.PixelFloat, XSampling: 1, YSampling: 1},
	}
}

func buildDeepBlocks(dw attr.Box2I, channels attr.ChannelList) []*deep.Block {
	width := int(dw.Width())
	rsize := 0
	for _, c := range channels {
		rsize += c.Type.SampleSize()
	}
	var blocks []*deep.Block
	for y := int(dw.YMin); y <= int(dw.YMax); y++ {
		offsets := make([]int32, width)
		var cum int32
		for x := 0; x < width; x++ {
			cum += int32(x%3 + 1)
			offsets[x] = cum
		}
		samples := make([]byte, int(cum)*rsize)
		for i := range samples {
			samples[i] = byte((y*13 + i) % 256)
		}
		blocks = append(blocks, &deep.Block{
			Rect:    chunkio.Rect{Kind: chunkio.KindDeepScanline, Y0: y, Y1: y + 1, Width: width, Height: 1},
			Offsets: offsets,
			Samples: samples,
		})
	}
	return blocks
}

// TestDeepScanlineFileRoundTrip round-trips a single-part deep
// scanline file through the full Create/Open path, not just package
// deep in isolation.
func TestDeepScanlineFileRoundTrip(t *testing.T) {
	dw := attr.Box2I{XMin: 0, YMin: 0, XMax: 3, YMax: 3}
	channels := depthChannels()
	p := deepScanlinePart(channels, attr.CompressionRLE, dw)
	blocks := buildDeepBlocks(dw, channels)

	sink := &memSink{}
	w, err := Create(sink, "test", VersionField{}, []*header.Part{p})
	if err != nil {
		t.Fatal(err)
	}
	if !w.vf.DeepData {
		t.Fatal("expected DeepData flag to be set automatically for a deep part")
	}
	if err := w.WriteDeepPart(0, blocks); err != nil {
		t.Fatal(err)
	}

	f, err := Open(bytes.NewReader(sink.buf), "test")
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.ReadDeepPart(0)
	if err != nil {
		t.Fatal(err)
	}
	for i := range blocks {
		if !bytes.Equal(got[i].Samples, blocks[i].Samples) {
			t.Fatalf("block %d sample mismatch", i)
		}
		for j := range blocks[i].Offsets {
			if got[i].Offsets[j] != blocks[i].Offsets[j] {
				t.Fatalf("block %d offset %d mismatch", i, j)
			}
		}
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	buf := make([]byte, 8)
	if _, err := Open(bytes.NewReader(buf), "test"); err == nil {
		t.Fatal("expected error for bad magic number")
	}
}

func TestVersionBelowTwoRejectsMultipartFlag(t *testing.T) {
	vf := VersionField{Version: 1, Multipart: true}
	var buf bytes.Buffer
	bw := bitio.NewWriter(&buf)
	if err := writeMagicAndVersion(bw, "test", vf); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(bytes.NewReader(buf.Bytes()), "test"); err == nil {
		t.Fatal("expected rejection of multipart flag under version 2")
	}
}

// blockQueue adapts a pre-built block slice into the pull-one-at-a-time
// shape PartSource.Next expects.
func blockQueue(blocks []*chunkio.Block) func() (*chunkio.Block, bool, error) {
	i := 0
	return func() (*chunkio.Block, bool, error) {
		if i >= len(blocks) {
			return nil, false, nil
		}
		b := blocks[i]
		i++
		return b, true, nil
	}
}

// TestWriteParts checks that the round-robin scheduler interleaves two
// parts' chunks (confirmed via each part's offset-table entries
// landing in ascending, alternating file position) and that both
// parts still round-trip byte-for-byte through the random-access
// reader.
func TestWriteParts(t *testing.T) {
	dw1 := attr.Box2I{XMin: 0, YMin: 0, XMax: 7, YMax: 33} // 34 rows -> 3 ZIP chunks
	channels := rgbaChannels()
	p1 := scanlinePart("beauty", channels, attr.CompressionZIP, dw1)
	blocks1 := buildScanlineBlocks(dw1, attr.CompressionZIP, channels)

	dw2 := attr.Box2I{XMin: 0, YMin: 0, XMax: 9, YMax: 9}
	td := attr.TileDesc{XSize: 4, YSize: 4, Mode: attr.LevelOne}
	p2 := tiledPart("detail", channels, dw2, td)
	blocks2 := buildTileBlocks(dw2, td, channels)
	if len(blocks1) < 2 || len(blocks2) < 2 {
		t.Fatalf("test setup: both parts need at least 2 chunks, got %d and %d", len(blocks1), len(blocks2))
	}

	sink := &memSink{}
	sources := []PartSource{
		{Part: p1, Next: blockQueue(blocks1)},
		{Part: p2, Next: blockQueue(blocks2)},
	}
	if err := WriteParts(sink, "test", VersionField{}, sources); err != nil {
		t.Fatal(err)
	}

	f, err := Open(bytes.NewReader(sink.buf), "test")
	if err != nil {
		t.Fatal(err)
	}
	if f.PartCount() != 2 {
		t.Fatalf("part count %d, want 2", f.PartCount())
	}

	// Round-robin interleaving means part 1's first chunk lands between
	// part 0's first and second chunks on disk.
	off0 := f.offsets[0]
	off1 := f.offsets[1]
	if len(off1) > 0 && !(off0[0] < off1[0] && off1[0] < off0[1]) {
		t.Fatalf("expected part 1's first chunk offset (%d) between part 0's first two (%d, %d)", off1[0], off0[0], off0[1])
	}

	got1, err := f.ReadPart(0, chunkio.Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i := range blocks1 {
		if !bytes.Equal(got1[i].Data, blocks1[i].Data) {
			t.Fatalf("part 0 block %d mismatch", i)
		}
	}
	got2, err := f.ReadPart(1, chunkio.Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i := range blocks2 {
		if !bytes.Equal(got2[i].Data, blocks2[i].Data) {
			t.Fatalf("part 1 block %d mismatch", i)
		}
	}
}
