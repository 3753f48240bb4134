package attr

import (
	"bytes"
	"testing"

	"github.com/coreexr/go-openexr/bitio"
)

func TestChannelListRoundTrip(t *testing.T) {
	list := ChannelList{
		{Name: "B", Type: PixelHalf, XSampling: 1, YSampling: 1},
		{Name: "G", Type: PixelHalf, XSampling: 1, YSampling: 1},
		{Name: "R", Type: PixelHalf, XSampling: 1, YSampling: 1},
		{Name: "A", Type: PixelFloat, PLinear: true, XSampling: 2, YSampling: 2},
	}

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	if err := list.WriteTo(w, "test"); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if buf.Len() != list.ByteSize() {
		t.Fatalf("wrote %d bytes, ByteSize() = %d", buf.Len(), list.ByteSize())
	}

	r := bitio.NewReader(bytes.NewReader(buf.Bytes()))
	v, err := decodeChannelList(r, "test", list.ByteSize())
	if err != nil {
		t.Fatalf("decodeChannelList: %v", err)
	}
	got := v.(ChannelList)
	if len(got) != len(list) {
		t.Fatalf("got %d channels, want %d", len(got), len(list))
	}
	for i, c := range list {
		if got[i] != c {
			t.Errorf("channel %d = %+v, want %+v", i, got[i], c)
		}
	}
}

func TestChannelListSortedAndFind(t *testing.T) {
	list := ChannelList{
		{Name: "B", Type: PixelHalf, XSampling: 1, YSampling: 1},
		{Name: "R", Type: PixelHalf, XSampling: 1, YSampling: 1},
		{Name: "A", Type: PixelHalf, XSampling: 1, YSampling: 1},
	}
	sorted := list.Sorted()
	want := []string{"A", "B", "R"}
	for i, w := range want {
		if sorted[i].Name != w {
			t.Errorf("sorted[%d] = %q, want %q", i, sorted[i].Name, w)
		}
	}
	if _, ok := list.Find("R"); !ok {
		t.Error("expected to find channel R")
	}
	if _, ok := list.Find("Z"); ok {
		t.Error("did not expect to find channel Z")
	}
}

func TestChannelListRejectsBadSampling(t *testing.T) {
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	_ = w.WriteU8("test", 'R')
	_ = w.WriteU8("test", 0)
	_ = w.WriteI32("test", int32(PixelHalf))
	_ = w.WriteU8("test", 0)
	_ = w.WriteBytes("test", []byte{0, 0, 0})
	_ = w.WriteI32("test", 0) // invalid: must be >= 1
	_ = w.WriteI32("test", 1)
	_ = w.WriteU8("test", 0) // terminator

	r := bitio.NewReader(bytes.NewReader(buf.Bytes()))
	if _, err := decodeChannelList(r, "test", buf.Len()); err == nil {
		t.Fatal("expected error for non-positive sampling")
	}
}
