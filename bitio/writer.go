package bitio

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/coreexr/go-openexr/exrerrors"
)

// Writer wraps a byte sink and offers little-endian scalar and array
// writes, symmetric with Reader.
type Writer struct {
	w      io.Writer
	wa     io.WriterAt
	offset int64
}

// NewWriter wraps w. If w also implements io.WriterAt, WriteAt becomes
// available for backpatching (the offset table is written as a
// placeholder, then patched in once every chunk's real offset is
// known).
func NewWriter(w io.Writer) *Writer {
	wa, _ := w.(io.WriterAt)
	return &Writer{w: w, wa: wa}
}

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int64 { return w.offset }

func (w *Writer) write(section string, buf []byte) error {
	n, err := w.w.Write(buf)
	w.offset += int64(n)
	if err != nil {
		return exrerrors.IOf(section, err, "write failed")
	}
	return nil
}

// WriteAt writes buf at an absolute offset without disturbing the
// sequential write cursor. Requires an io.WriterAt sink.
func (w *Writer) WriteAt(section string, buf []byte, off int64) error {
	if w.wa == nil {
		return exrerrors.Invalidf(section, "underlying sink does not support random access")
	}
	if _, err := w.wa.WriteAt(buf, off); err != nil {
		return exrerrors.IOf(section, err, "write at offset %d", off)
	}
	return nil
}

// WriteU8 writes one unsigned byte.
func (w *Writer) WriteU8(section string, v uint8) error {
	return w.write(section, []byte{v})
}

// WriteI8 writes one signed byte.
func (w *Writer) WriteI8(section string, v int8) error {
	return w.WriteU8(section, uint8(v))
}

// WriteU16 writes a little-endian uint16.
func (w *Writer) WriteU16(section string, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return w.write(section, b[:])
}

// WriteI16 writes a little-endian int16.
func (w *Writer) WriteI16(section string, v int16) error {
	return w.WriteU16(section, uint16(v))
}

// WriteU32 writes a little-endian uint32.
func (w *Writer) WriteU32(section string, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return w.write(section, b[:])
}

// WriteI32 writes a little-endian int32.
func (w *Writer) WriteI32(section string, v int32) error {
	return w.WriteU32(section, uint32(v))
}

// WriteU64 writes a little-endian uint64.
func (w *Writer) WriteU64(section string, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return w.write(section, b[:])
}

// WriteF32 writes a little-endian IEEE 754 float32.
func (w *Writer) WriteF32(section string, v float32) error {
	return w.WriteU32(section, math.Float32bits(v))
}

// WriteF64 writes a little-endian IEEE 754 float64.
func (w *Writer) WriteF64(section string, v float64) error {
	return w.WriteU64(section, math.Float64bits(v))
}

// WriteHalf writes a little-endian IEEE 754 binary16.
func (w *Writer) WriteHalf(section string, v Half) error {
	return w.WriteU16(section, uint16(v))
}

// WriteBytes writes buf verbatim.
func (w *Writer) WriteBytes(section string, buf []byte) error {
	return w.write(section, buf)
}
