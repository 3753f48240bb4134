// Package bitio provides little-endian binary I/O primitives over any
// byte source, with allocation capped to a soft ceiling so a
// maliciously large declared length cannot OOM the process before the
// real bytes have even arrived.
package bitio

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/coreexr/go-openexr/exrerrors"
)

// DefaultSoftCap bounds the initial allocation for any read whose
// length comes from the file itself, guarding against a corrupt or
// hostile length field forcing a huge up-front allocation. Callers
// reading attribute payloads or chunk bodies may pass a tighter cap.
const DefaultSoftCap = 1 << 20 // 1 MiB

// Reader wraps a byte source and offers little-endian scalar and array
// reads. It supports random access when the underlying source is an
// io.ReaderAt (files); otherwise reads are forward-only and Offset is
// just a running counter, matching jpeg2000/codestream's Parser which
// tracks offset over an in-memory buffer.
type Reader struct {
	r      io.Reader
	ra     io.ReaderAt
	offset int64
	peeked bool
	peek   byte
}

// NewReader wraps r. If r also implements io.ReaderAt, CanSeek reports
// true and ReadAt is available; SeekTo works when r implements
// io.Seeker (used when loading the offset table eagerly and when chunks
// need to be visited out of file order).
func NewReader(r io.Reader) *Reader {
	ra, _ := r.(io.ReaderAt)
	return &Reader{r: r, ra: ra}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 { return r.offset }

// CanSeek reports whether random access is available.
func (r *Reader) CanSeek() bool { return r.ra != nil }

// SeekTo repositions a seekable reader to an absolute byte offset.
// Sources that do not implement io.Seeker return an error: the engine
// is expected to fall back to sequential scanning in that case.
func (r *Reader) SeekTo(section string, off int64) error {
	if seeker, ok := r.r.(io.Seeker); ok {
		if _, err := seeker.Seek(off, io.SeekStart); err != nil {
			return exrerrors.IOf(section, err, "seek to %d", off)
		}
		r.offset = off
		r.peeked = false
		return nil
	}
	return exrerrors.Invalidf(section, "underlying source does not support seeking")
}

// ReadAt reads exactly len(buf) bytes at an absolute offset without
// disturbing the sequential read cursor. Requires a seekable/ReaderAt
// source; used for random chunk access once the offset table is loaded.
func (r *Reader) ReadAt(section string, buf []byte, off int64) error {
	if r.ra == nil {
		return exrerrors.Invalidf(section, "underlying source does not support random access")
	}
	n, err := r.ra.ReadAt(buf, off)
	if err != nil && !(err == io.EOF && n == len(buf)) {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return exrerrors.Invalidf(section, "truncated read at offset %d: wanted %d bytes, got %d", off, len(buf), n)
		}
		return exrerrors.IOf(section, err, "read at offset %d", off)
	}
	return nil
}

func (r *Reader) fill(section string, buf []byte) error {
	if r.peeked && len(buf) > 0 {
		buf[0] = r.peek
		r.peeked = false
		if len(buf) == 1 {
			r.offset++
			return nil
		}
		n, err := io.ReadFull(r.r, buf[1:])
		r.offset += int64(n) + 1
		return mapReadErr(section, err)
	}
	n, err := io.ReadFull(r.r, buf)
	r.offset += int64(n)
	return mapReadErr(section, err)
}

func mapReadErr(section string, err error) error {
	switch err {
	case nil:
		return nil
	case io.EOF, io.ErrUnexpectedEOF:
		return exrerrors.Invalidf(section, "unexpected end of input")
	default:
		return exrerrors.IOf(section, err, "read failed")
	}
}

// PeekU8 returns the next byte without consuming it.
func (r *Reader) PeekU8(section string) (byte, error) {
	if r.peeked {
		return r.peek, nil
	}
	var b [1]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, mapReadErr(section, err)
	}
	r.peek = b[0]
	r.peeked = true
	return b[0], nil
}

// ReadU8 reads one unsigned byte.
func (r *Reader) ReadU8(section string) (uint8, error) {
	var b [1]byte
	if err := r.fill(section, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadI8 reads one signed byte.
func (r *Reader) ReadI8(section string) (int8, error) {
	v, err := r.ReadU8(section)
	return int8(v), err
}

// ReadU16 reads a little-endian uint16.
func (r *Reader) ReadU16(section string) (uint16, error) {
	var b [2]byte
	if err := r.fill(section, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

// ReadI16 reads a little-endian int16.
func (r *Reader) ReadI16(section string) (int16, error) {
	v, err := r.ReadU16(section)
	return int16(v), err
}

// ReadU32 reads a little-endian uint32.
func (r *Reader) ReadU32(section string) (uint32, error) {
	var b [4]byte
	if err := r.fill(section, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadI32 reads a little-endian int32.
func (r *Reader) ReadI32(section string) (int32, error) {
	v, err := r.ReadU32(section)
	return int32(v), err
}

// ReadU64 reads a little-endian uint64.
func (r *Reader) ReadU64(section string) (uint64, error) {
	var b [8]byte
	if err := r.fill(section, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// ReadF32 reads a little-endian IEEE 754 float32.
func (r *Reader) ReadF32(section string) (float32, error) {
	v, err := r.ReadU32(section)
	return math.Float32frombits(v), err
}

// ReadF64 reads a little-endian IEEE 754 float64.
func (r *Reader) ReadF64(section string) (float64, error) {
	v, err := r.ReadU64(section)
	return math.Float64frombits(v), err
}

// ReadHalf reads a little-endian IEEE 754 binary16.
func (r *Reader) ReadHalf(section string) (Half, error) {
	v, err := r.ReadU16(section)
	return Half(v), err
}

// ReadBytes reads exactly n bytes, allocating at most min(n, softCap)
// up front. Growth beyond the cap only happens as real bytes arrive.
func (r *Reader) ReadBytes(section string, n int, softCap int) ([]byte, error) {
	if n < 0 {
		return nil, exrerrors.Invalidf(section, "negative length %d", n)
	}
	if softCap <= 0 {
		softCap = DefaultSoftCap
	}
	initial := n
	if initial > softCap {
		initial = softCap
	}
	buf := make([]byte, 0, initial)
	const chunk = 64 * 1024
	for len(buf) < n {
		want := n - len(buf)
		if want > chunk {
			want = chunk
		}
		start := len(buf)
		buf = append(buf, make([]byte, want)...)
		if err := r.fill(section, buf[start:start+want]); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// ReadExact reads exactly len(buf) bytes into the caller-provided
// buffer (no allocation). Used once a size is already bounds-checked
// against geometry (e.g. a block whose size is pixel_area*bytes).
func (r *Reader) ReadExact(section string, buf []byte) error {
	return r.fill(section, buf)
}
