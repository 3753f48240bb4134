package chunkio

import (
	"github.com/coreexr/go-openexr/bitio"
	"github.com/coreexr/go-openexr/exrerrors"
)

// OffsetTable is one part's chunk offset table: count entries, each
// the absolute byte offset of a chunk's ReadIndex state within the
// file.
type OffsetTable []uint64

// ReadOffsetTable reads count consecutive u64 entries. A
// chunkCount/offset-table-length mismatch is the caller's
// responsibility to detect once expectedCount is known from header
// geometry; this function only enforces that count itself is
// non-negative and bounded.
func ReadOffsetTable(r *bitio.Reader, section string, count int) (OffsetTable, error) {
	if count < 0 {
		return nil, exrerrors.Invalidf(section, "negative chunk count %d", count)
	}
	const maxReasonable = 1 << 28 // 268M chunks; far beyond any real file, guards against a corrupt huge count
	if count > maxReasonable {
		return nil, exrerrors.Invalidf(section, "chunk count %d exceeds sane bound", count)
	}
	table := make(OffsetTable, count)
	for i := range table {
		v, err := r.ReadU64(section)
		if err != nil {
			return nil, err
		}
		table[i] = v
	}
	return table, nil
}

// WritePlaceholder reserves count zeroed u64 slots and returns the
// absolute file offset at which the table begins, so it can be
// backpatched once every chunk's real offset is known: space is
// reserved up front, chunks are written, then the table is
// backpatched.
func WritePlaceholder(w *bitio.Writer, section string, count int) (tableOffset int64, err error) {
	tableOffset = w.Offset()
	for i := 0; i < count; i++ {
		if err := w.WriteU64(section, 0); err != nil {
			return 0, err
		}
	}
	return tableOffset, nil
}

// Backpatch overwrites the placeholder table at tableOffset with the
// now-known absolute offsets. Requires a random-access sink.
func Backpatch(w *bitio.Writer, section string, tableOffset int64, table OffsetTable) error {
	buf := make([]byte, 8*len(table))
	for i, v := range table {
		putU64LE(buf[i*8:], v)
	}
	return w.WriteAt(section, buf, tableOffset)
}

func putU64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}
