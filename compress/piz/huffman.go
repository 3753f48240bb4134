// Canonical Huffman coding over PIZ's 16-bit wavelet-coefficient
// alphabet, extended from jpeg/common.HuffmanTable's Bits[16]/Values
// canonical-table shape (there built for an 8-bit DCT-coefficient
// alphabet) to 16-bit symbols and codes up to maxCodeLength bits
// (OpenEXR's own PIZ codec allows codes up to 58 bits; this
// implementation keeps tables compact and never needs more than
// maxCodeLength for the alphabet sizes a single compressed block
// produces).
package piz

import (
	"container/heap"
	"sort"

	"github.com/coreexr/go-openexr/exrerrors"
)

const maxCodeLength = 32

type huffEntry struct {
	symbol uint16
	length uint8
	code   uint32
}

type treeNode struct {
	freq        int
	symbol      uint16
	isLeaf      bool
	left, right *treeNode
}

type nodeHeap []*treeNode

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].freq != h[j].freq {
		return h[i].freq < h[j].freq
	}
	return h[i].symbol < h[j].symbol
}
func (h nodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(*treeNode)) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// buildLengths derives a code length per distinct symbol from
// occurrence frequency via a standard Huffman tree, then caps lengths
// at maxCodeLength (degenerate single-symbol or heavily skewed inputs
// otherwise produce unbounded-depth trees).
func buildLengths(freq map[uint16]int) map[uint16]uint8 {
	if len(freq) == 1 {
		for s := range freq {
			return map[uint16]uint8{s: 1}
		}
	}

	h := &nodeHeap{}
	heap.Init(h)
	for s, f := range freq {
		heap.Push(h, &treeNode{freq: f, symbol: s, isLeaf: true})
	}
	for h.Len() > 1 {
		a := heap.Pop(h).(*treeNode)
		b := heap.Pop(h).(*treeNode)
		heap.Push(h, &treeNode{freq: a.freq + b.freq, left: a, right: b})
	}
	root := heap.Pop(h).(*treeNode)

	lengths := make(map[uint16]uint8, len(freq))
	var walk func(n *treeNode, depth int)
	walk = func(n *treeNode, depth int) {
		if n.isLeaf {
			d := depth
			if d < 1 {
				d = 1
			}
			if d > maxCodeLength {
				d = maxCodeLength
			}
			lengths[n.symbol] = uint8(d)
			return
		}
		walk(n.left, depth+1)
		walk(n.right, depth+1)
	}
	walk(root, 0)
	return lengths
}

// canonicalCodes assigns canonical Huffman codes given per-symbol
// lengths: symbols are ordered by (length, symbol value) and codes
// increment in that order, per the standard canonical-code
// construction (the same ordering jpeg/common.HuffmanTable.Build
// relies on, generalized here from its 1-256 value range to u16).
func canonicalCodes(lengths map[uint16]uint8) []huffEntry {
	entries := make([]huffEntry, 0, len(lengths))
	for s, l := range lengths {
		entries = append(entries, huffEntry{symbol: s, length: l})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].length != entries[j].length {
			return entries[i].length < entries[j].length
		}
		return entries[i].symbol < entries[j].symbol
	})

	code := uint32(0)
	prevLen := uint8(0)
	for i := range entries {
		code <<= uint(entries[i].length - prevLen)
		entries[i].code = code
		code++
		prevLen = entries[i].length
	}
	return entries
}

// encodeTable serializes the (symbol, length) pairs needed to rebuild
// the canonical table on decode. This is a simplified, self-describing
// framing rather than OpenEXR's run-length "SHORT_ZEROCODE_RUN" table
// encoding; byte-identical reference output isn't a goal here, so a
// simpler but equally round-trippable framing is used instead.
func encodeTable(entries []huffEntry) []byte {
	sorted := append([]huffEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].symbol < sorted[j].symbol })

	out := make([]byte, 0, 4+3*len(sorted))
	n := uint32(len(sorted))
	out = append(out, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	for _, e := range sorted {
		out = append(out, byte(e.symbol), byte(e.symbol>>8), e.length)
	}
	return out
}

func decodeTable(data []byte) ([]huffEntry, int, error) {
	if len(data) < 4 {
		return nil, 0, exrerrors.Invalidf("piz", "huffman table truncated before count")
	}
	n := int(uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24)
	pos := 4
	if n < 0 || pos+n*3 > len(data) {
		return nil, 0, exrerrors.Invalidf("piz", "huffman table declares %d symbols, exceeds available data", n)
	}
	lengths := make(map[uint16]uint8, n)
	for i := 0; i < n; i++ {
		sym := uint16(data[pos]) | uint16(data[pos+1])<<8
		length := data[pos+2]
		if length == 0 || length > maxCodeLength {
			return nil, 0, exrerrors.Invalidf("piz", "huffman table entry for symbol %d has invalid length %d", sym, length)
		}
		lengths[sym] = length
		pos += 3
	}
	if len(lengths) != n {
		return nil, 0, exrerrors.Invalidf("piz", "huffman table contains duplicate symbols")
	}
	return canonicalCodes(lengths), pos, nil
}

// huffEncode builds a canonical table for symbols and emits
// table-bytes followed by the packed code stream.
func huffEncode(symbols []uint16) []byte {
	freq := make(map[uint16]int)
	for _, s := range symbols {
		freq[s]++
	}
	lengths := buildLengths(freq)
	entries := canonicalCodes(lengths)
	tableBytes := encodeTable(entries)

	codeOf := make(map[uint16]huffEntry, len(entries))
	for _, e := range entries {
		codeOf[e.symbol] = e
	}

	w := &bitWriter{}
	for _, s := range symbols {
		e := codeOf[s]
		w.writeBits(uint64(e.code), int(e.length))
	}
	return append(tableBytes, w.flush()...)
}

// huffDecode reads a table + code stream produced by huffEncode and
// decodes exactly count symbols.
func huffDecode(data []byte, count int) ([]uint16, error) {
	entries, tableLen, err := decodeTable(data)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		if count == 0 {
			return nil, nil
		}
		return nil, exrerrors.Invalidf("piz", "empty huffman table but %d symbols expected", count)
	}

	type lenCode struct {
		length uint8
		code   uint32
		symbol uint16
	}
	byLen := make(map[uint8][]lenCode)
	for _, e := range entries {
		byLen[e.length] = append(byLen[e.length], lenCode{e.length, e.code, e.symbol})
	}
	lookup := make(map[uint8]map[uint32]uint16)
	for l, list := range byLen {
		m := make(map[uint32]uint16, len(list))
		for _, lc := range list {
			m[lc.code] = lc.symbol
		}
		lookup[l] = m
	}

	r := newBitReader(data[tableLen:])
	out := make([]uint16, 0, count)
	for len(out) < count {
		var code uint32
		matched := false
		for l := uint8(1); l <= maxCodeLength; l++ {
			bit, ok := r.readBit()
			if !ok {
				return nil, exrerrors.Invalidf("piz", "huffman bitstream truncated at symbol %d", len(out))
			}
			code = (code << 1) | uint32(bit)
			if m, exists := lookup[l]; exists {
				if sym, found := m[code]; found {
					out = append(out, sym)
					matched = true
					break
				}
			}
		}
		if !matched {
			return nil, exrerrors.Invalidf("piz", "no matching huffman code by bit %d at symbol %d", maxCodeLength, len(out))
		}
	}
	return out, nil
}
