// Package compress defines the codec interface shared by every
// OpenEXR block compressor (RLE, ZIP, PIZ, PXR24, B44/B44A) and a
// registry that dispatches on the "compression" header attribute. It
// also holds the byte-deinterleave/delta preprocessing shared by RLE
// and ZIP, factored out as a single pair of pure functions on
// contiguous byte buffers.
//
// Grounded on codec.Codec/codec.Registry (sync.RWMutex-guarded map,
// package-level default-instance wrappers), narrowed from a
// name-or-UID key to the attr.Compression enum.
package compress

import (
	"sync"

	"github.com/coreexr/go-openexr/attr"
	"github.com/coreexr/go-openexr/exrerrors"
)

// Codec compresses and decompresses one native-endian uncompressed
// block for a given channel layout and pixel rectangle. Output must
// never exceed input size; a codec whose compressed form would be no
// smaller than the input emits the raw bytes instead. The RLE, PIZ and
// B44 codecs' Decompress return a payload of exactly expectedSize bytes
// unchanged as such a raw block.
type Codec interface {
	// Compression identifies which header enum value selects this codec.
	Compression() attr.Compression
	// Compress transforms a native-endian uncompressed block into its
	// little-endian on-disk form.
	Compress(block []byte, channels attr.ChannelList, width, height int) ([]byte, error)
	// Decompress is the inverse of Compress. expectedSize is
	// width*height*bytes_per_pixel; a mismatch is Invalid.
	Decompress(data []byte, channels attr.ChannelList, width, height, expectedSize int) ([]byte, error)
}

// Registry dispatches codecs by their Compression enum value.
type Registry struct {
	mu     sync.RWMutex
	codecs map[attr.Compression]Codec
}

var defaultRegistry = &Registry{codecs: make(map[attr.Compression]Codec)}

// Register adds codec to the default registry, keyed by its
// Compression() value.
func Register(codec Codec) { defaultRegistry.Register(codec) }

// Get retrieves a codec by its Compression enum value.
func Get(c attr.Compression) (Codec, error) { return defaultRegistry.Get(c) }

func (r *Registry) Register(codec Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[codec.Compression()] = codec
}

func (r *Registry) Get(c attr.Compression) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codec, ok := r.codecs[c]
	if !ok {
		if c == attr.CompressionNone {
			return nil, exrerrors.NotSupportedf("compression", "no codec registered for None (caller should bypass the registry for stored blocks)")
		}
		return nil, exrerrors.NotSupportedf("compression", "no codec registered for %v", c)
	}
	return codec, nil
}

// Deinterleave splits in into two halves: even-indexed bytes followed
// by odd-indexed bytes, then delta-encodes the concatenation:
// out[0]=in[0]; out[i]=in[i]-in[i-1]+128 (mod 256). Shared by RLE and
// ZIP preprocessing.
func Deinterleave(in []byte) []byte {
	n := len(in)
	tmp := make([]byte, n)
	evenLen := (n + 1) / 2
	ei, oi := 0, evenLen
	for i := 0; i < n; i += 2 {
		tmp[ei] = in[i]
		ei++
	}
	for i := 1; i < n; i += 2 {
		tmp[oi] = in[i]
		oi++
	}
	out := make([]byte, n)
	if n > 0 {
		out[0] = tmp[0]
		for i := 1; i < n; i++ {
			out[i] = tmp[i] - tmp[i-1] + 128
		}
	}
	return out
}

// Reinterleave is the inverse of Deinterleave.
func Reinterleave(in []byte) []byte {
	n := len(in)
	tmp := make([]byte, n)
	if n > 0 {
		tmp[0] = in[0]
		for i := 1; i < n; i++ {
			tmp[i] = tmp[i-1] + in[i] - 128
		}
	}
	out := make([]byte, n)
	evenLen := (n + 1) / 2
	ei, oi := 0, evenLen
	for i := 0; i < n; i += 2 {
		out[i] = tmp[ei]
		ei++
	}
	for i := 1; i < n; i += 2 {
		out[i] = tmp[oi]
		oi++
	}
	return out
}

// BytesPerPixel returns the sum of each channel's sample size, the
// stride of one pixel's worth of interleaved channel data.
func BytesPerPixel(channels attr.ChannelList) int {
	n := 0
	for _, c := range channels {
		n += c.Type.SampleSize()
	}
	return n
}
