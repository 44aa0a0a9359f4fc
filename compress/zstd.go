package compress

// ZstdCompressor provides Zstandard compression.
//
// Builds with cgo use the libzstd bindings from valyala/gozstd; pure Go builds use
// klauspost/compress/zstd with pooled encoders and decoders. Both produce standard
// zstd frames, so containers written by one build decode with the other.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// zstdLevel is the compression level used by both implementations.
const zstdLevel = 3

// NewZstdCompressor creates a new Zstd codec.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
