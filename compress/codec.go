package compress

import (
	"fmt"

	"github.com/arloliu/genostore/format"
)

// maxDecodedSize bounds allocations driven by lengths read from untrusted input.
const maxDecodedSize = 1<<31 - 1

// Compressor is the entropy stage applied to one binarized subsequence.
type Compressor interface {
	// Compress compresses data and returns a newly allocated result owned by the caller.
	// The input slice is not modified. Empty input may produce an empty result.
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses a Compressor of the same type.
//
// Implementations must be safe for concurrent use: one codec value is shared by every
// worker that runs a configuration using it.
type Decompressor interface {
	// Decompress restores data produced by the matching Compress. Corrupt input returns
	// an error, though not every corruption is guaranteed to be detected.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec is a factory function that creates a Codec for the given type.
//
// Parameters:
//   - compressionType: entropy codec type
//   - target: description of the stream using the codec (for error messages)
//
// Returns:
//   - Codec: codec instance for the specified type
//   - error: invalid compression type error
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	case format.CompressionFSE:
		return NewFSECompressor(), nil
	case format.CompressionHuffman:
		return NewHuffmanCompressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone:    NewNoOpCompressor(),
	format.CompressionZstd:    NewZstdCompressor(),
	format.CompressionS2:      NewS2Compressor(),
	format.CompressionLZ4:     NewLZ4Compressor(),
	format.CompressionFSE:     NewFSECompressor(),
	format.CompressionHuffman: NewHuffmanCompressor(),
}

// GetCodec retrieves the shared built-in Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}
