// Package compress provides the entropy codecs applied to binarized genomic descriptor subsequences.
//
// A transform frame holds one to three subsequences (flags, values, run lengths, match
// pointers). After binarization each subsequence is handed to one codec from this package,
// chosen per stream class by analysis and recorded in the stream's transform config.
//
// # Architecture
//
// The package defines three core interfaces:
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// # Supported Algorithms
//
// General purpose codecs:
//   - None (format.CompressionNone): returns data unchanged
//   - Zstd (format.CompressionZstd): gozstd under cgo, klauspost/compress/zstd otherwise
//   - S2 (format.CompressionS2): klauspost/compress/s2 block, better-compression encoder
//   - LZ4 (format.CompressionLZ4): pierrec/lz4 block behind a uvarint decoded length
//
// Order-0 entropy coders, which suit quality values and other skewed small alphabets:
//   - FSE (format.CompressionFSE): klauspost/compress/fse, single block
//   - Huffman (format.CompressionHuffman): klauspost/compress/huff0, 256 KiB blocks
//
// Both entropy coders fall back to a raw block when coding would not shrink the input and
// to a run block when the input is one repeated byte, so every input round trips:
//
//	codec := compress.NewHuffmanCompressor()
//	compressed, _ := codec.Compress(qualities)
//	original, _ := codec.Decompress(compressed)
//
// # Algorithm Selection Guide
//
// | Subsequence            | Usually wins  |
// |------------------------|---------------|
// | Quality values         | Huffman, FSE  |
// | Read identifiers       | Zstd          |
// | Match pointers/lengths | Zstd, S2      |
// | Equality flags         | FSE           |
// | Tiny streams           | None          |
//
// The transform package analysis tries every codec anyway; the table only explains the
// typical outcome.
//
// # Thread Safety
//
// All codec implementations are stateless values or draw their state from sync.Pool, so
// they can be shared across goroutines. GetCodec returns shared instances.
//
// # Error Handling
//
// Decompression of corrupted input returns an error; codecs never panic on bad data.
package compress
