package compress

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/huff0"
)

// HuffmanCompressor is a canonical Huffman coder built on huff0.
//
// huff0 limits a block to huff0.BlockSizeMax bytes, so the input is cut into blocks,
// each framed as:
//
//	byte     mode (raw, rle or entropy)
//	uvarint  decoded length
//	raw:     payload bytes
//	rle:     symbol byte
//	entropy: uvarint body length, huff0 table and 1X stream
type HuffmanCompressor struct{}

var _ Codec = (*HuffmanCompressor)(nil)

// NewHuffmanCompressor creates a new Huffman codec.
func NewHuffmanCompressor() HuffmanCompressor {
	return HuffmanCompressor{}
}

// Compress Huffman codes data block by block.
func (c HuffmanCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dst := make([]byte, 0, len(data)/2+16)
	for start := 0; start < len(data); start += huff0.BlockSizeMax {
		block := data[start:min(start+huff0.BlockSizeMax, len(data))]

		scratch := huff0.Scratch{Reuse: huff0.ReusePolicyNone}
		out, _, err := huff0.Compress1X(block, &scratch)
		switch {
		case err == nil:
			dst = append(dst, blockEntropy)
			dst = binary.AppendUvarint(dst, uint64(len(block)))
			dst = binary.AppendUvarint(dst, uint64(len(out)))
			dst = append(dst, out...)
		case errors.Is(err, huff0.ErrUseRLE):
			dst = append(dst, blockRLE)
			dst = binary.AppendUvarint(dst, uint64(len(block)))
			dst = append(dst, block[0])
		default:
			// ErrIncompressible and table construction failures both store the block raw.
			dst = append(dst, blockRaw)
			dst = binary.AppendUvarint(dst, uint64(len(block)))
			dst = append(dst, block...)
		}
	}

	return dst, nil
}

// Decompress restores data produced by Compress.
func (c HuffmanCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var out []byte
	for len(data) > 0 {
		mode := data[0]
		n, sz := binary.Uvarint(data[1:])
		if sz <= 0 || n > huff0.BlockSizeMax {
			return nil, errors.New("huffman decompression failed: bad block length")
		}
		data = data[1+sz:]

		switch mode {
		case blockRaw:
			if uint64(len(data)) < n {
				return nil, errors.New("huffman decompression failed: raw block truncated")
			}
			out = append(out, data[:n]...)
			data = data[n:]
		case blockRLE:
			if len(data) < 1 {
				return nil, errors.New("huffman decompression failed: rle block truncated")
			}
			for range n {
				out = append(out, data[0])
			}
			data = data[1:]
		case blockEntropy:
			bodyLen, bsz := binary.Uvarint(data)
			if bsz <= 0 || uint64(len(data)-bsz) < bodyLen {
				return nil, errors.New("huffman decompression failed: entropy block truncated")
			}
			body := data[bsz : bsz+int(bodyLen)]
			data = data[bsz+int(bodyLen):]

			scratch, remain, err := huff0.ReadTable(body, nil)
			if err != nil {
				return nil, fmt.Errorf("huffman decompression failed: %w", err)
			}
			block, err := scratch.Decoder().Decompress1X(make([]byte, 0, n), remain)
			if err != nil {
				return nil, fmt.Errorf("huffman decompression failed: %w", err)
			}
			if uint64(len(block)) != n {
				return nil, fmt.Errorf("huffman decompression failed: got %d bytes, want %d", len(block), n)
			}
			out = append(out, block...)
		default:
			return nil, fmt.Errorf("huffman decompression failed: unknown block mode 0x%x", mode)
		}
	}

	return out, nil
}
