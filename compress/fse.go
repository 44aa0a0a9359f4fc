package compress

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/fse"
)

// Entropy block modes shared by the FSE and Huffman codecs.
const (
	blockRaw     byte = 0x0 // stored as is
	blockRLE     byte = 0x1 // a single byte value repeated
	blockEntropy byte = 0x2 // entropy coded
)

// FSECompressor is a tabled asymmetric numeral system (finite state entropy) coder.
//
// It is the closest of the built-in codecs to a pure order-0 entropy stage and works
// best on binarized subsequences with a skewed symbol histogram, such as quality values
// or equality flags. Output layout:
//
//	byte    mode (raw, rle or entropy)
//	raw:     payload bytes
//	rle:     uvarint length, symbol byte
//	entropy: FSE stream (self-delimiting)
type FSECompressor struct{}

var _ Codec = (*FSECompressor)(nil)

// NewFSECompressor creates a new FSE codec.
func NewFSECompressor() FSECompressor {
	return FSECompressor{}
}

// Compress entropy codes data, falling back to RLE or raw storage when FSE cannot help.
// It never fails.
func (c FSECompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var scratch fse.Scratch
	out, err := fse.Compress(data, &scratch)
	switch {
	case err == nil && len(out) < len(data):
		dst := make([]byte, 0, len(out)+1)
		dst = append(dst, blockEntropy)

		return append(dst, out...), nil
	case errors.Is(err, fse.ErrUseRLE):
		dst := make([]byte, 0, binary.MaxVarintLen64+2)
		dst = append(dst, blockRLE)
		dst = binary.AppendUvarint(dst, uint64(len(data)))

		return append(dst, data[0]), nil
	default:
		dst := make([]byte, 0, len(data)+1)
		dst = append(dst, blockRaw)

		return append(dst, data...), nil
	}
}

// Decompress restores data produced by Compress.
func (c FSECompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	body := data[1:]
	switch data[0] {
	case blockRaw:
		return append([]byte(nil), body...), nil
	case blockRLE:
		return expandRLE(body)
	case blockEntropy:
		var scratch fse.Scratch
		out, err := fse.Decompress(body, &scratch)
		if err != nil {
			return nil, fmt.Errorf("fse decompression failed: %w", err)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("fse decompression failed: unknown block mode 0x%x", data[0])
	}
}

// expandRLE expands a "uvarint length, symbol" body.
func expandRLE(body []byte) ([]byte, error) {
	n, sz := binary.Uvarint(body)
	if sz <= 0 || len(body) < sz+1 {
		return nil, errors.New("rle block truncated")
	}
	if n > maxDecodedSize {
		return nil, fmt.Errorf("rle block length %d exceeds limit", n)
	}

	out := make([]byte, n)
	sym := body[sz]
	for i := range out {
		out[i] = sym
	}

	return out, nil
}
