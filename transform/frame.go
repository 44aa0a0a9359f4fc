package transform

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/genostore/errs"
	"github.com/arloliu/genostore/internal/pool"
)

// maxFrameSymbols bounds symbol counts read from untrusted frames.
const maxFrameSymbols = 1 << 36

// symbolize reads data as little-endian words of wordSize bytes into dst, which must
// hold len(data)/wordSize symbols, and rejects symbols above maxValue.
func symbolize(dst []uint64, data []byte, wordSize int, maxValue uint64) error {
	for i := range dst {
		w := data[i*wordSize : (i+1)*wordSize]

		var v uint64
		switch wordSize {
		case 1:
			v = uint64(w[0])
		case 2:
			v = uint64(binary.LittleEndian.Uint16(w))
		case 4:
			v = uint64(binary.LittleEndian.Uint32(w))
		default:
			v = binary.LittleEndian.Uint64(w)
		}

		if v > maxValue {
			return fmt.Errorf("%w: symbol %d is %d, max %d", errs.ErrSymbolOutOfRange, i, v, maxValue)
		}
		dst[i] = v
	}

	return nil
}

// desymbolize appends symbols to dst as little-endian words of wordSize bytes.
func desymbolize(dst []byte, symbols []uint64, wordSize int) ([]byte, error) {
	limit := ^uint64(0)
	if wordSize < 8 {
		limit = 1<<(8*uint(wordSize)) - 1 //nolint:gosec
	}

	for i, v := range symbols {
		if v > limit {
			return nil, fmt.Errorf("%w: symbol %d is %d, wider than %d bytes", errs.ErrCorruptFrame, i, v, wordSize)
		}

		switch wordSize {
		case 1:
			dst = append(dst, byte(v))
		case 2:
			dst = binary.LittleEndian.AppendUint16(dst, uint16(v))
		case 4:
			dst = binary.LittleEndian.AppendUint32(dst, uint32(v))
		default:
			dst = binary.LittleEndian.AppendUint64(dst, v)
		}
	}

	return dst, nil
}

// frameSubseq is one encoded subsequence of a frame.
type frameSubseq struct {
	count   int
	width   int
	payload []byte
}

// frame layout:
//
//	uvarint  symbol count
//	byte     subsequence count
//	per subsequence:
//	  uvarint  symbol count
//	  byte     binarization width
//	  uvarint  payload length
//	  bytes    payload
func writeFrameHeader(buf *pool.ByteBuffer, symbolCount, subseqCount int) {
	buf.Grow(binary.MaxVarintLen64 + 1)
	buf.B = binary.AppendUvarint(buf.B, uint64(symbolCount)) //nolint:gosec
	buf.B = append(buf.B, byte(subseqCount))
}

func writeFrameSubseq(buf *pool.ByteBuffer, count, width int, payload []byte) {
	buf.Grow(2*binary.MaxVarintLen64 + 1 + len(payload))
	buf.B = binary.AppendUvarint(buf.B, uint64(count)) //nolint:gosec
	buf.B = append(buf.B, byte(width))
	buf.B = binary.AppendUvarint(buf.B, uint64(len(payload)))
	buf.B = append(buf.B, payload...)
}

// frameSize returns the framed size of subsequences with the given counts and payload
// lengths, without building the frame.
func frameSize(symbolCount int, counts, payloadLens []int) int {
	size := uvarintLen(uint64(symbolCount)) + 1 //nolint:gosec
	for i := range counts {
		size += uvarintLen(uint64(counts[i])) + 1 + uvarintLen(uint64(payloadLens[i])) + payloadLens[i] //nolint:gosec
	}

	return size
}

func uvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}

	return n
}

// parseFrame splits a frame into its subsequences. Payloads alias data.
func parseFrame(data []byte, wantSubseqs int) (int, []frameSubseq, error) {
	symbolCount, n := binary.Uvarint(data)
	if n <= 0 || symbolCount > maxFrameSymbols {
		return 0, nil, fmt.Errorf("%w: bad symbol count", errs.ErrCorruptFrame)
	}
	data = data[n:]

	if len(data) < 1 {
		return 0, nil, fmt.Errorf("%w: missing subsequence count", errs.ErrCorruptFrame)
	}
	if int(data[0]) != wantSubseqs {
		return 0, nil, fmt.Errorf("%w: %d subsequences, want %d", errs.ErrCorruptFrame, data[0], wantSubseqs)
	}
	data = data[1:]

	subseqs := make([]frameSubseq, wantSubseqs)
	for i := range subseqs {
		count, n := binary.Uvarint(data)
		if n <= 0 || count > maxFrameSymbols {
			return 0, nil, fmt.Errorf("%w: subsequence %d: bad symbol count", errs.ErrCorruptFrame, i)
		}
		data = data[n:]

		if len(data) < 1 {
			return 0, nil, fmt.Errorf("%w: subsequence %d: missing width", errs.ErrCorruptFrame, i)
		}
		width := int(data[0])
		data = data[1:]

		size, n := binary.Uvarint(data)
		if n <= 0 || size > uint64(len(data)-n) {
			return 0, nil, fmt.Errorf("%w: subsequence %d: payload truncated", errs.ErrCorruptFrame, i)
		}
		data = data[n:]

		subseqs[i] = frameSubseq{count: int(count), width: width, payload: data[:size]}
		data = data[size:]
	}

	if len(data) != 0 {
		return 0, nil, fmt.Errorf("%w: %d trailing bytes", errs.ErrCorruptFrame, len(data))
	}

	return int(symbolCount), subseqs, nil
}
