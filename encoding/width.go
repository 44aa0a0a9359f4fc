package encoding

import (
	"fmt"
	"math/bits"

	"github.com/arloliu/genostore/format"
)

// MaxWidth is the widest symbol, in bytes, a binarization handles.
const MaxWidth = 8

// Width returns the minimal number of bytes able to hold maxValue, never less than one.
func Width(maxValue uint64) int {
	return max(1, (bits.Len64(maxValue)+7)/8)
}

// MaxSymbol returns the largest value in symbols, or zero for an empty slice.
func MaxSymbol(symbols []uint64) uint64 {
	var m uint64
	for _, v := range symbols {
		m = max(m, v)
	}

	return m
}

// ZigZag maps signed values onto unsigned ones so that small magnitudes stay small.
func ZigZag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63)) //nolint:gosec
}

// UnZigZag reverses ZigZag.
func UnZigZag(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1) //nolint:gosec
}

// NewEncoder creates the encoder for binarization b writing symbols of the given width.
func NewEncoder(b format.BinarizationType, width int) (ColumnarEncoder[uint64], error) {
	if err := checkWidth(b, width); err != nil {
		return nil, err
	}

	switch b {
	case format.BinarizationFixed:
		return NewFixedEncoder(width), nil
	case format.BinarizationVarint:
		return NewVarintEncoder(), nil
	case format.BinarizationSplit:
		return NewSplitEncoder(width), nil
	default:
		return nil, fmt.Errorf("unsupported binarization: %s", b)
	}
}

// NewDecoder creates the decoder for binarization b reading symbols of the given width.
func NewDecoder(b format.BinarizationType, width int) (ColumnarDecoder[uint64], error) {
	if err := checkWidth(b, width); err != nil {
		return nil, err
	}

	switch b {
	case format.BinarizationFixed:
		return NewFixedDecoder(width), nil
	case format.BinarizationVarint:
		return NewVarintDecoder(), nil
	case format.BinarizationSplit:
		return NewSplitDecoder(width), nil
	default:
		return nil, fmt.Errorf("unsupported binarization: %s", b)
	}
}

func checkWidth(b format.BinarizationType, width int) error {
	if b != format.BinarizationVarint && (width < 1 || width > MaxWidth) {
		return fmt.Errorf("invalid %s symbol width: %d", b, width)
	}

	return nil
}
