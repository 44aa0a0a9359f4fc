package encoding

import (
	"encoding/binary"
	"fmt"
	"iter"

	"github.com/arloliu/genostore/errs"
	"github.com/arloliu/genostore/internal/pool"
)

// VarintEncoder writes every symbol as an unsigned varint.
type VarintEncoder struct {
	buf   *pool.ByteBuffer
	count int
}

var _ ColumnarEncoder[uint64] = (*VarintEncoder)(nil)

// NewVarintEncoder creates a varint encoder.
func NewVarintEncoder() *VarintEncoder {
	return &VarintEncoder{buf: pool.GetFrameBuffer()}
}

func (e *VarintEncoder) Write(v uint64) {
	e.count++
	e.buf.Grow(binary.MaxVarintLen64)
	e.buf.B = binary.AppendUvarint(e.buf.B, v)
}

func (e *VarintEncoder) WriteSlice(values []uint64) {
	e.count += len(values)
	// Most symbols fit one or two bytes; Grow reallocates in larger steps if not.
	e.buf.Grow(len(values) * 2)
	for _, v := range values {
		e.buf.B = binary.AppendUvarint(e.buf.B, v)
	}
}

func (e *VarintEncoder) Bytes() []byte { return e.buf.Bytes() }

func (e *VarintEncoder) Len() int { return e.count }

func (e *VarintEncoder) Size() int { return e.buf.Len() }

func (e *VarintEncoder) Finish() {
	pool.PutFrameBuffer(e.buf)
	e.buf = nil
}

// VarintDecoder reads symbols written by VarintEncoder.
type VarintDecoder struct{}

var _ ColumnarDecoder[uint64] = VarintDecoder{}

// NewVarintDecoder creates a varint decoder.
func NewVarintDecoder() VarintDecoder {
	return VarintDecoder{}
}

func (d VarintDecoder) All(data []byte, count int) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for range count {
			v, n := binary.Uvarint(data)
			if n <= 0 || !yield(v) {
				return
			}
			data = data[n:]
		}
	}
}

func (d VarintDecoder) DecodeInto(dst []uint64, data []byte) error {
	for i := range dst {
		v, n := binary.Uvarint(data)
		if n <= 0 {
			return fmt.Errorf("%w: varint payload ends after %d of %d symbols", errs.ErrCorruptFrame, i, len(dst))
		}
		dst[i] = v
		data = data[n:]
	}

	if len(data) != 0 {
		return fmt.Errorf("%w: %d trailing bytes after varint payload", errs.ErrCorruptFrame, len(data))
	}

	return nil
}
