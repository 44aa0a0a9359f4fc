package encoding

import (
	"fmt"
	"iter"

	"github.com/arloliu/genostore/errs"
	"github.com/arloliu/genostore/internal/pool"
)

// FixedEncoder writes every symbol as a little-endian word of width bytes.
//
// Bits above width*8 are dropped, so callers pick width with Width(MaxSymbol(symbols)).
type FixedEncoder struct {
	width int
	buf   *pool.ByteBuffer
	count int
}

var _ ColumnarEncoder[uint64] = (*FixedEncoder)(nil)

// NewFixedEncoder creates a fixed width encoder. Width must be between 1 and MaxWidth.
func NewFixedEncoder(width int) *FixedEncoder {
	return &FixedEncoder{
		width: width,
		buf:   pool.GetFrameBuffer(),
	}
}

func (e *FixedEncoder) Write(v uint64) {
	e.count++
	e.buf.Grow(e.width)
	for i := range e.width {
		e.buf.B = append(e.buf.B, byte(v>>(8*i)))
	}
}

func (e *FixedEncoder) WriteSlice(values []uint64) {
	e.count += len(values)
	e.buf.Grow(len(values) * e.width)

	// Fast paths for one and two byte symbols.
	switch e.width {
	case 1:
		for _, v := range values {
			e.buf.B = append(e.buf.B, byte(v))
		}
	case 2:
		for _, v := range values {
			e.buf.B = append(e.buf.B, byte(v), byte(v>>8))
		}
	default:
		for _, v := range values {
			for i := range e.width {
				e.buf.B = append(e.buf.B, byte(v>>(8*i)))
			}
		}
	}
}

func (e *FixedEncoder) Bytes() []byte { return e.buf.Bytes() }

func (e *FixedEncoder) Len() int { return e.count }

func (e *FixedEncoder) Size() int { return e.buf.Len() }

func (e *FixedEncoder) Finish() {
	pool.PutFrameBuffer(e.buf)
	e.buf = nil
}

// FixedDecoder reads words written by FixedEncoder.
type FixedDecoder struct {
	width int
}

var _ ColumnarDecoder[uint64] = FixedDecoder{}

// NewFixedDecoder creates a fixed width decoder.
func NewFixedDecoder(width int) FixedDecoder {
	return FixedDecoder{width: width}
}

func (d FixedDecoder) All(data []byte, count int) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for i := 0; i < count && (i+1)*d.width <= len(data); i++ {
			if !yield(d.word(data[i*d.width:])) {
				return
			}
		}
	}
}

func (d FixedDecoder) DecodeInto(dst []uint64, data []byte) error {
	if len(data) != len(dst)*d.width {
		return fmt.Errorf("%w: fixed payload has %d bytes, want %d", errs.ErrCorruptFrame, len(data), len(dst)*d.width)
	}

	for i := range dst {
		dst[i] = d.word(data[i*d.width:])
	}

	return nil
}

func (d FixedDecoder) word(b []byte) uint64 {
	var v uint64
	for i := range d.width {
		v |= uint64(b[i]) << (8 * i)
	}

	return v
}
