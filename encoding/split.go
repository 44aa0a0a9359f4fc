package encoding

import (
	"fmt"
	"iter"

	"github.com/arloliu/genostore/errs"
	"github.com/arloliu/genostore/internal/pool"
)

// SplitEncoder writes symbols as width byte planes: first the least significant byte of
// every symbol, then the next byte of every symbol, and so on.
//
// Planes can only be laid out once the symbol count is known, so symbols are buffered and
// the planes are materialized by Bytes.
type SplitEncoder struct {
	width   int
	symbols []uint64
	buf     *pool.ByteBuffer
	dirty   bool
}

var _ ColumnarEncoder[uint64] = (*SplitEncoder)(nil)

// NewSplitEncoder creates a byte plane encoder. Width must be between 1 and MaxWidth.
func NewSplitEncoder(width int) *SplitEncoder {
	return &SplitEncoder{
		width: width,
		buf:   pool.GetFrameBuffer(),
	}
}

func (e *SplitEncoder) Write(v uint64) {
	e.symbols = append(e.symbols, v)
	e.dirty = true
}

func (e *SplitEncoder) WriteSlice(values []uint64) {
	e.symbols = append(e.symbols, values...)
	e.dirty = true
}

func (e *SplitEncoder) Bytes() []byte {
	if e.dirty {
		e.buf.Reset()
		e.buf.Grow(len(e.symbols) * e.width)
		for plane := range e.width {
			shift := 8 * plane
			for _, v := range e.symbols {
				e.buf.B = append(e.buf.B, byte(v>>shift))
			}
		}
		e.dirty = false
	}

	return e.buf.Bytes()
}

func (e *SplitEncoder) Len() int { return len(e.symbols) }

func (e *SplitEncoder) Size() int { return len(e.symbols) * e.width }

func (e *SplitEncoder) Finish() {
	pool.PutFrameBuffer(e.buf)
	e.buf = nil
	e.symbols = nil
}

// SplitDecoder reads byte planes written by SplitEncoder.
type SplitDecoder struct {
	width int
}

var _ ColumnarDecoder[uint64] = SplitDecoder{}

// NewSplitDecoder creates a byte plane decoder.
func NewSplitDecoder(width int) SplitDecoder {
	return SplitDecoder{width: width}
}

func (d SplitDecoder) All(data []byte, count int) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		if len(data) < count*d.width {
			return
		}

		for i := range count {
			var v uint64
			for plane := range d.width {
				v |= uint64(data[plane*count+i]) << (8 * plane)
			}
			if !yield(v) {
				return
			}
		}
	}
}

func (d SplitDecoder) DecodeInto(dst []uint64, data []byte) error {
	count := len(dst)
	if len(data) != count*d.width {
		return fmt.Errorf("%w: split payload has %d bytes, want %d", errs.ErrCorruptFrame, len(data), count*d.width)
	}

	clear(dst)
	for plane := range d.width {
		shift := 8 * plane
		src := data[plane*count : (plane+1)*count]
		for i, b := range src {
			dst[i] |= uint64(b) << shift
		}
	}

	return nil
}
