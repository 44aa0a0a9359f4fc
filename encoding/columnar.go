package encoding

import "iter"

// ColumnarEncoder binarizes a column of symbols into a single byte slice.
type ColumnarEncoder[T comparable] interface {
	// Bytes returns the encoded byte slice.
	// The returned slice is valid until the next call to Write, WriteSlice, or Finish.
	// The caller should not modify the returned slice.
	Bytes() []byte

	// Len returns the number of encoded symbols.
	Len() int

	// Size returns the size in bytes of the encoded symbols.
	Size() int

	// Finish returns buffer resources to the pool.
	//
	// After calling Finish(), the encoder is no longer usable. Use defer to ensure it is
	// called even in error paths:
	//
	//	enc := NewFixedEncoder(2)
	//	defer enc.Finish()
	Finish()

	// Write appends a single symbol.
	Write(data T)

	// WriteSlice appends a slice of symbols.
	//
	// This method is optimized for bulk writes. For single writes, use Write.
	WriteSlice(values []T)
}

// ColumnarDecoder restores symbols written by the matching ColumnarEncoder.
type ColumnarDecoder[T comparable] interface {
	// All returns an iterator that yields decoded symbols from data.
	//
	// The iterator stops early, without error, if data is malformed or holds fewer than
	// count symbols. Use DecodeInto when corruption must be reported.
	All(data []byte, count int) iter.Seq[T]

	// DecodeInto decodes exactly len(dst) symbols from data into dst.
	//
	// It returns an error wrapping errs.ErrCorruptFrame when data does not hold exactly
	// len(dst) symbols.
	DecodeInto(dst []T, data []byte) error
}
