// Package encoding provides the binarizations that turn transformed symbol subsequences
// into bytes ahead of the entropy stage.
//
// Every subsequence produced by a transform is a slice of unsigned symbols together with
// the minimal byte width able to hold its largest value (see Width). A binarization lays
// those symbols out as bytes:
//
//   - Fixed (format.BinarizationFixed): little-endian words of exactly width bytes
//   - Varint (format.BinarizationVarint): unsigned LEB128 varints, width is ignored
//   - Split (format.BinarizationSplit): width byte planes, least significant plane first
//
// Split keeps bytes of equal significance adjacent, which is what makes two-byte quality
// or position streams compress well under order-0 coders. Varint wins on streams that are
// mostly small with rare large values, such as run lengths.
//
// # Usage
//
//	enc, _ := encoding.NewEncoder(format.BinarizationSplit, encoding.Width(maxSymbol))
//	defer enc.Finish()
//	enc.WriteSlice(symbols)
//	payload := enc.Bytes()
//
//	dec, _ := encoding.NewDecoder(format.BinarizationSplit, width)
//	restored := make([]uint64, count)
//	err := dec.DecodeInto(restored, payload)
//
// Encoders draw their output buffers from internal/pool and must be finished. Decoders are
// stateless values that are safe for concurrent use.
package encoding
