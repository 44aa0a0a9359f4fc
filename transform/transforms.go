package transform

import (
	"fmt"

	"github.com/arloliu/genostore/encoding"
	"github.com/arloliu/genostore/errs"
	"github.com/arloliu/genostore/format"
)

const (
	// minMatchLength is the shortest back-reference the match transform emits.
	minMatchLength = 2
	// maxPrealloc caps capacity reserved from symbol counts read off a frame.
	maxPrealloc = 1 << 20
)

// symbolTransform splits a symbol stream into subsequences and back.
type symbolTransform interface {
	// forward returns the subsequences for symbols. Subsequence slices are newly
	// allocated and never alias symbols.
	forward(symbols []uint64) [][]uint64
	// inverse rebuilds count symbols from subsequences produced by forward.
	inverse(subseqs [][]uint64, count int) ([]uint64, error)
	// subseqCount is the number of subsequences forward returns.
	subseqCount() int
}

func newSymbolTransform(t format.TransformType, param uint64) (symbolTransform, error) {
	switch t {
	case format.TransformNone:
		return noneTransform{}, nil
	case format.TransformEquality:
		return equalityTransform{}, nil
	case format.TransformMatch:
		if param == 0 {
			return nil, fmt.Errorf("%w: match window must be positive", errs.ErrInvalidConfig)
		}

		return matchTransform{window: param}, nil
	case format.TransformRLE:
		if param == 0 {
			return nil, fmt.Errorf("%w: rle guard must be positive", errs.ErrInvalidConfig)
		}

		return rleTransform{guard: param}, nil
	case format.TransformDiff:
		return diffTransform{}, nil
	default:
		return nil, fmt.Errorf("%w: transform %d", errs.ErrInvalidConfig, t)
	}
}

func corruptf(msg string, args ...any) error {
	return fmt.Errorf("%w: "+msg, append([]any{errs.ErrCorruptFrame}, args...)...)
}

type noneTransform struct{}

func (noneTransform) subseqCount() int { return 1 }

func (noneTransform) forward(symbols []uint64) [][]uint64 {
	return [][]uint64{append([]uint64(nil), symbols...)}
}

func (noneTransform) inverse(subseqs [][]uint64, count int) ([]uint64, error) {
	if len(subseqs[0]) != count {
		return nil, corruptf("none: %d symbols, want %d", len(subseqs[0]), count)
	}

	return subseqs[0], nil
}

// equalityTransform emits a flag per symbol, 1 when it repeats its predecessor, and the
// symbols that do not. The predecessor of the first symbol is zero.
type equalityTransform struct{}

func (equalityTransform) subseqCount() int { return 2 }

func (equalityTransform) forward(symbols []uint64) [][]uint64 {
	flags := make([]uint64, len(symbols))
	values := make([]uint64, 0, len(symbols)/2)

	var prev uint64
	for i, v := range symbols {
		if v == prev {
			flags[i] = 1
		} else {
			values = append(values, v)
		}
		prev = v
	}

	return [][]uint64{flags, values}
}

func (equalityTransform) inverse(subseqs [][]uint64, count int) ([]uint64, error) {
	flags, values := subseqs[0], subseqs[1]
	if len(flags) != count {
		return nil, corruptf("equality: %d flags, want %d", len(flags), count)
	}

	out := make([]uint64, count)
	var prev uint64
	for i, f := range flags {
		switch f {
		case 1:
			out[i] = prev
		case 0:
			if len(values) == 0 {
				return nil, corruptf("equality: values exhausted at symbol %d", i)
			}
			out[i], values = values[0], values[1:]
		default:
			return nil, corruptf("equality: flag %d at symbol %d", f, i)
		}
		prev = out[i]
	}

	if len(values) != 0 {
		return nil, corruptf("equality: %d unused values", len(values))
	}

	return out, nil
}

// matchTransform is an LZ77 style transform over symbols. Every step emits a length;
// a zero length is followed by a raw symbol, any other length by a pointer back at most
// window symbols. Matches may overlap the position being encoded.
type matchTransform struct {
	window uint64
}

func (matchTransform) subseqCount() int { return 3 }

func (m matchTransform) forward(symbols []uint64) [][]uint64 {
	n := len(symbols)
	lengths := make([]uint64, 0, n/2)
	pointers := make([]uint64, 0, n/4)
	raws := make([]uint64, 0, n/2)

	window := int(min(m.window, uint64(n))) //nolint:gosec
	for i := 0; i < n; {
		bestLen, bestPtr := 0, 0
		for d := 1; d <= window && d <= i; d++ {
			l := 0
			for i+l < n && symbols[i+l] == symbols[i-d+l] {
				l++
			}
			if l > bestLen {
				bestLen, bestPtr = l, d
			}
		}

		if bestLen >= minMatchLength {
			lengths = append(lengths, uint64(bestLen))
			pointers = append(pointers, uint64(bestPtr))
			i += bestLen

			continue
		}

		lengths = append(lengths, 0)
		raws = append(raws, symbols[i])
		i++
	}

	return [][]uint64{lengths, pointers, raws}
}

func (m matchTransform) inverse(subseqs [][]uint64, count int) ([]uint64, error) {
	lengths, pointers, raws := subseqs[0], subseqs[1], subseqs[2]
	out := make([]uint64, 0, min(count, maxPrealloc))

	for _, l := range lengths {
		if l == 0 {
			if len(raws) == 0 {
				return nil, corruptf("match: raw symbols exhausted")
			}
			out, raws = append(out, raws[0]), raws[1:]

			continue
		}

		if len(pointers) == 0 {
			return nil, corruptf("match: pointers exhausted")
		}
		ptr := pointers[0]
		pointers = pointers[1:]
		if ptr == 0 || ptr > m.window || ptr > uint64(len(out)) {
			return nil, corruptf("match: pointer %d at symbol %d", ptr, len(out))
		}
		if l > uint64(count-len(out)) {
			return nil, corruptf("match: length %d overruns %d symbols", l, count)
		}

		start := len(out) - int(ptr) //nolint:gosec
		for k := range int(l) {      //nolint:gosec
			out = append(out, out[start+k])
		}
	}

	if len(out) != count || len(pointers) != 0 || len(raws) != 0 {
		return nil, corruptf("match: rebuilt %d symbols, want %d", len(out), count)
	}

	return out, nil
}

// rleTransform emits one value and one run length per run. Runs longer than guard are
// cut into several runs.
type rleTransform struct {
	guard uint64
}

func (rleTransform) subseqCount() int { return 2 }

func (r rleTransform) forward(symbols []uint64) [][]uint64 {
	values := make([]uint64, 0, len(symbols)/4)
	runs := make([]uint64, 0, len(symbols)/4)

	for i := 0; i < len(symbols); {
		v := symbols[i]
		run := uint64(1)
		for i+int(run) < len(symbols) && symbols[i+int(run)] == v && run < r.guard { //nolint:gosec
			run++
		}
		values = append(values, v)
		runs = append(runs, run)
		i += int(run) //nolint:gosec
	}

	return [][]uint64{values, runs}
}

func (r rleTransform) inverse(subseqs [][]uint64, count int) ([]uint64, error) {
	values, runs := subseqs[0], subseqs[1]
	if len(values) != len(runs) {
		return nil, corruptf("rle: %d values for %d runs", len(values), len(runs))
	}

	out := make([]uint64, 0, min(count, maxPrealloc))
	for i, run := range runs {
		if run == 0 || run > r.guard || run > uint64(count-len(out)) {
			return nil, corruptf("rle: run length %d at run %d", run, i)
		}
		for range run {
			out = append(out, values[i])
		}
	}

	if len(out) != count {
		return nil, corruptf("rle: rebuilt %d symbols, want %d", len(out), count)
	}

	return out, nil
}

// diffTransform emits the zigzag encoded difference to the previous symbol, starting
// from zero. Differences wrap modulo 2^64 so every uint64 stream round trips.
type diffTransform struct{}

func (diffTransform) subseqCount() int { return 1 }

func (diffTransform) forward(symbols []uint64) [][]uint64 {
	deltas := make([]uint64, len(symbols))

	var prev uint64
	for i, v := range symbols {
		deltas[i] = encoding.ZigZag(int64(v - prev)) //nolint:gosec
		prev = v
	}

	return [][]uint64{deltas}
}

func (diffTransform) inverse(subseqs [][]uint64, count int) ([]uint64, error) {
	deltas := subseqs[0]
	if len(deltas) != count {
		return nil, corruptf("diff: %d deltas, want %d", len(deltas), count)
	}

	out := make([]uint64, count)
	var prev uint64
	for i, d := range deltas {
		prev += uint64(encoding.UnZigZag(d)) //nolint:gosec
		out[i] = prev
	}

	return out, nil
}
