package transform

import (
	"fmt"

	"github.com/arloliu/genostore/compress"
	"github.com/arloliu/genostore/encoding"
	"github.com/arloliu/genostore/errs"
	"github.com/arloliu/genostore/format"
	"github.com/arloliu/genostore/internal/pool"
	"github.com/arloliu/genostore/registry"
)

// Candidate is one configuration tried by analysis together with its framed size.
type Candidate struct {
	Config *Config
	Size   int
}

// Analyze derives the config that compresses sample smallest under constraints c.
//
// Only the first sample limit bytes are used, rounded down to whole words. Every
// combination of the engine's transforms, binarizations and codecs is tried; ties go
// to the earlier combination. The split binarization is skipped for one byte words.
func (e *Engine) Analyze(sample []byte, c registry.Constraints) (*Config, error) {
	candidates, err := e.Candidates(sample, c)
	if err != nil {
		return nil, err
	}

	var best *Candidate
	for i := range candidates {
		if best == nil || candidates[i].Size < best.Size {
			best = &candidates[i]
		}
	}
	if best == nil {
		return nil, errs.ErrNoAnalysisResults
	}

	return best.Config, nil
}

// Candidates evaluates every combination Analyze considers and returns them in search
// order.
func (e *Engine) Candidates(sample []byte, c registry.Constraints) ([]Candidate, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidConfig, err)
	}

	wordSize := int(c.WordSize)
	if len(sample) == 0 {
		return nil, errs.ErrEmptySample
	}
	if len(sample)%wordSize != 0 {
		return nil, fmt.Errorf("%w: %d byte sample with word size %d", errs.ErrMisalignedStream, len(sample), wordSize)
	}

	limit := e.sampleLimit - e.sampleLimit%wordSize
	if limit == 0 {
		limit = wordSize
	}
	sample = sample[:min(len(sample), limit)]

	symbols, release := pool.GetSymbolSlice(len(sample) / wordSize)
	defer release()

	if err := symbolize(symbols, sample, wordSize, c.MaxValue); err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, t := range e.transforms {
		param := e.paramFor(t)
		tr, err := newSymbolTransform(t, param)
		if err != nil {
			return nil, err
		}

		subseqs := tr.forward(symbols)
		counts := make([]int, len(subseqs))
		widths := make([]int, len(subseqs))
		for i, sub := range subseqs {
			counts[i] = len(sub)
			widths[i] = encoding.Width(encoding.MaxSymbol(sub))
		}

		for _, b := range e.binarizations {
			if b == format.BinarizationSplit && wordSize == 1 {
				continue
			}

			binarized, err := binarizeAll(subseqs, b, widths)
			if err != nil {
				return nil, err
			}

			for _, ct := range e.codecs {
				codec, err := compress.GetCodec(ct)
				if err != nil {
					return nil, err
				}

				payloadLens := make([]int, len(binarized))
				for i, raw := range binarized {
					if len(raw) == 0 {
						continue
					}
					out, err := codec.Compress(raw)
					if err != nil {
						return nil, fmt.Errorf("%s/%s/%s: %w", t, b, ct, err)
					}
					payloadLens[i] = len(out)
				}

				candidates = append(candidates, Candidate{
					Config: &Config{
						WordSize:     c.WordSize,
						Transform:    t,
						Param:        param,
						Binarization: b,
						Codec:        ct,
						MaxValue:     c.MaxValue,
					},
					Size: frameSize(len(symbols), counts, payloadLens),
				})
			}
		}
	}

	return candidates, nil
}

// paramFor returns the parameter analysis records for transform t.
func (e *Engine) paramFor(t format.TransformType) uint64 {
	switch t {
	case format.TransformMatch:
		return e.matchWindow
	case format.TransformRLE:
		return e.rleGuard
	default:
		return 0
	}
}

// binarizeAll binarizes every subsequence, copying the results out of pooled buffers.
func binarizeAll(subseqs [][]uint64, b format.BinarizationType, widths []int) ([][]byte, error) {
	out := make([][]byte, len(subseqs))
	for i, sub := range subseqs {
		enc, err := encoding.NewEncoder(b, widths[i])
		if err != nil {
			return nil, err
		}
		enc.WriteSlice(sub)
		out[i] = append([]byte(nil), enc.Bytes()...)
		enc.Finish()
	}

	return out, nil
}
