package transform

import (
	"bytes"
	"fmt"

	"github.com/arloliu/genostore/compress"
	"github.com/arloliu/genostore/encoding"
	"github.com/arloliu/genostore/errs"
	"github.com/arloliu/genostore/format"
	"github.com/arloliu/genostore/internal/options"
	"github.com/arloliu/genostore/internal/pool"
)

// DefaultSampleLimit caps the bytes of a sample that analysis looks at.
const DefaultSampleLimit = 1 << 20

// Engine runs transform configs over byte streams and derives configs by analysis.
//
// An Engine holds no mutable state after construction; Run and Analyze are safe for
// concurrent use.
type Engine struct {
	transforms    []format.TransformType
	binarizations []format.BinarizationType
	codecs        []format.CompressionType
	sampleLimit   int
	matchWindow   uint64
	rleGuard      uint64
}

// Option configures an Engine.
type Option = options.Option[*Engine]

// WithTransforms restricts the transforms tried by analysis, in order of preference.
func WithTransforms(types ...format.TransformType) Option {
	return options.New(func(e *Engine) error {
		for _, t := range types {
			if !t.Valid() {
				return fmt.Errorf("invalid transform type: %d", t)
			}
		}
		e.transforms = types

		return nil
	})
}

// WithBinarizations restricts the binarizations tried by analysis, in order of preference.
func WithBinarizations(types ...format.BinarizationType) Option {
	return options.New(func(e *Engine) error {
		for _, b := range types {
			if !b.Valid() {
				return fmt.Errorf("invalid binarization type: %d", b)
			}
		}
		e.binarizations = types

		return nil
	})
}

// WithCodecs restricts the entropy codecs tried by analysis, in order of preference.
func WithCodecs(types ...format.CompressionType) Option {
	return options.New(func(e *Engine) error {
		for _, c := range types {
			if !c.Valid() {
				return fmt.Errorf("invalid compression type: %d", c)
			}
		}
		e.codecs = types

		return nil
	})
}

// WithSampleLimit sets how many leading bytes of a sample analysis uses.
func WithSampleLimit(limit int) Option {
	return options.New(func(e *Engine) error {
		if limit <= 0 {
			return fmt.Errorf("sample limit must be positive, got %d", limit)
		}
		e.sampleLimit = limit

		return nil
	})
}

// WithMatchWindow sets the window analysis records for match transform candidates.
func WithMatchWindow(window uint64) Option {
	return options.New(func(e *Engine) error {
		if window == 0 {
			return fmt.Errorf("match window must be positive")
		}
		e.matchWindow = window

		return nil
	})
}

// WithRLEGuard sets the guard analysis records for rle transform candidates.
func WithRLEGuard(guard uint64) Option {
	return options.New(func(e *Engine) error {
		if guard == 0 {
			return fmt.Errorf("rle guard must be positive")
		}
		e.rleGuard = guard

		return nil
	})
}

// NewEngine creates an engine whose analysis tries every transform, binarization and
// codec unless restricted by options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		transforms:    format.Transforms(),
		binarizations: format.Binarizations(),
		codecs:        format.Compressions(),
		sampleLimit:   DefaultSampleLimit,
		matchWindow:   DefaultMatchWindow,
		rleGuard:      DefaultRLEGuard,
	}

	if err := options.Apply(e, opts...); err != nil {
		return nil, err
	}

	return e, nil
}

// Run compresses data with cfg, or restores it when decompress is set.
//
// Empty input yields empty output in both directions. Compression rejects input whose
// length is not a multiple of the word size (errs.ErrMisalignedStream) and symbols above
// cfg.MaxValue (errs.ErrSymbolOutOfRange); decompression reports malformed frames with
// errs.ErrCorruptFrame.
func (e *Engine) Run(cfg *Config, data []byte, decompress bool) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	if decompress {
		return e.decode(cfg, data)
	}

	return e.encode(cfg, data)
}

func (e *Engine) encode(cfg *Config, data []byte) ([]byte, error) {
	wordSize := int(cfg.WordSize)
	if len(data)%wordSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes with word size %d", errs.ErrMisalignedStream, len(data), wordSize)
	}

	tr, err := newSymbolTransform(cfg.Transform, cfg.param())
	if err != nil {
		return nil, err
	}
	codec, err := compress.GetCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}

	symbols, release := pool.GetSymbolSlice(len(data) / wordSize)
	defer release()

	if err := symbolize(symbols, data, wordSize, cfg.MaxValue); err != nil {
		return nil, err
	}

	subseqs := tr.forward(symbols)

	frame := pool.GetFrameBuffer()
	defer pool.PutFrameBuffer(frame)

	writeFrameHeader(frame, len(symbols), len(subseqs))
	for i, sub := range subseqs {
		width := encoding.Width(encoding.MaxSymbol(sub))
		payload, err := binarizeAndCompress(sub, cfg.Binarization, width, codec)
		if err != nil {
			return nil, fmt.Errorf("subsequence %d: %w", i, err)
		}
		writeFrameSubseq(frame, len(sub), width, payload)
	}

	return bytes.Clone(frame.Bytes()), nil
}

// binarizeAndCompress returns the entropy coded binarization of symbols. The result
// never aliases pooled memory.
func binarizeAndCompress(symbols []uint64, b format.BinarizationType, width int, codec compress.Codec) ([]byte, error) {
	enc, err := encoding.NewEncoder(b, width)
	if err != nil {
		return nil, err
	}
	defer enc.Finish()

	enc.WriteSlice(symbols)
	if len(symbols) == 0 {
		return nil, nil
	}

	out, err := codec.Compress(enc.Bytes())
	if err != nil {
		return nil, err
	}

	return bytes.Clone(out), nil
}

func (e *Engine) decode(cfg *Config, data []byte) ([]byte, error) {
	tr, err := newSymbolTransform(cfg.Transform, cfg.param())
	if err != nil {
		return nil, err
	}
	codec, err := compress.GetCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}

	symbolCount, frames, err := parseFrame(data, tr.subseqCount())
	if err != nil {
		return nil, err
	}

	subseqs := make([][]uint64, len(frames))
	for i, f := range frames {
		subseqs[i], err = decompressAndDebinarize(f, cfg.Binarization, codec)
		if err != nil {
			return nil, fmt.Errorf("subsequence %d: %w", i, err)
		}
	}

	symbols, err := tr.inverse(subseqs, symbolCount)
	if err != nil {
		return nil, err
	}

	return desymbolize(make([]byte, 0, symbolCount*int(cfg.WordSize)), symbols, int(cfg.WordSize))
}

func decompressAndDebinarize(f frameSubseq, b format.BinarizationType, codec compress.Codec) ([]uint64, error) {
	if f.count == 0 {
		if len(f.payload) != 0 {
			return nil, fmt.Errorf("%w: payload for empty subsequence", errs.ErrCorruptFrame)
		}

		return []uint64{}, nil
	}

	dec, err := encoding.NewDecoder(b, f.width)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCorruptFrame, err)
	}

	raw, err := codec.Decompress(f.payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCorruptFrame, err)
	}
	// Every binarization spends at least one byte per symbol.
	if len(raw) < f.count {
		return nil, fmt.Errorf("%w: %d bytes for %d symbols", errs.ErrCorruptFrame, len(raw), f.count)
	}

	out := make([]uint64, f.count)
	if err := dec.DecodeInto(out, raw); err != nil {
		return nil, err
	}

	return out, nil
}
