package transform

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/arloliu/genostore/errs"
	"github.com/arloliu/genostore/format"
	"github.com/arloliu/genostore/internal/hash"
	"github.com/arloliu/genostore/registry"
)

const (
	// DefaultMatchWindow is the look-back distance of the match transform when the
	// config leaves the parameter at zero.
	DefaultMatchWindow = 32
	// DefaultRLEGuard is the longest run the rle transform emits when the config leaves
	// the parameter at zero.
	DefaultRLEGuard = 255
)

// Config describes how one stream class is transformed and entropy coded.
//
// A Config is immutable once it has been handed to a Storeman: every job of the same
// canonical name shares the pointer.
type Config struct {
	// WordSize is the symbol width in bytes: 1, 2, 4 or 8.
	WordSize uint8 `json:"word_size"`
	// Transform splits the symbols into subsequences.
	Transform format.TransformType `json:"transform"`
	// Param is the match window or rle guard. Zero selects the default.
	Param uint64 `json:"transform_param,omitempty"`
	// Binarization lays every subsequence out as bytes.
	Binarization format.BinarizationType `json:"binarization"`
	// Codec entropy codes every binarized subsequence.
	Codec format.CompressionType `json:"codec"`
	// MaxValue is the largest symbol accepted on compression.
	MaxValue uint64 `json:"max_value"`
}

// DefaultConfig returns the pass-through config used when a stream class has no
// persisted config and analysis is not allowed.
func DefaultConfig(c registry.Constraints) *Config {
	return &Config{
		WordSize:     c.WordSize,
		Transform:    format.TransformNone,
		Binarization: format.BinarizationFixed,
		Codec:        format.CompressionZstd,
		MaxValue:     c.MaxValue,
	}
}

// Validate reports whether every field holds a supported value.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", errs.ErrInvalidConfig)
	}

	constraints := registry.Constraints{MaxValue: c.MaxValue, WordSize: c.WordSize}
	if err := constraints.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidConfig, err)
	}
	if !c.Transform.Valid() {
		return fmt.Errorf("%w: transform %d", errs.ErrInvalidConfig, c.Transform)
	}
	if !c.Binarization.Valid() {
		return fmt.Errorf("%w: binarization %d", errs.ErrInvalidConfig, c.Binarization)
	}
	if !c.Codec.Valid() {
		return fmt.Errorf("%w: codec %d", errs.ErrInvalidConfig, c.Codec)
	}

	return nil
}

// param returns the transform parameter with defaults applied.
func (c *Config) param() uint64 {
	if c.Param != 0 {
		return c.Param
	}

	switch c.Transform {
	case format.TransformMatch:
		return DefaultMatchWindow
	case format.TransformRLE:
		return DefaultRLEGuard
	default:
		return 0
	}
}

// Marshal serializes the config as indented JSON, the format of persisted config files.
func (c *Config) Marshal() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return json.MarshalIndent(c, "", "  ")
}

// ParseConfig decodes and validates a JSON config.
func ParseConfig(data []byte) (*Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Fingerprint returns a stable hash of the config, used to tag log entries.
func (c *Config) Fingerprint() uint64 {
	return hash.Fingerprint(
		strconv.Itoa(int(c.WordSize)),
		c.Transform.String(),
		strconv.FormatUint(c.param(), 10),
		c.Binarization.String(),
		c.Codec.String(),
		strconv.FormatUint(c.MaxValue, 10),
	)
}

func (c *Config) String() string {
	return fmt.Sprintf("%s(%d)/%s/%s w%d max=%d",
		c.Transform, c.param(), c.Binarization, c.Codec, c.WordSize, c.MaxValue)
}
