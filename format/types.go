package format

import "fmt"

type (
	TransformType    uint8
	BinarizationType uint8
	CompressionType  uint8
)

const (
	TransformNone     TransformType = 0x1 // TransformNone passes symbols through unchanged.
	TransformEquality TransformType = 0x2 // TransformEquality splits symbols into repeat flags and new values.
	TransformMatch    TransformType = 0x3 // TransformMatch replaces repeated runs with window back-references.
	TransformRLE      TransformType = 0x4 // TransformRLE splits symbols into values and run lengths.
	TransformDiff     TransformType = 0x5 // TransformDiff stores zigzag deltas between consecutive symbols.

	BinarizationFixed  BinarizationType = 0x1 // BinarizationFixed writes little-endian words of a fixed width.
	BinarizationVarint BinarizationType = 0x2 // BinarizationVarint writes unsigned varints.
	BinarizationSplit  BinarizationType = 0x3 // BinarizationSplit writes one byte plane per word byte.

	CompressionNone    CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd    CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2      CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4     CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
	CompressionFSE     CompressionType = 0x5 // CompressionFSE represents finite state entropy coding.
	CompressionHuffman CompressionType = 0x6 // CompressionHuffman represents Huffman (huff0) entropy coding.
)

var transformNames = map[TransformType]string{
	TransformNone:     "none",
	TransformEquality: "equality",
	TransformMatch:    "match",
	TransformRLE:      "rle",
	TransformDiff:     "diff",
}

var binarizationNames = map[BinarizationType]string{
	BinarizationFixed:  "fixed",
	BinarizationVarint: "varint",
	BinarizationSplit:  "split",
}

var compressionNames = map[CompressionType]string{
	CompressionNone:    "none",
	CompressionZstd:    "zstd",
	CompressionS2:      "s2",
	CompressionLZ4:     "lz4",
	CompressionFSE:     "fse",
	CompressionHuffman: "huffman",
}

// Transforms lists every supported transform in analysis order.
func Transforms() []TransformType {
	return []TransformType{TransformNone, TransformEquality, TransformMatch, TransformRLE, TransformDiff}
}

// Binarizations lists every supported binarization in analysis order.
func Binarizations() []BinarizationType {
	return []BinarizationType{BinarizationFixed, BinarizationVarint, BinarizationSplit}
}

// Compressions lists every supported entropy codec in analysis order.
func Compressions() []CompressionType {
	return []CompressionType{
		CompressionNone, CompressionZstd, CompressionS2,
		CompressionLZ4, CompressionFSE, CompressionHuffman,
	}
}

func (t TransformType) String() string {
	if name, ok := transformNames[t]; ok {
		return name
	}

	return "unknown"
}

func (t TransformType) Valid() bool {
	_, ok := transformNames[t]
	return ok
}

func (t TransformType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid transform type: %d", uint8(t))
	}

	return []byte(t.String()), nil
}

func (t *TransformType) UnmarshalText(text []byte) error {
	v, err := ParseTransform(string(text))
	if err != nil {
		return err
	}
	*t = v

	return nil
}

// ParseTransform returns the transform with the given name.
func ParseTransform(name string) (TransformType, error) {
	for t, n := range transformNames {
		if n == name {
			return t, nil
		}
	}

	return 0, fmt.Errorf("unknown transform: %q", name)
}

func (b BinarizationType) String() string {
	if name, ok := binarizationNames[b]; ok {
		return name
	}

	return "unknown"
}

func (b BinarizationType) Valid() bool {
	_, ok := binarizationNames[b]
	return ok
}

func (b BinarizationType) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid binarization type: %d", uint8(b))
	}

	return []byte(b.String()), nil
}

func (b *BinarizationType) UnmarshalText(text []byte) error {
	v, err := ParseBinarization(string(text))
	if err != nil {
		return err
	}
	*b = v

	return nil
}

// ParseBinarization returns the binarization with the given name.
func ParseBinarization(name string) (BinarizationType, error) {
	for b, n := range binarizationNames {
		if n == name {
			return b, nil
		}
	}

	return 0, fmt.Errorf("unknown binarization: %q", name)
}

func (c CompressionType) String() string {
	if name, ok := compressionNames[c]; ok {
		return name
	}

	return "unknown"
}

func (c CompressionType) Valid() bool {
	_, ok := compressionNames[c]
	return ok
}

func (c CompressionType) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid compression type: %d", uint8(c))
	}

	return []byte(c.String()), nil
}

func (c *CompressionType) UnmarshalText(text []byte) error {
	v, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = v

	return nil
}

// ParseCompression returns the entropy codec with the given name.
func ParseCompression(name string) (CompressionType, error) {
	for c, n := range compressionNames {
		if n == name {
			return c, nil
		}
	}

	return 0, fmt.Errorf("unknown compression: %q", name)
}
