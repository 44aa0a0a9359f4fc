package compress

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/rand"
	"testing"

	"github.com/arloliu/genostore/format"
	"github.com/stretchr/testify/require"
)

func getAllCodecs() map[string]Codec {
	return map[string]Codec{
		"NoOp":    NewNoOpCompressor(),
		"LZ4":     NewLZ4Compressor(),
		"S2":      NewS2Compressor(),
		"Zstd":    NewZstdCompressor(),
		"FSE":     NewFSECompressor(),
		"Huffman": NewHuffmanCompressor(),
	}
}

// qualityLike returns bytes drawn from a narrow, skewed alphabet like Phred quality strings.
func qualityLike(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	data := make([]byte, n)
	for i := range data {
		switch r := rng.Intn(100); {
		case r < 70:
			data[i] = 'F'
		case r < 90:
			data[i] = ':'
		default:
			data[i] = byte('#' + rng.Intn(10))
		}
	}

	return data
}

func TestCreateCodec(t *testing.T) {
	for _, ct := range format.Compressions() {
		codec, err := CreateCodec(ct, "test")
		require.NoError(t, err)
		require.NotNil(t, codec)

		shared, err := GetCodec(ct)
		require.NoError(t, err)
		require.NotNil(t, shared)
	}

	_, err := CreateCodec(format.CompressionType(0x7f), "qv")
	require.ErrorContains(t, err, "invalid qv compression")

	_, err = GetCodec(format.CompressionType(0))
	require.Error(t, err)
}

func TestAllCodecs_EmptyData(t *testing.T) {
	for name, codec := range getAllCodecs() {
		t.Run(name, func(t *testing.T) {
			compressed, err := codec.Compress(nil)
			require.NoError(t, err)
			require.Empty(t, compressed)

			decompressed, err := codec.Decompress(nil)
			require.NoError(t, err)
			require.Empty(t, decompressed)

			compressed, err = codec.Compress([]byte{})
			require.NoError(t, err)

			decompressed, err = codec.Decompress(compressed)
			require.NoError(t, err)
			require.Empty(t, decompressed)
		})
	}
}

func TestAllCodecs_RoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{"single_byte", []byte{0x42}},
		{"two_bytes", []byte{0x42, 0x43}},
		{"binary_data", []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE, 0xFD, 0xFC}},
		{"repeated_pattern", bytes.Repeat([]byte("ACGT"), 100)},
		{"single_symbol_run", bytes.Repeat([]byte{'N'}, 5000)},
		{"quality_values", qualityLike(20000, 1)},
		{"read_names", bytes.Repeat([]byte("@SRR062634.1 HWI-EAS110_103327062:6:13:11133:5323/1"), 300)},
		{"zeros_beyond_huffman_block", make([]byte, 600*1024)},
		{"quality_beyond_huffman_block", qualityLike(700*1024, 2)},
		{"pseudo_random", func() []byte {
			data := make([]byte, 4096)
			rng := rand.New(rand.NewSource(7))
			_, _ = rng.Read(data)

			return data
		}()},
	}

	for codecName, codec := range getAllCodecs() {
		t.Run(codecName, func(t *testing.T) {
			for _, tc := range testCases {
				t.Run(tc.name, func(t *testing.T) {
					compressed, err := codec.Compress(tc.data)
					require.NoError(t, err)
					require.NotEmpty(t, compressed)

					decompressed, err := codec.Decompress(compressed)
					require.NoError(t, err)
					require.True(t, bytes.Equal(tc.data, decompressed), "decompressed data must match original")
				})
			}
		})
	}
}

func TestEntropyCodecs_Shrink(t *testing.T) {
	data := qualityLike(64*1024, 3)
	for _, codec := range []Codec{NewFSECompressor(), NewHuffmanCompressor()} {
		compressed, err := codec.Compress(data)
		require.NoError(t, err)
		require.Less(t, len(compressed), len(data)/2, "%T should exploit the skewed histogram", codec)
	}
}

func TestEntropyCodecs_Modes(t *testing.T) {
	fse := NewFSECompressor()

	rle, err := fse.Compress(bytes.Repeat([]byte{7}, 100))
	require.NoError(t, err)
	require.Equal(t, blockRLE, rle[0])
	require.Len(t, rle, 3)

	raw, err := fse.Compress([]byte{1})
	require.NoError(t, err)
	require.Equal(t, []byte{blockRaw, 1}, raw)

	huff := NewHuffmanCompressor()
	out, err := huff.Compress(bytes.Repeat([]byte{9}, 10))
	require.NoError(t, err)
	require.Equal(t, []byte{blockRLE, 10, 9}, out)
}

func TestAllCodecs_InvalidData(t *testing.T) {
	invalidInputs := []struct {
		name string
		data []byte
	}{
		{"random_bytes", []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{"text_as_compressed", []byte("this is not compressed data")},
	}

	for codecName, codec := range getAllCodecs() {
		t.Run(codecName, func(t *testing.T) {
			if codecName == "NoOp" {
				t.Skip("NoOp codec doesn't validate data")
			}

			for _, input := range invalidInputs {
				t.Run(input.name, func(t *testing.T) {
					_, err := codec.Decompress(input.data)
					require.Error(t, err)
				})
			}
		})
	}
}

func TestEntropyCodecs_Truncated(t *testing.T) {
	data := qualityLike(4096, 4)
	for _, codec := range []Codec{NewHuffmanCompressor()} {
		compressed, err := codec.Compress(data)
		require.NoError(t, err)

		_, err = codec.Decompress(compressed[:len(compressed)/2])
		require.Error(t, err)
	}

	_, err := NewFSECompressor().Decompress([]byte{blockRLE, 0x80})
	require.Error(t, err)
}

func TestAllCodecs_ConcurrentUsage(t *testing.T) {
	const numGoroutines = 20
	testData := qualityLike(8192, 5)

	for codecName, codec := range getAllCodecs() {
		t.Run(codecName, func(t *testing.T) {
			compressed, err := codec.Compress(testData)
			require.NoError(t, err)

			done := make(chan error, numGoroutines*2)
			for range numGoroutines {
				go func() {
					_, err := codec.Compress(testData)
					done <- err
				}()
				go func() {
					decompressed, err := codec.Decompress(compressed)
					if err != nil {
						done <- err
						return
					}
					if !bytes.Equal(testData, decompressed) {
						done <- fmt.Errorf("data mismatch")
						return
					}
					done <- nil
				}()
			}

			for range numGoroutines * 2 {
				require.NoError(t, <-done)
			}
		})
	}
}

func TestLengthPrefixedCodecs_BadHeader(t *testing.T) {
	data := qualityLike(4096, 6)

	tests := []struct {
		name  string
		codec Codec
	}{
		{"LZ4", NewLZ4Compressor()},
		{"S2", NewS2Compressor()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := tt.codec.Compress(data)
			require.NoError(t, err)

			// Claim one more decoded byte than the block holds.
			lying := binary.AppendUvarint(nil, uint64(len(data)+1))
			_, hdr := binary.Uvarint(compressed)
			lying = append(lying, compressed[hdr:]...)
			_, err = tt.codec.Decompress(lying)
			require.Error(t, err)

			// Claim far more than any block of this size can decode to.
			huge := binary.AppendUvarint(nil, 1<<40)
			huge = append(huge, compressed[hdr:]...)
			_, err = tt.codec.Decompress(huge)
			require.Error(t, err)
		})
	}
}
