package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/genostore/endian"
	"github.com/arloliu/genostore/errs"
)

type record struct {
	name    string
	payload []byte
}

func packAll(t *testing.T, records []record, opts ...Option) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, opts...)
	require.NoError(t, err)

	for _, r := range records {
		require.NoError(t, w.Pack(r.name, r.payload))
	}
	require.NoError(t, w.Flush())
	require.Equal(t, int64(buf.Len()), w.Written())
	require.Equal(t, len(records), w.Records())

	return buf.Bytes()
}

func TestWriter_Layout(t *testing.T) {
	data := packAll(t, []record{
		{"ab", []byte{0xAA, 0xBB, 0xCC}},
		{"e", nil},
	})

	want := []byte{
		2, 0, 0, 0, 0, 0, 0, 0, 'a', 'b',
		3, 0, 0, 0, 0, 0, 0, 0, 0xAA, 0xBB, 0xCC,
		1, 0, 0, 0, 0, 0, 0, 0, 'e',
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	require.Equal(t, want, data)

	big := packAll(t, []record{{"ab", []byte{1}}}, WithByteOrder(endian.Big()))
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 2, 'a', 'b', 0, 0, 0, 0, 0, 0, 0, 1, 1}, big)
}

func TestContainer_RoundTrip(t *testing.T) {
	records := []record{
		{"quality_1.0", bytes.Repeat([]byte{0x25}, 1000)},
		{"id_1.0.0.1", []byte("SRR062634")},
		{"subseq.0.0.0", nil},
		{"cp.bin", []byte{0}},
		{"subseq.1.2.0", bytes.Repeat([]byte{1, 2, 3}, 5000)},
	}

	for _, engine := range []endian.Engine{endian.Little(), endian.Big(), endian.Native()} {
		t.Run(fmt.Sprintf("%T", engine), func(t *testing.T) {
			data := packAll(t, records, WithByteOrder(engine))

			r, err := Open(bytes.NewReader(data), WithByteOrder(engine))
			require.NoError(t, err)
			require.Equal(t, len(records), r.Len())

			entries := r.Entries()
			for i, rec := range records {
				require.Equal(t, rec.name, entries[i].Name)
				require.Equal(t, int64(len(rec.payload)), entries[i].Length)
				require.True(t, r.Has(rec.name))

				got, err := r.Unpack(rec.name)
				require.NoError(t, err)
				require.Len(t, got, len(rec.payload))
				if len(rec.payload) > 0 {
					require.Equal(t, rec.payload, got)
				}
			}
		})
	}
}

func TestReader_AbsentName(t *testing.T) {
	r, err := Open(bytes.NewReader(packAll(t, []record{{"a", []byte{1}}})))
	require.NoError(t, err)

	got, err := r.Unpack("missing")
	require.NoError(t, err)
	require.Empty(t, got)
	require.False(t, r.Has("missing"))

	_, ok := r.Lookup("missing")
	require.False(t, ok)
}

func TestReader_EmptyContainer(t *testing.T) {
	r, err := Open(bytes.NewReader(nil))
	require.NoError(t, err)
	require.Zero(t, r.Len())
	require.Empty(t, r.Entries())
}

func TestReader_DuplicateLastWins(t *testing.T) {
	data := packAll(t, []record{
		{"dup", []byte("first")},
		{"other", []byte("x")},
		{"dup", []byte("second")},
	})

	r, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 3, r.Len())

	got, err := r.Unpack("dup")
	require.NoError(t, err)
	require.Equal(t, []byte("second"), got)

	e, ok := r.Lookup("dup")
	require.True(t, ok)
	require.Equal(t, r.Entries()[2], e)
}

func TestReader_Corrupt(t *testing.T) {
	good := packAll(t, []record{{"name", []byte("payload")}})

	hugeName := make([]byte, 16)
	binary.LittleEndian.PutUint64(hugeName, MaxNameLength+1)

	tests := []struct {
		name string
		data []byte
	}{
		{"partial_name_length", good[:5]},
		{"truncated_name", good[:10]},
		{"missing_payload_length", good[:12]},
		{"partial_payload_length", good[:15]},
		{"truncated_payload", good[:len(good)-1]},
		{"trailing_garbage", append(bytes.Clone(good), 1, 2, 3)},
		{"name_too_long", hugeName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(bytes.NewReader(tt.data))
			require.ErrorIs(t, err, errs.ErrCorruptContainer)
		})
	}
}

func TestReader_WrongByteOrder(t *testing.T) {
	data := packAll(t, []record{{"name", []byte("payload")}}, WithByteOrder(endian.Big()))

	_, err := Open(bytes.NewReader(data))
	require.ErrorIs(t, err, errs.ErrCorruptContainer)
}

func TestWriter_Names(t *testing.T) {
	w, err := NewWriter(&bytes.Buffer{})
	require.NoError(t, err)

	require.ErrorIs(t, w.Pack("", []byte{1}), errs.ErrEmptyStreamName)
	require.ErrorIs(t, w.Pack(strings.Repeat("n", MaxNameLength+1), nil), errs.ErrNameTooLong)
	require.NoError(t, w.Pack(strings.Repeat("n", MaxNameLength), nil))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriter_SinkFailure(t *testing.T) {
	w, err := NewWriter(failingWriter{}, WithBufferSize(16))
	require.NoError(t, err)

	err = w.Pack("stream", bytes.Repeat([]byte{1}, 64))
	if err == nil {
		err = w.Flush()
	}
	require.ErrorContains(t, err, "disk full")
}

func TestOptions_Invalid(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, WithBufferSize(0))
	require.Error(t, err)

	_, err = Open(bytes.NewReader(nil), WithByteOrder(nil))
	require.Error(t, err)
}

func TestWriter_ConcurrentPack(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Pack(fmt.Sprintf("stream.%d", i), bytes.Repeat([]byte{byte(i)}, i)))
		}()
	}
	wg.Wait()
	require.NoError(t, w.Flush())

	r, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 50, r.Len())

	for i := range 50 {
		got, err := r.Unpack(fmt.Sprintf("stream.%d", i))
		require.NoError(t, err)
		require.Len(t, got, i)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.bin")
	require.NoError(t, os.WriteFile(path, packAll(t, []record{{"a", []byte("xyz")}}), 0o600))

	r, err := OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, r.Close()) })

	got, err := r.Unpack("a")
	require.NoError(t, err)
	require.Equal(t, []byte("xyz"), got)

	_, err = OpenFile(filepath.Join(t.TempDir(), "missing.bin"))
	require.Error(t, err)

	corrupt := filepath.Join(t.TempDir(), "corrupt.bin")
	require.NoError(t, os.WriteFile(corrupt, []byte{1, 2, 3}, 0o600))
	_, err = OpenFile(corrupt)
	require.ErrorIs(t, err, errs.ErrCorruptContainer)
}
