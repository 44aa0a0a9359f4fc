// Package container implements the flat record container that holds compressed streams.
//
// A container is a sequence of records with no magic number, version or trailer:
//
//	uint64  name length
//	bytes   name
//	uint64  payload length
//	bytes   payload (absent when the length is zero)
//
// Lengths use the byte order chosen with WithByteOrder, little-endian by default. Readers
// build a name index with one sequential scan and then serve random access lookups.
package container

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/arloliu/genostore/endian"
	"github.com/arloliu/genostore/errs"
	"github.com/arloliu/genostore/internal/options"
	"github.com/arloliu/genostore/internal/pool"
)

// MaxNameLength is the longest stream name a record may carry. Readers treat longer
// names as corruption.
const MaxNameLength = 64 * 1024

// Writer appends records to an output sink.
//
// Writer is safe for concurrent use, but record order is the order Pack calls acquire
// the writer; callers that need a particular order serialize Pack themselves.
type Writer struct {
	mu      sync.Mutex
	w       *bufio.Writer
	engine  endian.Engine
	written int64
	records int
}

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer, opts ...Option) (*Writer, error) {
	s := defaultSettings()
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}

	return &Writer{
		w:      bufio.NewWriterSize(w, s.bufferSize),
		engine: s.engine,
	}, nil
}

// Pack appends one record. The payload is written as is and omitted for empty payloads.
func (w *Writer) Pack(name string, payload []byte) error {
	if err := checkName(name); err != nil {
		return err
	}

	header := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(header)

	header.B = w.engine.AppendUint64(header.B, uint64(len(name)))
	header.B = append(header.B, name...)
	header.B = w.engine.AppendUint64(header.B, uint64(len(payload)))

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.Write(header.B); err != nil {
		return errors.Wrapf(err, "write record header %q", name)
	}
	if len(payload) > 0 {
		if _, err := w.w.Write(payload); err != nil {
			return errors.Wrapf(err, "write record payload %q", name)
		}
	}

	w.written += int64(header.Len() + len(payload))
	w.records++

	return nil
}

// Flush writes buffered records to the underlying sink.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return errors.Wrap(w.w.Flush(), "flush container")
}

// Written returns the number of bytes packed so far, buffered or not.
func (w *Writer) Written() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.written
}

// Records returns the number of records packed so far.
func (w *Writer) Records() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.records
}

func checkName(name string) error {
	if name == "" {
		return errs.ErrEmptyStreamName
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: %d bytes", errs.ErrNameTooLong, len(name))
	}

	return nil
}
