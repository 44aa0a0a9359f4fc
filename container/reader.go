package container

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/arloliu/genostore/endian"
	"github.com/arloliu/genostore/errs"
	"github.com/arloliu/genostore/internal/options"
)

// Entry locates one record payload inside a container.
type Entry struct {
	Name   string
	Offset int64
	Length int64
}

// Reader serves random access lookups over a container.
//
// The index is built once by Open. Lookups seek the shared source under a mutex, so a
// Reader is safe for concurrent use.
type Reader struct {
	mu      sync.Mutex
	rs      io.ReadSeeker
	closer  io.Closer
	engine  endian.Engine
	entries []Entry
	index   map[string]int
}

// Open scans rs from the start and indexes every record.
//
// Truncated records and names longer than MaxNameLength fail with
// errs.ErrCorruptContainer. When a name appears more than once the last record wins.
func Open(rs io.ReadSeeker, opts ...Option) (*Reader, error) {
	s := defaultSettings()
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}

	r := &Reader{
		rs:     rs,
		engine: s.engine,
		index:  make(map[string]int),
	}
	if err := r.scan(); err != nil {
		return nil, err
	}

	return r, nil
}

// OpenFile opens and indexes the container at path. Close releases the file.
func OpenFile(path string, opts ...Option) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open container")
	}

	r, err := Open(f, opts...)
	if err != nil {
		_ = f.Close()
		return nil, errors.WithMessagef(err, "container %s", path)
	}
	r.closer = f

	return r, nil
}

func (r *Reader) scan() error {
	size, err := r.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return errors.Wrap(err, "seek container end")
	}
	if _, err := r.rs.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "seek container start")
	}

	var lenBuf [8]byte
	var offset int64
	for offset < size {
		nameLen, err := r.readLength(lenBuf[:], offset, size)
		if err != nil {
			return err
		}
		offset += 8
		if nameLen > MaxNameLength {
			return fmt.Errorf("%w: name length %d at offset %d", errs.ErrCorruptContainer, nameLen, offset-8)
		}
		if nameLen > uint64(size-offset) {
			return fmt.Errorf("%w: name truncated at offset %d", errs.ErrCorruptContainer, offset)
		}

		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r.rs, name); err != nil {
			return errors.Wrapf(err, "read name at offset %d", offset)
		}
		offset += int64(nameLen)

		payloadLen, err := r.readLength(lenBuf[:], offset, size)
		if err != nil {
			return err
		}
		offset += 8
		if payloadLen > uint64(size-offset) {
			return fmt.Errorf("%w: payload of %q truncated at offset %d", errs.ErrCorruptContainer, name, offset)
		}

		r.index[string(name)] = len(r.entries)
		r.entries = append(r.entries, Entry{Name: string(name), Offset: offset, Length: int64(payloadLen)})

		offset += int64(payloadLen)
		if _, err := r.rs.Seek(offset, io.SeekStart); err != nil {
			return errors.Wrapf(err, "skip payload of %q", name)
		}
	}

	_, err = r.rs.Seek(0, io.SeekStart)

	return errors.Wrap(err, "rewind container")
}

func (r *Reader) readLength(buf []byte, offset, size int64) (uint64, error) {
	if size-offset < int64(len(buf)) {
		return 0, fmt.Errorf("%w: length field truncated at offset %d", errs.ErrCorruptContainer, offset)
	}
	if _, err := io.ReadFull(r.rs, buf); err != nil {
		return 0, errors.Wrapf(err, "read length at offset %d", offset)
	}

	return r.engine.Uint64(buf), nil
}

// Unpack returns the payload stored under name. Absent names yield an empty payload
// and no error.
func (r *Reader) Unpack(name string) ([]byte, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, nil
	}
	e := r.entries[i]

	payload := make([]byte, e.Length)
	if e.Length == 0 {
		return payload, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.rs.Seek(e.Offset, io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "seek %q", name)
	}
	if _, err := io.ReadFull(r.rs, payload); err != nil {
		return nil, errors.Wrapf(err, "read %q", name)
	}

	return payload, nil
}

// Has reports whether a record named name exists.
func (r *Reader) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Lookup returns the entry serving name.
func (r *Reader) Lookup(name string) (Entry, bool) {
	i, ok := r.index[name]
	if !ok {
		return Entry{}, false
	}

	return r.entries[i], true
}

// Entries returns every record in file order, including records shadowed by a later
// record of the same name.
func (r *Reader) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Len returns the number of records.
func (r *Reader) Len() int {
	return len(r.entries)
}

// Close closes the file opened by OpenFile. It is a no-op for readers created by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil

	return errors.Wrap(err, "close container")
}
