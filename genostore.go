// Package genostore compresses named genomic descriptor streams into a flat, random
// access container.
//
// Producers submit dozens of independently named streams: quality values
// (quality_1.<n>), read identifier tokens (id_1.<a>.<b>.<n>), descriptor subsequences
// (subseq.<class>.<descriptor>.<n>) and opaque side channels. Streams that share a
// canonical config name share one transform config, derived by analysis the first time
// the name is seen and reused afterwards. Results are written in submission order.
//
// # Core Features
//
//   - Parallel compression with ticket-ordered output
//   - At most one config analysis per canonical name, even under contention
//   - Symbol transforms (equality, match, RLE, diff) with fixed, varint and split
//     binarizations
//   - Entropy codecs: Zstd, S2, LZ4, FSE and Huffman
//   - Configs persisted to a directory or packed into the container itself
//
// # Basic Usage
//
// Compressing a set of streams into a self-contained container:
//
//	import "github.com/arloliu/genostore"
//
//	data, err := genostore.Compress([]genostore.Stream{
//	    {Name: "quality_1.0", Data: qualities},
//	    {Name: "subseq.0.0.0", Data: positions},
//	})
//
// Restoring them:
//
//	streams, err := genostore.Decompress(data)
//	for _, s := range streams {
//	    fmt.Printf("%s: %d bytes\n", s.Name, len(s.Data))
//	}
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the store and container
// packages. For streaming use, config persistence and metrics, use store.Storeman
// directly.
package genostore

import (
	"bytes"
	"fmt"
	"io"

	"github.com/arloliu/genostore/container"
	"github.com/arloliu/genostore/store"
	"github.com/arloliu/genostore/stream"
)

// Stream is a named byte stream.
type Stream struct {
	Name string
	Data []byte
}

// NewStoreman creates a Storeman writing to w with custom options.
//
// Available options:
//   - store.WithWorkers(n)
//   - store.WithMode(store.ModeCompress|store.ModeDecompress)
//   - store.WithSource(store.NewDirSource(dir)|store.NewContainerSource(r)|store.NewMemorySource())
//   - store.WithRegistry(r), store.WithEngine(e)
//   - store.WithVerify(true)
//   - store.WithLogger(l), store.WithRegisterer(reg)
//   - store.WithContainerOptions(container.WithByteOrder(endian.Big()))
//
// Example:
//
//	sm, err := genostore.NewStoreman(f, store.WithWorkers(8))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sm.Close()
func NewStoreman(w io.Writer, opts ...store.Option) (*store.Storeman, error) {
	return store.New(w, opts...)
}

// NewDirStoreman creates a compressing Storeman that loads configs from dir and saves
// the configs it derives there, so later runs skip analysis.
func NewDirStoreman(w io.Writer, dir string, opts ...store.Option) (*store.Storeman, error) {
	allOpts := append([]store.Option{store.WithSource(store.NewDirSource(dir))}, opts...)
	return store.New(w, allOpts...)
}

// ConfigName returns the canonical config name that stream name shares its config
// under.
//
//	genostore.ConfigName("quality_1.3")  // "quality_1"
//	genostore.ConfigName("id_1.2.0.5")   // "id_1.5"
//	genostore.ConfigName("subseq.8.2.0") // "subseq.2"
//	genostore.ConfigName("cp.bin")       // "cp.bin"
func ConfigName(name string) string {
	return stream.ConfigName(name)
}

// Compress stores streams in one container, in order, followed by the configs needed
// to restore them. Stream names must be unique.
//
// Parameters:
//   - streams: the streams to compress; the data slices are not modified
//   - opts: Storeman options; the mode is always ModeCompress
//
// Returns:
//   - []byte: the container bytes, readable by Decompress
//   - error: the first failure of any stream
func Compress(streams []Stream, opts ...store.Option) ([]byte, error) {
	var buf bytes.Buffer

	allOpts := append(append([]store.Option(nil), opts...), store.WithMode(store.ModeCompress))
	sm, err := store.New(&buf, allOpts...)
	if err != nil {
		return nil, err
	}

	for _, s := range streams {
		if err := sm.Store(s.Name, bytes.Clone(s.Data)); err != nil {
			_ = sm.Close()
			return nil, err
		}
	}

	if err := sm.PackConfigs(); err != nil {
		_ = sm.Close()
		return nil, err
	}
	if err := sm.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decompress restores every stream of a container produced by Compress, in container
// order. Config records are consumed and not returned.
//
// Container options passed with store.WithContainerOptions apply to both the input
// and the restored output.
func Decompress(data []byte, opts ...store.Option) ([]Stream, error) {
	r, err := container.Open(bytes.NewReader(data), store.ContainerOptions(opts...)...)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	allOpts := append(append([]store.Option(nil), opts...),
		store.WithMode(store.ModeDecompress),
		store.WithSource(store.NewContainerSource(r)),
	)
	sm, err := store.New(&buf, allOpts...)
	if err != nil {
		return nil, err
	}

	names := streamNames(r)
	for _, name := range names {
		payload, err := r.Unpack(name)
		if err == nil {
			err = sm.Store(name, payload)
		}
		if err != nil {
			_ = sm.Close()
			return nil, fmt.Errorf("restore %q: %w", name, err)
		}
	}
	if err := sm.Close(); err != nil {
		return nil, err
	}

	out, err := container.Open(bytes.NewReader(buf.Bytes()), store.ContainerOptions(opts...)...)
	if err != nil {
		return nil, err
	}

	streams := make([]Stream, 0, len(names))
	for _, name := range names {
		payload, err := out.Unpack(name)
		if err != nil {
			return nil, err
		}
		streams = append(streams, Stream{Name: name, Data: payload})
	}

	return streams, nil
}

// streamNames lists the records of r that are not config records. A record is a
// config record when its name is the canonical config name of another record plus
// store.ConfigSuffix.
func streamNames(r *container.Reader) []string {
	entries := r.Entries()

	configs := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		configs[stream.ConfigName(e.Name)+store.ConfigSuffix] = struct{}{}
	}

	seen := make(map[string]struct{}, len(entries))
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := configs[e.Name]; ok {
			continue
		}
		if _, ok := seen[e.Name]; ok {
			continue
		}
		seen[e.Name] = struct{}{}
		names = append(names, e.Name)
	}

	return names
}
