// Package registry holds the bootstrap constraints used to analyze stream classes that
// have no persisted transform config yet.
//
// A Registry is immutable once built and is passed to the Storeman explicitly, so tests
// can run several Storemen against different tables in one process.
package registry

import (
	"fmt"
	"maps"
	"slices"
)

// Constraints bound the symbols of one stream class.
type Constraints struct {
	// MaxValue is the largest symbol the stream may carry.
	MaxValue uint64 `json:"max_value"`
	// WordSize is the symbol width in bytes: 1, 2, 4 or 8.
	WordSize uint8 `json:"word_size"`
}

// Validate checks that the word size is supported and the max value fits in it.
func (c Constraints) Validate() error {
	switch c.WordSize {
	case 1, 2, 4, 8:
	default:
		return fmt.Errorf("unsupported word size %d", c.WordSize)
	}

	if c.WordSize < 8 && c.MaxValue >= 1<<(8*uint(c.WordSize)) {
		return fmt.Errorf("max value %d does not fit in %d byte words", c.MaxValue, c.WordSize)
	}

	return nil
}

// Registry maps canonical config names to constraints.
type Registry struct {
	entries map[string]Constraints
}

// New builds a registry from entries. The map is copied and every entry validated.
func New(entries map[string]Constraints) (*Registry, error) {
	for name, c := range entries {
		if name == "" {
			return nil, fmt.Errorf("registry entry with empty name")
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("registry entry %q: %w", name, err)
		}
	}

	return &Registry{entries: maps.Clone(entries)}, nil
}

// MustNew is like New but panics on invalid entries. It is meant for static tables.
func MustNew(entries map[string]Constraints) *Registry {
	r, err := New(entries)
	if err != nil {
		panic(err)
	}

	return r
}

// Lookup returns the constraints registered for a canonical name.
func (r *Registry) Lookup(name string) (Constraints, bool) {
	if r == nil {
		return Constraints{}, false
	}
	c, ok := r.entries[name]

	return c, ok
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}

	return len(r.entries)
}

// Names returns the registered names in lexical order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}

	return slices.Sorted(maps.Keys(r.entries))
}

// With returns a new registry that adds or replaces the given entries.
// The receiver is left untouched.
func (r *Registry) With(entries map[string]Constraints) (*Registry, error) {
	merged := make(map[string]Constraints, r.Len()+len(entries))
	if r != nil {
		maps.Copy(merged, r.entries)
	}
	maps.Copy(merged, entries)

	return New(merged)
}
