// Package endian provides the byte order engines used by the genostore container.
//
// The container format has no magic number or version field, so both sides must agree
// on the byte order out of band. Little-endian is the default for new containers;
// Native matches the host, which is what containers written by in-memory dumps use.
//
//	engine := endian.Little()
//	buf = engine.AppendUint64(buf, uint64(len(name)))
//
// All engines are immutable and safe for concurrent use.
package endian

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unsafe"
)

// Engine combines ByteOrder and AppendByteOrder from encoding/binary so that
// record headers can be both decoded in place and appended without temporaries.
type Engine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Little returns the little-endian engine.
func Little() Engine {
	return binary.LittleEndian
}

// Big returns the big-endian engine.
func Big() Engine {
	return binary.BigEndian
}

// Native returns the engine matching the host byte order.
func Native() Engine {
	// 0x0100 stores 0x01 first on big-endian hosts.
	var i uint16 = 0x0100
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// IsNative reports whether engine matches the host byte order.
func IsNative(engine Engine) bool {
	return engine == Native()
}

// Parse maps a configuration name ("little", "big" or "native") to an engine.
func Parse(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "little", "le":
		return Little(), nil
	case "big", "be":
		return Big(), nil
	case "native":
		return Native(), nil
	default:
		return nil, fmt.Errorf("unknown byte order: %q", name)
	}
}
