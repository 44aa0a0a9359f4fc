package hash

import "github.com/cespare/xxhash/v2"

// Digest computes the xxHash64 of a stream payload.
func Digest(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Fingerprint computes the xxHash64 over a sequence of parts, separating them so
// that ("ab", "c") and ("a", "bc") do not collide.
func Fingerprint(parts ...string) uint64 {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(p)
		_, _ = d.Write([]byte{0})
	}

	return d.Sum64()
}
