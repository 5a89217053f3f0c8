// Package validate provides content hashing for change detection and JSON
// schema validation for persisted documents. Hashes are fast and stable but
// not cryptographic; they exist so that the cache and watcher can tell real
// content changes apart from touch-without-write events.
package validate

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hash computes a stable 64-bit digest of the content.
func Hash(content []byte) uint64 {
	return xxhash.Sum64(content)
}

// HashString returns the digest formatted as a fixed-width hex string,
// suitable for logs and lock payloads.
func HashString(content []byte) string {
	return fmt.Sprintf("%016x", Hash(content))
}
