package hash

import "github.com/cespare/xxhash/v2"

// Content computes the 32-bit content hash stored in stream and database headers.
// It is the low half of the xxHash64 of data.
func Content(data []byte) uint32 {
	return uint32(xxhash.Sum64(data)) //nolint:gosec // truncation is the hash definition
}
