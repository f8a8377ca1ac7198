package index

import "github.com/cespare/xxhash/v2"

// tokenHash hashes a token to a shard index. Grounded on the teacher's use
// of github.com/cespare/xxhash/v2 in internal/core/file_content_store.go
// for fast, non-cryptographic equality/bucket keys.
func tokenHash(token string) uint64 {
	return xxhash.Sum64String(token)
}
