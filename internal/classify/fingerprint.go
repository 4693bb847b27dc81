package classify

import (
	"encoding/hex"
	"hash/fnv"
)

// Fingerprint hashes raw bundle JSON bytes into a 16-char hex string using a
// non-cryptographic stable hash, per spec §4.S4 ("model fingerprint").
// FNV-1a 64-bit naturally yields 8 bytes -> 16 hex chars with no truncation.
func Fingerprint(raw []byte) string {
	h := fnv.New64a()
	_, _ = h.Write(raw) // hash.Hash.Write never returns an error
	return hex.EncodeToString(h.Sum(nil))
}
