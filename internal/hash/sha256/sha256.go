// Package sha256 provides SHA-256 digest helpers.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the full hex digest of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Short returns the first n hex characters of the digest. It is used to
// derive stable, collision-resistant filename suffixes from URLs.
func Short(data []byte, n int) string {
	digest := Sum(data)
	if n <= 0 || n >= len(digest) {
		return digest
	}
	return digest[:n]
}
