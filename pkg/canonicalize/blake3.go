package canonicalize

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// ContentHash returns the hex-encoded BLAKE3-256 digest of raw bytes.
// Receipts hash their stored payload this way; events and fingerprints
// hash a JCS-canonicalized composite this way too.
func ContentHash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CanonicalContentHash JCS-canonicalizes v and returns its BLAKE3-256 hex digest.
func CanonicalContentHash(v interface{}) (string, error) {
	b, err := JCS(v)
	if err != nil {
		return "", err
	}
	return ContentHash(b), nil
}
