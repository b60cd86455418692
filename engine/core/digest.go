package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the full hex encoded sha256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ShortHash returns the hex encoding of the first 16 bytes of sha256(s).
func ShortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}
