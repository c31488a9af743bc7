package storage

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// ETag returns the entity tag for data: the hex BLAKE3-256 digest.
func ETag(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
