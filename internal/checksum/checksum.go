package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the digest of data in "sha256:<hex>" form, so ledger
// records stay self-describing if the algorithm ever changes.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}
