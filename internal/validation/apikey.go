package validation

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// APIKeyMatches reports whether the SHA-256 of key equals the configured hex
// digest. The digest is compared in constant time and case-insensitively, so
// hashes pasted from `sha256sum` or from an upper-case tool both work.
//
// An empty key never matches.
func APIKeyMatches(key, hexHash string) bool {
	if key == "" || hexHash == "" {
		return false
	}
	sum := sha256.Sum256([]byte(key))
	got := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(hexHash))) == 1
}
