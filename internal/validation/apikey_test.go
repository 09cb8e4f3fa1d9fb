package validation

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIKeyMatches(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("build-farm-key"))
	hash := hex.EncodeToString(sum[:])

	tests := []struct {
		name string
		key  string
		hash string
		want bool
	}{
		{name: "Should accept the hashed key", key: "build-farm-key", hash: hash, want: true},
		{name: "Should accept an upper-case digest", key: "build-farm-key", hash: strings.ToUpper(hash), want: true},
		{name: "Should reject another key", key: "build-farm-key2", hash: hash},
		{name: "Should reject an empty key", key: "", hash: hash},
		{name: "Should reject when no hash is configured", key: "build-farm-key", hash: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, APIKeyMatches(tt.key, tt.hash))
		})
	}
}
