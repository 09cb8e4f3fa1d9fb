package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "Should accept an empty ID", id: ""},
		{name: "Should accept a CI build name", id: "nightly-118_android.v2"},
		{name: "Should accept the longest allowed ID", id: strings.Repeat("a", MaxBuildIDLength)},
		{name: "Should reject a longer ID", id: strings.Repeat("a", MaxBuildIDLength+1), wantErr: ErrBuildIDTooLong},
		{name: "Should reject a relative path", id: "../../x", wantErr: ErrBuildIDCharset},
		{name: "Should reject a separator", id: "builds/7", wantErr: ErrBuildIDCharset},
		{name: "Should reject a key delimiter", id: "strip:7", wantErr: ErrBuildIDCharset},
		{name: "Should reject whitespace", id: "build 7", wantErr: ErrBuildIDCharset},
		{name: "Should reject the parent directory", id: "..", wantErr: ErrBuildIDCharset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, BuildID(tt.id), tt.wantErr)
		})
	}
}
