package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringMatch_Evaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern Pattern
		input   string
		want    bool
	}{
		{"Should match equal names", Pattern{ModeEquals, "UI/Default"}, "UI/Default", true},
		{"Should not match equals case-insensitively", Pattern{ModeEquals, "UI/Default"}, "ui/default", false},
		{"Should match a substring", Pattern{ModeContains, "Particle"}, "Legacy/Particles/Additive", true},
		{"Should match a prefix", Pattern{ModePrefix, "UI/"}, "UI/Default", true},
		{"Should reject a non-prefix", Pattern{ModePrefix, "UI/"}, "Custom/UI/Default", false},
		{"Should match a suffix", Pattern{ModeSuffix, "/Lit"}, "Custom/Lit", true},
		{"Should match a regex", Pattern{ModeRegex, `^Custom/(Lit|Unlit)$`}, "Custom/Unlit", true},
		{"Should reject a regex mismatch", Pattern{ModeRegex, `^Custom/(Lit|Unlit)$`}, "Custom/LitExtra", false},
		{"Should match a single-segment glob", Pattern{ModeGlob, "UI/*"}, "UI/Default", true},
		{"Should not cross separators with a single star", Pattern{ModeGlob, "UI/*"}, "UI/Lit/Text", false},
		{"Should cross separators with a double star", Pattern{ModeGlob, "UI/**"}, "UI/Lit/Text", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := Compile(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Evaluate(tt.input))
			assert.Equal(t, tt.pattern, m.Pattern())
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern Pattern
		wantErr string
	}{
		{"Should reject an empty value", Pattern{ModePrefix, ""}, "empty prefix pattern"},
		{"Should reject an unknown mode", Pattern{"fuzzy", "x"}, "unknown match mode"},
		{"Should reject an invalid regex", Pattern{ModeRegex, "("}, "invalid regex"},
		{"Should reject an invalid glob", Pattern{ModeGlob, "[a"}, "invalid glob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Compile(tt.pattern)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSet(t *testing.T) {
	t.Parallel()

	set, err := CompileAll([]Pattern{
		{ModePrefix, "UI/"},
		{ModeSuffix, "Debug"},
	})
	require.NoError(t, err)

	m, ok := set.Any("Hidden/Debug")
	require.True(t, ok)
	assert.Equal(t, ModeSuffix, m.Pattern().Mode)

	_, ok = set.Any("Custom/Lit")
	assert.False(t, ok)

	var empty Set
	_, ok = empty.Any("anything")
	assert.False(t, ok, "an empty set matches nothing")

	_, err = CompileAll([]Pattern{{ModePrefix, "ok"}, {ModeRegex, "("}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pattern 1")
}
