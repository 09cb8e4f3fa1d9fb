package ruleengine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigtrap/shaderstrip/internal/match"
	"github.com/sigtrap/shaderstrip/internal/variant"
)

func TestForceKeywords_KeywordConditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cond  KeywordCondition
		input []string
		want  variant.Keywords
	}{
		{
			name:  "Should enable the forced keyword when the match is present",
			cond:  KeywordCondition{Match: "FOO", Force: "BAR"},
			input: []string{"FOO"},
			want:  []string{"BAR", "FOO"},
		},
		{
			name:  "Should leave the variant alone when the match is absent",
			cond:  KeywordCondition{Match: "FOO", Force: "BAR"},
			input: []string{"BAZ"},
			want:  []string{"BAZ"},
		},
		{
			name:  "Should treat an absent keyword as matched when inverted",
			cond:  KeywordCondition{Match: "FOO", Force: "BAR", InvertMatch: true},
			input: []string{"BAZ"},
			want:  []string{"BAR", "BAZ"},
		},
		{
			name:  "Should disable the forced keyword with invert force",
			cond:  KeywordCondition{Match: "FOO", Force: "BAR", InvertForce: true},
			input: []string{"BAR", "FOO"},
			want:  []string{"FOO"},
		},
		{
			name:  "Should be able to disable the matched keyword itself",
			cond:  KeywordCondition{Match: "FOO", Force: "FOO", InvertForce: true},
			input: []string{"FOO", "X"},
			want:  []string{"X"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rule := NewForceKeywords(NewBase("force", true, 0), ForceKeywordsConfig{Keywords: []KeywordCondition{tt.cond}})
			require.NoError(t, rule.Initialize(context.Background()))

			list := variants(tt.input)
			rule.Strip(Discard, Snippet{Shader: shaderS1}, &list)

			require.Len(t, list, 1, "forcing never removes variants")
			assert.Equal(t, tt.want, list[0].Keywords.Keywords())
		})
	}
}

func TestForceKeywords_ConditionsSeePriorEffects(t *testing.T) {
	t.Parallel()

	rule := NewForceKeywords(NewBase("force", true, 0), ForceKeywordsConfig{
		Builtins: []BuiltinCondition{
			{Match: variant.UnityHardwareTier1, Force: variant.UnityNoDXT5nm},
			{Match: variant.UnityNoDXT5nm, Force: variant.UnityNoRGBM},
		},
		Keywords: []KeywordCondition{
			{Match: "A", Force: "B"},
			{Match: "B", Force: "C"},
		},
	})
	require.NoError(t, rule.Initialize(context.Background()))

	list := variant.List{
		{Keywords: variant.NewKeywordSet("A"), Platform: variant.NewPlatformSet(variant.UnityHardwareTier1)},
		{Keywords: variant.NewKeywordSet("Z")},
	}
	rule.Strip(Discard, Snippet{Shader: shaderS1}, &list)

	assert.Equal(t, variant.Keywords{"A", "B", "C"}, list[0].Keywords.Keywords())
	assert.Equal(t, []variant.BuiltinDefine{variant.UnityNoDXT5nm, variant.UnityNoRGBM, variant.UnityHardwareTier1},
		list[0].Platform.Defines())

	assert.Equal(t, variant.Keywords{"Z"}, list[1].Keywords.Keywords())
	assert.Equal(t, 0, list[1].Platform.Len())
}

func TestForceKeywords_BuiltinInverted(t *testing.T) {
	t.Parallel()

	rule := NewForceKeywords(NewBase("force", true, 0), ForceKeywordsConfig{
		Builtins: []BuiltinCondition{
			{Match: variant.ShaderAPIDesktop, Force: variant.UnityPBSUseBRDF1, InvertMatch: true, InvertForce: true},
		},
	})

	list := variant.List{
		{Platform: variant.NewPlatformSet(variant.UnityPBSUseBRDF1)},
		{Platform: variant.NewPlatformSet(variant.UnityPBSUseBRDF1, variant.ShaderAPIDesktop)},
	}
	rule.Strip(Discard, Snippet{Shader: shaderS1}, &list)

	assert.False(t, list[0].Platform.IsEnabled(variant.UnityPBSUseBRDF1), "non-desktop variant loses BRDF1")
	assert.True(t, list[1].Platform.IsEnabled(variant.UnityPBSUseBRDF1), "desktop variant keeps BRDF1")
}

func TestForceKeywords_Initialize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  ForceKeywordsConfig
	}{
		{
			name: "Should reject a blank keyword",
			cfg:  ForceKeywordsConfig{Keywords: []KeywordCondition{{Match: " ", Force: "B"}}},
		},
		{
			name: "Should reject an out-of-range define",
			cfg:  ForceKeywordsConfig{Builtins: []BuiltinCondition{{Match: variant.UnityNoRGBM, Force: variant.BuiltinDefine(200)}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := NewForceKeywords(NewBase("force", true, 0), tt.cfg).Initialize(context.Background())

			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, "force", ce.Rule)
		})
	}
}

func TestPassFilter(t *testing.T) {
	t.Parallel()

	rule := NewPassFilter(NewBase("drop-meta", true, 0), PassFilterConfig{
		Passes: []variant.PassType{variant.PassMeta, variant.PassMotionVectors},
	})
	require.NoError(t, rule.Initialize(context.Background()))

	t.Run("Should strip a selected pass", func(t *testing.T) {
		rec := &collector{}
		list := variants([]string{"A"}, []string{"B"})
		rule.Strip(rec, Snippet{Shader: shaderS1, Pass: variant.PassMeta}, &list)

		assert.Empty(t, list)
		require.Len(t, rec.removals, 1)
		assert.True(t, rec.removals[0].Whole())
		assert.Equal(t, 2, rec.removals[0].Count)
	})

	t.Run("Should keep other passes", func(t *testing.T) {
		list := variants([]string{"A"})
		rule.Strip(Discard, Snippet{Shader: shaderS1, Pass: variant.PassForwardBase}, &list)
		assert.Len(t, list, 1)
	})

	t.Run("Should honour shader restrictions", func(t *testing.T) {
		restricted := NewPassFilter(NewBase("ui-meta", true, 0), PassFilterConfig{
			Passes:  []variant.PassType{variant.PassMeta},
			Shaders: []match.Pattern{{Mode: match.ModePrefix, Value: "UI/"}},
		})
		require.NoError(t, restricted.Initialize(context.Background()))

		list := variants([]string{"A"})
		restricted.Strip(Discard, Snippet{Shader: shaderS1, Pass: variant.PassMeta}, &list)
		assert.Len(t, list, 1)

		restricted.Strip(Discard, Snippet{Shader: shaderUI, Pass: variant.PassMeta}, &list)
		assert.Empty(t, list)
	})

	t.Run("Should require at least one pass", func(t *testing.T) {
		err := NewPassFilter(NewBase("empty", true, 0), PassFilterConfig{}).Initialize(context.Background())
		var ce *ConfigError
		assert.True(t, errors.As(err, &ce))
	})

	assert.Equal(t, "Passes: Meta, MotionVectors.", rule.Help())
}
