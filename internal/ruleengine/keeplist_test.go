package ruleengine

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigtrap/shaderstrip/internal/assets"
	"github.com/sigtrap/shaderstrip/internal/keeplist"
	"github.com/sigtrap/shaderstrip/internal/match"
	"github.com/sigtrap/shaderstrip/internal/variant"
)

var (
	shaderS1     = variant.Shader{GUID: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Name: "Custom/S1", Path: "Assets/S1.shader"}
	shaderS2     = variant.Shader{GUID: "cccccccccccccccccccccccccccccccc", Name: "Custom/S2", Path: "Assets/S2.shader"}
	shaderHidden = variant.Shader{GUID: "dddddddddddddddddddddddddddddddd", Name: "Hidden/Internal", Path: "Assets/H.shader"}
	shaderUI     = variant.Shader{GUID: "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee", Name: "UI/Default", Path: "Assets/UI.shader"}
	shaderOther  = variant.Shader{GUID: "ffffffffffffffffffffffffffffffff", Name: "Custom/Other", Path: "Assets/O.shader"}
	shaderEngine = variant.Shader{GUID: "0000000000000000f000000000000000", Name: "Standard"}
)

func testResolver() *assets.Catalog {
	return assets.NewCatalog(shaderS1, shaderS2, shaderHidden, shaderUI, shaderOther)
}

func variants(sets ...[]string) variant.List {
	out := make(variant.List, len(sets))
	for i, s := range sets {
		out[i] = variant.Variant{Keywords: variant.NewKeywordSet(s...)}
	}
	return out
}

func keywordsOf(l variant.List) [][]string {
	out := make([][]string, len(l))
	for i, v := range l {
		out[i] = v.Keywords.Keywords()
	}
	return out
}

// collector records removals in order.
type collector struct {
	removals []Removal
}

func (c *collector) Record(r Removal) { c.removals = append(c.removals, r) }

func newKeepList(t *testing.T, cfg KeepListConfig) *KeepList {
	t.Helper()

	if cfg.Resolver == nil {
		cfg.Resolver = testResolver()
	}
	if cfg.Collections == nil {
		cfg.Collections = []string{"Keep.shadervariants"}
		cfg.ProjectDir = "testdata"
	}
	k := NewKeepList(NewBase("keep-list", true, 0), cfg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, k.Initialize(context.Background()))
	return k
}

func TestKeepList_Strip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		cfg          KeepListConfig
		snippet      Snippet
		input        variant.List
		want         [][]string
		wantRemovals []Removal
	}{
		{
			name:    "Should keep only variants whose keywords exactly match an entry",
			snippet: Snippet{Shader: shaderS1, Pass: variant.PassForwardBase},
			input:   variants([]string{"B", "A"}, []string{"A"}, []string{"C"}, []string{"A", "B", "C"}),
			want:    [][]string{{"A", "B"}, {"C"}},
			wantRemovals: []Removal{
				{Rule: "keep-list", Snippet: Snippet{Shader: shaderS1, Pass: variant.PassForwardBase}, Index: 3, Count: 4},
				{Rule: "keep-list", Snippet: Snippet{Shader: shaderS1, Pass: variant.PassForwardBase}, Index: 1, Count: 4},
			},
		},
		{
			name:    "Should strip all variants of a pass absent from the index",
			snippet: Snippet{Shader: shaderS1, Pass: variant.PassShadowCaster},
			input:   variants([]string{"A", "B"}, []string{"C"}),
			want:    [][]string{},
			wantRemovals: []Removal{
				{Rule: "keep-list", Snippet: Snippet{Shader: shaderS1, Pass: variant.PassShadowCaster}, Index: -1, Count: 2},
			},
		},
		{
			name:    "Should strip all variants of an unlisted shader",
			snippet: Snippet{Shader: shaderOther, Pass: variant.PassForwardBase},
			input:   variants([]string{"A", "B"}),
			want:    [][]string{},
			wantRemovals: []Removal{
				{Rule: "keep-list", Snippet: Snippet{Shader: shaderOther, Pass: variant.PassForwardBase}, Index: -1, Count: 1},
			},
		},
		{
			name:    "Should retain unlisted hidden shaders by default",
			snippet: Snippet{Shader: shaderHidden, Pass: variant.PassNormal},
			input:   variants([]string{"X"}, []string{"Y"}),
			want:    [][]string{{"X"}, {"Y"}},
		},
		{
			name:    "Should strip unlisted hidden shaders when configured",
			cfg:     KeepListConfig{StripHidden: true},
			snippet: Snippet{Shader: shaderHidden, Pass: variant.PassNormal},
			input:   variants([]string{"X"}),
			want:    [][]string{},
			wantRemovals: []Removal{
				{Rule: "keep-list", Snippet: Snippet{Shader: shaderHidden, Pass: variant.PassNormal}, Index: -1, Count: 1},
			},
		},
		{
			name:    "Should never touch built-in shaders",
			snippet: Snippet{Shader: shaderEngine, Pass: variant.PassForwardBase},
			input:   variants([]string{"Z"}),
			want:    [][]string{{"Z"}},
		},
		{
			name:    "Should let ignore patterns win over the unlisted-shader rule",
			cfg:     KeepListConfig{Ignore: []match.Pattern{{Mode: match.ModePrefix, Value: "UI/"}}},
			snippet: Snippet{Shader: shaderUI, Pass: variant.PassForwardBase},
			input:   variants([]string{"Q"}),
			want:    [][]string{{"Q"}},
		},
		{
			name:    "Should let ignore patterns win over variant matching",
			cfg:     KeepListConfig{Ignore: []match.Pattern{{Mode: match.ModeEquals, Value: "Custom/S1"}}},
			snippet: Snippet{Shader: shaderS1, Pass: variant.PassForwardBase},
			input:   variants([]string{"NOT_LISTED"}),
			want:    [][]string{{"NOT_LISTED"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			k := newKeepList(t, tt.cfg)
			rec := &collector{}
			list := tt.input

			k.Strip(rec, tt.snippet, &list)

			assert.Equal(t, tt.want, keywordsOf(list))
			assert.Equal(t, tt.wantRemovals, rec.removals)
		})
	}
}

func TestKeepList_EmptyIndexIsNoop(t *testing.T) {
	t.Parallel()

	// The catalog knows none of the listed shaders, so nothing gets indexed.
	k := newKeepList(t, KeepListConfig{Resolver: assets.NewCatalog()})
	assert.True(t, k.Index().Empty())

	rec := &collector{}
	list := variants([]string{"A"})
	k.Strip(rec, Snippet{Shader: shaderOther, Pass: variant.PassForwardBase}, &list)

	assert.Len(t, list, 1)
	assert.Empty(t, rec.removals)
}

func TestKeepList_Initialize(t *testing.T) {
	t.Parallel()

	t.Run("Should fail with a config error naming a missing document", func(t *testing.T) {
		t.Parallel()

		k := NewKeepList(NewBase("kl", true, 0), KeepListConfig{
			Collections: []string{"Missing.shadervariants"},
			ProjectDir:  "testdata",
			Resolver:    testResolver(),
		}, nil)

		err := k.Initialize(context.Background())
		require.Error(t, err)

		var ce *ConfigError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "kl", ce.Rule)
		assert.Contains(t, ce.Document, "Missing.shadervariants")
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("Should surface parse errors unchanged", func(t *testing.T) {
		t.Parallel()

		k := NewKeepList(NewBase("kl", true, 0), KeepListConfig{
			Collections: []string{"Broken.shadervariants"},
			ProjectDir:  "testdata",
			Resolver:    testResolver(),
		}, nil)

		err := k.Initialize(context.Background())
		var pe *keeplist.ParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, 6, pe.Line)
		assert.Nil(t, k.Index(), "a failed load must not leave an index behind")
	})

	t.Run("Should reject invalid ignore patterns", func(t *testing.T) {
		t.Parallel()

		k := NewKeepList(NewBase("kl", true, 0), KeepListConfig{
			Ignore:   []match.Pattern{{Mode: match.ModeRegex, Value: "("}},
			Resolver: testResolver(),
		}, nil)

		var ce *ConfigError
		require.True(t, errors.As(k.Initialize(context.Background()), &ce))
	})

	t.Run("Should rebuild the same index when initialized twice", func(t *testing.T) {
		t.Parallel()

		k := newKeepList(t, KeepListConfig{})
		first := k.Index()
		require.NoError(t, k.Initialize(context.Background()))
		second := k.Index()

		assert.NotSame(t, first, second)
		assert.Equal(t, first.Len(), second.Len())
		assert.Equal(t, first.Variants(), second.Variants())
	})

	t.Run("Should log the index dump at debug level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		k := NewKeepList(NewBase("kl", true, 0), KeepListConfig{
			Collections: []string{"Keep.shadervariants"},
			ProjectDir:  "testdata",
			Resolver:    testResolver(),
		}, logger)

		require.NoError(t, k.Initialize(context.Background()))
		assert.Contains(t, buf.String(), "parsed keep-list collection")
		assert.Contains(t, buf.String(), "keep-list entry")
		assert.Contains(t, buf.String(), "shader=Custom/S1")
	})

	t.Run("Should panic without a resolver", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { NewKeepList(NewBase("kl", true, 0), KeepListConfig{}, nil) })
	})
}

func TestKeepList_Help(t *testing.T) {
	t.Parallel()

	keep := NewKeepList(NewBase("kl", true, 0), KeepListConfig{Resolver: testResolver()}, nil)
	strip := NewKeepList(NewBase("kl", true, 0), KeepListConfig{Resolver: testResolver(), StripHidden: true}, nil)

	assert.Contains(t, keep.Help(), "Will NOT strip Hidden shaders.")
	assert.Contains(t, strip.Help(), "WILL strip Hidden shaders.")
	assert.Contains(t, keep.Description(), "keep-list")
}
