package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigtrap/shaderstrip/internal/assets"
	"github.com/sigtrap/shaderstrip/internal/variant"
)

func TestReadManifest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantErr string
		want    func(t *testing.T, m *Manifest)
	}{
		{
			name: "Should accept pass names and integer codes",
			doc: `{"invocations":[
				{"shader":{"guid":"aa","name":"Custom/A","path":"Assets/A.shader"},"pass":"ForwardBase","variants":[{"keywords":["B","A"],"platform":["UNITY_NO_DXT5nm"]}]},
				{"shader":{"guid":"bb","name":"Custom/B"},"pass":8,"variants":[]}
			]}`,
			want: func(t *testing.T, m *Manifest) {
				require.Len(t, m.Invocations, 2)
				assert.Equal(t, variant.PassForwardBase, m.Invocations[0].Pass)
				assert.Equal(t, variant.PassShadowCaster, m.Invocations[1].Pass)
				assert.True(t, m.Invocations[0].Variants[0].Keywords.IsEnabled("A"))
				assert.Equal(t, 1, m.Invocations[0].Variants[0].Platform.Len())
				assert.True(t, m.Invocations[1].Shader.IsBuiltin())
			},
		},
		{
			name:    "Should reject an invocation without a shader guid",
			doc:     `{"invocations":[{"shader":{"name":"X"},"pass":0,"variants":[]}]}`,
			wantErr: "invocation 0: shader guid is required",
		},
		{
			name:    "Should reject an invocation without variants",
			doc:     `{"invocations":[{"shader":{"guid":"aa"},"pass":0}]}`,
			wantErr: "variants are required",
		},
		{
			name:    "Should reject an unknown pass name",
			doc:     `{"invocations":[{"shader":{"guid":"aa"},"pass":"Geometry","variants":[]}]}`,
			wantErr: "unknown pass type",
		},
		{
			name:    "Should reject unknown fields",
			doc:     `{"invocation":[]}`,
			wantErr: "invalid manifest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := ReadManifest(strings.NewReader(tt.doc))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.want(t, m)
		})
	}
}

func TestSession_StripAll(t *testing.T) {
	t.Parallel()

	s, err := Begin(context.Background(), newChain(t, "Keep.shadervariants"), Options{ID: "batch"})
	require.NoError(t, err)

	m := &Manifest{Invocations: []Invocation{
		{Shader: shaderListed, Pass: variant.PassForwardBase, Variants: keywords([]string{"B", "A"}, []string{"Z"})},
		{Shader: shaderUnlisted, Pass: variant.PassForwardBase, Variants: keywords([]string{"A"})},
	}}
	require.NoError(t, s.StripAll(m))

	out := filepath.Join(t.TempDir(), "out", "stripped.json")
	require.NoError(t, m.WriteFile(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var raw map[string][]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw["invocations"], 2)
	assert.JSONEq(t, `[{"keywords":["A","B"],"platform":[]}]`, string(raw["invocations"][0]["variants"]))
	assert.JSONEq(t, `[]`, string(raw["invocations"][1]["variants"]), "emptied invocations stay in the output")

	reread, err := LoadManifest(out)
	require.NoError(t, err)
	assert.Len(t, reread.Invocations[0].Variants, 1)

	t.Run("Should stop at the first refused invocation", func(t *testing.T) {
		_, err := s.Finish()
		require.NoError(t, err)
		assert.ErrorIs(t, s.StripAll(m), ErrFinished)
	})
}

func TestSession_ResolvesShadersAgainstCatalog(t *testing.T) {
	t.Parallel()

	catalog := assets.NewCatalog(shaderListed)
	s, err := Begin(context.Background(), newChain(t, "Keep.shadervariants"), Options{Resolver: catalog})
	require.NoError(t, err)

	t.Run("Should use the catalog entry for a known guid", func(t *testing.T) {
		list := keywords([]string{"A", "B"}, []string{"Q"})
		require.NoError(t, s.Strip(variant.Shader{GUID: shaderListed.GUID, Name: "stale"}, variant.PassForwardBase, &list))
		assert.Len(t, list, 1, "the keep-list applied even though the host sent no path")
	})

	t.Run("Should treat an unresolved guid as built-in", func(t *testing.T) {
		list := keywords([]string{"A"}, []string{"B"})
		require.NoError(t, s.Strip(variant.Shader{GUID: "cccccccccccccccccccccccccccccccc", Name: "Custom/Gone", Path: "Assets/Gone.shader"}, variant.PassForwardBase, &list))
		assert.Len(t, list, 2)
	})
}
