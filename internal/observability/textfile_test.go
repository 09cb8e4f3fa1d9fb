package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	t.Run("Should write registered metrics in text format", func(t *testing.T) {
		t.Parallel()

		reg := prometheus.NewRegistry()
		c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "test_total", Help: "test"})
		reg.MustRegister(c)
		c.Add(3)

		path := filepath.Join(t.TempDir(), "nested", "shaderstrip.prom")
		require.NoError(t, WriteTextfileFrom(reg, path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "shaderstrip_test_total 3")
	})

	t.Run("Should include the global strip metrics", func(t *testing.T) {
		t.Parallel()

		StripInvocations.Add(0)
		path := filepath.Join(t.TempDir(), "global.prom")
		require.NoError(t, WriteTextfile(path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "shaderstrip_strip_invocations_total")
	})
}
