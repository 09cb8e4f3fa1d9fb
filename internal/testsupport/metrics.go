package testsupport

import (
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GetMetricValue reads a series from the default registry. Counters and
// gauges yield their value, histograms their sample count. A series that was
// never touched reads as 0.
func GetMetricValue(t *testing.T, metricName string, labelFilter map[string]string) float64 {
	t.Helper()

	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err, "failed to gather metrics")

	i := slices.IndexFunc(mfs, func(mf *io_prometheus_client.MetricFamily) bool {
		return mf.GetName() == metricName
	})
	if i < 0 {
		return 0
	}
	for _, m := range mfs[i].GetMetric() {
		if hasLabels(m, labelFilter) {
			return sampleValue(m)
		}
	}
	return 0
}

func sampleValue(m *io_prometheus_client.Metric) float64 {
	if c := m.GetCounter(); c != nil {
		return c.GetValue()
	}
	if g := m.GetGauge(); g != nil {
		return g.GetValue()
	}
	if h := m.GetHistogram(); h != nil {
		return float64(h.GetSampleCount())
	}
	return 0
}

// hasLabels reports whether every pair of want is on m.
func hasLabels(m *io_prometheus_client.Metric, want map[string]string) bool {
	found := 0
	for _, pair := range m.GetLabel() {
		if v, ok := want[pair.GetName()]; ok {
			if v != pair.GetValue() {
				return false
			}
			found++
		}
	}
	return found == len(want)
}

// AssertMetricDelta asserts that fn moves a series by exactly expectedDelta.
// Tests using it must not run in parallel with others touching the same series.
func AssertMetricDelta(t *testing.T, metricName string, labels map[string]string, expectedDelta float64, fn func()) {
	t.Helper()

	initial := GetMetricValue(t, metricName, labels)
	fn()
	final := GetMetricValue(t, metricName, labels)

	assert.Equal(t, expectedDelta, final-initial, "metric %s%v delta mismatch", metricName, labels)
}

// AssertMetricDeltaEventually is AssertMetricDelta for effects that land in
// the background, such as cache evictions.
func AssertMetricDeltaEventually(t *testing.T, metricName string, labels map[string]string, expectedDelta float64, within time.Duration, fn func()) {
	t.Helper()

	initial := GetMetricValue(t, metricName, labels)
	fn()

	require.Eventually(t, func() bool {
		return GetMetricValue(t, metricName, labels) == initial+expectedDelta
	}, within, 20*time.Millisecond, "metric %s%v never moved by %+.0f", metricName, labels, expectedDelta)
}

// AssertHistogramRecorded asserts that a histogram holds at least one sample.
func AssertHistogramRecorded(t *testing.T, metricName string, labels map[string]string) {
	t.Helper()

	count := GetMetricValue(t, metricName, labels)
	assert.Greater(t, count, 0.0, "histogram %s%v should have recorded samples", metricName, labels)
}
