package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// family returns the gathered metric family with the given name, or nil
func family(t *testing.T, reg *Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labels(m *dto.Metric) map[string]string {
	out := make(map[string]string)
	for _, l := range m.GetLabel() {
		out[l.GetName()] = l.GetValue()
	}
	return out
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NotNil(t, reg)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs, "go runtime metrics are always registered")

	var _ prometheus.Gatherer = reg
}

func TestRegistry_RecordRequest_StatusCodes(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{502, "5xx"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			reg := NewRegistry()
			reg.RecordRequest("GET", "/api/symbols/^GSPC/drawdowns", tt.status, 0.01)

			mf := family(t, reg, "http_requests_total")
			require.NotNil(t, mf)
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, tt.expected, labels(mf.GetMetric()[0])["status"])
		})
	}
}

func TestRegistry_InFlight(t *testing.T) {
	reg := NewRegistry()

	reg.InFlightInc()
	reg.InFlightInc()
	reg.InFlightDec()

	mf := family(t, reg, "http_requests_in_flight")
	require.NotNil(t, mf)
	assert.Equal(t, 1.0, mf.GetMetric()[0].GetGauge().GetValue())
}

func TestRegistry_DurationHistogram(t *testing.T) {
	reg := NewRegistry()
	reg.RecordRequest("GET", "/api/health", 200, 0.123)

	mf := family(t, reg, "http_request_duration_seconds")
	require.NotNil(t, mf)
	hist := mf.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(1), hist.GetSampleCount())
	assert.InDelta(t, 0.123, hist.GetSampleSum(), 1e-9)
}

func TestRegistry_RecordAnalysis(t *testing.T) {
	reg := NewRegistry()
	reg.RecordAnalysis("ok", 1.5)
	reg.RecordAnalysis("ok", 0.5)
	reg.RecordAnalysis("error", 0.1)

	runs := family(t, reg, "crashscope_analysis_runs_total")
	require.NotNil(t, runs)
	byStatus := make(map[string]float64)
	for _, m := range runs.GetMetric() {
		byStatus[labels(m)["status"]] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"ok": 2, "error": 1}, byStatus)

	dur := family(t, reg, "crashscope_analysis_duration_seconds")
	require.NotNil(t, dur)
	assert.Equal(t, uint64(3), dur.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestRegistry_RecordFetch(t *testing.T) {
	reg := NewRegistry()
	reg.RecordFetch("yahoo", 0.3)

	mf := family(t, reg, "crashscope_fetch_duration_seconds")
	require.NotNil(t, mf)
	assert.Equal(t, "yahoo", labels(mf.GetMetric()[0])["provider"])
}

func TestRegistry_SetObservations(t *testing.T) {
	reg := NewRegistry()
	reg.SetObservations("^GSPC", 100)
	reg.SetObservations("^GSPC", 250)

	mf := family(t, reg, "crashscope_observations")
	require.NotNil(t, mf)
	require.Len(t, mf.GetMetric(), 1)
	assert.Equal(t, 250.0, mf.GetMetric()[0].GetGauge().GetValue())
}

func TestRegistry_SetEpisodesReplacesKind(t *testing.T) {
	reg := NewRegistry()
	reg.SetEpisodes("^GSPC", "drawdown", map[string]int{"worst": 1, "notable": 3, "other": 40})
	reg.SetEpisodes("^GSPC", "recovery", map[string]int{"fast": 3})
	reg.SetEpisodes("^GSPC", "drawdown", map[string]int{"worst": 1, "current": 1})

	mf := family(t, reg, "crashscope_episodes")
	require.NotNil(t, mf)

	got := make(map[string]float64)
	for _, m := range mf.GetMetric() {
		l := labels(m)
		got[l["kind"]+"/"+l["tag"]] = m.GetGauge().GetValue()
	}
	assert.Equal(t, map[string]float64{
		"drawdown/worst":   1,
		"drawdown/current": 1,
		"recovery/fast":    3,
	}, got)
}
