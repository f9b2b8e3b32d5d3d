package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Analysis metrics
	analysisRuns     *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	fetchDuration    *prometheus.HistogramVec
	episodes         *prometheus.GaugeVec
	observations     *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.analysisRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashscope_analysis_runs_total",
			Help: "Total number of symbol analyses",
		},
		[]string{"status"},
	)
	r.analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crashscope_analysis_duration_seconds",
			Help:    "Symbol analysis duration in seconds, fetch included",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
	r.fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crashscope_fetch_duration_seconds",
			Help:    "Price series fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
	r.episodes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crashscope_episodes",
			Help: "Episodes found by the last analysis of a symbol",
		},
		[]string{"symbol", "kind", "tag"},
	)
	r.observations = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crashscope_observations",
			Help: "Observations in the last fetched series of a symbol",
		},
		[]string{"symbol"},
	)

	reg.MustRegister(r.analysisRuns)
	reg.MustRegister(r.analysisDuration)
	reg.MustRegister(r.fetchDuration)
	reg.MustRegister(r.episodes)
	reg.MustRegister(r.observations)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordAnalysis records a finished analysis; status is "ok" or "error".
func (r *Registry) RecordAnalysis(status string, duration float64) {
	r.analysisRuns.WithLabelValues(status).Inc()
	r.analysisDuration.Observe(duration)
}

// RecordFetch records how long a provider took to return a series.
func (r *Registry) RecordFetch(provider string, duration float64) {
	r.fetchDuration.WithLabelValues(provider).Observe(duration)
}

// SetObservations sets the size of the last series fetched for symbol.
func (r *Registry) SetObservations(symbol string, n int) {
	r.observations.WithLabelValues(symbol).Set(float64(n))
}

// SetEpisodes replaces the episode counts of one kind ("drawdown" or
// "recovery") for symbol.
func (r *Registry) SetEpisodes(symbol, kind string, byTag map[string]int) {
	r.episodes.DeletePartialMatch(prometheus.Labels{"symbol": symbol, "kind": kind})
	for tag, n := range byTag {
		r.episodes.WithLabelValues(symbol, kind, tag).Set(float64(n))
	}
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
