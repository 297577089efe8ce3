package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_bom"

// Metrics holds the Prometheus counters, histograms, and gauges for the poller.
type Metrics struct {
	Cycles        *prometheus.CounterVec // labels: outcome={success,failure}
	CycleRunning  prometheus.Gauge
	CycleDuration prometheus.Histogram
	PollInterval  prometheus.Gauge
	UpdateDropped *prometheus.CounterVec // labels: reason={busy,throttled}

	// Feed metrics.
	FeedResults   *prometheus.CounterVec   // labels: feed, outcome
	FetchDuration *prometheus.HistogramVec // labels: feed
	FetchBytes    *prometheus.HistogramVec // labels: feed
	WarningsQuota prometheus.Gauge         // 1 while warnings are being skipped

	// Location metrics.
	GeocodeRequests     *prometheus.CounterVec // labels: outcome
	GeocodeCache        *prometheus.CounterVec // labels: result={hit,miss}
	LocationInvalidated prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Cycles,
		m.CycleRunning,
		m.CycleDuration,
		m.PollInterval,
		m.UpdateDropped,
		m.FeedResults,
		m.FetchDuration,
		m.FetchBytes,
		m.WarningsQuota,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.LocationInvalidated,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed ingestion cycles by aggregate outcome.",
		}, []string{"outcome"}),
		CycleRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cycle_running",
			Help:      "1 while an ingestion cycle is in flight.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete ingestion cycle.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}),
		PollInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poll_interval_seconds",
			Help:      "Current minimum time between cycle attempts.",
		}),
		UpdateDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_requests_dropped_total",
			Help:      "Update requests ignored by the scheduler.",
		}, []string{"reason"}),
		FeedResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_results_total",
			Help:      "Per-feed results by outcome.",
		}, []string{"feed", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "HTTP fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"feed"}),
		FetchBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_bytes",
			Help:      "Bytes captured per successful fetch.",
			Buckets:   []float64{256, 512, 1024, 2048, 4096, 8192},
		}, []string{"feed"}),
		WarningsQuota: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "warnings_skipping",
			Help:      "1 while the warnings feed is being skipped after an empty result.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Location code resolutions by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by result.",
		}, []string{"result"}),
		LocationInvalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_invalidations_total",
			Help:      "Cached location codes cleared by coordinate drift.",
		}),
	}
}
