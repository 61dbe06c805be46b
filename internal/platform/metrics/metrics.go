package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the recording HLS API.
type Metrics struct {
	registry               *prometheus.Registry
	requestsTotal          prometheus.Counter
	requestDuration        *prometheus.HistogramVec
	errorsTotal            prometheus.Counter
	playlistsServedTotal   prometheus.Counter
	timespanQueriesTotal   prometheus.Counter
	storageErrorsTotal     prometheus.Counter
	pendingSegmentsSkipped prometheus.Counter
	playlistSegments       prometheus.Histogram
	camerasConfigured      prometheus.Gauge
}

// New creates and registers Prometheus metrics for the API.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_requests_total",
		Help: "Total number of HTTP requests received",
	})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hls_request_duration_seconds",
		Help:    "HTTP request latency by route pattern and status code",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	playlistsServedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_playlists_served_total",
		Help: "Total number of recording playlists rendered",
	})
	timespanQueriesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_timespan_queries_total",
		Help: "Total number of available timespan queries answered",
	})
	storageErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_storage_errors_total",
		Help: "Total number of requests that failed because the segment store was unavailable",
	})
	pendingSegmentsSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_pending_segments_skipped_total",
		Help: "Total number of segments left out of playlists because their metadata was not written yet",
	})
	playlistSegments := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hls_playlist_segments",
		Help:    "Number of segments per rendered playlist",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
	camerasConfigured := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hls_cameras_configured",
		Help: "Number of cameras the API serves",
	})

	registry.MustRegister(
		requestsTotal,
		requestDuration,
		errorsTotal,
		playlistsServedTotal,
		timespanQueriesTotal,
		storageErrorsTotal,
		pendingSegmentsSkipped,
		playlistSegments,
		camerasConfigured,
	)

	return &Metrics{
		registry:               registry,
		requestsTotal:          requestsTotal,
		requestDuration:        requestDuration,
		errorsTotal:            errorsTotal,
		playlistsServedTotal:   playlistsServedTotal,
		timespanQueriesTotal:   timespanQueriesTotal,
		storageErrorsTotal:     storageErrorsTotal,
		pendingSegmentsSkipped: pendingSegmentsSkipped,
		playlistSegments:       playlistSegments,
		camerasConfigured:      camerasConfigured,
	}
}

// ObserveRequest records one finished HTTP request. Status codes >= 400 also
// count as errors.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	m.requestsTotal.Inc()
	m.requestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
	if status >= 400 {
		m.errorsTotal.Inc()
	}
}

// ObservePlaylist records one rendered playlist with its segment count and
// the number of pending segments it skipped.
func (m *Metrics) ObservePlaylist(segments, pending int) {
	m.playlistsServedTotal.Inc()
	m.playlistSegments.Observe(float64(segments))
	m.pendingSegmentsSkipped.Add(float64(pending))
}

// IncTimespanQueries increments the timespan query counter.
func (m *Metrics) IncTimespanQueries() {
	m.timespanQueriesTotal.Inc()
}

// IncStorageErrors increments the storage failure counter.
func (m *Metrics) IncStorageErrors() {
	m.storageErrorsTotal.Inc()
}

// SetCamerasConfigured sets the configured cameras gauge.
func (m *Metrics) SetCamerasConfigured(n int) {
	m.camerasConfigured.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
