// Package metrics exposes Prometheus instrumentation for pidvault.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pidvault/internal/docs"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics tracks uploads, deletes, metadata writes and HTTP traffic.
type Metrics struct {
	UploadBatches      prometheus.Counter
	UploadedFiles      prometheus.Counter
	UploadedBytes      prometheus.Counter
	UploadFailures     prometheus.Counter
	Deletes            *prometheus.CounterVec
	StoreWriteDuration prometheus.Histogram
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New registers every metric with reg. Pass prometheus.DefaultRegisterer in
// production and prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UploadBatches: f.NewCounter(prometheus.CounterOpts{
			Name: "pidvault_upload_batches_total",
			Help: "Total number of committed upload requests",
		}),
		UploadedFiles: f.NewCounter(prometheus.CounterOpts{
			Name: "pidvault_uploaded_files_total",
			Help: "Total number of files recorded by uploads",
		}),
		UploadedBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "pidvault_uploaded_bytes_total",
			Help: "Total plaintext bytes accepted by uploads",
		}),
		UploadFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "pidvault_upload_failures_total",
			Help: "Total number of aborted upload requests",
		}),
		Deletes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pidvault_deletes_total",
			Help: "Total delete requests by outcome",
		}, []string{"outcome"}),
		StoreWriteDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pidvault_store_write_duration_seconds",
			Help:    "Duration of metadata store writes",
			Buckets: latencyBuckets,
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pidvault_http_requests_total",
			Help: "Total HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pidvault_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: latencyBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) ObserveUpload(files int, bytes int64) {
	m.UploadBatches.Inc()
	m.UploadedFiles.Add(float64(files))
	m.UploadedBytes.Add(float64(bytes))
}

func (m *Metrics) IncrementUploadFailed() {
	m.UploadFailures.Inc()
}

func (m *Metrics) IncrementDelete(found bool) {
	outcome := "deleted"
	if !found {
		outcome = "not_found"
	}
	m.Deletes.WithLabelValues(outcome).Inc()
}

// ObserveStoreWrite records a metadata write. Call with time.Now() taken
// before the write.
func (m *Metrics) ObserveStoreWrite(start time.Time) {
	m.StoreWriteDuration.Observe(time.Since(start).Seconds())
}

// ObserveHTTP records one served request. route is the matched pattern, not
// the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, start time.Time) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}

var _ docs.Metrics = (*Metrics)(nil)
