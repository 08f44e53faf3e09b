// Package metrics provides Prometheus metrics for the sharedav server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	davRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharedav_dav_requests_total",
			Help: "Total number of WebDAV requests",
		},
		[]string{"method", "status"},
	)

	davRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sharedav_dav_request_duration_seconds",
			Help:    "WebDAV request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	decodeFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sharedav_share_decode_failures_total",
			Help: "Total share codes that failed to decode",
		},
	)

	indexSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sharedav_index_shares",
			Help: "Number of shares in the current index snapshot",
		},
	)

	indexBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sharedav_index_build_duration_seconds",
			Help:    "Time to build and publish an index snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)

	storeQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sharedav_store_query_duration_seconds",
			Help:    "Record store query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	urlResolveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sharedav_url_resolve_duration_seconds",
			Help:    "Upstream download-URL resolution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharedav_auth_attempts_total",
			Help: "Total authentication attempts",
		},
		[]string{"result"},
	)
)

// RecordDAVRequest records one handled WebDAV request.
func RecordDAVRequest(method string, status int, duration time.Duration) {
	davRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	davRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordDecodeFailure counts a share code that could not be decoded.
func RecordDecodeFailure() { decodeFailuresTotal.Inc() }

// SetIndexSize publishes the share count of the current snapshot.
func SetIndexSize(n int) { indexSize.Set(float64(n)) }

// RecordIndexBuild records one index build.
func RecordIndexBuild(d time.Duration) { indexBuildDuration.Observe(d.Seconds()) }

// RecordStoreQuery records one record-store query.
func RecordStoreQuery(query string, d time.Duration) {
	storeQueryDuration.WithLabelValues(query).Observe(d.Seconds())
}

// RecordURLResolve records one upstream URL resolution.
func RecordURLResolve(outcome string, d time.Duration) {
	urlResolveDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordAuthAttempt records one authentication attempt ("success"/"failure").
func RecordAuthAttempt(result string) {
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler { return promhttp.Handler() }

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Middleware instruments a WebDAV handler with request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		RecordDAVRequest(r.Method, sw.status, time.Since(start))
	})
}
