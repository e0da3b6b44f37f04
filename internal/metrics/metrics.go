package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sparklog",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparklog",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sparklog",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	purchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparklog",
			Subsystem: "marketplace",
			Name:      "purchases_total",
			Help:      "Marketplace purchase attempts by catalog and outcome.",
		},
		[]string{"catalog", "outcome"},
	)

	uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparklog",
			Subsystem: "storage",
			Name:      "uploads_total",
			Help:      "Image uploads by bucket and outcome.",
		},
		[]string{"bucket", "outcome"},
	)

	webhookCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparklog",
			Subsystem: "webhook",
			Name:      "calls_total",
			Help:      "Outbound third-party calls by target and outcome.",
		},
		[]string{"target", "outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		purchases,
		uploads,
		webhookCalls,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request. path should be the route
// template rather than the raw URL to keep label cardinality bounded.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	method = strings.ToUpper(method)
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns its decrement
func TrackInFlight() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// RecordPurchase counts a marketplace purchase attempt
func RecordPurchase(catalog string, success bool) {
	purchases.WithLabelValues(catalog, outcome(success)).Inc()
}

// RecordUpload counts an image upload
func RecordUpload(bucket string, success bool) {
	uploads.WithLabelValues(bucket, outcome(success)).Inc()
}

// RecordWebhookCall counts an outbound third-party call
func RecordWebhookCall(target string, success bool) {
	webhookCalls.WithLabelValues(target, outcome(success)).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
