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
			Namespace: "bundle_server",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bundle_server",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bundle_server",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	resolutionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bundle_server",
			Subsystem: "resolution",
			Name:      "outcomes_total",
			Help:      "Total manifest resolution outcomes by result.",
		},
		[]string{"outcome"},
	)

	backendResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bundle_server",
			Subsystem: "distribution",
			Name:      "backend_resolutions_total",
			Help:      "Total asset location resolutions per storage backend.",
		},
		[]string{"backend", "success"},
	)

	backendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bundle_server",
			Subsystem: "distribution",
			Name:      "backend_resolution_duration_seconds",
			Help:      "Duration of storage backend location resolutions.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"backend"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		resolutionOutcomes,
		backendResolutions,
		backendDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// ObserveResolution records the outcome of a manifest resolution.
func ObserveResolution(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	resolutionOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveBackendResolution records an asset location lookup against a
// storage backend.
func ObserveBackendResolution(backend string, duration time.Duration, success bool) {
	if backend == "" {
		backend = "unknown"
	}
	if duration <= 0 {
		duration = time.Millisecond
	}
	result := "false"
	if success {
		result = "true"
	}
	backendResolutions.WithLabelValues(backend, result).Inc()
	backendDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/api"
	}
	switch parts[1] {
	case "manifests":
		if len(parts) == 2 {
			return "/api/manifests"
		}
		if len(parts) >= 3 && parts[2] == "uuid" {
			return "/api/manifests/uuid/:uuid"
		}
		if len(parts) == 3 {
			return "/api/manifests/:id"
		}
		if parts[3] == "assets" {
			if len(parts) == 4 {
				return "/api/manifests/:id/assets"
			}
			if len(parts) >= 6 && parts[5] == "download" {
				return "/api/manifests/:id/assets/:asset/download"
			}
		}
		return "/api/manifests/:id"
	case "channels":
		if len(parts) >= 4 {
			return "/api/channels/:channel/" + parts[3]
		}
		return "/api/channels/:channel"
	case "assets":
		if len(parts) == 2 {
			return "/api/assets"
		}
		return "/api/assets/:id"
	}
	return "/api/" + parts[1]
}
