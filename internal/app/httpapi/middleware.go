package httpapi

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Ablestor/bundle-electron-updates-server/pkg/logger"
)

// withLogging records one line per request with method, path, status and
// duration.
func withLogging(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		log.WithField("status", rec.status).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Infof("%s %s", r.Method, r.URL.Path)
	})
}

// withRateLimit rejects requests beyond the limiter's budget with 429.
// Health and metrics probes are exempt.
func withRateLimit(limiter *rate.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		if !limiter.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
