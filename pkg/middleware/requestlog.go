package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/meshwork-app/meshwork-api/pkg/contextkeys"
	"github.com/meshwork-app/meshwork-api/pkg/observability"
)

// RequestID assigns each request a UUID, exposed on the context and echoed
// in the X-Request-Id response header. Incoming X-Request-Id values from the
// fronting proxy are kept.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(contextkeys.WithRequestID(r.Context(), id)))
	})
}

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// RequestLogger writes one structured access-log line per request and feeds
// the HTTP metrics.
func RequestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			observability.ObserveRequest(r.Method, r.URL.Path, rec.status, duration)

			log.WithFields(logrus.Fields{
				"request_id": contextkeys.GetRequestID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"duration":   duration.String(),
				"remote":     clientIP(r),
			}).Info("request completed")
		})
	}
}
