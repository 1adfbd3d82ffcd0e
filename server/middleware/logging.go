package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/transcriber/logger"
)

// probePaths are polled by orchestrators and skipped by the request log.
var probePaths = map[string]bool{
	"/health":  true,
	"/alive":   true,
	"/ready":   true,
	"/metrics": true,
}

// RequestLogger logs method, path, status and duration of every request
// except health probes. 5xx log at error, 4xx at warn, the rest at debug.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if probePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)
			duration := time.Since(start)
			status := rec.Status()

			fields := logger.Fields(
				"method", r.Method,
				logger.FieldPath, r.URL.Path,
				logger.FieldStatus, status,
				logger.FieldDuration, duration.Milliseconds(),
				"bytes", rec.bytes,
			)
			if client := r.Header.Get("Client-Id"); client != "" {
				fields[logger.FieldClientID] = client
			}
			if duration > 500*time.Millisecond {
				fields["slow"] = true
			}

			reqLog := log.WithContext(r.Context())
			switch {
			case status >= 500:
				reqLog.Error("Request completed", fields)
			case status >= 400:
				reqLog.Warn("Request completed", fields)
			default:
				reqLog.Debug("Request completed", fields)
			}
		})
	}
}
