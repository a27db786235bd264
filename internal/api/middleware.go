package api

import (
	"net"
	"net/http"
	"time"

	"github.com/raindrop213/bibi-library/internal/logger"
)

// accessKeyHeader carries the shared catalog secret.
const accessKeyHeader = "X-Access-Key"

// credential extracts the access key from a request. An absent header
// simply means the caller is unauthorized for hidden shelves.
func credential(r *http.Request) string {
	return r.Header.Get(accessKeyHeader)
}

// isLoopback reports whether the request originated on this host.
// The purge endpoint is operator tooling and never exposed remotely.
func isLoopback(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// requestLogger logs each request with method, path, status and timing.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
