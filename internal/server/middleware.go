package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// statusRecorder records the status and body size written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(data []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(data)
	sr.bytes += int64(n)
	return n, err
}

// requestLoggingMiddleware logs HTTP requests (if enabled) with latency & size.
func (ms *RelayServer) requestLoggingMiddleware(next http.Handler) http.Handler {
	if !ms.config.Logging.RequestLogging {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		if !shouldLogRequest(r.URL.Path) {
			return
		}

		fields := logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"remote":   r.RemoteAddr,
			"status":   rec.status,
			"size":     formatBytes(rec.bytes),
			"duration": time.Since(start).Round(time.Millisecond),
		}
		for key, param := range relayLogParams {
			if v := r.URL.Query().Get(param); v != "" {
				fields[key] = v
			}
		}

		entry := ms.logger.WithFields(fields)
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("Request failed")
			return
		}
		entry.Info("Request handled")
	})
}

// relayLogParams maps log fields to the API query parameters they come from
var relayLogParams = map[string]string{
	"query":   "query",
	"song_id": "id",
	"quality": "quality",
}

// corsMiddleware injects Access-Control-Allow-Origin: * if enabled in configuration.
func (ms *RelayServer) corsMiddleware(next http.Handler) http.Handler {
	if !ms.config.Server.EnableCORS {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Audio-Duration")
		next.ServeHTTP(w, r)
	})
}

// shouldLogRequest filters noisy paths from request logging output.
func shouldLogRequest(path string) bool {
	skipPaths := []string{
		"/static/",
		"/favicon.ico",
		"/health",
	}

	for _, skipPath := range skipPaths {
		if strings.HasPrefix(path, skipPath) {
			return false
		}
	}

	return true
}

// formatBytes renders a response size for request logs
func formatBytes(n int64) string {
	switch {
	case n == 0:
		return "0B"
	case n < 1<<10:
		return "< 1KB"
	case n < 1<<20:
		return fmt.Sprintf("%dKB", n>>10)
	case n < 1<<30:
		return fmt.Sprintf("%dMB", n>>20)
	default:
		return fmt.Sprintf("%dGB", n>>30)
	}
}

// panicRecoveryMiddleware intercepts panics returning HTTP 500 without crashing the process.
func (ms *RelayServer) panicRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				ms.writeError(w, r, http.StatusInternalServerError, fmt.Sprint(rec), fmt.Errorf("panic: %v", rec), false)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
