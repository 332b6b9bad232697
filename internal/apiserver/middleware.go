package apiserver

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/loglens/loglens/internal/api"
)

// corsMiddleware adds CORS headers to all responses and answers
// preflight requests. A "*" entry (or an empty list) allows any origin;
// otherwise only configured origins are granted, echoed back so the
// grant stays origin-specific.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.anyOriginAllowed() {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin := r.Header.Get("Origin"); origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Auth-Token")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) anyOriginAllowed() bool {
	for _, o := range s.config.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return len(s.config.AllowedOrigins) == 0
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.config.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

// authMiddleware rejects requests whose X-Auth-Token header does not
// match the configured shared secret. The comparison is constant time.
// An empty configured secret rejects everything rather than allowing
// unauthenticated access.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		if s.config.AuthToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.config.AuthToken)) != 1 {
			s.logger.Warn("Rejected request to %s: invalid auth token", r.URL.Path)
			api.WriteError(w, http.StatusUnauthorized, string(api.ErrorCodeUnauthorized), "Invalid or missing authentication token")
			return
		}
		next(w, r)
	}
}

// responseRecorder captures the status code written by a handler so
// the logging and metrics middleware can report it.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs each request with a generated request ID,
// the response status, and the elapsed time.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		start := time.Now()

		recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		s.logger.Info("request_id=%s method=%s path=%s status=%d duration=%s",
			requestID, r.Method, r.URL.Path, recorder.statusCode, time.Since(start))
	})
}

// instrument records request count and duration metrics for a route.
func (s *Server) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next(recorder, r)

		status := strconv.Itoa(recorder.statusCode)
		s.metrics.requestsTotal.WithLabelValues(r.Method, path, status).Inc()
		s.metrics.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	}
}

// withMethod wraps a handler to enforce HTTP method
func (s *Server) withMethod(method string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			s.handleMethodNotAllowed(w, r)
			return
		}
		handler(w, r)
	}
}
