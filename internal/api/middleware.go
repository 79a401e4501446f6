package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"pizza-lovers/internal/auth"
	"pizza-lovers/internal/logger"
)

// withLogging adds request logging and metrics middleware
func (s *Server) withLogging(pattern string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}

		r = r.WithContext(logger.WithRequestID(r.Context(), requestID))
		w.Header().Set("X-Request-ID", requestID)

		s.Logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
				"user_agent":  r.Header.Get("User-Agent"),
			})

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next(rw, r)

		duration := time.Since(start)
		s.Metrics.Requests.WithLabelValues(pattern, strconv.Itoa(rw.statusCode)).Inc()
		s.Metrics.LatencyMS.WithLabelValues(pattern).Observe(float64(duration.Milliseconds()))
		s.Logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": duration.Milliseconds(),
			})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// principalHandler is a handler that runs with an authorized caller
type principalHandler func(w http.ResponseWriter, r *http.Request, p auth.Principal)

// require resolves the caller and checks it may perform action
func (s *Server) require(action auth.Action, next principalHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := auth.FromRequest(r)
		if err == nil {
			err = auth.Authorize(p, action)
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next(w, r.WithContext(auth.WithPrincipal(r.Context(), p)), p)
	}
}
