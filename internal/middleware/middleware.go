// Package middleware holds the HTTP middleware shared by the dashboard routes.
package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"bike-dashboard/pkg/logging"
	"bike-dashboard/pkg/metrics"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RealIP sets r.RemoteAddr from X-Real-IP or X-Forwarded-For.
var RealIP = chimw.RealIP

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorBody{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}

// RequestID reuses an incoming X-Request-ID or generates one, echoes it on
// the response and stores it in the request context for logging.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// Endpoint returns the matched route template, or the raw path when the
// request did not go through a mux route.
func Endpoint(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// AccessLog logs each completed request and records request metrics.
func AccessLog(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			endpoint := Endpoint(r)
			took := time.Since(start)

			metricsCollector.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(status))
			metricsCollector.APIRequestDuration.WithLabelValues(endpoint).Observe(took.Seconds())

			logger.Info(r.Context(), "[HTTP_REQUEST] Request completed", logging.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"endpoint":    endpoint,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"remote_addr": r.RemoteAddr,
				"duration_ms": took.Milliseconds(),
			})
		})
	}
}

// Recoverer turns a handler panic into a 500 response.
func Recoverer(logger *logging.StructuredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.Error(r.Context(), "[HTTP_PANIC] Panic recovered", logging.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"stack":  string(debug.Stack()),
				}, fmt.Errorf("panic: %v", rvr))

				writeError(w, "an unexpected error occurred", http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter applies one token bucket to all requests.
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *logging.StructuredLogger
}

// NewRateLimiter allows rps requests per second with the given burst.
func NewRateLimiter(rps float64, burst int, logger *logging.StructuredLogger) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Handler answers 429 once the bucket is empty.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			rl.logger.Warn(r.Context(), "[RATE_LIMIT] Rate limit exceeded", logging.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
			})
			w.Header().Set("Retry-After", "1")
			writeError(w, "rate limit exceeded, retry later", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
