package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/okian/perfboard/pkg/logger"
	"github.com/okian/perfboard/pkg/metrics"
)

// HTTP status code constants.
const (
	statusBadRequest      = 400
	statusNotFound        = 404
	statusTooManyRequests = 429
	statusInternalError   = 500

	headerRequestID = "X-Request-ID"
	retryAfter      = "1"
)

type requestIDKey struct{}

// RequestID reuses an incoming X-Request-ID or generates a UUID, echoes it
// back and stamps it on every log line of the request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		ctx = logger.WithFields(ctx, logger.String("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID stored by RequestID.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// StructuredLogger logs one line per completed request.
func StructuredLogger(l logger.Logger) func(http.Handler) http.Handler {
	l = l.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			fields := []logger.Field{
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", ww.Status()),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Duration("duration", time.Since(start)),
				logger.String("remote_addr", r.RemoteAddr),
			}
			switch {
			case ww.Status() >= statusInternalError:
				l.Error(r.Context(), "request completed", fields...)
			case ww.Status() >= statusBadRequest:
				l.Warn(r.Context(), "request completed", fields...)
			default:
				l.Debug(r.Context(), "request completed", fields...)
			}
		})
	}
}

// Recoverer turns a handler panic into a logged 500 response.
func Recoverer(l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					panic(rvr)
				}
				l.Error(r.Context(), "panic recovered",
					logger.String("panic", fmt.Sprint(rvr)),
					logger.String("stack", string(debug.Stack())),
					logger.String("method", r.Method),
					logger.String("path", r.URL.Path))
				metrics.RecordErrorByComponent("http", "panic")
				writeError(w, r, http.StatusInternalServerError, msgInternal)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Metrics records request counts, latency and in-flight requests, labelled
// by the matched chi route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.IncInFlight()
		defer metrics.DecInFlight()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := routePattern(r)
		durationMs := float64(time.Since(start).Microseconds()) / 1000
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)

		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, durationMs)
		if status >= statusBadRequest {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, getErrorType(status))
		}
	})
}

// routePattern keeps label cardinality bounded: /api/data/17 is reported as
// /api/data/{id} and unmatched paths share one label.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= statusInternalError:
		return "server_error"
	case statusCode == statusTooManyRequests:
		return "rate_limit"
	case statusCode == statusNotFound:
		return "not_found"
	case statusCode >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// RateLimiter is a token bucket shared by every caller of the wrapped routes.
type RateLimiter struct {
	limiter *rate.Limiter
	log     logger.Logger
}

// NewRateLimiter allows rps requests per second with bursts of burst.
func NewRateLimiter(rps float64, burst int, l logger.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst), log: l}
}

// Handler rejects requests beyond the limit with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			rl.log.Warn(r.Context(), "rate limit exceeded",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.String("remote_addr", r.RemoteAddr))
			metrics.RecordRateLimited(r.URL.Path)
			w.Header().Set("Retry-After", retryAfter)
			writeError(w, r, http.StatusTooManyRequests, msgRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}
