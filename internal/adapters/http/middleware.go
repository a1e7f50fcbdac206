package httpadapter

import (
	"bufio"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

const requestIDHeader = "X-Request-Id"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}

		r = r.WithContext(domain.ContextWithRequestID(r.Context(), requestID))
		w.Header().Set(requestIDHeader, requestID)

		next.ServeHTTP(w, r)
	})
}

func accessLogMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(recorder, r)

		remoteAddr := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			remoteAddr = host
		}

		logAttrs := []any{
			"request_id", domain.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.statusCode,
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
			"bytes", recorder.bytesWritten,
			"remote_addr", remoteAddr,
			"user_agent", r.UserAgent(),
		}

		switch {
		case recorder.statusCode >= 500:
			logger.Error("http_request", logAttrs...)
		case recorder.statusCode >= 400:
			logger.Warn("http_request", logAttrs...)
		default:
			logger.Info("http_request", logAttrs...)
		}
	})
}

func recoverMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}
			logger.Error("http_panic",
				"request_id", domain.RequestIDFromContext(r.Context()),
				"path", r.URL.Path,
				"panic", fmt.Sprint(p),
				"stack", string(debug.Stack()),
			)
			writeAnalysisError(w, http.StatusInternalServerError, "internal server error",
				"An internal server error occurred during report analysis. Please check backend logs for details.")
		}()
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware applies one token bucket to the whole API. A
// non-positive rps disables it.
func rateLimitMiddleware(next http.Handler, rps float64, burst int, onReject func()) http.Handler {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reservation := limiter.Reserve()
		if !reservation.OK() {
			rejectRateLimited(w, time.Second, onReject)
			return
		}
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			rejectRateLimited(w, delay, onReject)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func rejectRateLimited(w http.ResponseWriter, delay time.Duration, onReject func()) {
	if onReject != nil {
		onReject()
	}
	seconds := int(math.Ceil(delay.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeAnalysisError(w, http.StatusTooManyRequests, "rate limit exceeded", "Too many requests. Please try again shortly.")
}

func backpressureMiddleware(next http.Handler, maxInFlight int, waitTimeout time.Duration) http.Handler {
	return backpressureMiddlewareWithHook(next, maxInFlight, waitTimeout, nil)
}

// backpressureMiddlewareWithHook admits at most maxInFlight concurrent
// requests. A request that cannot get a slot within waitTimeout gets 503.
func backpressureMiddlewareWithHook(next http.Handler, maxInFlight int, waitTimeout time.Duration, onReject func()) http.Handler {
	if maxInFlight <= 0 {
		return next
	}
	slots := make(chan struct{}, maxInFlight)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case slots <- struct{}{}:
		default:
			timer := time.NewTimer(waitTimeout)
			defer timer.Stop()
			select {
			case slots <- struct{}{}:
			case <-timer.C:
				if onReject != nil {
					onReject()
				}
				w.Header().Set("Retry-After", "1")
				writeAnalysisError(w, http.StatusServiceUnavailable, "server is overloaded, retry later",
					"A required service is temporarily unavailable. Please try again later.")
				return
			case <-r.Context().Done():
				return
			}
		}
		defer func() { <-slots }()
		next.ServeHTTP(w, r)
	})
}

func bodyLimitMiddleware(next http.Handler, maxBytes int64) http.Handler {
	if maxBytes <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
