package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/boogy/aws-cognito-warden/pkg/response"
)

// RequestIDHeader is echoed on every response
const RequestIDHeader = "X-Request-Id"

// RequestID attaches a request id and start time to the request context.
// An id already set upstream (Lambda adapters) or sent by the client is kept.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID := response.RequestIDFromContext(ctx)
		if requestID == "" {
			requestID = r.Header.Get(RequestIDHeader)
		}
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.New().String()
		}

		ctx = response.WithRequestID(ctx, requestID)
		ctx = response.WithStartTime(ctx, time.Now())
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger writes one structured line per request
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		slog.Info("Request completed",
			slog.String("requestId", response.RequestIDFromContext(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Int64("processingMs", time.Since(start).Milliseconds()),
		)
	})
}
