package response

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Context key types to avoid string collision in context values
type contextKey string

const (
	requestIDContextKey contextKey = "requestId"
	startTimeContextKey contextKey = "startTime"
)

// Error codes carried by failed responses
const (
	CodeInvalidRequest = "invalid_request"
	CodeUnauthorized   = "unauthorized"
	CodeNotFound       = "not_found"
	CodeUnavailable    = "service_unavailable"
	CodeInternal       = "internal_error"
)

// Response represents a standardized API response
type Response struct {
	Success      bool   `json:"success"`
	StatusCode   int    `json:"statusCode,omitempty"`
	RequestID    string `json:"requestId,omitempty"`
	ProcessingMS int64  `json:"processingMs,omitempty"`

	// For successful responses
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`

	// For error responses
	ErrorCode string `json:"errorCode,omitempty"`
}

// WithRequestID stores the request id in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext returns the request id stored by WithRequestID
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}

// WithStartTime stores the time the request started processing
func WithStartTime(ctx context.Context, start time.Time) context.Context {
	return context.WithValue(ctx, startTimeContextKey, start)
}

func processingMS(ctx context.Context) int64 {
	if start, ok := ctx.Value(startTimeContextKey).(time.Time); ok {
		return time.Since(start).Milliseconds()
	}
	return 0
}

// JSON writes a successful envelope carrying data
func JSON(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	write(w, r, Response{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}

// Error writes a failed envelope. The message must be safe to show to clients.
func Error(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	write(w, r, Response{
		Success:    false,
		StatusCode: status,
		ErrorCode:  code,
		Message:    message,
	})
}

func write(w http.ResponseWriter, r *http.Request, resp Response) {
	ctx := r.Context()
	resp.RequestID = RequestIDFromContext(ctx)
	resp.ProcessingMS = processingMS(ctx)

	body, err := json.Marshal(resp)
	if err != nil {
		slog.Error("Failed to marshal response",
			slog.String("requestId", resp.RequestID),
			slog.String("error", err.Error()))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"statusCode":500,"errorCode":"internal_error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(body); err != nil {
		slog.Debug("Failed to write response body", slog.String("error", err.Error()))
	}
}
