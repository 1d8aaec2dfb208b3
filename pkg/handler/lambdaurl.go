package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// AwsLambdaUrl handles AWS Lambda function URL requests
type AwsLambdaUrl struct {
	proxy *proxy
}

// NewAwsLambdaUrl creates a new Lambda function URL handler serving h
func NewAwsLambdaUrl(h http.Handler) *AwsLambdaUrl {
	return &AwsLambdaUrl{proxy: newProxy(h)}
}

// Handler is the Lambda function interface for Lambda function URLs
func (h *AwsLambdaUrl) Handler(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	slog.Debug("Received Lambda URL event",
		slog.String("requestId", event.RequestContext.RequestID),
		slog.String("rawPath", event.RawPath),
		slog.String("method", event.RequestContext.HTTP.Method),
		slog.String("sourceIp", event.RequestContext.HTTP.SourceIP),
		slog.String("userAgent", event.RequestContext.HTTP.UserAgent),
		slog.String("domainName", event.RequestContext.DomainName),
	)

	res := h.proxy.serve(ctx, proxyRequest{
		RequestID:       event.RequestContext.RequestID,
		Method:          event.RequestContext.HTTP.Method,
		Path:            event.RawPath,
		RawQuery:        event.RawQueryString,
		Headers:         event.Headers,
		Cookies:         event.Cookies,
		Body:            event.Body,
		IsBase64Encoded: event.IsBase64Encoded,
		SourceIP:        event.RequestContext.HTTP.SourceIP,
	})

	headers := res.Headers
	delete(headers, "Set-Cookie")

	return events.LambdaFunctionURLResponse{
		StatusCode:      res.StatusCode,
		Headers:         headers,
		Body:            res.Body,
		IsBase64Encoded: res.IsBase64Encoded,
		Cookies:         res.Cookies,
	}, nil
}
