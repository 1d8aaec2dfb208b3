package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
)

// AwsApiGateway handles AWS API Gateway REST proxy integration requests
type AwsApiGateway struct {
	proxy *proxy
}

// NewAwsApiGateway creates a new API Gateway handler serving h
func NewAwsApiGateway(h http.Handler) *AwsApiGateway {
	return &AwsApiGateway{proxy: newProxy(h)}
}

// Handler is the Lambda function interface for API Gateway
func (h *AwsApiGateway) Handler(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	slog.Debug("Received API Gateway event",
		slog.String("requestId", event.RequestContext.RequestID),
		slog.String("path", event.Path),
		slog.String("method", event.HTTPMethod),
		slog.String("sourceIp", event.RequestContext.Identity.SourceIP),
		slog.String("userAgent", event.RequestContext.Identity.UserAgent),
		slog.String("domainName", event.RequestContext.DomainName),
	)

	res := h.proxy.serve(ctx, proxyRequest{
		RequestID:       event.RequestContext.RequestID,
		Method:          event.HTTPMethod,
		Path:            event.Path,
		RawQuery:        encodeQuery(event.QueryStringParameters, event.MultiValueQueryStringParameters),
		Headers:         event.Headers,
		MultiHeaders:    event.MultiValueHeaders,
		Body:            event.Body,
		IsBase64Encoded: event.IsBase64Encoded,
		SourceIP:        event.RequestContext.Identity.SourceIP,
	})

	return events.APIGatewayProxyResponse{
		StatusCode:        res.StatusCode,
		Headers:           res.Headers,
		MultiValueHeaders: res.MultiHeaders,
		Body:              res.Body,
		IsBase64Encoded:   res.IsBase64Encoded,
	}, nil
}

// encodeQuery rebuilds a raw query string from the decoded event parameters
func encodeQuery(single map[string]string, multi map[string][]string) string {
	values := url.Values{}
	for k, vs := range multi {
		for _, v := range vs {
			values.Add(k, v)
		}
	}
	for k, v := range single {
		if _, ok := multi[k]; !ok {
			values.Set(k, v)
		}
	}
	return values.Encode()
}
