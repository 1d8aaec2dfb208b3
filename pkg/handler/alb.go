package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// AwsApplicationLoadBalancer handles AWS Application Load Balancer requests
type AwsApplicationLoadBalancer struct {
	proxy *proxy
}

// NewAwsApplicationLoadBalancer creates a new Application Load Balancer handler serving h
func NewAwsApplicationLoadBalancer(h http.Handler) *AwsApplicationLoadBalancer {
	return &AwsApplicationLoadBalancer{proxy: newProxy(h)}
}

// Handler is the Lambda function interface for Application Load Balancer
func (h *AwsApplicationLoadBalancer) Handler(ctx context.Context, event events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error) {
	multiValue := len(event.MultiValueHeaders) > 0

	sourceIP := event.Headers["x-forwarded-for"]
	if values := event.MultiValueHeaders["x-forwarded-for"]; len(values) > 0 {
		sourceIP = values[0]
	}

	slog.Debug("Received ALB event",
		slog.String("path", event.Path),
		slog.String("method", event.HTTPMethod),
		slog.String("targetGroup", event.RequestContext.ELB.TargetGroupArn),
		slog.String("sourceIp", sourceIP),
	)

	res := h.proxy.serve(ctx, proxyRequest{
		Method:          event.HTTPMethod,
		Path:            event.Path,
		RawQuery:        joinRawQuery(event.QueryStringParameters, event.MultiValueQueryStringParameters),
		Headers:         event.Headers,
		MultiHeaders:    event.MultiValueHeaders,
		Body:            event.Body,
		IsBase64Encoded: event.IsBase64Encoded,
		SourceIP:        sourceIP,
	})

	out := events.ALBTargetGroupResponse{
		StatusCode:        res.StatusCode,
		StatusDescription: fmt.Sprintf("%d %s", res.StatusCode, http.StatusText(res.StatusCode)),
		Body:              res.Body,
		IsBase64Encoded:   res.IsBase64Encoded,
	}

	// The target group answers in the header mode the request used
	if multiValue {
		out.MultiValueHeaders = res.MultiHeaders
	} else {
		out.Headers = res.Headers
	}
	return out, nil
}

// joinRawQuery rebuilds the query string of an ALB event.
// ALB forwards parameters still percent-encoded, so they are joined without re-encoding.
func joinRawQuery(single map[string]string, multi map[string][]string) string {
	var pairs []string
	if len(multi) > 0 {
		for k, vs := range multi {
			for _, v := range vs {
				pairs = append(pairs, k+"="+v)
			}
		}
	} else {
		for k, v := range single {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}
