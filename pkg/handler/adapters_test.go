package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwsApiGateway_Handler(t *testing.T) {
	h := NewAwsApiGateway(echoHandler(t))

	res, err := h.Handler(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		Path:                  "/protected",
		Headers:               map[string]string{"Authorization": "Bearer abc"},
		QueryStringParameters: map[string]string{"q": "a b"},
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID: "apigw-req",
			Identity:  events.APIGatewayRequestIdentity{SourceIP: "198.51.100.1"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	assert.Equal(t, "GET|/protected|q=a+b|Bearer abc|||198.51.100.1|", res.Body)
	assert.Equal(t, "apigw-req", res.Headers["X-Echo-Request-Id"])
	assert.Equal(t, []string{"a=1", "b=2"}, res.MultiValueHeaders["Set-Cookie"])
}

func TestAwsApplicationLoadBalancer_Handler(t *testing.T) {
	h := NewAwsApplicationLoadBalancer(echoHandler(t))

	// Single value header mode
	res, err := h.Handler(context.Background(), events.ALBTargetGroupRequest{
		HTTPMethod:            http.MethodGet,
		Path:                  "/hoge",
		Headers:               map[string]string{"authorization": "Bearer abc", "x-forwarded-for": "192.0.2.7"},
		QueryStringParameters: map[string]string{"q": "a%20b"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	assert.Equal(t, "202 Accepted", res.StatusDescription)
	assert.Equal(t, "GET|/hoge|q=a%20b|Bearer abc|||192.0.2.7|", res.Body)
	assert.NotEmpty(t, res.Headers)
	assert.Empty(t, res.MultiValueHeaders)

	// Multi value header mode answers with multi value headers
	res, err = h.Handler(context.Background(), events.ALBTargetGroupRequest{
		HTTPMethod:                      http.MethodGet,
		Path:                            "/hoge",
		MultiValueHeaders:               map[string][]string{"x-multi": {"one", "two"}},
		MultiValueQueryStringParameters: map[string][]string{"q": {"1", "2"}},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Body, "GET|/hoge|q=1&q=2||one,two|"))
	assert.Empty(t, res.Headers)
	assert.Equal(t, []string{"a=1", "b=2"}, res.MultiValueHeaders["Set-Cookie"])
}

func TestAwsLambdaUrl_Handler(t *testing.T) {
	h := NewAwsLambdaUrl(echoHandler(t))

	res, err := h.Handler(context.Background(), events.LambdaFunctionURLRequest{
		RawPath:        "/fuga",
		RawQueryString: "x=1",
		Headers:        map[string]string{"authorization": "Bearer abc"},
		Cookies:        []string{"session=xyz"},
		Body:           "payload",
		RequestContext: events.LambdaFunctionURLRequestContext{
			RequestID: "url-req",
			HTTP: events.LambdaFunctionURLRequestContextHTTPDescription{
				Method:   http.MethodPost,
				SourceIP: "203.0.113.5",
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	assert.Equal(t, "POST|/fuga|x=1|Bearer abc||session=xyz|203.0.113.5|payload", res.Body)
	assert.Equal(t, "url-req", res.Headers["X-Echo-Request-Id"])
	assert.Equal(t, []string{"a=1", "b=2"}, res.Cookies)
	_, hasCookieHeader := res.Headers["Set-Cookie"]
	assert.False(t, hasCookieHeader)
}

func TestJoinRawQuery(t *testing.T) {
	assert.Equal(t, "", joinRawQuery(nil, nil))
	assert.Equal(t, "a=1&b=%2F", joinRawQuery(map[string]string{"b": "%2F", "a": "1"}, nil))
	assert.Equal(t, "a=1&a=2", joinRawQuery(map[string]string{"a": "ignored"}, map[string][]string{"a": {"2", "1"}}))
}

func TestEncodeQuery(t *testing.T) {
	assert.Equal(t, "a=x+y&b=1&b=2", encodeQuery(map[string]string{"a": "x y", "b": "ignored"}, map[string][]string{"b": {"1", "2"}}))
}
