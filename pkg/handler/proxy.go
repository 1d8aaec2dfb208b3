package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/boogy/aws-cognito-warden/pkg/response"
)

// proxyRequest is the transport independent view of a Lambda HTTP event
type proxyRequest struct {
	RequestID       string
	Method          string
	Path            string
	RawQuery        string
	Headers         map[string]string
	MultiHeaders    map[string][]string
	Cookies         []string
	Body            string
	IsBase64Encoded bool
	SourceIP        string
}

// proxyResponse is what the router produced for a proxyRequest
type proxyResponse struct {
	StatusCode      int
	Headers         map[string]string
	MultiHeaders    map[string][]string
	Cookies         []string
	Body            string
	IsBase64Encoded bool
}

// proxy serves Lambda events through an http.Handler
type proxy struct {
	handler http.Handler
	timeout time.Duration
}

func newProxy(h http.Handler) *proxy {
	return &proxy{handler: h, timeout: DefaultTimeout}
}

// serve translates in into an *http.Request, runs the handler and records its response
func (p *proxy) serve(ctx context.Context, in proxyRequest) proxyResponse {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if in.RequestID != "" {
		ctx = response.WithRequestID(ctx, in.RequestID)
	}

	req, err := buildRequest(ctx, in)
	if err != nil {
		slog.Warn("Rejected malformed Lambda event",
			slog.String("requestId", in.RequestID),
			slog.String("path", in.Path),
			slog.String("error", err.Error()))
		return errorResponse(in.RequestID, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid request")
	}

	rec := httptest.NewRecorder()
	p.handler.ServeHTTP(rec, req)
	return recordedResponse(rec.Result())
}

func buildRequest(ctx context.Context, in proxyRequest) (*http.Request, error) {
	body := []byte(in.Body)
	if in.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(in.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidBody, err)
		}
		body = decoded
	}
	if len(body) > MaxBodySize {
		return nil, ErrBodyTooLarge
	}

	path := in.Path
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		return nil, ErrInvalidPath
	}

	target := &url.URL{Path: path, RawQuery: in.RawQuery}
	method := in.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Join(ErrInvalidPath, err)
	}

	for k, values := range in.MultiHeaders {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	for k, v := range in.Headers {
		if _, ok := in.MultiHeaders[k]; !ok {
			req.Header.Set(k, v)
		}
	}
	for _, c := range in.Cookies {
		req.Header.Add("Cookie", c)
	}

	if host := req.Header.Get("Host"); host != "" {
		req.Host = host
	}
	if in.SourceIP != "" {
		req.RemoteAddr = in.SourceIP
	}
	req.RequestURI = target.RequestURI()

	return req, nil
}

func recordedResponse(res *http.Response) proxyResponse {
	defer func() { _ = res.Body.Close() }()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(res.Body)

	out := proxyResponse{
		StatusCode:   res.StatusCode,
		Headers:      make(map[string]string, len(res.Header)),
		MultiHeaders: make(map[string][]string, len(res.Header)),
	}
	for k, values := range res.Header {
		if k == "Set-Cookie" {
			out.Cookies = append(out.Cookies, values...)
		}
		out.Headers[k] = strings.Join(values, ", ")
		out.MultiHeaders[k] = values
	}

	if utf8.Valid(buf.Bytes()) {
		out.Body = buf.String()
	} else {
		out.Body = base64.StdEncoding.EncodeToString(buf.Bytes())
		out.IsBase64Encoded = true
	}
	return out
}

func errorResponse(requestID string, status int, code, message string) proxyResponse {
	body, err := json.Marshal(response.Response{
		Success:    false,
		StatusCode: status,
		RequestID:  requestID,
		ErrorCode:  code,
		Message:    message,
	})
	if err != nil {
		body = []byte(`{"success":false}`)
	}

	headers := make(map[string]string, len(ResponseHeaders))
	multi := make(map[string][]string, len(ResponseHeaders))
	for k, v := range ResponseHeaders {
		headers[k] = v
		multi[k] = []string{v}
	}

	return proxyResponse{
		StatusCode:   status,
		Headers:      headers,
		MultiHeaders: multi,
		Body:         string(body),
	}
}
