package core

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
)

// LambdaHandler adapts h to API Gateway HTTP API (payload v2) events so the
// same router serves Lambda and plain HTTP.
type LambdaHandler struct {
	handler http.Handler
}

// NewLambdaHandler wraps h.
func NewLambdaHandler(h http.Handler) *LambdaHandler {
	return &LambdaHandler{handler: h}
}

// Handle is passed to lambda.Start.
func (l *LambdaHandler) Handle(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	req, err := newRequestFromEvent(ctx, event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}

	buf := newResponseBuffer()
	l.handler.ServeHTTP(buf, req)
	return buf.toEvent(), nil
}

func newRequestFromEvent(ctx context.Context, event events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("decoding base64 body: %w", err)
		}
		body = decoded
	}

	target := event.RawPath
	if target == "" {
		target = "/"
	}
	if event.RawQueryString != "" {
		target += "?" + event.RawQueryString
	}

	method := event.RequestContext.HTTP.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request for %s %s: %w", method, target, err)
	}

	for k, v := range event.Headers {
		// API Gateway joins repeated headers with commas.
		req.Header.Set(k, v)
	}
	if len(event.Cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(event.Cookies, "; "))
	}
	if event.RequestContext.RequestID != "" && req.Header.Get("X-Request-Id") == "" {
		req.Header.Set("X-Request-Id", event.RequestContext.RequestID)
	}
	if ip := event.RequestContext.HTTP.SourceIP; ip != "" {
		req.RemoteAddr = ip
	}
	req.Host = req.Header.Get("Host")
	req.RequestURI = target

	return req, nil
}

// responseBuffer holds the status, headers and body until the handler
// returns, since a Lambda response is a single value.
type responseBuffer struct {
	statusCode int
	headers    http.Header
	body       bytes.Buffer
	written    bool
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{statusCode: http.StatusOK, headers: make(http.Header)}
}

func (rb *responseBuffer) Header() http.Header { return rb.headers }

func (rb *responseBuffer) WriteHeader(code int) {
	if !rb.written {
		rb.statusCode = code
		rb.written = true
	}
}

func (rb *responseBuffer) Write(b []byte) (int, error) {
	rb.written = true
	return rb.body.Write(b)
}

func (rb *responseBuffer) toEvent() events.APIGatewayV2HTTPResponse {
	resp := events.APIGatewayV2HTTPResponse{
		StatusCode: rb.statusCode,
		Headers:    make(map[string]string, len(rb.headers)),
	}
	for k, v := range rb.headers {
		if k == "Set-Cookie" {
			resp.Cookies = append(resp.Cookies, v...)
			continue
		}
		resp.Headers[k] = strings.Join(v, ",")
	}

	raw := rb.body.Bytes()
	if rb.headers.Get("Content-Encoding") != "" || !utf8.Valid(raw) {
		resp.Body = base64.StdEncoding.EncodeToString(raw)
		resp.IsBase64Encoded = true
	} else {
		resp.Body = string(raw)
	}
	return resp
}
