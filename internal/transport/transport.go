// Copyright (c) 2023-2025 xAI Go SDK Authors
//
// Licensed under the Apache License, Version 2.0.

// Package transport implements the authenticated HTTP/JSON request layer:
// synchronous POST/GET with a bounded response accumulator, and a streaming
// POST variant that routes response bytes into an io.Writer (typically an
// *sse.Tokenizer) instead of buffering the whole body.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/xai-go/xai-sdk/internal/logging"
)

// userAgent is the stable User-Agent header sent with every request.
const userAgent = "xai-go-sdk/1.0"

// defaultInitialBufferBytes is the initial size of the synchronous-response
// accumulator (§4.B: "accumulates response into a pre-sized buffer, initial
// 16 KiB").
const defaultInitialBufferBytes = 16 * 1024

// defaultMaxResponseBytes bounds how large a synchronous response body may
// grow before the call fails with HTTPFailed instead of growing without
// limit (§7: out-of-capacity conditions are never silently truncated).
const defaultMaxResponseBytes = 8 * 1024 * 1024

// Kind mirrors xai.Kind without importing the root package (avoiding an
// import cycle); the root package's HTTP-calling methods translate this back
// to xai.Kind via its translateTransportErr helper.
type Kind string

const (
	KindHTTPFailed Kind = "http_failed"
	KindAuthFailed Kind = "auth_failed"
	KindRateLimit  Kind = "rate_limit"
	KindAPIError   Kind = "api_error"
	KindTimeout    Kind = "timeout"
)

// Error is the error type returned by Transport methods.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Body       []byte
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transport: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("transport: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// MaxResponseExceeded is returned (wrapped in Error) when a synchronous
// response body exceeds the configured cap.
var MaxResponseExceeded = errors.New("response exceeds maximum accumulator size")

// Transport is an authenticated JSON HTTP client for the xAI REST surface.
type Transport struct {
	client *resty.Client
	logger logging.Logger

	maxResponseBytes int
}

// Config configures a Transport. MaxResponseBytes defaults to 8 MiB when 0.
type Config struct {
	BaseURL          string
	APIKey           string
	TimeoutMillis    int
	MaxResponseBytes int
	Logger           logging.Logger
}

// New builds a Transport. base_url + path concatenation is literal, per
// §4.B: callers must supply already-safe paths; no percent-encoding is
// applied.
func New(cfg Config) *Transport {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NoOp()
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", userAgent)

	if cfg.TimeoutMillis > 0 {
		client.SetTimeout(time.Duration(cfg.TimeoutMillis) * time.Millisecond)
	}

	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxResponseBytes
	}

	return &Transport{client: client, logger: logger, maxResponseBytes: maxBytes}
}

// Post issues an authenticated JSON POST and returns the full response body.
func (t *Transport) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	requestID := uuid.NewString()
	t.logger.Debugf("transport: POST %s request_id=%s len=%d", path, requestID, len(body))

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("X-Request-Id", requestID).
		SetBody(body).
		Post(path)
	if err != nil {
		return nil, classifyTransportErr(err)
	}

	return accumulate(resp, t.maxResponseBytes)
}

// Get issues an authenticated JSON GET and returns the full response body.
func (t *Transport) Get(ctx context.Context, path string) ([]byte, error) {
	requestID := uuid.NewString()
	t.logger.Debugf("transport: GET %s request_id=%s", path, requestID)

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("X-Request-Id", requestID).
		Get(path)
	if err != nil {
		return nil, classifyTransportErr(err)
	}

	return accumulate(resp, t.maxResponseBytes)
}

// PostStream issues a POST and routes the raw response body, byte-for-byte,
// into w (typically an *sse.Tokenizer via its Write method) rather than
// buffering the whole body. Status is checked against the response head
// before any bytes are copied; on a non-2xx status one bounded read
// recovers the error body for classification.
func (t *Transport) PostStream(ctx context.Context, path string, body []byte, w io.Writer) error {
	requestID := uuid.NewString()
	t.logger.Debugf("transport: POST(stream) %s request_id=%s len=%d", path, requestID, len(body))

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("X-Request-Id", requestID).
		SetDoNotParseResponse(true).
		SetBody(body).
		Post(path)
	if err != nil {
		return classifyTransportErr(err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(raw, int64(t.maxResponseBytes)))
		return classifyStatus(resp.StatusCode(), errBody)
	}

	if _, err := io.Copy(w, raw); err != nil {
		return &Error{Kind: KindHTTPFailed, Message: "reading stream body", Cause: err}
	}
	return nil
}

func accumulate(resp *resty.Response, maxBytes int) ([]byte, error) {
	status := resp.StatusCode()
	bodyBytes := resp.Body()

	if len(bodyBytes) > maxBytes {
		return nil, &Error{
			Kind:       KindHTTPFailed,
			Message:    "response exceeds maximum accumulator size",
			StatusCode: status,
			Cause:      MaxResponseExceeded,
		}
	}

	if status >= 200 && status < 300 {
		acc := bytes.NewBuffer(make([]byte, 0, defaultInitialBufferBytes))
		acc.Write(bodyBytes)
		return acc.Bytes(), nil
	}
	return nil, classifyStatus(status, bodyBytes)
}

func classifyStatus(status int, body []byte) error {
	var kind Kind
	switch status {
	case http.StatusUnauthorized:
		kind = KindAuthFailed
	case http.StatusTooManyRequests:
		kind = KindRateLimit
	default:
		kind = KindAPIError
	}
	return &Error{Kind: kind, Message: "non-2xx response", StatusCode: status, Body: body}
}

func classifyTransportErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: "request timed out", Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "request timed out", Cause: err}
	}
	return &Error{Kind: KindHTTPFailed, Message: "request failed", Cause: err}
}
