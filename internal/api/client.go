// Package api is the HTTP client for the 99envios backend. Every call
// fails with either *APIError (the server rejected the request) or
// *NetworkError (no response arrived); ErrUnauthenticated is returned
// before any request when a token is required and none is stored.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// DefaultBaseURL is the production API origin.
const DefaultBaseURL = "https://api.99envios.app"

// DefaultTimeout bounds every request when no HTTP client is supplied.
const DefaultTimeout = 15 * time.Second

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// Client calls one fixed API origin.
type Client struct {
	baseURL        string
	tokens         TokenSource
	httpClient     *http.Client
	logger         *slog.Logger
	maxRetries     uint64
	retryBase      time.Duration
	onUnauthorized func(context.Context)
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// WithRetry retries transport failures up to max times with exponential
// backoff starting at base. Rejections from the server are never retried.
func WithRetry(max uint64, base time.Duration) Option {
	return func(cl *Client) {
		cl.maxRetries = max
		cl.retryBase = base
	}
}

// WithUnauthorizedHandler registers fn to run when an authenticated call
// is answered with 401.
func WithUnauthorizedHandler(fn func(context.Context)) Option {
	return func(cl *Client) {
		cl.onUnauthorized = fn
	}
}

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
		retryBase:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the origin requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	auth        bool
}

func jsonRequest(method, path string, payload any, auth bool) (request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("marshal %s body: %w", path, err)
	}
	return request{
		method:      method,
		path:        path,
		body:        body,
		contentType: "application/json",
		auth:        auth,
	}, nil
}

// do sends req, retrying transport failures when configured, and returns
// the body of a 2xx response.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	if c.maxRetries == 0 {
		return c.once(ctx, req)
	}

	var data []byte
	var lastErr error
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		data, err = c.once(ctx, req)
		lastErr = err
		if IsRetryable(err) {
			c.logger.Debug("retrying request", "method", req.method, "path", req.path, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		if lastErr != nil && !errors.Is(err, lastErr) {
			// Context ended while waiting to retry.
			return nil, lastErr
		}
		return nil, err
	}
	return data, nil
}

func (c *Client) once(ctx context.Context, req request) ([]byte, error) {
	var token string
	if req.auth {
		var ok bool
		if c.tokens != nil {
			token, ok = c.tokens.Token(ctx)
		}
		if !ok {
			return nil, ErrUnauthenticated
		}
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", requestID)
	if req.body != nil && req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("request failed", "method", req.method, "path", req.path, "request_id", requestID, "error", err)
		return nil, &NetworkError{Method: req.method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: req.method, URL: target, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("request",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID,
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized && req.auth && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return nil, newAPIError(resp.StatusCode, data)
	}
	return data, nil
}

// getJSON issues an authenticated GET and decodes a single JSON object.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	data, err := c.do(ctx, request{method: http.MethodGet, path: path, query: query, auth: true})
	if err != nil {
		return err
	}
	return decodeObject(data, v)
}

// getCollection issues an authenticated GET and decodes a list body.
func getCollection[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	data, err := c.do(ctx, request{method: http.MethodGet, path: path, query: query, auth: true})
	if err != nil {
		return nil, err
	}
	items, err := DecodeCollection[T](data)
	if err != nil {
		c.logger.Warn("invalid collection response", "path", path, "error", err)
		return nil, &APIError{StatusCode: http.StatusOK, Message: "invalid JSON response"}
	}
	return items, nil
}

func decodeObject(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &APIError{StatusCode: http.StatusOK, Message: "invalid JSON response"}
	}
	return nil
}

// Ack is the body of mutation endpoints.
type Ack struct {
	Message string `json:"message"`
}

func decodeAck(data []byte) (Ack, error) {
	var raw json.RawMessage
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Ack{}, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Ack{}, &APIError{StatusCode: http.StatusOK, Message: "invalid JSON response"}
	}
	// Bodies that are not objects carry no message.
	if raw[0] != '{' {
		return Ack{}, nil
	}
	var ack Ack
	if err := json.Unmarshal(raw, &ack); err != nil {
		return Ack{}, fmt.Errorf("decode acknowledgement: %w", err)
	}
	return ack, nil
}
