package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// TokenSource supplies the current bearer token, or "" when logged out.
type TokenSource func() string

// Client is the single HTTP core every domain service goes through.
// It attaches the bearer token, normalizes errors and records request
// metrics. One attempt per call, no retries.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	logger         *slog.Logger
	tokenSource    TokenSource
	onUnauthorized func()

	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

type Option func(*Client)

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokenSource = ts }
}

// WithOnUnauthorized registers the hook invoked on every 401 response.
func WithOnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func New(baseURL string, httpClient *http.Client, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	meter := otel.Meter("storefront/client")

	var err error
	c.requests, err = meter.Int64Counter("storefront.client.requests",
		metric.WithDescription("Total requests issued against the storefront API."))
	if err != nil {
		logger.Error("failed to create request counter", "error", err)
	}
	c.latency, err = meter.Float64Histogram("storefront.client.request.duration",
		metric.WithDescription("Storefront API request latency."),
		metric.WithUnit("ms"))
	if err != nil {
		logger.Error("failed to create latency histogram", "error", err)
	}

	return c
}

// Do issues one request. body is JSON-encoded when non-nil, out is decoded
// from the response body when non-nil (pass *json.RawMessage to defer
// envelope handling to the caller).
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokenSource != nil {
		if token := c.tokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.record(ctx, method, path, resp, time.Since(start))
	if err != nil {
		c.logger.Error("request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseError(resp.StatusCode, data)
		c.logger.Error("request rejected", "method", method, "path", path, "status", resp.StatusCode)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) record(ctx context.Context, method, path string, resp *http.Response, elapsed time.Duration) {
	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("storefront.path", path),
		attribute.String("storefront.status", status),
	)
	if c.requests != nil {
		c.requests.Add(ctx, 1, attrs)
	}
	if c.latency != nil {
		c.latency.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	}
}
