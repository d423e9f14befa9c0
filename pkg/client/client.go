// Package client implements the remote pipeline service client: generic
// REST verbs, pipeline upload and tag management.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/conduitml/conduit/pkg/tracing"
)

const defaultTimeout = 60 * time.Second

// Client talks to the remote pipeline service. Remote call failures
// (network errors, HTTP error statuses) surface to the caller as-is; the
// client does not retry or mask them.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	validate   *validator.Validate
}

// Option configures a Client at construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTracer records a span per remote call.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) { c.tracer = tracer }
}

// New creates a client for the remote pipeline service.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
		validate:   validator.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get performs a GET request and returns the decoded JSON body.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, params, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPatch, path, nil, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any) (json.RawMessage, error) {
	if c.tracer != nil {
		var span trace.Span

		ctx, span = tracing.StartSpan(ctx, c.tracer, "client.request",
			attribute.String(tracing.HTTPMethodKey, method),
			attribute.String(tracing.HTTPPathKey, path),
		)
		defer span.End()

		data, err := c.request(ctx, method, path, params, body)
		if err != nil {
			tracing.SetError(span, err)

			return nil, err
		}

		return data, nil
	}

	return c.request(ctx, method, path, params, body)
}

func (c *Client) request(ctx context.Context, method, path string, params url.Values, body any) (json.RawMessage, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var bodyReader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}

		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("Calling remote service", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newAPIError(resp, data)
	}

	if len(data) == 0 {
		return nil, nil
	}

	return json.RawMessage(data), nil
}
