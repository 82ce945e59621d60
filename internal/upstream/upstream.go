// Package upstream implements a client for the storefront backend API that
// owns the catalog, orders and contact messages.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// maxBodySize bounds how much of an upstream response is read.
const maxBodySize = 4 << 20

// StatusError is returned when upstream answers with a non-2xx status or an
// envelope whose status is not a success value.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream: status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream: status %d: %s", e.StatusCode, e.Message)
}

type options struct {
	timeout    time.Duration
	transport  http.RoundTripper
	tracerProv trace.TracerProvider
	meterProv  metric.MeterProvider
}

// Option configures a Client.
type Option func(*options)

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTransport replaces the base round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithTracerProvider sets the tracer provider for outbound spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProv = tp }
}

// WithMeterProvider sets the meter provider for outbound metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProv = mp }
}

// Client talks to the upstream storefront API.
type Client struct {
	base *url.URL
	http *http.Client
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base URL %q must be absolute", baseURL)
	}

	o := options{
		timeout:   10 * time.Second,
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var otelOpts []otelhttp.Option
	if o.tracerProv != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(o.tracerProv))
	}
	if o.meterProv != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(o.meterProv))
	}

	return &Client{
		base: u,
		http: &http.Client{
			Transport: otelhttp.NewTransport(o.transport, otelOpts...),
			Timeout:   o.timeout,
		},
	}, nil
}

// envelope is the common response wrapper of the upstream API.
type envelope[T any] struct {
	Status     string         `json:"status"`
	Code       int            `json:"code"`
	Message    string         `json:"message"`
	Results    int            `json:"results"`
	Pagination *paginationDTO `json:"pagination"`
	Data       T              `json:"data"`
}

func (e *envelope[T]) ok() bool {
	switch strings.ToLower(e.Status) {
	case "", "success", "ok", "created":
		return true
	default:
		return false
	}
}

// do sends a request and decodes the response envelope.
func do[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (*envelope[T], error) {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := httpmiddleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	zctx.From(ctx).Debug("Upstream call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	var env envelope[T]
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, errors.Wrap(decodeErr, "decode response")
	}
	if !env.ok() {
		code := env.Code
		if code == 0 {
			code = resp.StatusCode
		}
		return nil, &StatusError{StatusCode: code, Message: env.Message}
	}
	return &env, nil
}
