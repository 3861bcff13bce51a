// Package apiclient talks to the Wydely REST API on behalf of the current session.
//
// Every request carries the device identification headers; requests made while a
// session is active also carry the bearer token and business id. Replies are
// normalized from the backend envelope into a Response.
package apiclient

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

	"github.com/rs/zerolog"
)

const defaultTimeout = 30 * time.Second

// Client issues requests against one API base URL.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option defines a function type to modify the Client instance.
type Option func(*clientOptions)

type clientOptions struct {
	base    http.RoundTripper
	timeout time.Duration
	logger  zerolog.Logger
}

// WithTransport sets the RoundTripper the auth transport delegates to.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) {
		o.base = rt
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// New returns a Client for baseURL. creds may be nil for a client that never
// authenticates.
func New(baseURL string, creds Credentials, device DeviceInfo, options ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("[apiclient.New] base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[apiclient.New] base url %q must be absolute", baseURL)
	}

	opts := clientOptions{
		base:    http.DefaultTransport,
		timeout: defaultTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(&opts)
	}

	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: opts.timeout,
			Transport: &authTransport{
				base:   opts.base,
				creds:  creds,
				device: device,
				logger: opts.logger,
			},
		},
		logger: opts.logger,
	}, nil
}

// Get issues a GET and normalizes the reply.
func Get[T any](ctx context.Context, c *Client, path string) (Response[T], error) {
	return send[T](ctx, c, http.MethodGet, path, nil)
}

// Post issues a POST with body encoded as JSON and normalizes the reply.
func Post[T any](ctx context.Context, c *Client, path string, body any) (Response[T], error) {
	return send[T](ctx, c, http.MethodPost, path, body)
}

func send[T any](ctx context.Context, c *Client, method, path string, body any) (Response[T], error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return Response[T]{}, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response[T]{}, fmt.Errorf("[apiclient] %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api request")

	return decodeResponse[T](resp)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("[apiclient] encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("[apiclient] new request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
