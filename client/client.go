// Package client is the typed request pipeline for the pgrooms API.
//
// A Client wraps a Transport (bearer credential, response interception,
// notification of server-returned failures) and adds connectivity-only retry
// with exponential backoff. Responses of any HTTP status are never retried,
// so a mutation that reached the server is never resubmitted.
//
// The typed verbs Get, Post, Put, Patch and Delete return the decoded
// envelope.Response for the caller's data type.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/c360studio/pgrooms/credential"
	"github.com/c360studio/pgrooms/envelope"
	"github.com/c360studio/pgrooms/notify"
	"golang.org/x/net/publicsuffix"
)

// DefaultTimeout is the total time allowed for one attempt.
const DefaultTimeout = 30 * time.Second

// Client is the request pipeline. It is safe for concurrent use; each call
// keeps its own retry state.
type Client struct {
	transport *Transport
	retry     RetryConfig
	sleep     Sleeper
	funnel    *notify.Funnel
	metrics   *Metrics
	logger    *slog.Logger

	httpClient     *http.Client
	timeout        time.Duration
	credentials    credential.Store
	onUnauthorized UnauthorizedHandler
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. Its timeout and cookie jar are
// used as given.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the per-attempt timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.timeout = d
	}
}

// WithCredentials sets the credential store consulted before every request.
func WithCredentials(s credential.Store) Option {
	return func(client *Client) {
		client.credentials = s
	}
}

// WithFunnel sets the notification funnel.
func WithFunnel(f *notify.Funnel) Option {
	return func(client *Client) {
		client.funnel = f
	}
}

// WithRetryConfig sets the retry policy.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(client *Client) {
		client.retry = cfg
	}
}

// WithSleeper replaces the backoff wait.
func WithSleeper(s Sleeper) Option {
	return func(client *Client) {
		client.sleep = s
	}
}

// WithUnauthorizedHandler sets the handler run after a 401 clears the credential.
func WithUnauthorizedHandler(h UnauthorizedHandler) Option {
	return func(client *Client) {
		client.onUnauthorized = h
	}
}

// WithMetrics records request, retry and latency metrics.
func WithMetrics(m *Metrics) Option {
	return func(client *Client) {
		client.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https: %q", baseURL)
	}

	c := &Client{
		retry:   DefaultRetryConfig(),
		sleep:   sleepContext,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.httpClient = &http.Client{
			Timeout: c.timeout,
			Jar:     jar,
		}
	}
	if c.funnel == nil {
		c.funnel = notify.NewFunnel(notify.NewLogNotifier(c.logger), notify.WithLogger(c.logger))
	}
	if c.onUnauthorized == nil {
		c.onUnauthorized = func(_ context.Context, e *Error) {
			c.logger.Warn("Session is no longer valid, login required", "url", e.URL)
		}
	}

	c.transport = &Transport{
		baseURL:        strings.TrimRight(u.String(), "/"),
		httpClient:     c.httpClient,
		credentials:    c.credentials,
		funnel:         c.funnel,
		onUnauthorized: c.onUnauthorized,
		logger:         c.logger,
	}
	return c, nil
}

// Transport returns the single-attempt transport.
func (c *Client) Transport() *Transport {
	return c.transport
}

// Credentials returns the configured credential store, or nil.
func (c *Client) Credentials() credential.Store {
	return c.credentials
}

// execute runs the retry loop around one logical request.
func (c *Client) execute(ctx context.Context, method, path string, body any) (*Result, error) {
	start := time.Now()
	retries := 0

	for {
		res, err := c.transport.Do(ctx, method, path, body)
		if err == nil {
			c.metrics.observe(method, "success", time.Since(start))
			return res, nil
		}

		if IsConnectivity(err) && retries < c.retry.MaxRetries && ctx.Err() == nil {
			retries++
			backoff := c.retry.Backoff(retries)
			c.logger.Debug("Request failed without response, retrying",
				"method", method,
				"path", path,
				"retry", retries,
				"max_retries", c.retry.MaxRetries,
				"backoff", backoff,
				"error", err)
			c.metrics.retried(method)

			if serr := c.sleep(ctx, backoff); serr != nil {
				c.metrics.observe(method, "canceled", time.Since(start))
				return nil, fmt.Errorf("%s %s: wait before retry: %w", method, path, serr)
			}
			continue
		}

		c.report(ctx, err)
		outcome := string(KindUnknown)
		if e, ok := AsError(err); ok {
			outcome = string(e.Kind)
		}
		c.metrics.observe(method, outcome, time.Since(start))
		return nil, err
	}
}

// report sends a failure through the funnel unless the transport already did.
func (c *Client) report(ctx context.Context, err error) {
	e, ok := AsError(err)
	if !ok || e.reported {
		return
	}
	e.reported = true
	if errors.Is(err, context.Canceled) {
		c.logger.Debug("Request canceled by caller", "url", e.URL)
		return
	}
	c.funnel.Report(ctx, notificationFor(e))
}

func call[T any](ctx context.Context, c *Client, method, path string, body any) (*envelope.Response[T], error) {
	res, err := c.execute(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	if len(res.Body) == 0 {
		return &envelope.Response[T]{}, nil
	}
	resp, err := envelope.Decode[T](res.Body)
	if err != nil {
		e := &Error{
			Kind:       KindUnknown,
			Method:     method,
			URL:        res.URL,
			RequestID:  res.RequestID,
			HTTPStatus: res.HTTPStatus,
			Message:    MessageGeneric,
			Body:       res.Body,
			Cause:      err,
		}
		c.report(ctx, e)
		return nil, e
	}
	return resp, nil
}

// Get sends a GET request.
func Get[T any](ctx context.Context, c *Client, path string) (*envelope.Response[T], error) {
	return call[T](ctx, c, http.MethodGet, path, nil)
}

// Post sends a POST request with a JSON body.
func Post[T any](ctx context.Context, c *Client, path string, body any) (*envelope.Response[T], error) {
	return call[T](ctx, c, http.MethodPost, path, body)
}

// Put sends a PUT request with a JSON body.
func Put[T any](ctx context.Context, c *Client, path string, body any) (*envelope.Response[T], error) {
	return call[T](ctx, c, http.MethodPut, path, body)
}

// Patch sends a PATCH request with a JSON body.
func Patch[T any](ctx context.Context, c *Client, path string, body any) (*envelope.Response[T], error) {
	return call[T](ctx, c, http.MethodPatch, path, body)
}

// Delete sends a DELETE request.
func Delete[T any](ctx context.Context, c *Client, path string) (*envelope.Response[T], error) {
	return call[T](ctx, c, http.MethodDelete, path, nil)
}
