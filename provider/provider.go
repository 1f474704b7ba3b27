// Package provider contains the shared HTTP JSON transport used by every
// external capability client (search, geocoding, media metadata, weather,
// flights, sandboxed execution). Sub-packages expose narrow typed operations
// on top of Client.
//
// Every failure leaves this package as a *Error carrying a core.ErrorKind
// assigned from the transport outcome, never from message text:
//
//	401/403          -> Unauthorized
//	429              -> RateLimited
//	5xx, network     -> Unavailable
//	undecodable body -> Malformed
//	other non-2xx    -> ProviderFailure
//
// Clients are stateless beyond configuration and safe for concurrent use.
// Nothing is cached.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/logging"
)

// DefaultTimeout bounds a single provider round trip unless overridden.
const DefaultTimeout = 30 * time.Second

const maxErrorBody = 512

// Error is a classified provider failure.
type Error struct {
	Provider string
	Kind     core.ErrorKind
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Status > 0 {
		msg = fmt.Sprintf("status %d: %s", e.Status, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Provider, e.Kind, msg)
}

// Unwrap exposes the cause.
func (e *Error) Unwrap() error { return e.Err }

// ErrorKind implements core.Kinder.
func (e *Error) ErrorKind() core.ErrorKind { return e.Kind }

// NewError builds a provider error of the given kind.
func NewError(providerName string, kind core.ErrorKind, message string) *Error {
	return &Error{Provider: providerName, Kind: kind, Message: message}
}

// KindForStatus maps a non-2xx HTTP status to its error kind.
func KindForStatus(status int) core.ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.KindUnauthorized
	case status == http.StatusTooManyRequests:
		return core.KindRateLimited
	case status >= 500:
		return core.KindUnavailable
	default:
		return core.KindProviderFailure
	}
}

// Options configure a Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// RateLimit is the sustained requests per second; 0 disables throttling.
	RateLimit rate.Limit
	Burst     int
	// Header is sent with every request (e.g. credentials, Accept).
	Header http.Header
	// Query is added to every request (e.g. an API key parameter).
	Query  url.Values
	Logger logging.Logger
}

// Client is the shared HTTP JSON transport of one provider.
type Client struct {
	name    string
	opts    Options
	limiter *rate.Limiter
}

// NewClient creates a transport for the named provider.
func NewClient(name string, optFns ...func(o *Options)) *Client {
	opts := Options{
		Timeout: DefaultTimeout,
		Burst:   1,
		Header:  http.Header{},
		Query:   url.Values{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Header == nil {
		opts.Header = http.Header{}
	}
	if opts.Query == nil {
		opts.Query = url.Values{}
	}
	c := &Client{name: name, opts: opts}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(opts.RateLimit, burst)
	}
	return c
}

// WithBaseURL sets the base URL relative paths are resolved against.
func WithBaseURL(u string) func(o *Options) {
	return func(o *Options) { o.BaseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) func(o *Options) {
	return func(o *Options) { o.HTTPClient = hc }
}

// WithTimeout bounds each request when no HTTP client is supplied.
func WithTimeout(d time.Duration) func(o *Options) {
	return func(o *Options) { o.Timeout = d }
}

// WithRateLimit throttles outbound requests client-side.
func WithRateLimit(perSecond float64, burst int) func(o *Options) {
	return func(o *Options) {
		o.RateLimit = rate.Limit(perSecond)
		o.Burst = burst
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) func(o *Options) {
	return func(o *Options) {
		if o.Header == nil {
			o.Header = http.Header{}
		}
		o.Header.Set(key, value)
	}
}

// WithQueryParam adds a query parameter sent with every request.
func WithQueryParam(key, value string) func(o *Options) {
	return func(o *Options) {
		if o.Query == nil {
			o.Query = url.Values{}
		}
		o.Query.Set(key, value)
	}
}

// WithLogger sets the logger used for request lines.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// Name returns the provider name.
func (c *Client) Name() string { return c.name }

// Request describes one call. Path is either absolute or relative to the
// client's BaseURL. Body, when set, is sent as JSON.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
}

// Get is a GET request with query parameters decoded into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post is a POST request with a JSON body decoded into out.
func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Do performs the request and decodes a 2xx response into out. out may be a
// *string or *[]byte to receive the raw body, or nil to discard it.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.wrap(core.KindUnavailable, 0, "rate limiter wait", err)
		}
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return c.wrap(core.KindProviderFailure, 0, "build request", err)
	}

	start := time.Now()
	resp, err := c.opts.HTTPClient.Do(httpReq)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err // drop the URL, it may carry credentials
		}
		c.opts.Logger.Warn("provider.request.failed", "provider", c.name, "path", httpReq.URL.Path, "error", err.Error())
		return c.wrap(core.KindUnavailable, 0, "request failed", err)
	}
	defer resp.Body.Close()

	c.opts.Logger.Debug(
		"provider.request.complete",
		"provider", c.name,
		"method", httpReq.Method,
		"path", httpReq.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{Provider: c.name, Kind: KindForStatus(resp.StatusCode), Status: resp.StatusCode, Message: msg}
	}

	return c.decode(resp, out)
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := req.Path
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.opts.BaseURL + "/" + strings.TrimLeft(target, "/")
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	for k, vs := range c.opts.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	for k, vs := range req.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range c.opts.Header {
		httpReq.Header[k] = vs
	}
	for k, vs := range req.Header {
		httpReq.Header[k] = vs
	}
	return httpReq, nil
}

func (c *Client) decode(resp *http.Response, out any) error {
	switch dst := out.(type) {
	case nil:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case *[]byte:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return c.wrap(core.KindUnavailable, resp.StatusCode, "read body", err)
		}
		*dst = raw
		return nil
	case *string:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return c.wrap(core.KindUnavailable, resp.StatusCode, "read body", err)
		}
		*dst = string(raw)
		return nil
	default:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return c.wrap(core.KindMalformed, resp.StatusCode, "decode response", err)
		}
		return nil
	}
}

func (c *Client) wrap(kind core.ErrorKind, status int, msg string, err error) *Error {
	return &Error{Provider: c.name, Kind: kind, Status: status, Message: msg, Err: err}
}
