// Package apiclient is the single outbound path to the storefront API. It
// signs requests with the current bearer token, unwraps the {code, data,
// message} envelope and routes failures to user-facing handlers.
package apiclient

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

	"github.com/google/uuid"
	"github.com/me/storefront/internal/notify"
	"github.com/me/storefront/pkg/model"
)

// GenericErrorMessage is shown for transport errors instead of the raw cause.
const GenericErrorMessage = "Something went wrong, please contact the administrator"

// DefaultTimeout bounds a request when no HTTP client is supplied.
const DefaultTimeout = 10 * time.Second

// TokenSource supplies the bearer token for request signing.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, bool)

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) (string, bool) {
	return f(ctx)
}

// FailureHandler receives business failures (envelope code other than 200).
type FailureHandler func(ctx context.Context, f *model.BusinessFailure)

// ErrorHandler receives transport errors.
type ErrorHandler func(ctx context.Context, e *model.TransportError)

// Client is an HTTP client for the storefront API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger

	tokens    TokenSource
	timeout   time.Duration
	notifier  notify.Notifier
	onFailure FailureHandler
	onError   ErrorHandler
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithTimeout sets the request timeout. It applies whatever the option order
// and never modifies a client passed to WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.Logger = l }
}

// WithNotifier sets where the default handlers report to the user.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithDefaultFailureHandler replaces the client-wide failure handler.
func WithDefaultFailureHandler(h FailureHandler) Option {
	return func(c *Client) { c.onFailure = h }
}

// WithDefaultErrorHandler replaces the client-wide error handler.
func WithDefaultErrorHandler(h ErrorHandler) Option {
	return func(c *Client) { c.onError = h }
}

// New creates an API client. tokens may be nil for an unauthenticated client.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		Logger:     slog.Default(),
		tokens:     tokens,
		notifier:   notify.Discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if c.timeout > 0 {
		hc := *c.HTTPClient
		hc.Timeout = c.timeout
		c.HTTPClient = &hc
	}
	c.Logger = c.Logger.With("component", "apiclient")
	if c.onFailure == nil {
		c.onFailure = c.DefaultFailureHandler
	}
	if c.onError == nil {
		c.onError = c.DefaultErrorHandler
	}
	return c
}

// DefaultFailureHandler logs the rejection and shows the server's message as a warning.
func (c *Client) DefaultFailureHandler(ctx context.Context, f *model.BusinessFailure) {
	c.Logger.Warn("request rejected", "url", f.URL, "code", f.Code, "message", f.Message)
	notify.Warning(ctx, c.notifier, f.Message)
}

// DefaultErrorHandler logs the cause and shows a generic error.
func (c *Client) DefaultErrorHandler(ctx context.Context, e *model.TransportError) {
	c.Logger.Error("request failed", "url", e.URL, "status", e.Status, "error", e.Cause)
	notify.Error(ctx, c.notifier, GenericErrorMessage)
}

// callOptions are the per-call overrides.
type callOptions struct {
	onFailure FailureHandler
	onError   ErrorHandler
	header    http.Header
	anonymous bool
}

// CallOption overrides behavior for a single call.
type CallOption func(*callOptions)

// WithFailureHandler handles this call's business failure instead of the default.
func WithFailureHandler(h FailureHandler) CallOption {
	return func(o *callOptions) { o.onFailure = h }
}

// WithErrorHandler handles this call's transport error instead of the default.
func WithErrorHandler(h ErrorHandler) CallOption {
	return func(o *callOptions) { o.onError = h }
}

// WithHeader adds a request header.
func WithHeader(key, value string) CallOption {
	return func(o *callOptions) { o.header.Add(key, value) }
}

// WithoutCredentials sends the call without the bearer token.
func WithoutCredentials() CallOption {
	return func(o *callOptions) { o.anonymous = true }
}

func (c *Client) callOptions(opts []CallOption) *callOptions {
	o := &callOptions{
		onFailure: c.onFailure,
		onError:   c.onError,
		header:    make(http.Header),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Get performs a GET request with optional query parameters.
func (c *Client) Get(ctx context.Context, path string, params url.Values, opts ...CallOption) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, params, nil, "", opts)
}

// Delete performs a DELETE request with optional query parameters.
func (c *Client) Delete(ctx context.Context, path string, params url.Values, opts ...CallOption) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, params, nil, "", opts)
}

// Post performs a POST request with a JSON body. A nil body sends no body.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...CallOption) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodPost, path, body, opts)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...CallOption) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodPut, path, body, opts)
}

// PostForm performs a POST request with a form-encoded body.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, opts ...CallOption) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil, []byte(form.Encode()), "application/x-www-form-urlencoded", opts)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, opts []CallOption) (json.RawMessage, error) {
	if body == nil {
		return c.do(ctx, method, path, nil, nil, "", opts)
	}
	data, err := json.Marshal(body)
	if err != nil {
		co := c.callOptions(opts)
		return nil, c.fail(ctx, co, Outcome{
			Kind: KindTransportError,
			Err:  &model.TransportError{URL: path, Cause: fmt.Errorf("marshal request: %w", err)},
		})
	}
	return c.do(ctx, method, path, nil, data, "application/json", opts)
}

// do performs an HTTP request and classifies the response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, contentType string, opts []CallOption) (json.RawMessage, error) {
	co := c.callOptions(opts)
	out := c.roundTrip(ctx, co, method, path, query, body, contentType)
	if out.Kind == KindSuccess {
		return out.Data, nil
	}
	return nil, c.fail(ctx, co, out)
}

func (c *Client) roundTrip(ctx context.Context, co *callOptions, method, path string, query url.Values, body []byte, contentType string) Outcome {
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
		c.Logger.Debug("HTTP request body", "bytes", len(body))
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return transportOutcome(path, 0, fmt.Errorf("create request: %w", err))
	}
	for k, vs := range co.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID())
	if !co.anonymous && c.tokens != nil {
		if token, ok := c.tokens.Token(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.Logger.Debug("HTTP request", "method", method, "url", target, "request_id", req.Header.Get("X-Request-ID"))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return transportOutcome(path, 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportOutcome(path, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	c.Logger.Debug("HTTP response", "status", resp.StatusCode, "bytes", len(respBody))
	return Classify(path, resp.StatusCode, respBody)
}

// fail runs the matching handler exactly once and returns the error for the caller.
func (c *Client) fail(ctx context.Context, co *callOptions, out Outcome) error {
	switch out.Kind {
	case KindBusinessFailure:
		if co.onFailure != nil {
			co.onFailure(ctx, out.Failure)
		}
		return out.Failure
	default:
		if co.onError != nil {
			co.onError(ctx, out.Err)
		}
		return out.Err
	}
}

// ReportError hands e to the client-wide error handler and returns it. Callers
// use it for a success envelope whose payload turns out to be unusable.
func (c *Client) ReportError(ctx context.Context, e *model.TransportError) error {
	c.onError(ctx, e)
	return e
}

func transportOutcome(path string, status int, cause error) Outcome {
	return Outcome{Kind: KindTransportError, Err: &model.TransportError{URL: path, Status: status, Cause: cause}}
}

// requestID generates a unique request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

// Decode unmarshals a successful payload into T. It passes through the call's
// error so it can wrap a verb directly: Decode[Product](c.Get(ctx, path, nil)).
func Decode[T any](data json.RawMessage, err error) (T, error) {
	var v T
	if err != nil {
		return v, err
	}
	if len(data) == 0 || string(data) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode payload: %w", err)
	}
	return v, nil
}
