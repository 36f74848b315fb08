// Package api is the REST client for the recipe backend: base URL plus
// path templates, bearer-token injection, per-request cancellation through
// context, a client-side timeout reported as a distinct error, and linear
// backoff retry for failures other than 4xx.
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

	"github.com/roach88/chefconnect/internal/clock"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 10 * time.Second

// TokenSource supplies the bearer token. An empty token sends no
// Authorization header.
type TokenSource interface {
	Token() string
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Tokens     TokenSource
	Retry      RetryPolicy
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Client issues JSON requests against a base URL.
type Client struct {
	base    *url.URL
	timeout time.Duration
	http    *http.Client
	tokens  TokenSource
	retry   RetryPolicy
	clock   clock.Clock
	log     *slog.Logger
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q: scheme and host required", opts.BaseURL)
	}
	c := &Client{
		base:    base,
		timeout: opts.Timeout,
		http:    opts.HTTPClient,
		tokens:  opts.Tokens,
		retry:   opts.Retry,
		clock:   clock.Or(opts.Clock),
		log:     opts.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.retry == (RetryPolicy{}) {
		c.retry = DefaultRetry
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c, nil
}

// Get decodes the response of GET path into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post sends body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put sends body and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Patch sends body and decodes the response into out.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, body, out)
}

// Delete issues DELETE path.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Do performs one request. Cancelling ctx returns ctx.Err(); exceeding the
// client timeout returns an APIError with status 408 wrapping ErrTimeout.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		payload = bytes.NewReader(data)
	}

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, method, u.String(), payload)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, context.DeadlineExceeded):
			return &APIError{Status: http.StatusRequestTimeout, Message: "Request timeout", Err: ErrTimeout}
		default:
			return &APIError{Message: "Network error occurred", Err: err}
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return &APIError{Status: http.StatusRequestTimeout, Message: "Request timeout", Err: ErrTimeout}
		}
		return &APIError{Status: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := errorFromBody(resp.StatusCode, data)
		c.log.Debug("api: request failed", "method", method, "path", path, "status", resp.StatusCode)
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func errorFromBody(status int, data []byte) *APIError {
	e := &APIError{Status: status, Body: data}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if json.Unmarshal(data, &body) == nil {
		e.Code = body.Code
		e.Message = body.Message
		if e.Message == "" {
			e.Message = body.Error
		}
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
	}
	return e
}
