// Package api provides an HTTP client for the Power BI REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bmd-analytics/reportbuilder/internal/config"
	"github.com/bmd-analytics/reportbuilder/internal/observability"
	"github.com/bmd-analytics/reportbuilder/internal/output"
	"github.com/bmd-analytics/reportbuilder/internal/resilience"
	"github.com/bmd-analytics/reportbuilder/internal/version"
)

// TokenSource mints bearer tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is an HTTP client for the Power BI REST API. It never retries:
// every failure is surfaced to the caller as-is.
type Client struct {
	httpClient *http.Client
	tokens     TokenSource
	baseURL    string
	hooks      observability.Hooks
	pacer      resilience.Pacer

	mu    sync.Mutex
	token string
}

// Response wraps an API response.
type Response struct {
	Data       json.RawMessage
	StatusCode int
	Headers    http.Header
}

// UnmarshalData unmarshals the response data into the given value.
func (r *Response) UnmarshalData(v any) error {
	return json.Unmarshal(r.Data, v)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHooks installs observability hooks.
func WithHooks(h observability.Hooks) Option {
	return func(c *Client) { c.hooks = h }
}

// WithPacer gates every request on p and reports each outcome back to it.
func WithPacer(p resilience.Pacer) Option {
	return func(c *Client) { c.pacer = p }
}

// NewClient creates a new API client.
func NewClient(cfg *config.Config, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		tokens:  tokens,
		baseURL: config.NormalizeBaseURL(cfg.APIBase),
		hooks:   observability.NopHooks{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Do sends one request. The credential is resolved before anything goes on
// the wire and reused for the lifetime of the client.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if c.pacer == nil {
		return c.send(ctx, method, path, body, token)
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, method, path, body, token)
	c.pacer.Observe(err)
	return resp, err
}

func (c *Client) send(ctx context.Context, method, path string, body any, token string) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	url := c.buildURL(path)
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	info := observability.RequestInfo{Method: method, URL: url}
	ctx = c.hooks.OnRequestStart(ctx, info)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.hooks.OnRequestEnd(ctx, info, observability.RequestResult{Duration: time.Since(start), Error: err})
		return nil, output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.hooks.OnRequestEnd(ctx, info, observability.RequestResult{
		StatusCode: resp.StatusCode,
		Duration:   time.Since(start),
		Error:      err,
	})
	if err != nil {
		return nil, output.ErrNetwork(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := output.ErrAPI(resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return nil, apiErr
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		respBody = []byte("{}")
	}

	return &Response{
		Data:       respBody,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
	}, nil
}

// AccessToken returns the bearer token the client sends, resolving it on
// first use. Later calls reuse it, so embedding it costs no second helper run.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", output.ErrAuth("Credential helper returned an empty token")
	}
	c.token = token
	return token, nil
}

func (c *Client) buildURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// parseRetryAfter parses the Retry-After header value in seconds.
func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && seconds > 0 {
		return seconds
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return int(d.Seconds() + 0.5)
		}
	}
	return 0
}
