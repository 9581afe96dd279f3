// Package http is the outgoing HTTP client used for order webhooks.
//
//	c := http.NewClient(http.WithRetry(3, time.Second))
//	resp, err := c.PostJSON(ctx, url, payload, map[string]string{"X-Shop-Event": "order.placed"})
//	if err == nil {
//		err = resp.Throw()
//	}
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	gohttp "net/http"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
)

var defaultTransport = &gohttp.Transport{
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 20,
	IdleConnTimeout:     90 * time.Second,
}

// Client sends JSON requests and retries transport errors and 5xx
// responses with exponential backoff.
type Client struct {
	hc        *gohttp.Client
	attempts  int
	retryWait time.Duration
	timeout   time.Duration
}

type Option func(*Client)

// WithRetry sets the total number of attempts and the first backoff, which
// doubles after every failed attempt.
func WithRetry(attempts int, wait time.Duration) Option {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}
		c.attempts, c.retryWait = attempts, wait
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithTransport replaces the pooled transport, mostly for tests.
func WithTransport(rt gohttp.RoundTripper) Option {
	return func(c *Client) { c.hc = &gohttp.Client{Transport: rt} }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		hc:        &gohttp.Client{Transport: defaultTransport},
		attempts:  1,
		retryWait: 500 * time.Millisecond,
		timeout:   10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// PostJSON marshals body and posts it to url.
func (c *Client) PostJSON(ctx context.Context, url string, body any, headers map[string]string) (*Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("http: marshal body: %w", err)
	}

	var (
		resp    *Response
		lastErr error
	)
	wait := c.retryWait
	for attempt := 1; attempt <= c.attempts; attempt++ {
		resp, lastErr = c.do(ctx, gohttp.MethodPost, url, raw, headers)
		if lastErr == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if lastErr == nil {
			lastErr = resp.Throw()
		}
		if attempt == c.attempts {
			break
		}
		logger.Warn("http: request failed, retrying", "url", url, "attempt", attempt, "backoff", wait, "error", lastErr)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	if resp != nil {
		// The final 5xx is returned so callers can inspect it.
		return resp, nil
	}
	return nil, fmt.Errorf("http: %d attempts failed for POST %s: %w", c.attempts, url, lastErr)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := gohttp.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: send: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("http: read body: %w", err)
	}
	return &Response{StatusCode: res.StatusCode, Headers: res.Header, Raw: raw}, nil
}

type Response struct {
	StatusCode int
	Headers    gohttp.Header
	Raw        []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Throw returns an error if the response status is not 2xx.
func (r *Response) Throw() error {
	if !r.OK() {
		return fmt.Errorf("http: status %d: %s", r.StatusCode, string(r.Raw))
	}
	return nil
}
