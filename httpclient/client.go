package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kbukum/transcriber/resilience"
)

// errorBodyLimit caps how much of an error response is kept.
const errorBodyLimit = 4 << 10

// Request describes an outbound request.
type Request struct {
	Method string
	// Path is joined to Config.BaseURL unless it is an absolute URL.
	Path    string
	Headers map[string]string
	// Body is sent as is. Requests with a body are never retried.
	Body        io.Reader
	ContentType string
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StreamResponse is a response whose body has not been read. The caller
// must Close it.
type StreamResponse struct {
	StatusCode int
	Header     http.Header
	// URL is the final URL after redirects.
	URL  string
	Body io.ReadCloser
}

// Close releases the connection.
func (r *StreamResponse) Close() error { return r.Body.Close() }

// Client sends requests with the configured timeout, retry and breaker.
type Client struct {
	http *http.Client
	cfg  Config
	cb   *resilience.CircuitBreaker
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	maxRedirects := cfg.MaxRedirects
	c := &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   cfg.Timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
	if cfg.CircuitBreaker != nil {
		c.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	return c, nil
}

// Do sends req and reads the whole response. Non-2xx statuses are returned
// as *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	return withRetry(ctx, c, req, func() (*Response, error) {
		sr, err := c.send(ctx, req)
		if err != nil {
			return nil, err
		}
		defer sr.Close()
		body, err := io.ReadAll(sr.Body)
		if err != nil {
			return nil, Classify(ctx, fmt.Errorf("read response body: %w", err))
		}
		return &Response{StatusCode: sr.StatusCode, Header: sr.Header, Body: body}, nil
	})
}

// Stream sends req and returns as soon as headers arrive. Non-2xx statuses
// are returned as *Error with the body already closed.
func (c *Client) Stream(ctx context.Context, req Request) (*StreamResponse, error) {
	return withRetry(ctx, c, req, func() (*StreamResponse, error) {
		return c.send(ctx, req)
	})
}

func withRetry[T any](ctx context.Context, c *Client, req Request, fn func() (T, error)) (T, error) {
	if c.cfg.Retry == nil || req.Body != nil {
		return guard(c.cb, fn)
	}
	return resilience.Retry(ctx, *c.cfg.Retry, func() (T, error) {
		return guard(c.cb, fn)
	})
}

func guard[T any](cb *resilience.CircuitBreaker, fn func() (T, error)) (T, error) {
	if cb == nil {
		return fn()
	}
	var out T
	err := cb.Execute(func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

// send performs one exchange. A non-2xx response is drained into an *Error.
func (c *Client) send(ctx context.Context, req Request) (*StreamResponse, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, Classify(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		_ = resp.Body.Close()
		return nil, ClassifyStatusCode(resp.StatusCode, body)
	}
	return &StreamResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		URL:        resp.Request.URL.String(),
		Body:       resp.Body,
	}, nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	url := req.Path
	if c.cfg.BaseURL != "" && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(url, "/")
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, req.Body)
	if err != nil {
		return nil, &Error{Code: ErrCodeValidation, Message: fmt.Sprintf("create request: %v", err), Err: err}
	}
	if c.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	return httpReq, nil
}
