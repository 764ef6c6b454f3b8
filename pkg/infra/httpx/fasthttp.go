package httpx

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	DefaultTimeout         = 10 * time.Second
	DefaultMaxConnsPerHost = 64
)

// Client posts JSON documents to outbound endpoints.
//
//go:generate mockery --name=Client --dir=. --output=./mocks --filename=http_client_mock.go --case=underscore --with-expecter
type Client interface {
	PostJSON(ctx context.Context, url string, headers map[string]string, body []byte) (int, error)
}

type ClientConfig struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	MaxConnsPerHost    int
	UserAgent          string
}

type FastHTTPClient struct {
	client    *fasthttp.Client
	timeout   time.Duration
	userAgent string
}

func NewFastHTTPClient(cfg ClientConfig) *FastHTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = DefaultMaxConnsPerHost
	}
	client := &fasthttp.Client{
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		MaxIdleConnDuration: 10 * time.Second,
		ReadTimeout:         cfg.Timeout,
		WriteTimeout:        cfg.Timeout,
	}
	if cfg.InsecureSkipVerify {
		client.TLSConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // intentionally configurable
		}
	}
	return &FastHTTPClient{
		client:    client,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
	}
}

// PostJSON sends body and returns the response status. The shorter of the
// client timeout and the ctx deadline bounds the call.
func (c *FastHTTPClient) PostJSON(ctx context.Context, url string, headers map[string]string, body []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.userAgent != "" {
		req.Header.SetUserAgent(c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.SetBodyRaw(body)

	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		return 0, fmt.Errorf("post %s: %w", url, err)
	}
	return resp.StatusCode(), nil
}
