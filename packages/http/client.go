package http

import (
	"context"
	"io"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout is the default HTTP request timeout. Zero disables it.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

// Client sends prepared requests and captures their responses. It is safe
// for sequential and concurrent reuse.
type Client struct {
	httpClient     *http.Client
	transport      http.RoundTripper
	timeout        time.Duration
	proxyURL       string
	defaultHeaders map[string]string
	logger         zerolog.Logger
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:        DefaultTimeout,
		defaultHeaders: make(map[string]string),
		logger:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		transport := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        DefaultMaxIdleConns,
			MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
			IdleConnTimeout:     DefaultIdleConnTimeout,
		}
		if c.proxyURL != "" {
			proxyURL, err := neturl.Parse(c.proxyURL)
			if err == nil {
				transport.Proxy = http.ProxyURL(proxyURL)
			} else {
				c.logger.Warn().Str("proxy", c.proxyURL).Err(err).Msg("ignoring invalid proxy URL")
			}
		}
		c.transport = transport
	}

	c.httpClient = &http.Client{
		Transport: c.transport,
		Timeout:   c.timeout,
		// The first response is always the one captured.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return c
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders[key] = value
	}
}

// WithDefaultHeaders sets multiple default headers for all requests
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.defaultHeaders[k] = v
		}
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithTransport replaces the round tripper, e.g. with an httptest server's
// client transport.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.transport = rt
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Do sends req and returns the captured response. Transport errors are
// returned exactly as net/http reports them.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, req.Body)
	if err != nil {
		if c, ok := req.Body.(io.Closer); ok {
			c.Close()
		}
		return nil, err
	}
	if req.Body != nil {
		httpReq.ContentLength = req.ContentLength
		if req.ContentLength < 0 {
			httpReq.ContentLength = 0 // unknown length, sent chunked
		}
	}

	for k, v := range c.defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, values := range req.Headers {
		httpReq.Header[k] = append([]string(nil), values...)
	}
	if host := httpReq.Header.Get("Host"); host != "" {
		httpReq.Host = host
	}

	log := c.logger.With().Str("method", req.Method).Str("url", req.URL).Logger()
	log.Debug().Msg("sending request")

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Debug().Err(err).Msg("request failed")
		return nil, err
	}

	resp, err := capture(httpResp, req.Encoding, start)
	if err != nil {
		log.Debug().Err(err).Msg("reading response body failed")
		return nil, err
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(resp.Body)).
		Dur("duration", resp.Duration).
		Msg("response captured")

	return resp, nil
}
