package poller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TokenHeader is the request header carrying the access token.
const TokenHeader = "X-Riot-Token"

// maxDrainSize caps how much of a response body is read before the
// connection is returned to the pool.
const maxDrainSize = 1 << 20 // 1MB

// connection pooling limits; a tracker talks to a single host
const (
	defaultMaxIdleConns        = 4
	defaultMaxIdleConnsPerHost = 2
	defaultIdleConnTimeout     = 60 * time.Second
)

// Response holds the result of a status check made by [Client].
type Response struct {
	// StatusCode is the HTTP status code (e.g., 200, 404).
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error contains any transport-level failure: request construction,
	// dial, timeout, or a response body that could not be read.
	// nil means an HTTP status was obtained.
	Error error
}

// Checker performs a single authenticated status check.
//
// Implementations must honour ctx cancellation and the timeout.
type Checker interface {
	Check(ctx context.Context, url, token string, timeout time.Duration) Response
}

// Client is the HTTP [Checker] used by [Poller].
//
// Client uses per-request timeouts via context rather than a global timeout.
// Response bodies are drained (up to 1MB) and discarded so connections can
// be reused; only the status code matters to the poller.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new [Client] with a pooled transport.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}
}

// NewClientWith wraps an existing *http.Client. A nil client uses [NewClient].
func NewClientWith(hc *http.Client) *Client {
	if hc == nil {
		return NewClient()
	}
	return &Client{httpClient: hc}
}

// Check issues one GET to url with the token in the [TokenHeader] header.
//
// No body and no query parameters are added. The timeout is applied via
// context cancellation. Check always returns a Response; errors are captured
// in the Error field rather than returned separately.
func (c *Client) Check(ctx context.Context, url, token string, timeout time.Duration) Response {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}
	req.Header.Set(TokenHeader, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize)); err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return Response{
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
}

// Close closes all idle connections in the client's connection pool.
// Safe to call multiple times and on a nil Client.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}
