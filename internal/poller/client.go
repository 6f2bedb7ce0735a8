package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/avinashweb85/task-devops-monitor/internal/metrics"
	"github.com/avinashweb85/task-devops-monitor/internal/snapshot"
)

const maxResponseBodySize = 1 << 20 // 1MB

// ErrTimeoutMessage is the error text recorded when a fetch exceeds its timeout.
const ErrTimeoutMessage = "timeout"

// connection pooling limits to prevent resource exhaustion when many subscriptions poll at once
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 60 * time.Second // conservative: matches common ALB defaults
)

// EndpointInfo contains the configuration needed to fetch a single endpoint.
//
// This is the poller-internal representation of an endpoint, decoupled from
// the root package's Endpoint type to avoid circular dependencies.
type EndpointInfo struct {
	// Name is the display name of the endpoint, used in logs.
	Name string

	// URL is the target URL to fetch.
	URL string

	// Headers contains custom HTTP headers to send with requests.
	Headers map[string]string

	// Timeout is the per-request timeout duration.
	Timeout time.Duration
}

// Client performs single GET requests against health endpoints.
//
// Client uses per-request timeouts via context rather than a global timeout,
// allowing different endpoints to have different timeout configurations.
// Response bodies are limited to 1MB to prevent memory issues.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a new [Client]. m may be nil.
//
// The client is configured with connection pooling limits so that many
// subscriptions polling the same hosts reuse connections. Timeouts are
// applied per-request in [Client.Fetch], not as a global client timeout.
func NewClient(logger *slog.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = slog.Default()
	}
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
		logger:  logger,
		metrics: m,
	}
}

// Fetch issues one GET request to ep and returns its [snapshot.EndpointResult].
//
// Fetch never returns an error separately. Any failure (transport error,
// timeout, non-2xx status, unreadable body, body that is not JSON) is
// recorded in the result's Error field with Data nil. There are no retries.
func (c *Client) Fetch(ctx context.Context, ep EndpointInfo) snapshot.EndpointResult {
	start := time.Now()
	result := c.fetch(ctx, ep)
	latency := time.Since(start)

	c.metrics.RecordFetch(ep.URL, result.OK(), latency)
	if !result.OK() {
		c.logger.Debug("fetch failed",
			"endpoint", ep.Name,
			"url", ep.URL,
			"latency_ms", latency.Milliseconds(),
			"error", result.ErrorMessage(),
		)
	}
	return result
}

func (c *Client) fetch(ctx context.Context, ep EndpointInfo) snapshot.EndpointResult {
	if ep.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ep.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		return snapshot.Failure(ep.URL, fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range ep.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return snapshot.Failure(ep.URL, describeError("request failed", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))
		return snapshot.Failure(ep.URL, "unexpected status "+resp.Status)
	}

	// read one byte past the limit to detect oversize bodies
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize+1))
	if err != nil {
		return snapshot.Failure(ep.URL, describeError("failed to read response body", err))
	}
	if len(body) > maxResponseBodySize {
		return snapshot.Failure(ep.URL, "response body exceeds 1MB")
	}
	if !json.Valid(body) {
		return snapshot.Failure(ep.URL, "invalid JSON response body")
	}

	return snapshot.Success(ep.URL, body)
}

// describeError maps timeouts to [ErrTimeoutMessage] and prefixes everything else.
func describeError(prefix string, err error) string {
	if isTimeout(err) {
		return ErrTimeoutMessage
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
