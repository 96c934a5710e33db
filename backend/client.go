package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// maxResponseBytes bounds how much of a service reply is read.
const maxResponseBytes = 4 << 20

// Solver is anything that can run one solve request.
type Solver interface {
	Solve(ctx context.Context, m Method, req Request) (Response, error)
}

// Client posts solve requests to per-method endpoints. The endpoint table
// is injected; no method has a built-in address.
type Client struct {
	mu        sync.RWMutex
	endpoints map[Method]string
	http      *http.Client
	logger    *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the given endpoint table, mapping each
// method to the full URL of its solve route.
func NewClient(endpoints map[Method]string, opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.SetEndpoints(endpoints)
	return c
}

// SetEndpoints replaces the endpoint table. Requests already in flight
// keep the URL they started with.
func (c *Client) SetEndpoints(endpoints map[Method]string) {
	table := make(map[Method]string, len(endpoints))
	for m, u := range endpoints {
		table[m] = u
	}
	c.mu.Lock()
	c.endpoints = table
	c.mu.Unlock()
}

func (c *Client) Endpoint(m Method) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.endpoints[m]
	return u, ok && u != ""
}

// Solve posts req to m's endpoint. A reply carrying an error string or a
// non-2xx status becomes a *SolveError; a transport failure becomes a
// *ConnectionError.
func (c *Client) Solve(ctx context.Context, m Method, req Request) (Response, error) {
	url, ok := c.Endpoint(m)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("backend unreachable", zap.String("method", string(m)), zap.String("url", url), zap.Error(err))
		return nil, &ConnectionError{Method: m, URL: url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ConnectionError{Method: m, URL: url, Err: err}
	}
	c.logger.Debug("backend replied",
		zap.String("method", string(m)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	ok2xx := resp.StatusCode >= 200 && resp.StatusCode < 300
	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		if !ok2xx {
			return nil, &SolveError{Method: m, Status: resp.StatusCode, Message: statusMessage(resp.StatusCode, data)}
		}
		return nil, &SolveError{Method: m, Status: resp.StatusCode, Message: "invalid response: " + err.Error()}
	}
	if msg, failed := out.ErrorMessage(); failed {
		status := resp.StatusCode
		if ok2xx {
			status = 0
		}
		return out, &SolveError{Method: m, Status: status, Message: msg}
	}
	if !ok2xx {
		return out, &SolveError{Method: m, Status: resp.StatusCode, Message: statusMessage(resp.StatusCode, data)}
	}
	return out, nil
}

// Health calls the service's health route, which replaces the /solve
// suffix of a per-method endpoint or the /solve/<method> path of a runner.
func (c *Client) Health(ctx context.Context, m Method) error {
	url, ok := c.Endpoint(m)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}
	if i := strings.LastIndex(url, "/solve"); i >= 0 {
		url = url[:i]
	}
	url += "/health"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &ConnectionError{Method: m, URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &SolveError{Method: m, Status: resp.StatusCode, Message: statusMessage(resp.StatusCode, data)}
	}
	return nil
}

func statusMessage(status int, body []byte) string {
	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 {
		return text
	}
	return http.StatusText(status)
}
