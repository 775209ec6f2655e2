package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opencivica/legisync/pkg/utils"
)

// ErrUnreachable wraps any failure to reach or read an upstream artifact.
// Connectors propagate it as fatal for their source: an empty result is
// indistinguishable from "nothing changed", so partial data is never
// returned silently.
var ErrUnreachable = fmt.Errorf("upstream unreachable")

// Client downloads upstream artifacts. Each source owns one instance with
// its own timeout: large archives get multi-minute timeouts, metadata
// probes short ones. A lightweight per-host circuit breaker keeps a flapping
// upstream from being hammered inside a single run.
type Client struct {
	logger *zap.Logger
	client *http.Client

	mu       sync.Mutex
	failures map[string]int
	opened   map[string]time.Time

	breakerThreshold int
	breakerCooldown  time.Duration

	token *TokenClient
}

// Opts is the set of options for a new Client.
type Opts struct {
	Timeout         time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
	// Token, when set, attaches a bearer token to every request.
	Token *TokenClient
}

// New creates a download client with the given options.
func New(logger *zap.Logger, o Opts) *Client {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 3
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 30 * time.Second
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	} else if client.Timeout == 0 {
		client.Timeout = o.Timeout
	}

	return &Client{
		logger:           logger,
		client:           client,
		failures:         map[string]int{},
		opened:           map[string]time.Time{},
		breakerThreshold: o.BreakerFailures,
		breakerCooldown:  o.BreakerCooldown,
		token:            o.Token,
	}
}

// isOpen reports whether the breaker for this URL's host is OPEN.
func (c *Client) isOpen(host string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.opened[host]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(c.opened, host)
		c.failures[host] = 0
		return false
	}
	return true
}

// noteFailure opens the breaker once the failure count passes the threshold.
func (c *Client) noteFailure(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[host]++
	if c.failures[host] >= c.breakerThreshold {
		c.opened[host] = time.Now().Add(c.breakerCooldown)
	}
}

func (c *Client) noteSuccess(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[host] = 0
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	host := req.URL.Host
	if c.isOpen(host) {
		return nil, fmt.Errorf("%w: breaker open for %s", ErrUnreachable, host)
	}

	if c.token != nil {
		tok, err := c.token.Token(req.Context())
		if err != nil {
			return nil, fmt.Errorf("%w: acquire token: %v", ErrUnreachable, err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.noteFailure(host)
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if resp.StatusCode >= 500 {
		c.noteFailure(host)
		_ = utils.DrainAndClose(resp.Body)
		return nil, fmt.Errorf("%w: server %d from %s", ErrUnreachable, resp.StatusCode, host)
	}
	if resp.StatusCode >= 300 {
		_ = utils.DrainAndClose(resp.Body)
		return nil, fmt.Errorf("%w: http %d from %s", ErrUnreachable, resp.StatusCode, host)
	}
	c.noteSuccess(host)
	return resp, nil
}

// Download fetches url into dir and returns the file path. The artifact is
// staged privately; the caller owns cleanup of dir on success and failure.
func (c *Client) Download(ctx context.Context, url, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	name := path.Base(req.URL.Path)
	if name == "/" || name == "." || name == "" {
		name = "artifact"
	}
	dest := path.Join(dir, name)

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	written, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("%w: write %s: %v", ErrUnreachable, dest, err)
	}

	c.logger.Debug("Downloaded artifact",
		zap.String("url", url),
		zap.String("path", dest),
		zap.Int64("bytes", written))
	return dest, nil
}

// GetJSON fetches url and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// Get fetches url and returns the whole body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnreachable, err)
	}
	return body, nil
}

// Probe issues a HEAD request and returns the upstream's freshness signal:
// ETag when present, else Last-Modified, else a size-based fallback. Used
// by the change detector; cheap by construction.
func (c *Client) Probe(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	if etag := resp.Header.Get("ETag"); etag != "" {
		return "etag:" + etag, nil
	}
	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		return "mod:" + lastMod, nil
	}
	return fmt.Sprintf("len:%d", resp.ContentLength), nil
}
