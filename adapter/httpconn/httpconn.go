// Package httpconn adapts a keep-alive net/http.Client to the
// pool.Connector/pool.Conn contracts, for callers that want pool-managed
// liveness and eviction around a persistent HTTP client rather than
// leaving that to Transport's own connection reuse.
package httpconn

import (
	"context"
	"net/http"
	"time"

	"github.com/makise-co/pool"
)

// Options configures the underlying http.Client and liveness probe.
type Options struct {
	BaseURL     string
	HealthPath  string
	DialTimeout time.Duration
}

// Connector builds pool.Conn values backed by a dedicated *http.Client per
// connection, each with its own Transport so idle sockets aren't shared
// across pooled slots.
type Connector struct {
	opts Options
}

// NewConnector returns a pool.Connector for HTTP keep-alive clients.
func NewConnector(opts Options) *Connector {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return &Connector{opts: opts}
}

// Connect implements pool.Connector.
func (c *Connector) Connect(ctx context.Context) (pool.Conn, error) {
	client := &http.Client{
		Timeout: c.opts.DialTimeout,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 1,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	hc := &Conn{
		client:   client,
		baseURL:  c.opts.BaseURL,
		health:   c.opts.HealthPath,
		lastUsed: time.Now(),
	}
	if hc.health != "" {
		if !hc.probe(ctx) {
			client.CloseIdleConnections()
			return nil, errUnreachable
		}
	}
	return hc, nil
}

var errUnreachable = httpError("httpconn: health probe failed")

type httpError string

func (e httpError) Error() string { return string(e) }

// Conn wraps an *http.Client as a pool.Conn.
type Conn struct {
	client   *http.Client
	baseURL  string
	health   string
	lastUsed time.Time
}

// Client returns the underlying http.Client for issuing requests.
func (c *Conn) Client() *http.Client { return c.client }

// Touch records that the connection was just used.
func (c *Conn) Touch() { c.lastUsed = time.Now() }

func (c *Conn) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.health, nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

func (c *Conn) IsAlive() bool {
	if c.health == "" {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.probe(ctx)
}

func (c *Conn) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Conn) LastUsedAt() time.Time { return c.lastUsed }
