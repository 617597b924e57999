// Package redisconn adapts github.com/redis/go-redis/v9 clients to the
// pool.Connector/pool.Conn contracts, so a redis.Client can be pooled the
// same way any other Conn is.
package redisconn

import (
	"context"
	"time"

	"github.com/makise-co/pool"
	"github.com/redis/go-redis/v9"
)

// Options configures how connections are dialed.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connector dials new *redis.Client connections for a pool.Pool.
type Connector struct {
	opts Options
}

// NewConnector returns a pool.Connector that dials Redis using opts.
func NewConnector(opts Options) *Connector {
	return &Connector{opts: opts}
}

// Connect implements pool.Connector.
func (c *Connector) Connect(ctx context.Context) (pool.Conn, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     c.opts.Addr,
		Password: c.opts.Password,
		DB:       c.opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Conn{client: client, lastUsed: time.Now()}, nil
}

// Conn wraps a *redis.Client as a pool.Conn.
type Conn struct {
	client   *redis.Client
	lastUsed time.Time
}

// Client returns the underlying redis.Client for issuing commands. Callers
// should call Touch after using the connection so idle eviction accounting
// stays accurate.
func (c *Conn) Client() *redis.Client { return c.client }

// Touch records that the connection was just used.
func (c *Conn) Touch() { c.lastUsed = time.Now() }

func (c *Conn) IsAlive() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err() == nil
}

func (c *Conn) Close() error { return c.client.Close() }

func (c *Conn) LastUsedAt() time.Time { return c.lastUsed }

// Reset implements pool.Resetter by selecting back to DB 0, undoing any
// per-borrower SELECT a caller issued.
func (c *Conn) Reset(ctx context.Context) error {
	return c.client.Do(ctx, "SELECT", 0).Err()
}
