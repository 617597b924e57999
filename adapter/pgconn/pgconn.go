// Package pgconn adapts github.com/jackc/pgx/v5 connections to the
// pool.Connector/pool.Conn contracts.
package pgconn

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/makise-co/pool"
)

// Connector dials new *pgx.Conn connections against a fixed DSN.
type Connector struct {
	dsn string
}

// NewConnector returns a pool.Connector that dials Postgres using dsn.
func NewConnector(dsn string) *Connector {
	return &Connector{dsn: dsn}
}

// Connect implements pool.Connector.
func (c *Connector) Connect(ctx context.Context) (pool.Conn, error) {
	pgConn, err := pgx.Connect(ctx, c.dsn)
	if err != nil {
		return nil, err
	}
	return &Conn{raw: pgConn, lastUsed: time.Now()}, nil
}

// Conn wraps a *pgx.Conn as a pool.Conn.
type Conn struct {
	raw      *pgx.Conn
	lastUsed time.Time
}

// Raw returns the underlying *pgx.Conn for issuing queries.
func (c *Conn) Raw() *pgx.Conn { return c.raw }

// Touch records that the connection was just used.
func (c *Conn) Touch() { c.lastUsed = time.Now() }

func (c *Conn) IsAlive() bool {
	return !c.raw.IsClosed() && c.raw.Ping(context.Background()) == nil
}

func (c *Conn) Close() error {
	return c.raw.Close(context.Background())
}

func (c *Conn) LastUsedAt() time.Time { return c.lastUsed }
