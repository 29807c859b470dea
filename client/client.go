// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package client implements a session-oriented client for a time-series
// database speaking the wire protocol defined by package ts: lazy,
// reconnect-on-fault command execution plus chunk-stream iterators for
// select and windowed-sum queries.
package client

import (
	"context"
	"crypto/tls"

	"github.com/solidcoredata/tsdb/ts"
)

// Option configures a Client at construction time.
type Option func(*Client)

// WithTLS wraps every connection the Client opens in TLS using cfg. TLS is
// required whenever WithCredentials is also set.
func WithTLS(cfg *tls.Config) Option {
	return func(c *Client) { c.dialOpt.tlsConfig = cfg }
}

// WithCredentials authenticates every new connection via CT_AUTHENTICATE
// immediately after it is established.
func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.dialOpt.credentials = &Credentials{Username: username, Password: password}
	}
}

// Client is a time-series database session. It is not safe for concurrent
// use: each Client serializes commands through a single lazily-opened
// connection (§4.9, §5). Callers that need concurrency should use
// independent Clients, or drive writes through pushqueue.PushQueue.
type Client struct {
	addr    string
	dialOpt dialOptions
	conn    *Connection
}

// New returns a Client that will dial addr (host:port) on first use.
func New(addr string, opts ...Option) *Client {
	c := &Client{addr: addr}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the current connection, if any. A closed Client
// reconnects lazily on its next operation.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// withConn lazily dials, runs fn against the live connection, and applies
// the reconnect-on-fault policy: a StatusError leaves the connection open
// since the session is still on a command boundary; any other error
// (ProtocolError, ConnectionClosedError, IoError) closes it so the next
// operation starts fresh (§4.9, §7).
func (c *Client) withConn(ctx context.Context, fn func(*Connection) error) error {
	if c.conn != nil && c.conn.streaming {
		return ErrStreamInUse
	}
	if c.conn == nil {
		conn, err := dial(ctx, c.addr, c.dialOpt)
		if err != nil {
			return err
		}
		c.conn = conn
	}

	err := fn(c.conn)
	if err != nil {
		if _, ok := err.(*ts.StatusError); !ok {
			c.conn.Close()
			c.conn = nil
		}
	}
	return err
}

func (c *Client) CreateDatabase(ctx context.Context, database string) error {
	return c.withConn(ctx, func(conn *Connection) error {
		return conn.CreateDatabase(database)
	})
}

func (c *Client) CreateMeasurement(ctx context.Context, database, measurement string, schema ts.Schema) error {
	return c.withConn(ctx, func(conn *Connection) error {
		return conn.CreateMeasurement(database, measurement, schema)
	})
}

func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	var out []string
	err := c.withConn(ctx, func(conn *Connection) error {
		names, err := conn.ListDatabases()
		out = names
		return err
	})
	return out, err
}

func (c *Client) ListMeasurements(ctx context.Context, database string) ([]string, error) {
	var out []string
	err := c.withConn(ctx, func(conn *Connection) error {
		names, err := conn.ListMeasurements(database)
		out = names
		return err
	})
	return out, err
}

func (c *Client) ListSeries(ctx context.Context, database, measurement string) ([]string, error) {
	var out []string
	err := c.withConn(ctx, func(conn *Connection) error {
		names, err := conn.ListSeries(database, measurement)
		out = names
		return err
	})
	return out, err
}

func (c *Client) ListActiveSeries(ctx context.Context, database, measurement string, t0, t1 uint64) ([]string, error) {
	var out []string
	err := c.withConn(ctx, func(conn *Connection) error {
		names, err := conn.ListActiveSeries(database, measurement, t0, t1)
		out = names
		return err
	})
	return out, err
}

func (c *Client) GetSchema(ctx context.Context, database, measurement string) (ts.Schema, error) {
	var out ts.Schema
	err := c.withConn(ctx, func(conn *Connection) error {
		schema, err := conn.GetSchema(database, measurement)
		out = schema
		return err
	})
	return out, err
}

func (c *Client) WritePoints(ctx context.Context, database, measurement, series string, schema ts.Schema, points []ts.Point) error {
	return c.withConn(ctx, func(conn *Connection) error {
		return conn.WritePoints(database, measurement, series, schema, points)
	})
}

// Nop issues CT_NOP, useful for confirming a connection is still usable
// after a StatusError (§7, §8 scenario 5).
func (c *Client) Nop(ctx context.Context) error {
	return c.withConn(ctx, func(conn *Connection) error {
		return conn.Nop()
	})
}

func (c *Client) DeletePoints(ctx context.Context, database, measurement, series string, t uint64) error {
	return c.withConn(ctx, func(conn *Connection) error {
		return conn.DeletePoints(database, measurement, series, t)
	})
}

func (c *Client) CountPoints(ctx context.Context, database, measurement, series string, t0, t1 uint64) (CountResult, error) {
	var out CountResult
	err := c.withConn(ctx, func(conn *Connection) error {
		res, err := conn.CountPoints(database, measurement, series, t0, t1)
		out = res
		return err
	})
	return out, err
}

// SelectPoints opens a chunk stream over points in [t0, t1), ordered
// oldest-first, limited to n points. fields defaults to every field in
// schema when nil.
func (c *Client) SelectPoints(ctx context.Context, database, measurement, series string, schema ts.Schema, fields []string, t0, t1, n uint64) (*SelectStream, error) {
	return c.openSelect(ctx, ts.CtSelectPointsLimit, database, measurement, series, schema, fields, t0, t1, n)
}

// SelectLastPoints opens a chunk stream over the newest n points in
// [t0, t1), ordered oldest-first within the returned window.
func (c *Client) SelectLastPoints(ctx context.Context, database, measurement, series string, schema ts.Schema, fields []string, t0, t1, n uint64) (*SelectStream, error) {
	return c.openSelect(ctx, ts.CtSelectPointsLast, database, measurement, series, schema, fields, t0, t1, n)
}

func (c *Client) openSelect(ctx context.Context, ctOp uint32, database, measurement, series string, schema ts.Schema, fields []string, t0, t1, n uint64) (*SelectStream, error) {
	if c.conn != nil && c.conn.streaming {
		return nil, ErrStreamInUse
	}
	if c.conn == nil {
		conn, err := dial(ctx, c.addr, c.dialOpt)
		if err != nil {
			return nil, err
		}
		c.conn = conn
	}

	stream, err := newSelectStream(c, c.conn, ctOp, database, measurement, series, schema, fields, t0, t1, n)
	if err != nil {
		if _, ok := err.(*ts.StatusError); !ok {
			c.conn.Close()
			c.conn = nil
		}
		return nil, err
	}
	return stream, nil
}

// SumPoints opens a windowed-sum chunk stream over [t0, t1) with the given
// window width in nanoseconds.
func (c *Client) SumPoints(ctx context.Context, database, measurement, series string, fields []string, t0, t1, windowNs uint64) (*SumsStream, error) {
	if c.conn != nil && c.conn.streaming {
		return nil, ErrStreamInUse
	}
	if c.conn == nil {
		conn, err := dial(ctx, c.addr, c.dialOpt)
		if err != nil {
			return nil, err
		}
		c.conn = conn
	}

	stream, err := newSumsStream(c, c.conn, database, measurement, series, fields, t0, t1, windowNs)
	if err != nil {
		if _, ok := err.(*ts.StatusError); !ok {
			c.conn.Close()
			c.conn = nil
		}
		return nil, err
	}
	return stream, nil
}
