// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"crypto/tls"
	"net"
)

// Credentials authenticates a connection via CT_AUTHENTICATE immediately
// after it is established, before any other command is sent.
type Credentials struct {
	Username string
	Password string
}

// dialOptions configures how a Connection is established.
type dialOptions struct {
	tlsConfig   *tls.Config
	credentials *Credentials
}

// dial opens a TCP connection to addr, optionally upgrading it to TLS and
// authenticating, and returns a ready-to-use Connection.
func dial(ctx context.Context, addr string, opt dialOptions) (*Connection, error) {
	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &IoError{Op: "dial", Err: err}
	}

	conn := raw
	// Credentials imply TLS (§4.1, §9): never send a username/password over
	// a plain socket, even if the caller didn't ask for TLS explicitly.
	tlsConfig := opt.tlsConfig
	if tlsConfig == nil && opt.credentials != nil {
		tlsConfig = &tls.Config{}
	}
	if tlsConfig != nil {
		host, _, splitErr := net.SplitHostPort(addr)
		if splitErr != nil {
			host = addr
		}
		cfg := tlsConfig.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = host
		}
		tlsConn := tls.Client(raw, cfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			raw.Close()
			return nil, &IoError{Op: "tls handshake", Err: err}
		}
		conn = tlsConn
	}

	c := &Connection{conn: conn}
	if opt.credentials != nil {
		if err := c.Authenticate(opt.credentials.Username, opt.credentials.Password); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return c, nil
}
