// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config builds a client.Client from flag-based connection
// settings: server address, optional credentials, optional TLS, and a dial
// timeout.
package config

import (
	"crypto/tls"
	"errors"
	"flag"
	"time"

	"github.com/solidcoredata/tsdb/client"
)

// Flags holds the connection settings a cmd/ driver exposes on its flag
// set: address, optional credentials, optional TLS, and a dial timeout.
// NewClient does not apply Timeout; a driver that wants to bound the first
// lazy connection attempt passes it to context.WithTimeout itself.
type Flags struct {
	Addr     *string
	Username *string
	Password *string
	UseTLS   *bool
	Timeout  *time.Duration
}

// RegisterFlags registers the standard set of connection flags on fs and
// returns the bound values. Every cmd/tsdb-* driver calls this once before
// flag.Parse.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Addr:     fs.String("addr", "localhost:4000", "tsdb server address (host:port)"),
		Username: fs.String("username", "", "optional authentication username"),
		Password: fs.String("password", "", "optional authentication password"),
		UseTLS:   fs.Bool("tls", false, "dial the server over TLS"),
		Timeout:  fs.Duration("dial-timeout", 5*time.Second, "dial timeout for the first connection attempt"),
	}
}

// NewClient builds a client.Client from the parsed flags. Credentials
// require TLS, matching the wire protocol's requirement that
// CT_AUTHENTICATE never run over a plaintext connection (§4.2).
func (f *Flags) NewClient() (*client.Client, error) {
	if len(*f.Addr) == 0 {
		return nil, errors.New("config: missing server address")
	}
	var opts []client.Option
	if *f.UseTLS {
		opts = append(opts, client.WithTLS(&tls.Config{}))
	}
	if len(*f.Username) != 0 || len(*f.Password) != 0 {
		if !*f.UseTLS {
			return nil, errors.New("config: credentials require -tls")
		}
		opts = append(opts, client.WithCredentials(*f.Username, *f.Password))
	}
	return client.New(*f.Addr, opts...), nil
}
