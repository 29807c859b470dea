// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import "fmt"

// ConnectionClosedError means the peer closed the TCP connection (or TLS
// session) while a read was in progress. It is always fatal for the
// connection: the caller must reconnect before issuing another command.
type ConnectionClosedError struct {
	msg string
}

func (e *ConnectionClosedError) Error() string {
	return "client: connection closed: " + e.msg
}

// IoError wraps a transport-level error (dial failure, read/write error)
// that is not itself a ConnectionClosedError.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("client: io error during %s: %v", e.Op, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

// ErrStreamInUse is returned when a command is attempted on a Client whose
// connection is exclusively owned by an in-progress SelectStream or
// SumsStream. The stream must be closed (or drained to completion) before
// the connection can serve another command.
var ErrStreamInUse = fmt.Errorf("client: connection is owned by an active stream")
