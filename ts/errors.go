// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ts

import "fmt"

// StatusError is raised when the peer responds with a non-zero status code
// at a command boundary. It is surfaced to the caller without closing the
// connection: the session is still sitting on a command boundary.
type StatusError struct {
	Code StatusCode
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ts: status error: %s (%d)", e.Code, int32(e.Code))
}

// ProtocolError means a received token did not match the expected one, or a
// framed length was inconsistent. It is fatal for the session: the
// connection must be closed and the next operation reconnects.
type ProtocolError struct {
	msg string
}

func NewProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{msg: fmt.Sprintf(format, args...)}
}

func (e *ProtocolError) Error() string {
	return "ts: protocol error: " + e.msg
}
