// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"github.com/solidcoredata/tsdb/ts"
)

// SelectStream iterates the chunk stream returned by CT_SELECT_POINTS_LIMIT
// or CT_SELECT_POINTS_LAST (§4.8). It exclusively owns its Client's
// connection until Close is called or the stream is drained to its final
// chunk: no other command may be issued on that Client in the meantime.
type SelectStream struct {
	client    *Client
	conn      *Connection
	schema    ts.Schema
	fields    []string
	lastToken uint32
	done      bool
}

func newSelectStream(cl *Client, conn *Connection, ctOp uint32, database, measurement, series string, schema ts.Schema, fields []string, t0, t1, n uint64) (*SelectStream, error) {
	if len(fields) == 0 {
		fields = make([]string, len(schema.Fields))
		for i, f := range schema.Fields {
			fields[i] = f.Name
		}
	}

	dtN := ts.DtNLimit
	if ctOp == ts.CtSelectPointsLast {
		dtN = ts.DtNLast
	}

	b := newCmdBuilder(ctOp).
		field(ts.DtDatabase, database).
		field(ts.DtMeasurement, measurement).
		field(ts.DtSeries, series).
		field(ts.DtFieldList, joinFields(fields)).
		u64field(ts.DtTimeFirst, t0).
		u64field(ts.DtTimeLast, t1).
		u64field(dtN, n).
		u32(ts.DtEnd)
	if err := sendAll(conn.conn, b.bytes()); err != nil {
		return nil, err
	}

	dt, err := recvU32(conn.conn)
	if err != nil {
		return nil, err
	}
	if dt == ts.DtStatusCode {
		sc, err := recvI32(conn.conn)
		if err != nil {
			return nil, err
		}
		return nil, &ts.StatusError{Code: ts.StatusCode(sc)}
	}

	conn.streaming = true
	return &SelectStream{client: cl, conn: conn, schema: schema, fields: fields, lastToken: dt}, nil
}

// Next reads the next chunk, returning (nil, nil) once the stream is
// exhausted. After Next returns a nil chunk and nil error, the stream has
// released the connection and need not be explicitly closed.
func (s *SelectStream) Next() (*ts.Chunk, error) {
	if s.done {
		return nil, nil
	}

	if s.lastToken == ts.DtEnd {
		dt, err := recvU32(s.conn.conn)
		if err != nil {
			return nil, s.fail(err)
		}
		if dt != ts.DtStatusCode {
			return nil, s.fail(ts.NewProtocolError("expected DT_STATUS_CODE, got %#x", dt))
		}
		sc, err := recvI32(s.conn.conn)
		if err != nil {
			return nil, s.fail(err)
		}
		if ts.StatusCode(sc) != ts.StatusOK {
			return nil, s.fail(ts.NewProtocolError("expected trailing status 0, got %d", sc))
		}
		s.release()
		return nil, nil
	}

	if s.lastToken != ts.DtChunk {
		return nil, s.fail(ts.NewProtocolError("expected DT_CHUNK, got %#x", s.lastToken))
	}

	npoints, err := recvU32(s.conn.conn)
	if err != nil {
		return nil, s.fail(err)
	}
	bitmapOffset, err := recvU32(s.conn.conn)
	if err != nil {
		return nil, s.fail(err)
	}
	dataLen, err := recvU32(s.conn.conn)
	if err != nil {
		return nil, s.fail(err)
	}
	data := make([]byte, dataLen)
	if err := recvAll(s.conn.conn, data); err != nil {
		return nil, s.fail(err)
	}

	lastToken, err := recvU32(s.conn.conn)
	if err != nil {
		return nil, s.fail(err)
	}

	chunk, err := ts.DecodeChunk(s.schema, s.fields, int(npoints), int(bitmapOffset), data)
	if err != nil {
		return nil, s.fail(err)
	}
	s.lastToken = lastToken
	return &chunk, nil
}

// Close abandons the stream early. If the stream has not reached DT_END,
// the underlying connection can no longer be trusted to be at a command
// boundary and is closed rather than kept for the next command. If DT_END
// has been read, Close reads the trailing status so the connection is back
// on a command boundary.
func (s *SelectStream) Close() error {
	if s.done {
		return nil
	}
	if s.lastToken != ts.DtEnd {
		return s.fail(nil)
	}
	_, err := s.Next()
	return err
}

// fail marks the stream done, closes the connection (every mid-stream
// error is protocol/IO-level, never a StatusError — see §7), and detaches
// it from the owning Client so the next Client operation reconnects.
func (s *SelectStream) fail(err error) error {
	if s.done {
		return err
	}
	s.done = true
	s.conn.streaming = false
	closeErr := s.conn.Close()
	if s.client != nil && s.client.conn == s.conn {
		s.client.conn = nil
	}
	if err != nil {
		return err
	}
	return closeErr
}

func (s *SelectStream) release() {
	if s.done {
		return
	}
	s.done = true
	s.conn.streaming = false
}

func joinFields(fields []string) string {
	out := make([]byte, 0, 32)
	for i, f := range fields {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, f...)
	}
	return string(out)
}
