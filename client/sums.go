// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"encoding/binary"
	"math"

	"github.com/solidcoredata/tsdb/ts"
)

// SumsChunk is one decoded window-aggregated chunk from a SumsStream: for
// each requested field, the f64 sum and the non-null point count within
// each window. Mins and maxs are present on the wire but are not surfaced
// (§4.8); they are read and discarded to keep the stream framing intact.
type SumsChunk struct {
	Timestamps []uint64
	Sums       map[string][]float64
	NPoints    map[string][]uint64
}

// SumsStream iterates the chunk stream returned by CT_SUM_POINTS. Like
// SelectStream, it exclusively owns its Client's connection until it is
// drained or closed.
type SumsStream struct {
	client    *Client
	conn      *Connection
	fields    []string
	lastToken uint32
	done      bool
}

func newSumsStream(cl *Client, conn *Connection, database, measurement, series string, fields []string, t0, t1, windowNs uint64) (*SumsStream, error) {
	b := newCmdBuilder(ts.CtSumPoints).
		field(ts.DtDatabase, database).
		field(ts.DtMeasurement, measurement).
		field(ts.DtSeries, series).
		field(ts.DtFieldList, joinFields(fields)).
		u64field(ts.DtTimeFirst, t0).
		u64field(ts.DtTimeLast, t1).
		u64field(ts.DtWindowNs, windowNs).
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
	return &SumsStream{client: cl, conn: conn, fields: fields, lastToken: dt}, nil
}

// Next reads the next sums chunk, returning (nil, nil) once the stream is
// exhausted.
func (s *SumsStream) Next() (*SumsChunk, error) {
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

	if s.lastToken != ts.DtSumsChunk {
		return nil, s.fail(ts.NewProtocolError("expected DT_SUMS_CHUNK, got %#x", s.lastToken))
	}

	chunkNPoints, err := recvU16(s.conn.conn)
	if err != nil {
		return nil, s.fail(err)
	}
	n := int(chunkNPoints)
	dataLen := n * (8 + len(s.fields)*32)
	data := make([]byte, dataLen)
	if err := recvAll(s.conn.conn, data); err != nil {
		return nil, s.fail(err)
	}

	chunk := decodeSumsChunk(s.fields, n, data)

	lastToken, err := recvU32(s.conn.conn)
	if err != nil {
		return nil, s.fail(err)
	}
	s.lastToken = lastToken

	return chunk, nil
}

// decodeSumsChunk walks timestamps, then per-field sums, then per-field
// mins (skipped), then per-field maxs (skipped), then per-field non-null
// counts — the fixed block order of a sums chunk payload (§4.8).
func decodeSumsChunk(fields []string, n int, data []byte) *SumsChunk {
	pos := 0
	readU64s := func() []uint64 {
		out := make([]uint64, n)
		for i := range out {
			out[i] = binary.LittleEndian.Uint64(data[pos : pos+8])
			pos += 8
		}
		return out
	}
	readF64s := func() []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[pos : pos+8]))
			pos += 8
		}
		return out
	}

	timestamps := readU64s()

	sums := make(map[string][]float64, len(fields))
	for _, name := range fields {
		sums[name] = readF64s()
	}

	// Mins and maxs are part of the wire layout but unused by this client.
	for range fields {
		readF64s()
	}
	for range fields {
		readF64s()
	}

	npoints := make(map[string][]uint64, len(fields))
	for _, name := range fields {
		npoints[name] = readU64s()
	}

	return &SumsChunk{Timestamps: timestamps, Sums: sums, NPoints: npoints}
}

// Close abandons the stream early, closing the connection since it is no
// longer guaranteed to be at a command boundary. If DT_END has been read,
// Close instead reads the trailing status and keeps the connection.
func (s *SumsStream) Close() error {
	if s.done {
		return nil
	}
	if s.lastToken != ts.DtEnd {
		return s.fail(nil)
	}
	_, err := s.Next()
	return err
}

// fail marks the stream done, closes the connection, and detaches it from
// the owning Client so the next Client operation reconnects.
func (s *SumsStream) fail(err error) error {
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

func (s *SumsStream) release() {
	if s.done {
		return
	}
	s.done = true
	s.conn.streaming = false
}
