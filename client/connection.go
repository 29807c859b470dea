// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"net"

	"github.com/solidcoredata/tsdb/ts"
)

// Connection is a single TCP (or TLS) session speaking the wire protocol.
// It owns exactly one net.Conn and issues commands serially: the protocol
// is strictly request/response, so a Connection must not be used from more
// than one goroutine at a time. Client provides the higher-level,
// reconnecting session built on top of it; Client is not safe for
// concurrent use either.
type Connection struct {
	conn      net.Conn
	streaming bool // true while a SelectStream/SumsStream owns the wire exclusively
}

// Close releases the underlying socket. It is safe to call more than once.
func (c *Connection) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// transact sends cmd and reads the DT_STATUS_CODE/status pair every
// fixed-response command ends with (§4.3).
func (c *Connection) transact(cmd []byte) error {
	if err := sendAll(c.conn, cmd); err != nil {
		return err
	}
	dt, err := recvU32(c.conn)
	if err != nil {
		return err
	}
	if dt != ts.DtStatusCode {
		return ts.NewProtocolError("expected DT_STATUS_CODE, got %#x", dt)
	}
	sc, err := recvI32(c.conn)
	if err != nil {
		return err
	}
	if ts.StatusCode(sc) != ts.StatusOK {
		return &ts.StatusError{Code: ts.StatusCode(sc)}
	}
	return nil
}

// Authenticate sends credentials over an already-established (and, for a
// real deployment, already TLS-wrapped) connection.
func (c *Connection) Authenticate(username, password string) error {
	cmd := newCmdBuilder(ts.CtAuthenticate).
		field(ts.DtUsername, username).
		field(ts.DtPassword, password).
		u32(ts.DtEnd).
		bytes()
	return c.transact(cmd)
}

func (c *Connection) CreateDatabase(database string) error {
	cmd := newCmdBuilder(ts.CtCreateDatabase).
		field(ts.DtDatabase, database).
		u32(ts.DtEnd).
		bytes()
	return c.transact(cmd)
}

func (c *Connection) CreateMeasurement(database, measurement string, schema ts.Schema) error {
	cmd := newCmdBuilder(ts.CtCreateMeasurement).
		field(ts.DtDatabase, database).
		field(ts.DtMeasurement, measurement).
		field(ts.DtTypedFields, schema.TypedFieldsString()).
		u32(ts.DtEnd).
		bytes()
	return c.transact(cmd)
}

// nameList reads a DT_<tag>-delimited string list until DT_STATUS_CODE,
// the response shape shared by every list/enumerate command (§4.3 list
// stream).
func (c *Connection) nameList(cmd []byte, tag uint32) ([]string, error) {
	if err := sendAll(c.conn, cmd); err != nil {
		return nil, err
	}
	var names []string
	for {
		dt, err := recvU32(c.conn)
		if err != nil {
			return nil, err
		}
		if dt == ts.DtStatusCode {
			sc, err := recvI32(c.conn)
			if err != nil {
				return nil, err
			}
			if ts.StatusCode(sc) != ts.StatusOK {
				return nil, &ts.StatusError{Code: ts.StatusCode(sc)}
			}
			return names, nil
		}
		if dt != tag {
			return nil, ts.NewProtocolError("expected name token %#x, got %#x", tag, dt)
		}
		name, err := recvString(c.conn)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
}

func (c *Connection) ListDatabases() ([]string, error) {
	cmd := newCmdBuilder(ts.CtListDatabases).u32(ts.DtEnd).bytes()
	return c.nameList(cmd, ts.DtDatabase)
}

func (c *Connection) ListMeasurements(database string) ([]string, error) {
	cmd := newCmdBuilder(ts.CtListMeasurements).
		field(ts.DtDatabase, database).
		u32(ts.DtEnd).
		bytes()
	return c.nameList(cmd, ts.DtMeasurement)
}

func (c *Connection) ListSeries(database, measurement string) ([]string, error) {
	cmd := newCmdBuilder(ts.CtListSeries).
		field(ts.DtDatabase, database).
		field(ts.DtMeasurement, measurement).
		u32(ts.DtEnd).
		bytes()
	return c.nameList(cmd, ts.DtSeries)
}

func (c *Connection) ListActiveSeries(database, measurement string, t0, t1 uint64) ([]string, error) {
	cmd := newCmdBuilder(ts.CtActiveSeries).
		field(ts.DtDatabase, database).
		field(ts.DtMeasurement, measurement).
		u64field(ts.DtTimeFirst, t0).
		u64field(ts.DtTimeLast, t1).
		u32(ts.DtEnd).
		bytes()
	return c.nameList(cmd, ts.DtSeries)
}

// GetSchema retrieves the typed field list of a measurement.
func (c *Connection) GetSchema(database, measurement string) (ts.Schema, error) {
	cmd := newCmdBuilder(ts.CtGetSchema).
		field(ts.DtDatabase, database).
		field(ts.DtMeasurement, measurement).
		u32(ts.DtEnd).
		bytes()
	if err := sendAll(c.conn, cmd); err != nil {
		return ts.Schema{}, err
	}

	var fields []ts.Field
	for {
		dt, err := recvU32(c.conn)
		if err != nil {
			return ts.Schema{}, err
		}
		if dt == ts.DtStatusCode {
			sc, err := recvI32(c.conn)
			if err != nil {
				return ts.Schema{}, err
			}
			if ts.StatusCode(sc) != ts.StatusOK {
				return ts.Schema{}, &ts.StatusError{Code: ts.StatusCode(sc)}
			}
			return ts.Schema{Fields: fields}, nil
		}
		if dt != ts.DtFieldType {
			return ts.Schema{}, ts.NewProtocolError("expected DT_FIELD_TYPE, got %#x", dt)
		}
		ftRaw, err := recvU32(c.conn)
		if err != nil {
			return ts.Schema{}, err
		}
		nameTag, err := recvU32(c.conn)
		if err != nil {
			return ts.Schema{}, err
		}
		if nameTag != ts.DtFieldName {
			return ts.Schema{}, ts.NewProtocolError("expected DT_FIELD_NAME, got %#x", nameTag)
		}
		name, err := recvString(c.conn)
		if err != nil {
			return ts.Schema{}, err
		}
		fields = append(fields, ts.Field{Type: ts.FieldType(ftRaw), Name: name})
	}
}

// Nop issues CT_NOP, a transact command with no body, useful for probing
// that a connection is still alive and at a command boundary.
func (c *Connection) Nop() error {
	cmd := newCmdBuilder(ts.CtNop).u32(ts.DtEnd).bytes()
	return c.transact(cmd)
}

func (c *Connection) DeletePoints(database, measurement, series string, t uint64) error {
	cmd := newCmdBuilder(ts.CtDeletePoints).
		field(ts.DtDatabase, database).
		field(ts.DtMeasurement, measurement).
		field(ts.DtSeries, series).
		u64field(ts.DtTimeLast, t).
		u32(ts.DtEnd).
		bytes()
	return c.transact(cmd)
}

// CountResult is the response to CT_COUNT_POINTS.
type CountResult struct {
	TimeFirst uint64
	TimeLast  uint64
	NPoints   uint64
}

func (c *Connection) CountPoints(database, measurement, series string, t0, t1 uint64) (CountResult, error) {
	cmd := newCmdBuilder(ts.CtCountPoints).
		field(ts.DtDatabase, database).
		field(ts.DtMeasurement, measurement).
		field(ts.DtSeries, series).
		u64field(ts.DtTimeFirst, t0).
		u64field(ts.DtTimeLast, t1).
		u32(ts.DtEnd).
		bytes()
	if err := sendAll(c.conn, cmd); err != nil {
		return CountResult{}, err
	}

	dt, err := recvU32(c.conn)
	if err != nil {
		return CountResult{}, err
	}
	if dt == ts.DtStatusCode {
		sc, err := recvI32(c.conn)
		if err != nil {
			return CountResult{}, err
		}
		return CountResult{}, &ts.StatusError{Code: ts.StatusCode(sc)}
	}
	if dt != ts.DtTimeFirst {
		return CountResult{}, ts.NewProtocolError("expected DT_TIME_FIRST, got %#x", dt)
	}
	timeFirst, err := recvU64(c.conn)
	if err != nil {
		return CountResult{}, err
	}

	if dt, err = recvU32(c.conn); err != nil {
		return CountResult{}, err
	} else if dt != ts.DtTimeLast {
		return CountResult{}, ts.NewProtocolError("expected DT_TIME_LAST, got %#x", dt)
	}
	timeLast, err := recvU64(c.conn)
	if err != nil {
		return CountResult{}, err
	}

	if dt, err = recvU32(c.conn); err != nil {
		return CountResult{}, err
	} else if dt != ts.DtNPoints {
		return CountResult{}, ts.NewProtocolError("expected DT_NPOINTS, got %#x", dt)
	}
	npoints, err := recvU64(c.conn)
	if err != nil {
		return CountResult{}, err
	}

	if dt, err = recvU32(c.conn); err != nil {
		return CountResult{}, err
	} else if dt != ts.DtStatusCode {
		return CountResult{}, ts.NewProtocolError("expected trailing DT_STATUS_CODE, got %#x", dt)
	}
	if sc, err := recvI32(c.conn); err != nil {
		return CountResult{}, err
	} else if ts.StatusCode(sc) != ts.StatusOK {
		return CountResult{}, ts.NewProtocolError("trailing status %d, want 0", sc)
	}

	return CountResult{TimeFirst: timeFirst, TimeLast: timeLast, NPoints: npoints}, nil
}

// writePointsBegin opens a write operation, which takes an exclusive write
// lock on the series for its duration, and returns the maximum chunk data
// length the server will accept.
func (c *Connection) writePointsBegin(database, measurement, series string) (uint32, error) {
	cmd := newCmdBuilder(ts.CtWritePoints).
		field(ts.DtDatabase, database).
		field(ts.DtMeasurement, measurement).
		field(ts.DtSeries, series).
		bytes()
	if err := sendAll(c.conn, cmd); err != nil {
		return 0, err
	}
	dt, err := recvU32(c.conn)
	if err != nil {
		return 0, err
	}
	if dt == ts.DtStatusCode {
		sc, err := recvI32(c.conn)
		if err != nil {
			return 0, err
		}
		return 0, &ts.StatusError{Code: ts.StatusCode(sc)}
	}
	if dt != ts.DtReadyForChunk {
		return 0, ts.NewProtocolError("expected DT_READY_FOR_CHUNK, got %#x", dt)
	}
	return recvU32(c.conn)
}

// writePointsChunk writes one packed chunk and returns the maximum data
// length for the next chunk (always equal to the first; callers may ignore
// it after the first chunk).
func (c *Connection) writePointsChunk(npoints, bitmapOffset uint32, data []byte) (uint32, error) {
	cmd := newCmdBuilder(ts.DtChunk).u32(npoints).u32(bitmapOffset).u32(uint32(len(data))).bytes()
	if err := sendAll(c.conn, cmd); err != nil {
		return 0, err
	}
	if err := sendAll(c.conn, data); err != nil {
		return 0, err
	}
	dt, err := recvU32(c.conn)
	if err != nil {
		return 0, err
	}
	if dt == ts.DtStatusCode {
		sc, err := recvI32(c.conn)
		if err != nil {
			return 0, err
		}
		return 0, &ts.StatusError{Code: ts.StatusCode(sc)}
	}
	if dt != ts.DtReadyForChunk {
		return 0, ts.NewProtocolError("expected DT_READY_FOR_CHUNK, got %#x", dt)
	}
	return recvU32(c.conn)
}

func (c *Connection) writePointsEnd() error {
	b := &cmdBuilder{}
	b.u32(ts.DtEnd)
	return c.transact(b.bytes())
}

// WritePoints writes points in chunks no larger than the server-advertised
// maximum, packing each chunk with an always-present bitmap (bitmap_offset
// 0) so nulls are explicit (§4.7).
func (c *Connection) WritePoints(database, measurement, series string, schema ts.Schema, points []ts.Point) error {
	maxDataLen, err := c.writePointsBegin(database, measurement, series)
	if err != nil {
		return err
	}

	if len(points) == 0 {
		return c.writePointsEnd()
	}

	n := schema.MaxPointsForDataLen(int(maxDataLen))
	if n <= 0 {
		return ts.NewProtocolError("server max chunk data length %d too small for schema %v", maxDataLen, schema)
	}

	index := 0
	remaining := len(points)
	for remaining > 0 {
		chunkN := n
		if remaining < chunkN {
			chunkN = remaining
		}
		data, err := schema.PackPoints(points, index, chunkN)
		if err != nil {
			return err
		}
		if _, err := c.writePointsChunk(uint32(chunkN), 0, data); err != nil {
			return err
		}
		index += chunkN
		remaining -= chunkN
	}

	return c.writePointsEnd()
}
