// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"

	"github.com/solidcoredata/tsdb/ts"
)

func newConnPair(t *testing.T) (*Connection, net.Conn) {
	t.Helper()
	local, remote := net.Pipe()
	t.Cleanup(func() { local.Close(); remote.Close() })
	return &Connection{conn: local}, remote
}

func sendStatusOK(t *testing.T, remote net.Conn) {
	t.Helper()
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], ts.DtStatusCode)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(ts.StatusOK))
	if _, err := remote.Write(buf[:]); err != nil {
		t.Fatalf("write status ok: %v", err)
	}
}

func readFullHelper(r net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestConnectionCreateDatabaseGoldenVector(t *testing.T) {
	conn, remote := newConnPair(t)
	want := newCmdBuilder(ts.CtCreateDatabase).field(ts.DtDatabase, "db").u32(ts.DtEnd).bytes()

	errCh := make(chan error, 1)
	go func() {
		got := make([]byte, len(want))
		if _, err := readFullHelper(remote, got); err != nil {
			errCh <- err
			return
		}
		if !bytes.Equal(got, want) {
			errCh <- &mismatchError{want: want, got: got}
			return
		}
		sendStatusOK(t, remote)
		errCh <- nil
	}()

	if err := conn.CreateDatabase("db"); err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("server side: %v", err)
	}
}

func TestConnectionCreateDatabaseStatusError(t *testing.T) {
	conn, remote := newConnPair(t)
	want := newCmdBuilder(ts.CtCreateDatabase).field(ts.DtDatabase, "db").u32(ts.DtEnd).bytes()

	go func() {
		got := make([]byte, len(want))
		readFullHelper(remote, got)
		var status [8]byte
		binary.LittleEndian.PutUint32(status[0:4], ts.DtStatusCode)
		code := ts.StatusMeasurementExists
		binary.LittleEndian.PutUint32(status[4:8], uint32(code))
		remote.Write(status[:])
	}()

	err := conn.CreateDatabase("db")
	statusErr, ok := err.(*ts.StatusError)
	if !ok {
		t.Fatalf("expected *ts.StatusError, got %T: %v", err, err)
	}
	if statusErr.Code != ts.StatusMeasurementExists {
		t.Fatalf("status code = %d, want %d", statusErr.Code, ts.StatusMeasurementExists)
	}
}

func TestConnectionListDatabases(t *testing.T) {
	conn, remote := newConnPair(t)
	want := newCmdBuilder(ts.CtListDatabases).u32(ts.DtEnd).bytes()

	go func() {
		got := make([]byte, len(want))
		readFullHelper(remote, got)

		for _, name := range []string{"alpha", "beta"} {
			var hdr [6]byte
			binary.LittleEndian.PutUint32(hdr[0:4], ts.DtDatabase)
			binary.LittleEndian.PutUint16(hdr[4:6], uint16(len(name)))
			remote.Write(hdr[:])
			remote.Write([]byte(name))
		}
		sendStatusOK(t, remote)
	}()

	got, err := conn.ListDatabases()
	if err != nil {
		t.Fatalf("ListDatabases: %v", err)
	}
	if len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Fatalf("ListDatabases = %v", got)
	}
}

func TestConnectionGetSchema(t *testing.T) {
	conn, remote := newConnPair(t)
	want := newCmdBuilder(ts.CtGetSchema).
		field(ts.DtDatabase, "db").
		field(ts.DtMeasurement, "meas").
		u32(ts.DtEnd).
		bytes()

	go func() {
		got := make([]byte, len(want))
		readFullHelper(remote, got)

		writeField := func(ft ts.FieldType, name string) {
			var hdr [12]byte
			binary.LittleEndian.PutUint32(hdr[0:4], ts.DtFieldType)
			binary.LittleEndian.PutUint32(hdr[4:8], uint32(ft))
			binary.LittleEndian.PutUint32(hdr[8:12], ts.DtFieldName)
			remote.Write(hdr[:])
			var lenBuf [2]byte
			binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(name)))
			remote.Write(lenBuf[:])
			remote.Write([]byte(name))
		}
		writeField(ts.FieldF64, "value")
		writeField(ts.FieldBool, "ok")
		sendStatusOK(t, remote)
	}()

	schema, err := conn.GetSchema("db", "meas")
	if err != nil {
		t.Fatalf("GetSchema: %v", err)
	}
	if len(schema.Fields) != 2 || schema.Fields[0].Name != "value" || schema.Fields[1].Type != ts.FieldBool {
		t.Fatalf("GetSchema = %v", schema)
	}
}

func TestConnectionWritePoints(t *testing.T) {
	conn, remote := newConnPair(t)
	schema := ts.Schema{Fields: []ts.Field{{Type: ts.FieldF64, Name: "value"}}}
	points := []ts.Point{
		{ts.TimeField: uint64(1), "value": 1.0},
		{ts.TimeField: uint64(2), "value": 2.0},
	}
	beginWant := newCmdBuilder(ts.CtWritePoints).
		field(ts.DtDatabase, "db").
		field(ts.DtMeasurement, "meas").
		field(ts.DtSeries, "series").
		bytes()

	serverErr := make(chan error, 1)
	go func() {
		got := make([]byte, len(beginWant))
		if _, err := readFullHelper(remote, got); err != nil {
			serverErr <- err
			return
		}
		if !bytes.Equal(got, beginWant) {
			serverErr <- &mismatchError{want: beginWant, got: got}
			return
		}

		var ready [8]byte
		binary.LittleEndian.PutUint32(ready[0:4], ts.DtReadyForChunk)
		binary.LittleEndian.PutUint32(ready[4:8], uint32(schema.DataLenForNPoints(64)))
		remote.Write(ready[:])

		chunkHdr := make([]byte, 16)
		if _, err := readFullHelper(remote, chunkHdr); err != nil {
			serverErr <- err
			return
		}
		dataLen := binary.LittleEndian.Uint32(chunkHdr[12:16])
		data := make([]byte, dataLen)
		if _, err := readFullHelper(remote, data); err != nil {
			serverErr <- err
			return
		}
		remote.Write(ready[:])

		endBuf := make([]byte, 4)
		if _, err := readFullHelper(remote, endBuf); err != nil {
			serverErr <- err
			return
		}
		sendStatusOK(t, remote)
		serverErr <- nil
	}()

	if err := conn.WritePoints("db", "meas", "series", schema, points); err != nil {
		t.Fatalf("WritePoints: %v", err)
	}
	if err := <-serverErr; err != nil {
		t.Fatalf("server side: %v", err)
	}
}

type mismatchError struct {
	want, got []byte
}

func (e *mismatchError) Error() string {
	return "byte mismatch"
}
