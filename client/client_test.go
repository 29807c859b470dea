// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"encoding/binary"
	"net"
	"testing"

	"github.com/solidcoredata/tsdb/ts"
)

// fakeServer runs a minimal command server over a raw net.Conn: it reads a
// fixed-length command and replies with the given response bytes, once per
// call to expect.
type fakeServer struct {
	t      *testing.T
	remote net.Conn
}

func (s *fakeServer) expect(cmdLen int, reply []byte) {
	buf := make([]byte, cmdLen)
	if _, err := readFullHelper(s.remote, buf); err != nil {
		s.t.Errorf("fakeServer: read command: %v", err)
		return
	}
	if reply != nil {
		s.remote.Write(reply)
	}
}

func statusFrame(code ts.StatusCode) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], ts.DtStatusCode)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(code))
	return buf[:]
}

func TestClientKeepsConnectionOnStatusError(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	c := New("unused")
	c.conn = &Connection{conn: local}

	want := newCmdBuilder(ts.CtCreateDatabase).field(ts.DtDatabase, "db").u32(ts.DtEnd).bytes()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s := &fakeServer{t: t, remote: remote}
		s.expect(len(want), statusFrame(ts.StatusMeasurementExists))
		s.expect(len(want), statusFrame(ts.StatusOK))
	}()

	ctx := context.Background()
	if err := c.CreateDatabase(ctx, "db"); err == nil {
		t.Fatal("expected a StatusError")
	}
	if c.conn == nil {
		t.Fatal("connection should remain open after a StatusError")
	}

	if err := c.CreateDatabase(ctx, "db"); err != nil {
		t.Fatalf("second CreateDatabase: %v", err)
	}
	<-done
}

func TestClientClosesConnectionOnProtocolError(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	c := New("unused")
	c.conn = &Connection{conn: local}

	want := newCmdBuilder(ts.CtCreateDatabase).field(ts.DtDatabase, "db").u32(ts.DtEnd).bytes()

	go func() {
		buf := make([]byte, len(want))
		readFullHelper(remote, buf)
		var bogus [4]byte
		binary.LittleEndian.PutUint32(bogus[:], 0xDEADBEEF)
		remote.Write(bogus[:])
	}()

	ctx := context.Background()
	err := c.CreateDatabase(ctx, "db")
	if _, ok := err.(*ts.ProtocolError); !ok {
		t.Fatalf("expected *ts.ProtocolError, got %T: %v", err, err)
	}
	if c.conn != nil {
		t.Fatal("connection should be cleared after a ProtocolError")
	}
}

// TestClientSelectStatusErrorThenNop exercises §8 end-to-end scenario 5:
// a SELECT that fails immediately with a status error leaves the
// connection usable for a subsequent NOP.
func TestClientSelectStatusErrorThenNop(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	c := New("unused")
	c.conn = &Connection{conn: local}
	schema := ts.Schema{Fields: []ts.Field{{Type: ts.FieldF64, Name: "value"}}}

	done := make(chan struct{})
	go func() {
		defer close(done)

		selectCmdLen := len(newCmdBuilder(ts.CtSelectPointsLimit).
			field(ts.DtDatabase, "db").
			field(ts.DtMeasurement, "meas").
			field(ts.DtSeries, "series").
			field(ts.DtFieldList, "value").
			u64field(ts.DtTimeFirst, 0).
			u64field(ts.DtTimeLast, ts.DefaultTimeLast).
			u64field(ts.DtNLimit, ts.DefaultNLimit).
			u32(ts.DtEnd).
			bytes())
		buf := make([]byte, selectCmdLen)
		if _, err := readFullHelper(remote, buf); err != nil {
			t.Errorf("read select command: %v", err)
			return
		}
		remote.Write(statusFrame(ts.StatusNoSuchSeries))

		nopCmdLen := len(newCmdBuilder(ts.CtNop).u32(ts.DtEnd).bytes())
		buf = make([]byte, nopCmdLen)
		if _, err := readFullHelper(remote, buf); err != nil {
			t.Errorf("read nop command: %v", err)
			return
		}
		remote.Write(statusFrame(ts.StatusOK))
	}()

	ctx := context.Background()
	_, err := c.SelectPoints(ctx, "db", "meas", "series", schema, []string{"value"}, 0, ts.DefaultTimeLast, ts.DefaultNLimit)
	statusErr, ok := err.(*ts.StatusError)
	if !ok || statusErr.Code != ts.StatusNoSuchSeries {
		t.Fatalf("expected StatusError(%v), got %T: %v", ts.StatusNoSuchSeries, err, err)
	}
	if c.conn == nil {
		t.Fatal("connection should remain open after a StatusError from select")
	}

	if err := c.Nop(ctx); err != nil {
		t.Fatalf("Nop after status error: %v", err)
	}
	<-done
}

func TestClientRejectsCommandsWhileStreaming(t *testing.T) {
	local, _ := net.Pipe()
	defer local.Close()

	c := New("unused")
	c.conn = &Connection{conn: local, streaming: true}

	ctx := context.Background()
	if _, err := c.ListDatabases(ctx); err != ErrStreamInUse {
		t.Fatalf("expected ErrStreamInUse, got %v", err)
	}
}
