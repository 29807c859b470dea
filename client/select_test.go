// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/solidcoredata/tsdb/ts"
)

// writeChunkBody writes a chunk's npoints/bitmap_offset/data_len/data
// fields, NOT including the leading DT_CHUNK token — the caller has
// already sent that token as the "next token" from the prior frame.
func writeChunkBody(t *testing.T, remote net.Conn, npoints, bitmapOffset uint32, data []byte) {
	t.Helper()
	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:4], npoints)
	binary.LittleEndian.PutUint32(hdr[4:8], bitmapOffset)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(data)))
	remote.Write(hdr[:])
	remote.Write(data)
}

func writeEndStatusOK(t *testing.T, remote net.Conn) {
	t.Helper()
	var tok [4]byte
	binary.LittleEndian.PutUint32(tok[:], ts.DtEnd)
	remote.Write(tok[:])
	sendStatusOK(t, remote)
}

func TestSelectStreamDrainsToEnd(t *testing.T) {
	conn, remote := newConnPair(t)
	schema := ts.Schema{Fields: []ts.Field{{Type: ts.FieldF64, Name: "value"}}}
	points := []ts.Point{
		{ts.TimeField: uint64(10), "value": 1.5},
		{ts.TimeField: uint64(20), "value": 2.5},
	}
	data, err := schema.PackPoints(points, 0, 2)
	if err != nil {
		t.Fatalf("PackPoints: %v", err)
	}

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

	go func() {
		got := make([]byte, selectCmdLen)
		readFullHelper(remote, got)

		var chunkTok [4]byte
		binary.LittleEndian.PutUint32(chunkTok[:], ts.DtChunk)
		remote.Write(chunkTok[:])
		writeChunkBody(t, remote, 2, 0, data)
		writeEndStatusOK(t, remote)
	}()

	stream, err := newSelectStream(nil, conn, ts.CtSelectPointsLimit, "db", "meas", "series", schema, []string{"value"}, 0, ts.DefaultTimeLast, ts.DefaultNLimit)
	if err != nil {
		t.Fatalf("newSelectStream: %v", err)
	}

	chunk, err := stream.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if chunk == nil {
		t.Fatal("expected a chunk, got nil")
	}
	if chunk.NPoints != 2 {
		t.Fatalf("NPoints = %d, want 2", chunk.NPoints)
	}
	if got := chunk.Fields["value"].Get(0); got.(float64) != 1.5 {
		t.Fatalf("field value[0] = %v, want 1.5", got)
	}

	chunk, err = stream.Next()
	if err != nil {
		t.Fatalf("final Next: %v", err)
	}
	if chunk != nil {
		t.Fatalf("expected end of stream, got %v", chunk)
	}
	if conn.streaming {
		t.Fatal("connection should be released after stream ends")
	}
}

func TestSelectStreamProtocolErrorClosesConnection(t *testing.T) {
	conn, remote := newConnPair(t)
	schema := ts.Schema{Fields: []ts.Field{{Type: ts.FieldF64, Name: "value"}}}

	go func() {
		buf := make([]byte, 4096)
		n, _ := remote.Read(buf)
		_ = n
		// Respond with a bogus token instead of DT_CHUNK/DT_STATUS_CODE.
		var bogus [4]byte
		binary.LittleEndian.PutUint32(bogus[:], 0xDEADBEEF)
		remote.Write(bogus[:])
	}()

	stream, err := newSelectStream(nil, conn, ts.CtSelectPointsLimit, "db", "meas", "series", schema, []string{"value"}, 0, ts.DefaultTimeLast, ts.DefaultNLimit)
	if err != nil {
		t.Fatalf("newSelectStream: %v", err)
	}

	_, err = stream.Next()
	if _, ok := err.(*ts.ProtocolError); !ok {
		t.Fatalf("expected *ts.ProtocolError, got %T: %v", err, err)
	}
	if conn.streaming {
		t.Fatal("connection should no longer be marked streaming after a protocol error")
	}
	if conn.conn != nil {
		t.Fatal("connection should be closed after a protocol error")
	}
}
