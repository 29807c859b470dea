// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"encoding/binary"
	"math"
	"net"
	"testing"

	"github.com/solidcoredata/tsdb/ts"
)

func writeSumsChunkBody(t *testing.T, remote net.Conn, n int, fields []string, timestamps []uint64, sums map[string][]float64, npoints map[string][]uint64) {
	t.Helper()
	var nBuf [2]byte
	binary.LittleEndian.PutUint16(nBuf[:], uint16(n))
	remote.Write(nBuf[:])

	writeU64s := func(vs []uint64) {
		buf := make([]byte, 8*len(vs))
		for i, v := range vs {
			binary.LittleEndian.PutUint64(buf[i*8:i*8+8], v)
		}
		remote.Write(buf)
	}
	writeF64s := func(vs []float64) {
		buf := make([]byte, 8*len(vs))
		for i, v := range vs {
			binary.LittleEndian.PutUint64(buf[i*8:i*8+8], math.Float64bits(v))
		}
		remote.Write(buf)
	}

	writeU64s(timestamps)
	for _, name := range fields {
		writeF64s(sums[name])
	}
	zeros := make([]float64, n)
	for range fields {
		writeF64s(zeros) // mins
	}
	for range fields {
		writeF64s(zeros) // maxs
	}
	for _, name := range fields {
		writeU64s(npoints[name])
	}
}

func TestSumsStreamDecodesAndDrains(t *testing.T) {
	conn, remote := newConnPair(t)
	fields := []string{"value"}
	timestamps := []uint64{100, 200}
	sums := map[string][]float64{"value": {3.5, 7.0}}
	npoints := map[string][]uint64{"value": {2, 3}}

	sumsCmdLen := len(newCmdBuilder(ts.CtSumPoints).
		field(ts.DtDatabase, "db").
		field(ts.DtMeasurement, "meas").
		field(ts.DtSeries, "series").
		field(ts.DtFieldList, "value").
		u64field(ts.DtTimeFirst, 0).
		u64field(ts.DtTimeLast, ts.DefaultTimeLast).
		u64field(ts.DtWindowNs, 1000).
		u32(ts.DtEnd).
		bytes())

	go func() {
		got := make([]byte, sumsCmdLen)
		readFullHelper(remote, got)

		var tok [4]byte
		binary.LittleEndian.PutUint32(tok[:], ts.DtSumsChunk)
		remote.Write(tok[:])
		writeSumsChunkBody(t, remote, 2, fields, timestamps, sums, npoints)
		writeEndStatusOK(t, remote)
	}()

	stream, err := newSumsStream(nil, conn, "db", "meas", "series", fields, 0, ts.DefaultTimeLast, 1000)
	if err != nil {
		t.Fatalf("newSumsStream: %v", err)
	}

	chunk, err := stream.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if chunk == nil {
		t.Fatal("expected a sums chunk")
	}
	if chunk.Sums["value"][1] != 7.0 {
		t.Fatalf("sums[value][1] = %v, want 7.0", chunk.Sums["value"][1])
	}
	if chunk.NPoints["value"][0] != 2 {
		t.Fatalf("npoints[value][0] = %v, want 2", chunk.NPoints["value"][0])
	}
	if chunk.Timestamps[0] != 100 {
		t.Fatalf("timestamps[0] = %v, want 100", chunk.Timestamps[0])
	}

	chunk, err = stream.Next()
	if err != nil {
		t.Fatalf("final Next: %v", err)
	}
	if chunk != nil {
		t.Fatal("expected end of stream")
	}
}
