// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"encoding/binary"
	"io"
)

// cmdBuilder assembles one outbound command buffer so it can be written to
// the wire with a single sendAll call, mirroring the single struct.pack
// call the wire protocol's reference client issues per command.
type cmdBuilder struct {
	buf []byte
}

func newCmdBuilder(ct uint32) *cmdBuilder {
	b := &cmdBuilder{buf: make([]byte, 0, 64)}
	b.u32(ct)
	return b
}

func (b *cmdBuilder) u32(v uint32) *cmdBuilder {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return b
}

func (b *cmdBuilder) u64(v uint64) *cmdBuilder {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return b
}

// field appends a DT_* token followed by a u16 length-prefixed string, the
// framing used for every variable-length command argument (§3 STRING).
func (b *cmdBuilder) field(dt uint32, s string) *cmdBuilder {
	b.u32(dt)
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], uint16(len(s)))
	b.buf = append(b.buf, tmp[:]...)
	b.buf = append(b.buf, s...)
	return b
}

// u64field appends a DT_* token followed by a raw u64 value.
func (b *cmdBuilder) u64field(dt uint32, v uint64) *cmdBuilder {
	b.u32(dt)
	b.u64(v)
	return b
}

func (b *cmdBuilder) bytes() []byte {
	return b.buf
}

// recvAll reads exactly len(buf) bytes from r. A peer close, whether before
// any byte arrived or mid-message, is reported as a ConnectionClosedError;
// any other read failure is an IoError.
func recvAll(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &ConnectionClosedError{msg: err.Error()}
	}
	if err != nil {
		return &IoError{Op: "read", Err: err}
	}
	return nil
}

func recvU16(r io.Reader) (uint16, error) {
	var tmp [2]byte
	if err := recvAll(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(tmp[:]), nil
}

func recvU32(r io.Reader) (uint32, error) {
	var tmp [4]byte
	if err := recvAll(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(tmp[:]), nil
}

func recvU64(r io.Reader) (uint64, error) {
	var tmp [8]byte
	if err := recvAll(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(tmp[:]), nil
}

func recvI32(r io.Reader) (int32, error) {
	v, err := recvU32(r)
	return int32(v), err
}

func recvString(r io.Reader) (string, error) {
	n, err := recvU16(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if err := recvAll(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func sendAll(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return &IoError{Op: "write", Err: err}
	}
	return nil
}
