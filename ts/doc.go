// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ts implements the wire protocol of a time-series database client:
// the command/data token layout, the typed field catalog, and the chunked
// point packer and unpacker used to move batches of points to and from a
// tsdbserver.
//
/*

Every command sent to the server begins with a little-endian u32 command
token and ends with the DT_END token. Every multi-byte integer on the wire is
little-endian.

	COMMAND = <u32 ct-token> <data-token>... DT_END

Framed strings carry a u16 length prefix and no terminator:

	STRING = <u16 len> <len bytes>

Three response shapes are used:

	transact:     DT_STATUS_CODE <i32 status>
	list stream:  (DT_X <u16 len> <bytes>)* DT_STATUS_CODE <i32 status>
	chunk stream: (DT_CHUNK ...)* DT_END DT_STATUS_CODE <i32 0>

A chunk packs N points for a schema as:

	<u64 timestamp>[N]
	for each field, in schema order:
		<u64 bitmap>[ceil(N/64)]   // bit i clear => point i is null
		<field value>[N]           // little-endian, zero at null slots
		<pad>                      // zero bytes up to a multiple of 8

An inbound chunk additionally carries a bitmap_offset in [0,63]: the bitmap
spans ceil((bitmap_offset+N)/64) words, and bit (bitmap_offset+i) (LSB-first
within each u64 word) marks whether point i is present.

*/
package ts
