// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ts

import (
	"encoding/binary"
	"fmt"
)

// PackPoints encodes points[index:index+n] under schema into a chunk
// payload (§4.5): N u64 timestamps, then for each field in schema order a
// per-field block of (all-ones bitmap, N values, zero pad to 8 bytes). The
// bitmap_offset of an outbound chunk is always 0; bit i of the bitmap is
// cleared when point i is null for that field.
func (s Schema) PackPoints(points []Point, index, n int) ([]byte, error) {
	out := make([]byte, 0, s.DataLenForNPoints(n))

	var tsBuf [8]byte
	for i := 0; i < n; i++ {
		ts, err := pointTimestamp(points[index+i])
		if err != nil {
			return nil, err
		}
		binary.LittleEndian.PutUint64(tsBuf[:], ts)
		out = append(out, tsBuf[:]...)
	}

	bitmapWords := ceilDiv(n, 64)
	for _, f := range s.Fields {
		block, err := packField(f, points, index, n, bitmapWords)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	return out, nil
}

func pointTimestamp(p Point) (uint64, error) {
	v, ok := p[TimeField]
	if !ok {
		return 0, fmt.Errorf("ts: point missing %s", TimeField)
	}
	ts, err := toUint64(v)
	if err != nil {
		return 0, fmt.Errorf("ts: %s: %w", TimeField, err)
	}
	return ts, nil
}

// packField builds one field's block: bitmap words, then N values, then
// zero padding to a multiple of 8 bytes.
func packField(f Field, points []Point, index, n, bitmapWords int) ([]byte, error) {
	size := f.Type.Size()
	valuesLen := n * size
	padLen := roundUp8(valuesLen) - valuesLen
	block := make([]byte, bitmapWords*8+valuesLen+padLen)

	bitmap := make([]uint64, bitmapWords)
	for i := range bitmap {
		bitmap[i] = ^uint64(0)
	}

	valueOff := bitmapWords * 8
	for i := 0; i < n; i++ {
		value, isNull, err := lookupFieldValue(points[index+i], f.Name)
		if err != nil {
			return nil, err
		}
		if isNull {
			bitmap[i/64] &^= uint64(1) << uint(i%64)
			continue
		}
		if err := encodeField(f.Type, block[valueOff+i*size:valueOff+(i+1)*size], value); err != nil {
			return nil, fmt.Errorf("ts: field %q: %w", f.Name, err)
		}
	}

	for i, w := range bitmap {
		binary.LittleEndian.PutUint64(block[i*8:i*8+8], w)
	}
	return block, nil
}

func lookupFieldValue(p Point, name string) (value interface{}, isNull bool, err error) {
	v, ok := p[name]
	if !ok {
		return nil, false, fmt.Errorf("ts: point missing field %q", name)
	}
	if v == nil {
		return nil, true, nil
	}
	return v, false, nil
}
