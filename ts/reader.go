// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ts

import (
	"encoding/binary"
	"fmt"
)

// FieldView is a decoded, random-access view over one field's values within
// a received chunk (§4.6).
type FieldView struct {
	fieldType     FieldType
	bitmapOffset  int
	bitmap        []byte
	values        []byte
}

// Len returns the number of points in this view.
func (v FieldView) Len() int {
	return len(v.values) / v.fieldType.Size()
}

// Get returns the decoded value at index i, or nil if that point is null
// for this field.
func (v FieldView) Get(i int) interface{} {
	if i < 0 || i >= v.Len() {
		panic("ts: FieldView index out of range")
	}
	if !v.bit(v.bitmapOffset + i) {
		return nil
	}
	size := v.fieldType.Size()
	return decodeField(v.fieldType, v.values[i*size:(i+1)*size])
}

func (v FieldView) bit(i int) bool {
	word := i / 64
	shift := uint(i % 64)
	w := binary.LittleEndian.Uint64(v.bitmap[word*8 : word*8+8])
	return w&(1<<shift) != 0
}

// Chunk is a decoded inbound chunk: the timestamps plus one FieldView per
// requested field, in request order.
type Chunk struct {
	NPoints      int
	BitmapOffset int
	Timestamps   []uint64
	Fields       map[string]FieldView
	fieldOrder   []string
}

// FieldOrder returns the requested field names in the order they appeared
// on the wire.
func (c Chunk) FieldOrder() []string {
	return c.fieldOrder
}

// DecodeChunk decodes one inbound chunk payload (§4.6). fields names the
// requested fields in request order; schema resolves each field's type.
func DecodeChunk(schema Schema, fields []string, npoints, bitmapOffset int, data []byte) (Chunk, error) {
	if npoints*8 > len(data) {
		return Chunk{}, NewProtocolError("chunk data too short for %d timestamps", npoints)
	}
	timestamps := make([]uint64, npoints)
	for i := range timestamps {
		timestamps[i] = binary.LittleEndian.Uint64(data[i*8 : i*8+8])
	}
	offset := npoints * 8

	bitmapBytes := ceilDiv(bitmapOffset+npoints, 64) * 8
	views := make(map[string]FieldView, len(fields))
	for _, name := range fields {
		ft, err := schema.FieldType(name)
		if err != nil {
			return Chunk{}, err
		}
		if offset+bitmapBytes > len(data) {
			return Chunk{}, NewProtocolError("chunk data too short for %q bitmap", name)
		}
		bitmap := data[offset : offset+bitmapBytes]
		offset += bitmapBytes

		valuesLen := npoints * ft.Size()
		if offset+valuesLen > len(data) {
			return Chunk{}, NewProtocolError("chunk data too short for %q values", name)
		}
		values := data[offset : offset+valuesLen]
		offset += valuesLen

		if pad := valuesLen % 8; pad != 0 {
			offset += 8 - pad
		}

		views[name] = FieldView{
			fieldType:    ft,
			bitmapOffset: bitmapOffset,
			bitmap:       bitmap,
			values:       values,
		}
	}

	return Chunk{
		NPoints:      npoints,
		BitmapOffset: bitmapOffset,
		Timestamps:   timestamps,
		Fields:       views,
		fieldOrder:   append([]string(nil), fields...),
	}, nil
}

func (c Chunk) String() string {
	return fmt.Sprintf("Chunk(%d points)", c.NPoints)
}
