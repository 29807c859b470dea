// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ts

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FieldType is a closed enumeration of the seven numeric field kinds a
// Schema column may hold. The identifier is the on-wire value sent in
// DT_FIELD_TYPE and in the typed-fields string of CREATE_MEASUREMENT.
type FieldType uint32

const (
	FieldBool FieldType = 1
	FieldU32  FieldType = 2
	FieldU64  FieldType = 3
	FieldF32  FieldType = 4
	FieldF64  FieldType = 5
	FieldI32  FieldType = 6
	FieldI64  FieldType = 7
)

var fieldTypeName = map[FieldType]string{
	FieldBool: "bool",
	FieldU32:  "u32",
	FieldU64:  "u64",
	FieldF32:  "f32",
	FieldF64:  "f64",
	FieldI32:  "i32",
	FieldI64:  "i64",
}

var fieldTypeByName = map[string]FieldType{
	"bool": FieldBool,
	"u32":  FieldU32,
	"u64":  FieldU64,
	"f32":  FieldF32,
	"f64":  FieldF64,
	"i32":  FieldI32,
	"i64":  FieldI64,
}

func (t FieldType) String() string {
	if name, ok := fieldTypeName[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", uint32(t))
}

// ParseFieldType looks up a FieldType by its wire name, as used in the
// "name/type,..." typed-fields string.
func ParseFieldType(name string) (FieldType, error) {
	ft, ok := fieldTypeByName[name]
	if !ok {
		return 0, fmt.Errorf("ts: unknown field type %q", name)
	}
	return ft, nil
}

// Size returns the fixed on-wire element size, in bytes, of one value of
// this FieldType.
func (t FieldType) Size() int {
	switch t {
	case FieldBool:
		return 1
	case FieldU32, FieldF32, FieldI32:
		return 4
	case FieldU64, FieldF64, FieldI64:
		return 8
	default:
		return 0
	}
}

// encodeField writes one value of the given FieldType, little-endian, into
// dst[:ft.Size()]. The caller guarantees len(dst) >= ft.Size().
func encodeField(ft FieldType, dst []byte, value interface{}) error {
	switch ft {
	case FieldBool:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("ts: field type bool got %T", value)
		}
		if v {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	case FieldU32:
		v, err := toUint64(value)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(dst, uint32(v))
	case FieldU64:
		v, err := toUint64(value)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(dst, v)
	case FieldI32:
		v, err := toInt64(value)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(dst, uint32(int32(v)))
	case FieldI64:
		v, err := toInt64(value)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(dst, uint64(v))
	case FieldF32:
		v, err := toFloat64(value)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
	case FieldF64:
		v, err := toFloat64(value)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
	default:
		return fmt.Errorf("ts: unknown field type %v", ft)
	}
	return nil
}

// decodeField reads one value of the given FieldType, little-endian, from
// src[:ft.Size()].
func decodeField(ft FieldType, src []byte) interface{} {
	switch ft {
	case FieldBool:
		return src[0] != 0
	case FieldU32:
		return binary.LittleEndian.Uint32(src)
	case FieldU64:
		return binary.LittleEndian.Uint64(src)
	case FieldI32:
		return int32(binary.LittleEndian.Uint32(src))
	case FieldI64:
		return int64(binary.LittleEndian.Uint64(src))
	case FieldF32:
		return math.Float32frombits(binary.LittleEndian.Uint32(src))
	case FieldF64:
		return math.Float64frombits(binary.LittleEndian.Uint64(src))
	default:
		panic("ts: unknown field type")
	}
}

func toUint64(value interface{}) (uint64, error) {
	switch v := value.(type) {
	case uint64:
		return v, nil
	case uint32:
		return uint64(v), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("ts: negative value %d for unsigned field", v)
		}
		return uint64(v), nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("ts: negative value %d for unsigned field", v)
		}
		return uint64(v), nil
	default:
		return 0, fmt.Errorf("ts: expected unsigned integer, got %T", value)
	}
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("ts: expected signed integer, got %T", value)
	}
}

func toFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("ts: expected floating point, got %T", value)
	}
}
