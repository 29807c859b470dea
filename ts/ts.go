// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ts

import (
	"fmt"
	"strings"
)

// TimeField is the reserved point key holding the nanosecond timestamp.
const TimeField = "time_ns"

// Field is one column of a Schema: its wire type and name.
type Field struct {
	Type FieldType
	Name string
}

func (f Field) String() string {
	return fmt.Sprintf("<%s %s>", f.Type, f.Name)
}

// Schema is an ordered, named field list attached to a measurement. Field
// order is significant: it fixes the on-wire payload order of an outbound
// chunk.
type Schema struct {
	Fields []Field
}

func (s Schema) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// FieldType looks up the FieldType of a named field.
func (s Schema) FieldType(name string) (FieldType, error) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Type, nil
		}
	}
	return 0, fmt.Errorf("ts: no such field %q", name)
}

// TypedFieldsString renders the schema as the "name/type,name/type,..."
// string sent with CREATE_MEASUREMENT.
func (s Schema) TypedFieldsString() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.Name + "/" + f.Type.String()
	}
	return strings.Join(parts, ",")
}

// ParseTypedFields parses a "name/type,name/type,..." string, the form
// TypedFieldsString produces for CREATE_MEASUREMENT, into a Schema. Fields
// are returned in the order they appear in the string.
func ParseTypedFields(s string) (Schema, error) {
	if s == "" {
		return Schema{}, nil
	}
	parts := strings.Split(s, ",")
	fields := make([]Field, 0, len(parts))
	for _, p := range parts {
		i := strings.LastIndexByte(p, '/')
		if i < 0 {
			return Schema{}, fmt.Errorf("ts: malformed typed field %q", p)
		}
		ft, err := ParseFieldType(p[i+1:])
		if err != nil {
			return Schema{}, err
		}
		fields = append(fields, Field{Type: ft, Name: p[:i]})
	}
	return Schema{Fields: fields}, nil
}

// Point is a single time-series sample: a mapping from field name (plus the
// reserved TimeField) to a scalar value, or nil for a null field. TimeField
// must hold a uint64 nanosecond timestamp.
type Point map[string]interface{}

// ceilDiv returns ceil(n/d) for non-negative n and positive d.
func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

// roundUp8 rounds v up to the next multiple of 8.
func roundUp8(v int) int {
	return ceilDiv(v, 8) * 8
}

// DataLenForNPoints returns the exact byte length of a packed chunk payload
// holding N points of this schema (§8 invariant 2).
func (s Schema) DataLenForNPoints(n int) int {
	total := 8 * n // timestamps
	bitmapBytes := ceilDiv(n, 64) * 8
	for _, f := range s.Fields {
		total += bitmapBytes + roundUp8(n*f.Type.Size())
	}
	return total
}

// MaxPointsForDataLen returns the largest multiple of 64 points that fit
// within dataLen bytes when packed with this schema (§8 invariant 3).
//
// For N a multiple of 64, N/64 == ceil(N/64), and N*size is itself a
// multiple of 8 for every FieldType.Size() (1, 4, or 8), so
// roundUp8(N*size) == N*size exactly and DataLenForNPoints(N) reduces to a
// linear form. Writing N = 64k, F = len(Fields), S = sum(field sizes):
//
//	len(N) = 8*N + sum_fields( (N/64)*8 + N*size )
//	       = 64k*(8+S) + 8*F*k
//	       = k * (64*(8+S) + 8*F)
//
// so the largest valid k is floor(dataLen / (64*(8+S) + 8*F)), computed
// entirely in integers so the result is exact at the boundary.
func (s Schema) MaxPointsForDataLen(dataLen int) int {
	if dataLen < 0 {
		return 0
	}
	sum := 0
	for _, f := range s.Fields {
		sum += f.Type.Size()
	}
	denom := 64*(8+sum) + 8*len(s.Fields)
	if denom <= 0 {
		return 0
	}
	return (dataLen / denom) * 64
}
