// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ts

// Command tokens (CT_*) and data tokens (DT_*) are fixed 32-bit magic
// values. They are part of the wire contract; do not renumber.
const (
	CtCreateDatabase    uint32 = 0x60545A42
	CtCreateMeasurement uint32 = 0xBB632CE1
	CtWritePoints       uint32 = 0xEAF5E003
	CtSelectPointsLimit uint32 = 0x7446C560
	CtSelectPointsLast  uint32 = 0x76CF2220
	CtDeletePoints      uint32 = 0xD9082F2C
	CtGetSchema         uint32 = 0x87E5A959
	CtListDatabases     uint32 = 0x29200D6D
	CtListMeasurements  uint32 = 0x0FEB1399
	CtListSeries        uint32 = 0x7B8238D6
	CtActiveSeries      uint32 = 0xF3B5093D
	CtCountPoints       uint32 = 0x0E329B19
	CtSumPoints         uint32 = 0x90305A39
	CtNop               uint32 = 0x22CF1296
	CtAuthenticate      uint32 = 0x0995EBDA
)

const (
	DtDatabase      uint32 = 0x39385A4F
	DtMeasurement   uint32 = 0xDC1F48F3
	DtSeries        uint32 = 0x4E873749
	DtTypedFields   uint32 = 0x02AC7330
	DtFieldList     uint32 = 0xBB62ACC3
	DtChunk         uint32 = 0xE4E8518F
	DtTimeFirst     uint32 = 0x55BA37B4
	DtTimeLast      uint32 = 0xC4EE45BA
	DtNLimit        uint32 = 0xEEF2BB02
	DtNLast         uint32 = 0xD74F10A3
	DtEnd           uint32 = 0x4E29ADCC
	DtStatusCode    uint32 = 0x8C8C07D9
	DtFieldType     uint32 = 0x7DB40C2A
	DtFieldName     uint32 = 0x5C0D45C1
	DtReadyForChunk uint32 = 0x6000531C
	DtNPoints       uint32 = 0x5F469D08
	DtWindowNs      uint32 = 0x76F0C374
	DtSumsChunk     uint32 = 0x53FC76FC
	DtUsername      uint32 = 0x6E39D1DE
	DtPassword      uint32 = 0x602E5B01
)

// StatusCode is the i32 status the server returns at every command
// boundary. Zero means success.
type StatusCode int32

const (
	StatusOK                          StatusCode = 0
	StatusInitIOError                 StatusCode = -1
	StatusCreateDatabaseIOError       StatusCode = -2
	StatusCreateMeasurementIOError    StatusCode = -3
	StatusInvalidMeasurement          StatusCode = -4
	StatusInvalidSeries               StatusCode = -5
	StatusCorruptSchemaFile           StatusCode = -6
	StatusNoSuchField                 StatusCode = -7
	StatusEndOfSelect                 StatusCode = -8
	StatusIncorrectWriteChunkLen      StatusCode = -9
	StatusOutOfOrderTimestamps        StatusCode = -10
	StatusTimestampOverwriteMismatch  StatusCode = -11
	StatusFieldOverwriteMismatch      StatusCode = -12
	StatusBitmapOverwriteMismatch     StatusCode = -13
	StatusTailFileTooBig              StatusCode = -14
	StatusTailFileInvalidSize         StatusCode = -15
	StatusInvalidTimeLast             StatusCode = -16
	StatusNoSuchSeries                StatusCode = -17
	StatusNoSuchDatabase              StatusCode = -18
	StatusNoSuchMeasurement           StatusCode = -19
	StatusMeasurementExists           StatusCode = -20
	StatusUserExists                  StatusCode = -21
	StatusNoSuchUser                  StatusCode = -22
	StatusNotATsdbRoot                StatusCode = -23
	StatusDuplicateField              StatusCode = -24
	StatusTooManyFields               StatusCode = -25
	StatusInvalidConfigFile           StatusCode = -26
	StatusInvalidChunkSize            StatusCode = -27
)

var statusCodeName = map[StatusCode]string{
	StatusOK:                         "ok",
	StatusInitIOError:                "init io error",
	StatusCreateDatabaseIOError:      "create database io error",
	StatusCreateMeasurementIOError:   "create measurement io error",
	StatusInvalidMeasurement:         "invalid measurement",
	StatusInvalidSeries:              "invalid series",
	StatusCorruptSchemaFile:          "corrupt schema file",
	StatusNoSuchField:                "no such field",
	StatusEndOfSelect:                "end of select",
	StatusIncorrectWriteChunkLen:     "incorrect write chunk length",
	StatusOutOfOrderTimestamps:       "out of order timestamps",
	StatusTimestampOverwriteMismatch: "timestamp overwrite mismatch",
	StatusFieldOverwriteMismatch:     "field overwrite mismatch",
	StatusBitmapOverwriteMismatch:    "bitmap overwrite mismatch",
	StatusTailFileTooBig:             "tail file too big",
	StatusTailFileInvalidSize:        "tail file invalid size",
	StatusInvalidTimeLast:            "invalid time last",
	StatusNoSuchSeries:               "no such series",
	StatusNoSuchDatabase:             "no such database",
	StatusNoSuchMeasurement:          "no such measurement",
	StatusMeasurementExists:          "measurement exists",
	StatusUserExists:                 "user exists",
	StatusNoSuchUser:                 "no such user",
	StatusNotATsdbRoot:               "not a tsdb root",
	StatusDuplicateField:             "duplicate field",
	StatusTooManyFields:              "too many fields",
	StatusInvalidConfigFile:          "invalid config file",
	StatusInvalidChunkSize:           "invalid chunk size",
}

func (s StatusCode) String() string {
	if s == StatusOK {
		return "ok"
	}
	if name, ok := statusCodeName[s]; ok {
		return name
	}
	return "unknown status code"
}

// Default range bounds used by Session operations that accept an optional
// time window or result limit.
const (
	DefaultTimeFirst uint64 = 0
	DefaultTimeLast  uint64 = 1<<64 - 1
	DefaultNLimit    uint64 = 1<<64 - 1
)
