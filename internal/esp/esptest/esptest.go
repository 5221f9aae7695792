// Package esptest builds small in-memory record trees and file images
// for tests. All fixture text is ASCII, which encodes identically in
// every supported single-byte encoding.
package esptest

import (
	"encoding/binary"
	"math"

	"esp-translator/internal/esp"
)

// Text returns a NUL-terminated text payload.
func Text(s string) []byte {
	return append([]byte(s), 0)
}

// Sub builds a subrecord with its size already consistent.
func Sub(tag string, data []byte) *esp.Subrecord {
	return &esp.Subrecord{Tag: tag, Size: uint32(len(data)), Data: data}
}

// Record builds a record from subrecords with lengths propagated.
func Record(tag string, subs ...*esp.Subrecord) *esp.Record {
	rec := &esp.Record{Tag: tag, Subrecords: subs}
	rec.Refresh()
	return rec
}

// Header builds a TES3 header record declaring the given record count.
func Header(numRecords int) *esp.Record {
	hedr := make([]byte, 300)
	binary.LittleEndian.PutUint32(hedr[0:4], math.Float32bits(1.2))
	copy(hedr[8:40], "fixture author")
	copy(hedr[40:296], "fixture description")
	binary.LittleEndian.PutUint32(hedr[296:300], uint32(numRecords))
	return Record(esp.HeaderTag, Sub("HEDR", hedr))
}

// File assembles a complete file from records, with a matching header.
func File(records ...*esp.Record) *esp.File {
	return &esp.File{Header: Header(len(records)), Records: records}
}

// Image assembles records into an encoded file image.
func Image(records ...*esp.Record) []byte {
	return File(records...).Encode()
}
