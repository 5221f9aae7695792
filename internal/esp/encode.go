package esp

import (
	"bytes"
	"encoding/binary"
)

// Encode serializes the tree back into a file image. It is the exact
// inverse of Decode and never fails for a tree this package produced:
// lengths are not trusted but recomputed in two passes, child buffers
// first, then parent headers from the buffer sizes.
func (f *File) Encode() []byte {
	var buf bytes.Buffer
	encodeRecord(&buf, f.Header)
	for _, rec := range f.Records {
		encodeRecord(&buf, rec)
	}
	return buf.Bytes()
}

// Encode serializes a single record, lengths recomputed.
func (r *Record) Encode() []byte {
	var buf bytes.Buffer
	encodeRecord(&buf, r)
	return buf.Bytes()
}

func encodeRecord(buf *bytes.Buffer, rec *Record) {
	var body bytes.Buffer
	for _, sub := range rec.Subrecords {
		body.WriteString(sub.Tag)
		writeUint32(&body, uint32(len(sub.Data)))
		body.Write(sub.Data)
	}

	buf.WriteString(rec.Tag)
	writeUint32(buf, uint32(body.Len()))
	writeUint32(buf, rec.Header1)
	writeUint32(buf, rec.Flags)
	buf.Write(body.Bytes())
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
