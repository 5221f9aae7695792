package esp

import (
	"encoding/binary"
	"fmt"
)

// Decode parses a whole file image into a record tree. Structural
// inconsistencies fail with ErrMalformedInput: truncated payloads,
// unprintable tags, subrecord lengths that do not tile the record
// payload exactly, a missing TES3 header, or a header record count that
// disagrees with the records actually present.
func Decode(data []byte) (*File, error) {
	f := &File{}
	off := 0

	for off < len(data) {
		rec, n, err := decodeRecord(data[off:], off)
		if err != nil {
			return nil, err
		}
		off += n

		if f.Header == nil {
			if rec.Tag != HeaderTag {
				return nil, fmt.Errorf("%w: file does not start with a %s record (got %q)", ErrMalformedInput, HeaderTag, rec.Tag)
			}
			f.Header = rec
			continue
		}
		f.Records = append(f.Records, rec)
	}

	if f.Header == nil {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedInput)
	}

	declared, err := f.declaredRecordCount()
	if err != nil {
		return nil, err
	}
	if int(declared) != len(f.Records) {
		return nil, fmt.Errorf("%w: header declares %d records, file contains %d", ErrMalformedInput, declared, len(f.Records))
	}

	return f, nil
}

// decodeRecord parses one record starting at data[0]. base is the
// record's absolute file offset, used only for error messages.
func decodeRecord(data []byte, base int) (*Record, int, error) {
	if len(data) < recordHeaderSize {
		return nil, 0, fmt.Errorf("%w: truncated record header at offset %d", ErrMalformedInput, base)
	}

	tag, err := decodeTag(data[:4], base)
	if err != nil {
		return nil, 0, err
	}

	rec := &Record{
		Tag:     tag,
		Size:    binary.LittleEndian.Uint32(data[4:8]),
		Header1: binary.LittleEndian.Uint32(data[8:12]),
		Flags:   binary.LittleEndian.Uint32(data[12:16]),
	}

	end := recordHeaderSize + int(rec.Size)
	if end > len(data) {
		return nil, 0, fmt.Errorf("%w: record %s at offset %d declares %d payload bytes, %d remain",
			ErrMalformedInput, tag, base, rec.Size, len(data)-recordHeaderSize)
	}

	payload := data[recordHeaderSize:end]
	pos := 0
	for pos < len(payload) {
		if len(payload)-pos < subrecordHeaderSize {
			return nil, 0, fmt.Errorf("%w: record %s at offset %d: %d trailing bytes do not fit a subrecord header",
				ErrMalformedInput, tag, base, len(payload)-pos)
		}

		subTag, err := decodeTag(payload[pos:pos+4], base+recordHeaderSize+pos)
		if err != nil {
			return nil, 0, err
		}
		subSize := binary.LittleEndian.Uint32(payload[pos+4 : pos+8])
		pos += subrecordHeaderSize

		if int(subSize) > len(payload)-pos {
			return nil, 0, fmt.Errorf("%w: subrecord %s.%s declares %d bytes, %d remain in record",
				ErrMalformedInput, tag, subTag, subSize, len(payload)-pos)
		}

		sub := &Subrecord{
			Tag:  subTag,
			Size: subSize,
			Data: append([]byte(nil), payload[pos:pos+int(subSize)]...),
		}
		pos += int(subSize)
		rec.Subrecords = append(rec.Subrecords, sub)
	}

	return rec, end, nil
}

// decodeTag validates and returns a 4-byte printable type tag.
func decodeTag(b []byte, off int) (string, error) {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return "", fmt.Errorf("%w: unprintable type tag % x at offset %d", ErrMalformedInput, b, off)
		}
	}
	return string(b), nil
}
