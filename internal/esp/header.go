package esp

import (
	"encoding/binary"
	"fmt"
	"math"

	"esp-translator/internal/espenc"
)

// hedrSize is the fixed payload size of the TES3 header's HEDR subrecord:
// float32 version, uint32 file type, 32-byte author, 256-byte description,
// uint32 record count.
const hedrSize = 300

// Master names a required dependency file recorded in the header.
type Master struct {
	Name string
	Size uint64
}

// HeaderInfo is the decoded view of the TES3 header record.
type HeaderInfo struct {
	Version     float32
	FileType    uint32
	Author      string
	Description string
	NumRecords  uint32
	Masters     []Master
}

// declaredRecordCount reads the record count straight out of the HEDR
// payload without touching the text fields, so Decode can enforce the
// count invariant with no transcoding involved.
func (f *File) declaredRecordCount() (uint32, error) {
	hedr := f.Header.Find("HEDR")
	if hedr == nil {
		return 0, fmt.Errorf("%w: %s record has no HEDR subrecord", ErrMalformedInput, HeaderTag)
	}
	if len(hedr.Data) != hedrSize {
		return 0, fmt.Errorf("%w: HEDR payload is %d bytes, want %d", ErrMalformedInput, len(hedr.Data), hedrSize)
	}
	return binary.LittleEndian.Uint32(hedr.Data[296:300]), nil
}

// HeaderInfo decodes the TES3 header's metadata. The codec is needed
// because author and description use the file's text encoding.
func (f *File) HeaderInfo(codec *espenc.Codec) (*HeaderInfo, error) {
	if _, err := f.declaredRecordCount(); err != nil {
		return nil, err
	}
	hedr := f.Header.Find("HEDR")

	author, err := codec.Decode(hedr.Data[8:40])
	if err != nil {
		return nil, fmt.Errorf("decode header author: %w", err)
	}
	description, err := codec.Decode(hedr.Data[40:296])
	if err != nil {
		return nil, fmt.Errorf("decode header description: %w", err)
	}

	info := &HeaderInfo{
		Version:     math.Float32frombits(binary.LittleEndian.Uint32(hedr.Data[0:4])),
		FileType:    binary.LittleEndian.Uint32(hedr.Data[4:8]),
		Author:      author,
		Description: description,
		NumRecords:  binary.LittleEndian.Uint32(hedr.Data[296:300]),
	}

	// MAST subrecords name the master files; each is followed by a DATA
	// subrecord with the master's size.
	var pending string
	for _, sub := range f.Header.Subrecords {
		switch sub.Tag {
		case "MAST":
			name, err := codec.Decode(sub.Data)
			if err != nil {
				return nil, fmt.Errorf("decode master name: %w", err)
			}
			pending = name
		case "DATA":
			if pending == "" {
				continue
			}
			var size uint64
			if len(sub.Data) >= 8 {
				size = binary.LittleEndian.Uint64(sub.Data[:8])
			}
			info.Masters = append(info.Masters, Master{Name: pending, Size: size})
			pending = ""
		}
	}
	if pending != "" {
		info.Masters = append(info.Masters, Master{Name: pending})
	}

	return info, nil
}
