// Package esp implements the binary record model shared by the game's
// .esm and .esp data files: a flat sequence of length-prefixed records,
// each holding a sequence of length-prefixed subrecords.
package esp

import "errors"

const (
	// HeaderTag identifies the mandatory first record of every file.
	HeaderTag = "TES3"

	recordHeaderSize    = 16 // tag + size + header1 + flags
	subrecordHeaderSize = 8  // tag + size
)

// Record flags observed in the wild.
const (
	FlagPersistent uint32 = 0x0400
	FlagDeleted    uint32 = 0x0020
)

// ErrMalformedInput reports a byte stream that does not satisfy the
// record grammar. It is always fatal; the codec never attempts recovery.
var ErrMalformedInput = errors.New("malformed input")

// Subrecord is a length-prefixed child unit of a Record. The payload is
// kept raw; whether it holds text is decided elsewhere.
type Subrecord struct {
	Tag  string
	Size uint32
	Data []byte
}

// SetData replaces the payload and keeps the declared size in step.
func (s *Subrecord) SetData(data []byte) {
	s.Data = data
	s.Size = uint32(len(data))
}

// EncodedLen is the number of bytes this subrecord occupies on disk.
func (s *Subrecord) EncodedLen() int {
	return subrecordHeaderSize + len(s.Data)
}

// Record is a top-level unit of the container.
type Record struct {
	Tag        string
	Size       uint32
	Header1    uint32
	Flags      uint32
	Subrecords []*Subrecord
}

// Find returns the first subrecord with the given tag, or nil.
func (r *Record) Find(tag string) *Subrecord {
	for _, sub := range r.Subrecords {
		if sub.Tag == tag {
			return sub
		}
	}
	return nil
}

// Refresh propagates payload length changes bottom-up: every subrecord's
// declared size is recomputed from its payload, and the record's declared
// size from the sum of its subrecords' encoded lengths. Must be called
// after mutating any subrecord payload.
func (r *Record) Refresh() {
	total := 0
	for _, sub := range r.Subrecords {
		sub.Size = uint32(len(sub.Data))
		total += sub.EncodedLen()
	}
	r.Size = uint32(total)
}

// Deleted reports whether the record carries the deleted flag.
func (r *Record) Deleted() bool {
	return r.Flags&FlagDeleted != 0
}

// Persistent reports whether the record carries the persistent flag.
func (r *Record) Persistent() bool {
	return r.Flags&FlagPersistent != 0
}

// editorIDTags lists subrecord types that can carry a record's editor ID,
// in lookup priority order.
var editorIDTags = []string{"NAME", "INAM", "CNAM", "BNAM", "ANAM", "NNAM"}

// EditorIDBytes returns the raw payload of the first subrecord that can
// serve as the record's editor ID. The second return is false when the
// record has no such subrecord and callers must fall back to position.
func (r *Record) EditorIDBytes() ([]byte, bool) {
	for _, tag := range editorIDTags {
		if sub := r.Find(tag); sub != nil {
			return sub.Data, true
		}
	}
	return nil, false
}

// TagCounts counts how often each subrecord tag occurs in the record.
// Identifier generation needs the totals to disambiguate repeated tags.
func (r *Record) TagCounts() map[string]int {
	counts := make(map[string]int, len(r.Subrecords))
	for _, sub := range r.Subrecords {
		counts[sub.Tag]++
	}
	return counts
}

// File is one decoded container: the TES3 header record followed by the
// records it counts.
type File struct {
	Header  *Record
	Records []*Record
}
