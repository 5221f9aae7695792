package interchange

import (
	"fmt"
	"strconv"

	"esp-translator/internal/esp"
	"esp-translator/internal/espenc"
)

// RecordKey derives the identifying string of one record: the decoded
// editor ID when the record has one, otherwise the record's position in
// the file. Positional keys are only stable while the binary and the
// interchange table come from the same file; callers should warn when
// the fallback fires.
func RecordKey(rec *esp.Record, index int, codec *espenc.Codec) (string, bool, error) {
	raw, ok := rec.EditorIDBytes()
	if !ok {
		return strconv.Itoa(index), false, nil
	}
	key, err := codec.Decode(raw)
	if err != nil {
		return "", false, fmt.Errorf("decode %s editor ID: %w", rec.Tag, err)
	}
	return key, true, nil
}

// SpanID builds the stable identifier of one prose span:
// record type | record key | subrecord type | span index.
// When the subrecord type occurs more than once in the record, the
// occurrence index is appended to the subrecord part, matching the keys
// extraction wrote. Both pipelines must call this with identical inputs
// for their independent decode passes to agree.
func SpanID(recordType, key, subType string, occurrence, occurrences, span int) string {
	sub := subType
	if occurrences > 1 {
		sub = fmt.Sprintf("%s_%d", subType, occurrence)
	}
	return fmt.Sprintf("%s|%s|%s|%d", recordType, key, sub, span)
}
