// Package interchange implements the tabular contract between the
// extraction and injection passes and whatever translates the text in
// between: one CSV row per prose span, addressed by a stable identifier.
package interchange

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Row is one extracted prose span. Rows are immutable values with no
// back-reference into the record tree; injection relocates them by ID on
// its own decode pass.
type Row struct {
	ID             string
	RecordType     string
	SubrecordType  string
	OriginalText   string
	TranslatedText string
}

// columns is the CSV header. The record and subrecord type columns are
// annotations for human reviewers; round-tripping only needs the ID and
// the text columns.
var columns = []string{"unique_id", "record_type", "subrecord_type", "original_text", "translated_text"}

// WriteAll serializes rows as CSV with a header line. The stdlib writer
// quotes embedded delimiters and newlines, and carriage returns are
// escaped separately, so parse(serialize(text)) equals text for
// arbitrary prose including the format's native CRLF line endings.
func WriteAll(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			escapeCR(row.ID),
			row.RecordType,
			row.SubrecordType,
			escapeCR(row.OriginalText),
			escapeCR(row.TranslatedText),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write CSV row %s: %w", row.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}
	return nil
}

// ReadAll parses a CSV interchange table. Columns are addressed by
// header name so their order is immaterial; unique_id and original_text
// are required, the rest optional.
func ReadAll(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, required := range []string{"unique_id", "original_text"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("CSV is missing required column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV line %d: %w", line, err)
		}
		rows = append(rows, Row{
			ID:             unescapeCR(field(record, "unique_id")),
			RecordType:     field(record, "record_type"),
			SubrecordType:  field(record, "subrecord_type"),
			OriginalText:   unescapeCR(field(record, "original_text")),
			TranslatedText: unescapeCR(field(record, "translated_text")),
		})
	}
	return rows, nil
}

// The csv reader normalizes CRLF to LF inside quoted fields, and CRLF
// is the native line ending of multi-line payloads like BOOK texts.
// Carriage returns therefore cross the table as a self-escaping \r
// sequence: escapeCR before writing, unescapeCR after reading.
func escapeCR(s string) string {
	if !strings.ContainsAny(s, "\\\r") {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "\r", `\r`)
}

func unescapeCR(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
