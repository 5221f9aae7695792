// Package inject re-walks a freshly decoded copy of the original file
// and replaces prose spans with translations from an interchange table,
// propagating length changes back up the record tree.
package inject

import (
	"fmt"
	"strings"

	"esp-translator/internal/classify"
	"esp-translator/internal/esp"
	"esp-translator/internal/espenc"
	"esp-translator/internal/interchange"
	"esp-translator/internal/textutil"

	"github.com/rs/zerolog/log"
)

// Stats summarizes a successful injection pass.
type Stats struct {
	Records  int
	Injected int
}

// Run substitutes translations into the tree in place. Non-fatal
// problems (rows that never matched a span, rows with an empty
// translation) are collected across the whole pass and returned
// together, so one run surfaces every issue; the caller must not write
// output when Problems is non-empty. Structural and encoding failures
// abort immediately.
func Run(f *esp.File, rows []interchange.Row, cls *classify.Classifier, codec *espenc.Codec) (Stats, Problems, error) {
	lookup := make(map[string]interchange.Row, len(rows))
	for _, row := range rows {
		lookup[row.ID] = row
	}
	matched := make(map[string]bool, len(rows))

	var stats Stats
	var problems Problems

	for idx, rec := range f.Records {
		injected, err := injectRecord(rec, idx, lookup, matched, &problems, cls, codec)
		if err != nil {
			return Stats{}, nil, err
		}
		stats.Injected += injected
	}
	stats.Records = len(f.Records)

	// Rows that no generated identifier ever matched point at a stale or
	// hand-edited table; report them all, in table order.
	for _, row := range rows {
		if !matched[row.ID] {
			problems = append(problems, Problem{Kind: UnmatchedRow, ID: row.ID})
		}
	}

	log.Info().
		Int("records", stats.Records).
		Int("injected", stats.Injected).
		Int("problems", len(problems)).
		Msg("Injection pass complete")

	return stats, problems, nil
}

// injectRecord walks one record exactly like extraction does, looks up
// each prose span's identifier, and rebuilds any subrecord payload that
// changed. Returns the number of spans replaced.
func injectRecord(rec *esp.Record, index int, lookup map[string]interchange.Row, matched map[string]bool, problems *Problems, cls *classify.Classifier, codec *espenc.Codec) (int, error) {
	key, _, err := interchange.RecordKey(rec, index, codec)
	if err != nil {
		return 0, fmt.Errorf("record %d: %w", index, err)
	}

	occurrences := rec.TagCounts()

	injected := 0
	seen := make(map[string]int)
	for _, sub := range rec.Subrecords {
		occ := seen[sub.Tag]
		seen[sub.Tag]++

		spans, err := cls.Classify(rec.Tag, sub.Tag, sub.Data)
		if err != nil {
			return 0, fmt.Errorf("record %s %q: %w", rec.Tag, key, err)
		}

		replacements := classify.ProseTexts(spans)
		changed := false
		span := 0
		for _, s := range spans {
			if s.Class != classify.Prose {
				continue
			}
			proseIdx := span
			span++

			id := interchange.SpanID(rec.Tag, key, sub.Tag, occ, occurrences[sub.Tag], proseIdx)
			row, ok := lookup[id]
			if !ok {
				// Not requested for translation; leave as is.
				continue
			}
			matched[id] = true

			if strings.TrimSpace(row.TranslatedText) == "" {
				*problems = append(*problems, Problem{Kind: MissingTranslation, ID: id})
				continue
			}
			if strings.TrimSpace(row.OriginalText) != strings.TrimSpace(s.Text) {
				log.Warn().
					Str("id", id).
					Str("record", textutil.Truncate(s.Text, 40)).
					Str("table", textutil.Truncate(row.OriginalText, 40)).
					Msg("Original text in table no longer matches file, span left unchanged")
				continue
			}

			if row.TranslatedText != s.Text {
				replacements[proseIdx] = row.TranslatedText
				changed = true
				injected++
			}
		}

		if !changed {
			continue
		}
		payload, err := cls.Reassemble(spans, replacements)
		if err != nil {
			return 0, fmt.Errorf("record %s %q subrecord %s: %w", rec.Tag, key, sub.Tag, err)
		}
		sub.SetData(payload)
	}

	// Length propagation: subrecord payload changes bubble up into the
	// record's declared size. The file header's record count is
	// untouched because records are only mutated, never added.
	if injected > 0 {
		rec.Refresh()
	}
	return injected, nil
}
