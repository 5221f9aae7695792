// Package extract walks a decoded file and turns every translatable
// prose span into an interchange row.
package extract

import (
	"context"
	"fmt"
	"strings"

	"esp-translator/internal/classify"
	"esp-translator/internal/esp"
	"esp-translator/internal/espenc"
	"esp-translator/internal/interchange"
	"esp-translator/internal/worker"

	"github.com/rs/zerolog/log"
)

// Options controls one extraction pass.
type Options struct {
	// Types restricts extraction to the listed record type tags.
	// Empty means all records.
	Types []string
	// Workers is the classification concurrency. Record subtrees are
	// independent, so records are classified in parallel and collected
	// in file order.
	Workers int
}

// Run produces interchange rows for every non-empty prose span of the
// file, in strict (record, subrecord, span) order. The pass is read-only
// on the tree.
func Run(ctx context.Context, f *esp.File, cls *classify.Classifier, codec *espenc.Codec, opts Options) ([]interchange.Row, error) {
	filter := make(map[string]bool, len(opts.Types))
	for _, t := range opts.Types {
		filter[strings.ToUpper(strings.TrimSpace(t))] = true
	}

	pool := worker.NewPool(opts.Workers, func(ctx context.Context, idx int) ([]interchange.Row, error) {
		rec := f.Records[idx]
		if len(filter) > 0 && !filter[rec.Tag] {
			return nil, nil
		}
		return recordRows(rec, idx, cls, codec)
	})

	indices := make([]int, len(f.Records))
	for i := range indices {
		indices[i] = i
	}
	results := pool.Execute(ctx, indices)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []interchange.Row
	for _, res := range results {
		if res.Err != nil {
			return nil, fmt.Errorf("record %d: %w", res.Input, res.Err)
		}
		rows = append(rows, res.Output...)
	}

	log.Info().
		Int("records", len(f.Records)).
		Int("rows", len(rows)).
		Msg("Extraction pass complete")

	return rows, nil
}

// recordRows classifies one record's subrecords and emits a row per
// prose span whose text is non-empty after trimming. Span indices count
// every prose span, including skipped whitespace-only ones, so injection
// regenerates identical identifiers.
func recordRows(rec *esp.Record, index int, cls *classify.Classifier, codec *espenc.Codec) ([]interchange.Row, error) {
	key, _, err := interchange.RecordKey(rec, index, codec)
	if err != nil {
		return nil, err
	}

	occurrences := rec.TagCounts()

	var rows []interchange.Row
	seen := make(map[string]int)
	for _, sub := range rec.Subrecords {
		occ := seen[sub.Tag]
		seen[sub.Tag]++

		spans, err := cls.Classify(rec.Tag, sub.Tag, sub.Data)
		if err != nil {
			return nil, err
		}

		span := 0
		for _, s := range spans {
			if s.Class != classify.Prose {
				continue
			}
			if strings.TrimSpace(s.Text) != "" {
				rows = append(rows, interchange.Row{
					ID:            interchange.SpanID(rec.Tag, key, sub.Tag, occ, occurrences[sub.Tag], span),
					RecordType:    rec.Tag,
					SubrecordType: sub.Tag,
					OriginalText:  s.Text,
				})
			}
			span++
		}
	}
	return rows, nil
}
