// Package classify decides which bytes of a subrecord payload are
// translatable prose and which must survive the round trip verbatim.
package classify

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"esp-translator/internal/espenc"
)

// Class tags a span of payload bytes.
type Class int

const (
	// NonProse spans are copied byte-for-byte: script code, placeholder
	// tokens, terminators, and payloads that carry no text at all.
	NonProse Class = iota
	// Prose spans hold human-translatable text.
	Prose
)

// Span is one classified byte range of a subrecord payload. Raw always
// holds the original payload bytes; Text is the decoded form and is set
// for Prose spans only. Concatenating Raw over a classification result
// reproduces the payload exactly.
type Span struct {
	Class Class
	Raw   []byte
	Text  string
}

// Classifier applies a RuleSet at a fixed text encoding.
type Classifier struct {
	rules *RuleSet
	codec *espenc.Codec
}

// New creates a classifier over the given rules and encoding.
func New(rules *RuleSet, codec *espenc.Codec) *Classifier {
	return &Classifier{rules: rules, codec: codec}
}

// Classify splits a payload into an ordered list of spans. Subrecord
// types outside the allow-list for the record type come back as a single
// NonProse span. Fails with espenc.ErrEncoding when an allow-listed
// payload holds bytes invalid under the file encoding.
func (c *Classifier) Classify(recordType, subType string, payload []byte) ([]Span, error) {
	if !c.rules.Translatable(recordType, subType) {
		return []Span{{Class: NonProse, Raw: payload}}, nil
	}

	// The text region ends at the NUL terminator; the terminator and
	// anything behind it stay untouched.
	textEnd := len(payload)
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		textEnd = i
	}
	text, err := c.codec.Decode(payload[:textEnd])
	if err != nil {
		return nil, fmt.Errorf("%s.%s payload: %w", recordType, subType, err)
	}

	if !c.rules.IsProse(text) {
		return []Span{{Class: NonProse, Raw: payload}}, nil
	}

	spans := c.tokenize(payload[:textEnd], text)
	if textEnd < len(payload) {
		spans = append(spans, Span{Class: NonProse, Raw: payload[textEnd:]})
	}
	return mergeAdjacent(spans), nil
}

// tokenize carves placeholder tokens out of the text region. The file
// encoding is single-byte, so rune index i of the decoded text is payload
// byte i; match offsets into the UTF-8 string are mapped accordingly.
func (c *Classifier) tokenize(raw []byte, text string) []Span {
	type match struct{ start, end int }
	var all []match
	for _, re := range c.rules.placeholders {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			all = append(all, match{
				start: utf8.RuneCountInString(text[:loc[0]]),
				end:   utf8.RuneCountInString(text[:loc[1]]),
			})
		}
	}

	if len(all) == 0 {
		return []Span{{Class: Prose, Raw: raw, Text: text}}
	}

	// Earliest first; on ties the longest match wins and overlaps with a
	// kept match are dropped.
	sort.Slice(all, func(i, j int) bool {
		if all[i].start != all[j].start {
			return all[i].start < all[j].start
		}
		return all[i].end-all[i].start > all[j].end-all[j].start
	})

	runes := []rune(text)
	var spans []Span
	pos := 0
	for _, m := range all {
		if m.start < pos {
			continue
		}
		if m.start > pos {
			spans = append(spans, Span{Class: Prose, Raw: raw[pos:m.start], Text: string(runes[pos:m.start])})
		}
		spans = append(spans, Span{Class: NonProse, Raw: raw[m.start:m.end]})
		pos = m.end
	}
	if pos < len(raw) {
		spans = append(spans, Span{Class: Prose, Raw: raw[pos:], Text: string(runes[pos:])})
	}
	return spans
}

// mergeAdjacent joins neighbouring spans of the same class so results
// are maximal and boundaries deterministic.
func mergeAdjacent(spans []Span) []Span {
	if len(spans) < 2 {
		return spans
	}
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.Class == last.Class {
			last.Raw = append(append([]byte(nil), last.Raw...), s.Raw...)
			last.Text += s.Text
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// Reassemble rebuilds a payload from its classification: every Prose
// span is replaced by the corresponding replacement, re-encoded to the
// file encoding; every NonProse span is copied unchanged in position.
// replacements must hold one entry per Prose span, in span order. Fails
// with espenc.ErrEncoding when a replacement is not representable.
func (c *Classifier) Reassemble(spans []Span, replacements []string) ([]byte, error) {
	prose := 0
	for _, s := range spans {
		if s.Class == Prose {
			prose++
		}
	}
	if prose != len(replacements) {
		return nil, fmt.Errorf("reassemble: %d replacements for %d prose spans", len(replacements), prose)
	}

	var buf bytes.Buffer
	next := 0
	for _, s := range spans {
		if s.Class == NonProse {
			buf.Write(s.Raw)
			continue
		}
		encoded, err := c.codec.Encode(replacements[next])
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)
		next++
	}
	return buf.Bytes(), nil
}

// ProseTexts returns the decoded texts of the Prose spans in order.
func ProseTexts(spans []Span) []string {
	var texts []string
	for _, s := range spans {
		if s.Class == Prose {
			texts = append(texts, s.Text)
		}
	}
	return texts
}

// HasProse reports whether any span carries translatable text that is
// non-empty after trimming.
func HasProse(spans []Span) bool {
	for _, s := range spans {
		if s.Class == Prose && strings.TrimSpace(s.Text) != "" {
			return true
		}
	}
	return false
}
