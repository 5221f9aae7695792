package inject

import "fmt"

// Kind discriminates the non-fatal problem classes injection collects.
type Kind int

const (
	// UnmatchedRow is a table row whose identifier matched no prose span
	// during the re-walk.
	UnmatchedRow Kind = iota
	// MissingTranslation is a table row whose translated_text column is
	// empty while its identifier is present in the file.
	MissingTranslation
)

func (k Kind) String() string {
	switch k {
	case UnmatchedRow:
		return "unmatched row"
	case MissingTranslation:
		return "missing translation"
	}
	return "unknown"
}

// Problem is one non-fatal finding, identified by the span it concerns.
type Problem struct {
	Kind Kind
	ID   string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Kind, p.ID)
}

// Problems aggregates every finding of one injection pass. A non-empty
// collection means no output file may be written.
type Problems []Problem

func (ps Problems) Error() string {
	return fmt.Sprintf("injection found %d problems", len(ps))
}
