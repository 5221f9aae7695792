package espenc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// ErrEncoding reports text that cannot cross the single-byte encoding
// boundary in either direction.
var ErrEncoding = errors.New("encoding error")

// charmaps lists the single-byte encodings used by localized editions of
// the game's data files.
var charmaps = map[string]*charmap.Charmap{
	"windows-1250": charmap.Windows1250,
	"windows-1251": charmap.Windows1251,
	"windows-1252": charmap.Windows1252,
}

// Codec transcodes between UTF-8 and the file's single-byte encoding.
// Both directions are strict: a byte with no mapping or a rune outside
// the target repertoire is an error, never a silent substitution.
type Codec struct {
	name string
	cm   *charmap.Charmap
}

// New creates a codec for the named encoding (e.g. "windows-1252").
func New(name string) (*Codec, error) {
	cm, ok := charmaps[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return &Codec{name: strings.ToLower(name), cm: cm}, nil
}

// Name returns the encoding name this codec was created with.
func (c *Codec) Name() string { return c.name }

// Decode converts file-encoded bytes to UTF-8, stopping at the first NUL
// terminator if one is present.
func (c *Codec) Decode(b []byte) (string, error) {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	decoded, err := c.cm.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %v", ErrEncoding, c.name, err)
	}
	// The charmap decoder substitutes U+FFFD for unmapped bytes instead of
	// failing; strict decoding treats that as an error.
	if bytes.ContainsRune(decoded, '�') {
		return "", fmt.Errorf("%w: byte sequence not valid %s", ErrEncoding, c.name)
	}
	return string(decoded), nil
}

// Encode converts UTF-8 text to the file encoding. No terminator is
// appended; terminators live outside the translatable spans.
func (c *Codec) Encode(s string) ([]byte, error) {
	encoded, err := c.cm.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q not representable in %s", ErrEncoding, s, c.name)
	}
	return encoded, nil
}
