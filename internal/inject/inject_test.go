package inject

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esp-translator/internal/classify"
	"esp-translator/internal/esp"
	"esp-translator/internal/esp/esptest"
	"esp-translator/internal/espenc"
	"esp-translator/internal/extract"
	"esp-translator/internal/interchange"
)

func fixtureImage() []byte {
	return esptest.Image(
		esptest.Record("BOOK",
			esptest.Sub("NAME", esptest.Text("bk_guide")),
			esptest.Sub("FNAM", esptest.Text("Guide to Vvardenfell")),
			esptest.Sub("TEXT", esptest.Text("The island is dangerous.")),
		),
		esptest.Record("INFO",
			esptest.Sub("INAM", esptest.Text("1234567890123456789")),
			esptest.Sub("NAME", esptest.Text("Greetings, %PCName. Welcome.")),
		),
		esptest.Record("STAT",
			esptest.Sub("NAME", esptest.Text("rock_01")),
			esptest.Sub("DATA", []byte{1, 2, 3, 4}),
		),
	)
}

func newDeps(t *testing.T) (*classify.Classifier, *espenc.Codec) {
	t.Helper()
	codec, err := espenc.New("windows-1252")
	require.NoError(t, err)
	return classify.New(classify.DefaultRules(), codec), codec
}

// extractRows runs a real extraction pass so the tests exercise the same
// identifiers injection will regenerate.
func extractRows(t *testing.T, image []byte, cls *classify.Classifier, codec *espenc.Codec) []interchange.Row {
	t.Helper()
	f, err := esp.Decode(image)
	require.NoError(t, err)
	rows, err := extract.Run(context.Background(), f, cls, codec, extract.Options{Workers: 1})
	require.NoError(t, err)
	return rows
}

func TestRun_Idempotence(t *testing.T) {
	image := fixtureImage()
	cls, codec := newDeps(t)

	rows := extractRows(t, image, cls, codec)
	for i := range rows {
		rows[i].TranslatedText = rows[i].OriginalText
	}

	f, err := esp.Decode(image)
	require.NoError(t, err)
	_, problems, err := Run(f, rows, cls, codec)
	require.NoError(t, err)
	assert.Empty(t, problems)
	assert.Equal(t, image, f.Encode())
}

func TestRun_Translates(t *testing.T) {
	image := fixtureImage()
	cls, codec := newDeps(t)

	rows := extractRows(t, image, cls, codec)
	translations := map[string]string{
		"BOOK|bk_guide|FNAM|0": "Guide de Vvardenfell",
		"BOOK|bk_guide|TEXT|0": "L'île est très dangereuse.",
	}
	for i := range rows {
		if tr, ok := translations[rows[i].ID]; ok {
			rows[i].TranslatedText = tr
		} else {
			rows[i].TranslatedText = rows[i].OriginalText
		}
	}

	f, err := esp.Decode(image)
	require.NoError(t, err)
	stats, problems, err := Run(f, rows, cls, codec)
	require.NoError(t, err)
	assert.Empty(t, problems)
	assert.Equal(t, 2, stats.Injected)

	// The output must decode under the same decoder and carry the
	// translated text at the same identifiers.
	out, err := esp.Decode(f.Encode())
	require.NoError(t, err)
	outRows, err := extract.Run(context.Background(), out, cls, codec, extract.Options{Workers: 1})
	require.NoError(t, err)

	byID := make(map[string]string)
	for _, row := range outRows {
		byID[row.ID] = row.OriginalText
	}
	assert.Equal(t, "Guide de Vvardenfell", byID["BOOK|bk_guide|FNAM|0"])
	assert.Equal(t, "L'île est très dangereuse.", byID["BOOK|bk_guide|TEXT|0"])
}

func TestRun_CRLFProseSurvivesTableRoundTrip(t *testing.T) {
	// Multi-line book text uses CRLF line endings; injecting a table
	// that went through CSV serialization must still match the spans
	// and reproduce the file exactly when translations equal originals.
	image := esptest.Image(
		esptest.Record("BOOK",
			esptest.Sub("NAME", esptest.Text("bk_journal")),
			esptest.Sub("TEXT", esptest.Text("Day one.\r\nDay two.\r\nDay three.")),
		),
	)
	cls, codec := newDeps(t)

	rows := extractRows(t, image, cls, codec)
	require.Len(t, rows, 1)
	assert.Equal(t, "Day one.\r\nDay two.\r\nDay three.", rows[0].OriginalText)
	for i := range rows {
		rows[i].TranslatedText = rows[i].OriginalText
	}

	var buf bytes.Buffer
	require.NoError(t, interchange.WriteAll(&buf, rows))
	parsed, err := interchange.ReadAll(&buf)
	require.NoError(t, err)

	f, err := esp.Decode(image)
	require.NoError(t, err)
	stats, problems, err := Run(f, parsed, cls, codec)
	require.NoError(t, err)
	assert.Empty(t, problems)
	assert.Equal(t, 0, stats.Injected)
	assert.Equal(t, image, f.Encode())
}

func TestRun_LengthPropagation(t *testing.T) {
	image := fixtureImage()
	cls, codec := newDeps(t)

	rows := []interchange.Row{{
		ID:             "BOOK|bk_guide|TEXT|0",
		OriginalText:   "The island is dangerous.",
		TranslatedText: "The island is dangerous, and considerably more verbose in translation.",
	}}

	f, err := esp.Decode(image)
	require.NoError(t, err)
	originalSize := f.Records[0].Size

	_, problems, err := Run(f, rows, cls, codec)
	require.NoError(t, err)
	require.Empty(t, problems)

	book := f.Records[0]
	text := book.Find("TEXT")
	assert.Equal(t, uint32(len(text.Data)), text.Size)
	grown := len("The island is dangerous, and considerably more verbose in translation.") - len("The island is dangerous.")
	assert.Equal(t, originalSize+uint32(grown), book.Size)

	reencoded := f.Encode()
	assert.NotEqual(t, len(image), len(reencoded))
	_, err = esp.Decode(reencoded)
	require.NoError(t, err)
}

func TestRun_SelectiveInjection(t *testing.T) {
	image := fixtureImage()
	cls, codec := newDeps(t)

	// Only one row supplied; every other span must stay untouched and
	// the run must succeed.
	rows := []interchange.Row{{
		ID:             "BOOK|bk_guide|FNAM|0",
		OriginalText:   "Guide to Vvardenfell",
		TranslatedText: "Guide to Vvardenfell, Revised",
	}}

	f, err := esp.Decode(image)
	require.NoError(t, err)
	stats, problems, err := Run(f, rows, cls, codec)
	require.NoError(t, err)
	assert.Empty(t, problems)
	assert.Equal(t, 1, stats.Injected)

	out, err := esp.Decode(f.Encode())
	require.NoError(t, err)
	assert.Equal(t, esptest.Text("The island is dangerous."), out.Records[0].Find("TEXT").Data)
}

func TestRun_MissingTranslation(t *testing.T) {
	image := fixtureImage()
	cls, codec := newDeps(t)

	rows := []interchange.Row{{
		ID:           "BOOK|bk_guide|FNAM|0",
		OriginalText: "Guide to Vvardenfell",
	}}

	f, err := esp.Decode(image)
	require.NoError(t, err)
	_, problems, err := Run(f, rows, cls, codec)
	require.NoError(t, err)

	require.Len(t, problems, 1)
	assert.Equal(t, MissingTranslation, problems[0].Kind)
	assert.Equal(t, "BOOK|bk_guide|FNAM|0", problems[0].ID)
}

func TestRun_UnmatchedRow(t *testing.T) {
	image := fixtureImage()
	cls, codec := newDeps(t)

	rows := []interchange.Row{{
		ID:             "BOOK|bk_gone|FNAM|0",
		OriginalText:   "A deleted book",
		TranslatedText: "Un livre supprimé",
	}}

	f, err := esp.Decode(image)
	require.NoError(t, err)
	_, problems, err := Run(f, rows, cls, codec)
	require.NoError(t, err)

	require.Len(t, problems, 1)
	assert.Equal(t, UnmatchedRow, problems[0].Kind)
	assert.Equal(t, "BOOK|bk_gone|FNAM|0", problems[0].ID)
}

func TestRun_ProblemsAreAllCollected(t *testing.T) {
	image := fixtureImage()
	cls, codec := newDeps(t)

	rows := []interchange.Row{
		{ID: "BOOK|bk_guide|FNAM|0", OriginalText: "Guide to Vvardenfell"},
		{ID: "BOOK|bk_gone|FNAM|0", OriginalText: "x", TranslatedText: "y"},
		{ID: "GMST|nope|STRV|0", OriginalText: "x", TranslatedText: "y"},
	}

	f, err := esp.Decode(image)
	require.NoError(t, err)
	_, problems, err := Run(f, rows, cls, codec)
	require.NoError(t, err)

	require.Len(t, problems, 3)
	assert.Equal(t, "injection found 3 problems", problems.Error())
}

func TestRun_OriginalTextMismatch(t *testing.T) {
	image := fixtureImage()
	cls, codec := newDeps(t)

	// The table was made from an older file revision; the span must be
	// left alone rather than blindly overwritten.
	rows := []interchange.Row{{
		ID:             "BOOK|bk_guide|FNAM|0",
		OriginalText:   "Guide to Vvardenfell, First Edition",
		TranslatedText: "Guide de Vvardenfell",
	}}

	f, err := esp.Decode(image)
	require.NoError(t, err)
	stats, problems, err := Run(f, rows, cls, codec)
	require.NoError(t, err)
	assert.Empty(t, problems)
	assert.Equal(t, 0, stats.Injected)
	assert.Equal(t, image, f.Encode())
}

func TestRun_EncodingFailureAborts(t *testing.T) {
	image := fixtureImage()
	cls, codec := newDeps(t)

	rows := []interchange.Row{{
		ID:             "BOOK|bk_guide|FNAM|0",
		OriginalText:   "Guide to Vvardenfell",
		TranslatedText: "ヴァーデンフェル案内",
	}}

	f, err := esp.Decode(image)
	require.NoError(t, err)
	_, _, err = Run(f, rows, cls, codec)
	require.Error(t, err)
	assert.ErrorIs(t, err, espenc.ErrEncoding)
}

func TestRun_PlaceholderSurvivesInjection(t *testing.T) {
	image := fixtureImage()
	cls, codec := newDeps(t)

	rows := []interchange.Row{
		{ID: "INFO|Greetings, %PCName. Welcome.|NAME|0", OriginalText: "Greetings, ", TranslatedText: "Salutations, "},
		{ID: "INFO|Greetings, %PCName. Welcome.|NAME|1", OriginalText: ". Welcome.", TranslatedText: ". Bienvenue."},
	}

	f, err := esp.Decode(image)
	require.NoError(t, err)
	_, problems, err := Run(f, rows, cls, codec)
	require.NoError(t, err)
	require.Empty(t, problems)

	out, err := esp.Decode(f.Encode())
	require.NoError(t, err)
	name := out.Records[1].Find("NAME")
	assert.Equal(t, esptest.Text("Salutations, %PCName. Bienvenue."), name.Data)
}
