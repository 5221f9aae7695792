package espenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	codec, err := New("windows-1252")
	require.NoError(t, err)
	assert.Equal(t, "windows-1252", codec.Name())

	codec, err = New("Windows-1251")
	require.NoError(t, err)
	assert.Equal(t, "windows-1251", codec.Name())
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New("utf-8")
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	codec, err := New("windows-1252")
	require.NoError(t, err)

	s, err := codec.Decode([]byte("plain text"))
	require.NoError(t, err)
	assert.Equal(t, "plain text", s)

	// 0xE9 is é in Windows-1252.
	s, err = codec.Decode([]byte{'c', 'a', 'f', 0xE9})
	require.NoError(t, err)
	assert.Equal(t, "café", s)
}

func TestDecode_StopsAtNUL(t *testing.T) {
	codec, err := New("windows-1252")
	require.NoError(t, err)

	s, err := codec.Decode([]byte{'a', 'b', 0, 'c', 'd'})
	require.NoError(t, err)
	assert.Equal(t, "ab", s)
}

func TestDecode_InvalidByte(t *testing.T) {
	codec, err := New("windows-1252")
	require.NoError(t, err)

	// 0x81 has no assignment in Windows-1252.
	_, err = codec.Decode([]byte{'a', 0x81})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestEncode(t *testing.T) {
	codec, err := New("windows-1252")
	require.NoError(t, err)

	b, err := codec.Encode("café")
	require.NoError(t, err)
	assert.Equal(t, []byte{'c', 'a', 'f', 0xE9}, b)
}

func TestEncode_Unrepresentable(t *testing.T) {
	codec, err := New("windows-1252")
	require.NoError(t, err)

	_, err = codec.Encode("日本語")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestRoundTrip(t *testing.T) {
	codec, err := New("windows-1251")
	require.NoError(t, err)

	original := "Привет, мир"
	b, err := codec.Encode(original)
	require.NoError(t, err)
	s, err := codec.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, original, s)
}
