package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
		encName  string
	}{
		{name: "", input: []byte("héllo"), expected: "héllo", encName: "utf8"},
		{name: "UTF-8", input: []byte("héllo"), expected: "héllo", encName: "utf8"},
		{name: "utf8", input: []byte{'a', 0xff, 'b'}, expected: "a\uFFFDb", encName: "utf8"},
		{name: "latin1", input: []byte{'c', 'a', 'f', 0xe9}, expected: "café", encName: "latin1"},
		{name: "utf16le", input: []byte{'h', 0, 'i', 0}, expected: "hi", encName: "utf16le"},
		{name: "hex", input: []byte{0xde, 0xad}, expected: "dead", encName: "hex"},
		{name: "base64", input: []byte("hi"), expected: "aGk=", encName: "base64"},
		{name: "windows-1252", input: []byte{0x80}, expected: "€", encName: "windows-1252"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := ParseEncoding(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, enc.Decode(tt.input))
			assert.Equal(t, tt.encName, enc.Name())
		})
	}
}

func TestParseEncoding_Unknown(t *testing.T) {
	_, err := ParseEncoding("not-a-charset")
	assert.ErrorContains(t, err, "unknown encoding")

	assert.Panics(t, func() { MustEncoding("not-a-charset") })
}

func TestEncoding_ZeroValueIsUTF8(t *testing.T) {
	var enc Encoding
	assert.Equal(t, "utf8", enc.Name())
	assert.Equal(t, "ok", enc.Decode([]byte("ok")))
}
