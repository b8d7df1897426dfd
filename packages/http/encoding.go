package http

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncoding is used when no encoding name is given.
const DefaultEncoding = "utf8"

// Encoding turns captured body bytes into text for the text predicates.
// The zero value decodes UTF-8.
type Encoding struct {
	name   string
	decode func([]byte) string
}

// ParseEncoding resolves an encoding name. Besides the names below it accepts
// any WHATWG label such as "shift_jis" or "windows-1252".
func ParseEncoding(name string) (Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "", "utf8", "utf-8":
		return Encoding{name: DefaultEncoding, decode: decoderFor(unicode.UTF8)}, nil
	case "ascii", "latin1", "binary":
		return Encoding{name: key, decode: decoderFor(charmap.ISO8859_1)}, nil
	case "ucs2", "ucs-2", "utf16le", "utf-16le":
		return Encoding{name: "utf16le", decode: decoderFor(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM))}, nil
	case "hex":
		return Encoding{name: key, decode: hex.EncodeToString}, nil
	case "base64":
		return Encoding{name: key, decode: base64.StdEncoding.EncodeToString}, nil
	}

	enc, err := htmlindex.Get(key)
	if err != nil {
		return Encoding{}, fmt.Errorf("unknown encoding %q", name)
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical = key
	}
	return Encoding{name: canonical, decode: decoderFor(enc)}, nil
}

// MustEncoding is like ParseEncoding but panics on an unknown name.
func MustEncoding(name string) Encoding {
	enc, err := ParseEncoding(name)
	if err != nil {
		panic(err)
	}
	return enc
}

func (e Encoding) Name() string {
	if e.name == "" {
		return DefaultEncoding
	}
	return e.name
}

// Decode converts b to a string. Bytes the charset cannot represent become
// U+FFFD.
func (e Encoding) Decode(b []byte) string {
	if e.decode == nil {
		return decoderFor(unicode.UTF8)(b)
	}
	return e.decode(b)
}

func decoderFor(enc encoding.Encoding) func([]byte) string {
	return func(b []byte) string {
		out, err := enc.NewDecoder().Bytes(b)
		if err != nil {
			return strings.ToValidUTF8(string(b), "\uFFFD")
		}
		return string(out)
	}
}
