// Package charset converts MIME text parts to UTF-8.
package charset

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// ToUTF8 decodes data labeled with the given charset name into UTF-8.
// Unknown charsets and decode failures fall back to validating the bytes
// as UTF-8 and, failing that, reinterpreting them as Latin-1, so a badly
// labeled part degrades rather than fails.
func ToUTF8(data []byte, name string) string {
	name = strings.ToLower(strings.TrimSpace(name))

	switch name {
	case "", "utf-8", "utf8", "ascii", "us-ascii":
		return validUTF8(data)
	case "latin1", "latin-1", "iso-8859-1":
		return latin1(data)
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		// IANA returns a nil encoding for UTF-8 variants.
		return validUTF8(data)
	}

	decoded, err := decode(enc, data)
	if err != nil {
		return validUTF8(data)
	}
	return decoded
}

func decode(enc encoding.Encoding, data []byte) (string, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// validUTF8 returns the bytes as-is when they are valid UTF-8 and as
// Latin-1 otherwise, which can never fail.
func validUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return latin1(data)
}

func latin1(data []byte) string {
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(out)
}
