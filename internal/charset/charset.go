// Package charset decodes captured HTTP bodies into text.
package charset

import (
	"errors"
	"fmt"
	"mime"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

const defaultName = "utf-8"

// ErrNotText is returned when a body can not be decoded as text.
var ErrNotText = errors.New("charset: body is not text")

// FromContentType returns the charset parameter of a Content-Type header value.
// It returns an empty string when there is none or the value can not be parsed.
func FromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// lookup returns the encoding for a charset name and its canonical name.
// An empty or unknown name resolves to UTF-8.
func lookup(name string) (encoding.Encoding, string) {
	if name != "" {
		if enc, err := htmlindex.Get(name); err == nil {
			if canonical, err := htmlindex.Name(enc); err == nil {
				return enc, canonical
			}
			return enc, name
		}
	}
	return unicode.UTF8, defaultName
}

// IsUTF8 reports whether a charset name resolves to UTF-8.
func IsUTF8(name string) bool {
	_, canonical := lookup(name)
	return canonical == defaultName
}

// Decode returns b decoded as text in the named charset.
// An empty or unknown name falls back to UTF-8.
func Decode(b []byte, name string) (string, error) {
	enc, canonical := lookup(name)
	if canonical == defaultName {
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%w: invalid %s", ErrNotText, canonical)
		}
		return string(b), nil
	}
	s, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrNotText, canonical, err)
	}
	return string(s), nil
}

// TrimPartialRune removes an incomplete UTF-8 sequence from the end of b,
// e.g. after a body was cut off at a size limit.
func TrimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		start := len(b) - i
		if !utf8.RuneStart(b[start]) {
			continue
		}
		if !utf8.FullRune(b[start:]) {
			return b[:start]
		}
		return b
	}
	return b
}
