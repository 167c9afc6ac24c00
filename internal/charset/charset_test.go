package charset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ErikKalkoken/clientlogging/internal/charset"
)

func TestFromContentType(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"application/json; charset=UTF-8", "UTF-8"},
		{"text/plain; charset=iso-8859-1", "iso-8859-1"},
		{"text/plain", ""},
		{"", ""},
		{";;;", ""},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, charset.FromContentType(tc.in))
		})
	}
}

func TestDecode(t *testing.T) {
	t.Run("should decode UTF-8 by default", func(t *testing.T) {
		got, err := charset.Decode([]byte("grüße"), "")
		if assert.NoError(t, err) {
			assert.Equal(t, "grüße", got)
		}
	})
	t.Run("should decode latin1", func(t *testing.T) {
		got, err := charset.Decode([]byte{'g', 'r', 0xfc, 0xdf, 'e'}, "iso-8859-1")
		if assert.NoError(t, err) {
			assert.Equal(t, "grüße", got)
		}
	})
	t.Run("should fall back to UTF-8 for unknown charsets", func(t *testing.T) {
		got, err := charset.Decode([]byte("alpha"), "no-such-charset")
		if assert.NoError(t, err) {
			assert.Equal(t, "alpha", got)
		}
	})
	t.Run("should report binary payloads", func(t *testing.T) {
		_, err := charset.Decode([]byte{0x89, 'P', 'N', 'G', 0xff, 0xfe}, "utf-8")
		assert.ErrorIs(t, err, charset.ErrNotText)
	})
	t.Run("should decode empty body", func(t *testing.T) {
		got, err := charset.Decode(nil, "")
		if assert.NoError(t, err) {
			assert.Equal(t, "", got)
		}
	})
}

func TestTrimPartialRune(t *testing.T) {
	t.Run("should remove cut off rune", func(t *testing.T) {
		b := []byte("aü")
		assert.Equal(t, []byte("a"), charset.TrimPartialRune(b[:2]))
	})
	t.Run("should keep complete text", func(t *testing.T) {
		assert.Equal(t, []byte("aü"), charset.TrimPartialRune([]byte("aü")))
	})
	t.Run("should keep ascii", func(t *testing.T) {
		assert.Equal(t, []byte("abc"), charset.TrimPartialRune([]byte("abc")))
	})
	t.Run("should handle empty input", func(t *testing.T) {
		assert.Empty(t, charset.TrimPartialRune(nil))
	})
}

func TestIsUTF8(t *testing.T) {
	assert.True(t, charset.IsUTF8(""))
	assert.True(t, charset.IsUTF8("UTF-8"))
	assert.True(t, charset.IsUTF8("utf8"))
	assert.True(t, charset.IsUTF8("no-such-charset"))
	assert.False(t, charset.IsUTF8("iso-8859-1"))
}
