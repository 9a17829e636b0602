package composer

import (
	"html"
	"net/url"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// DecodeValue normalizes a composed or submitted value: percent-decoding in charset
// ("+" is a space), then, when the result may hold an HTML entity, one unescaping pass.
// A value that cannot be decoded is kept raw.
func DecodeValue(value, charset string) string {
	decoded, ok := unescape(value, charset)
	if !ok {
		decoded = value
	}
	return unescapeEntities(decoded)
}

// DecodeAction normalizes a target path the way DecodeValue normalizes values,
// except that "+" is a literal in paths.
func DecodeAction(action string) string {
	decoded, err := url.PathUnescape(action)
	if err != nil {
		decoded = action
	}
	return unescapeEntities(decoded)
}

func unescapeEntities(s string) string {
	if strings.Contains(s, "&") {
		return html.UnescapeString(s)
	}
	return s
}

// unescape percent-decodes a query value. Escaped bytes are read in charset, literal
// characters are already text and pass through. Unknown charsets and broken escapes fail.
func unescape(value, charset string) (string, bool) {
	if isUTF8(charset) {
		decoded, err := url.QueryUnescape(value)
		return decoded, err == nil
	}
	if !strings.ContainsAny(value, "%+") {
		return value, true
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", false
	}

	var (
		b   strings.Builder
		run []byte
	)
	flush := func() bool {
		if len(run) == 0 {
			return true
		}
		out, err := enc.NewDecoder().Bytes(run)
		if err != nil {
			return false
		}
		b.Write(out)
		run = run[:0]
		return true
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '%' {
			if i+2 >= len(value) {
				return "", false
			}
			hi, ok1 := unhex(value[i+1])
			lo, ok2 := unhex(value[i+2])
			if !ok1 || !ok2 {
				return "", false
			}
			run = append(run, hi<<4|lo)
			i += 2
			continue
		}
		if !flush() {
			return "", false
		}
		if c == '+' {
			c = ' '
		}
		b.WriteByte(c)
	}
	if !flush() {
		return "", false
	}
	return b.String(), true
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func isUTF8(charset string) bool {
	switch strings.ToLower(strings.ReplaceAll(charset, "_", "-")) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}
