package codec

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var base64Shape = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)

// EncodeBase64 encodes the UTF-8 bytes of text. The text is not trimmed so that
// DecodeBase64(EncodeBase64(t)) == t for every t.
func EncodeBase64(text string, urlSafe bool) string {
	if urlSafe {
		return base64.RawURLEncoding.EncodeToString([]byte(text))
	}
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// DecodeBase64 decodes standard or URL-safe Base64, padded or not. Whitespace anywhere
// in the input is ignored. Payloads that are not valid UTF-8 are read as ISO-8859-1,
// one character per byte.
func DecodeBase64(text string) (string, error) {
	raw, err := decodeBase64Bytes(text)
	if err != nil {
		return "", err
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	latin1, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", ErrInvalidBase64
	}
	return string(latin1), nil
}

func decodeBase64Bytes(text string) ([]byte, error) {
	s := stripSpace(text)
	if s == "" {
		return []byte{}, nil
	}
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	for _, enc := range encodings {
		if out, err := enc.DecodeString(s); err == nil {
			return out, nil
		}
	}
	return nil, ErrInvalidBase64
}

// IsBase64 is the strict test used by the detector: padded standard alphabet whose
// payload is printable UTF-8 text
func IsBase64(input string) bool {
	s := stripSpace(input)
	if len(s) < 4 || len(s)%4 != 0 || !base64Shape.MatchString(s) {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(raw) == 0 || !utf8.Valid(raw) {
		return false
	}
	for _, r := range string(raw) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
