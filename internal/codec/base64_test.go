package codec_test

import (
	"testing"

	"github.com/devtoolshub/devtools-hub/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase64_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"hello world",
		"  leading and trailing spaces  ",
		"ünïcödé ✓ 日本語",
		"line one\nline two\n",
		"\x00\x01 binary-ish",
	}
	for _, in := range inputs {
		for _, urlSafe := range []bool{false, true} {
			out, err := codec.DecodeBase64(codec.EncodeBase64(in, urlSafe))
			require.NoError(t, err)
			assert.Equal(t, in, out)
		}
	}
}

func TestEncodeBase64(t *testing.T) {
	assert.Equal(t, "aGVsbG8gd29ybGQ=", codec.EncodeBase64("hello world", false))
	assert.Equal(t, "Pz8-", codec.EncodeBase64("??>", true))
	assert.Equal(t, "", codec.EncodeBase64("", false))
}

func TestDecodeBase64_Variants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"padded", "aGVsbG8=", "hello"},
		{"unpadded", "aGVsbG8", "hello"},
		{"url safe", "Pz8-", "??>"},
		{"wrapped lines", "aGVs\nbG8g\r\nd29y bGQ=", "hello world"},
		{"latin-1 fallback", "6Q==", "é"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.DecodeBase64(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeBase64_Invalid(t *testing.T) {
	_, err := codec.DecodeBase64("not*base64!")
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrInvalidBase64)
	assert.Equal(t, "Error: Invalid Base64 input!", codec.ErrorText(err))
}

func TestIsBase64(t *testing.T) {
	assert.True(t, codec.IsBase64("aGVsbG8gd29ybGQ="))
	assert.True(t, codec.IsBase64("dGVzdA=="))
	// unpadded and URL-safe forms decode fine but are too ambiguous to detect
	assert.False(t, codec.IsBase64("dGVzdA"))
	assert.False(t, codec.IsBase64("Pz8-"))
	// four letters is valid base64 but decodes to binary noise
	assert.False(t, codec.IsBase64("abcd"))
	assert.False(t, codec.IsBase64(""))
}
