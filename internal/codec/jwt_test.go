package codec_test

import (
	"testing"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSecret = "your-256-bit-secret"

func TestDecodeJWT(t *testing.T) {
	parts, err := codec.DecodeJWT(sampleJWT)
	require.NoError(t, err)

	assert.Equal(t, "{\n  \"alg\": \"HS256\",\n  \"typ\": \"JWT\"\n}", parts.Header)
	assert.Equal(t, "{\n  \"sub\": \"1234567890\",\n  \"name\": \"John Doe\",\n  \"iat\": 1516239022\n}", parts.Payload)
	assert.Equal(t, "SflKxwRJSMeKKF2QT4fwpMeJf36POk6yJV_adQssw5c", parts.Signature)
	assert.Equal(t, "HS256", parts.Algorithm)
	assert.Equal(t, "JWT", parts.Type)
	require.Len(t, parts.Times, 1)
	assert.Equal(t, "iat", parts.Times[0].Claim)
	assert.Equal(t, time.Date(2018, 1, 18, 1, 30, 22, 0, time.UTC), parts.Times[0].Time)
}

func TestDecodeJWT_BearerPrefix(t *testing.T) {
	parts, err := codec.DecodeJWT("Bearer " + sampleJWT)
	require.NoError(t, err)
	assert.Equal(t, "HS256", parts.Algorithm)
}

func TestDecodeJWT_Invalid(t *testing.T) {
	inputs := []string{
		"only.two",
		"a.b.c.d",
		"." + "eyJhIjoxfQ" + ".sig",
		"bm90IGpzb24.eyJhIjoxfQ.sig",
		"eyJhIjoxfQ.***.sig",
	}
	for _, in := range inputs {
		_, err := codec.DecodeJWT(in)
		assert.ErrorIs(t, err, codec.ErrInvalidJWT, in)
	}
}

func TestVerifyHS256(t *testing.T) {
	ok, err := codec.VerifyHS256(sampleJWT, sampleSecret)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = codec.VerifyHS256(sampleJWT, "wrong secret")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = codec.VerifyHS256(sampleJWT, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyHS256_TamperedPayload(t *testing.T) {
	token, err := codec.SignHS256("", `{"sub":"alice","admin":false}`, sampleSecret)
	require.NoError(t, err)

	forged, err := codec.SignHS256("", `{"sub":"alice","admin":true}`, "attacker")
	require.NoError(t, err)

	// splice the forged payload onto the genuine signature
	genuine := splitToken(token)
	fake := splitToken(forged)
	ok, err := codec.VerifyHS256(genuine[0]+"."+fake[1]+"."+genuine[2], sampleSecret)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignHS256_RoundTrip(t *testing.T) {
	token, err := codec.SignHS256(`{"alg": "HS256", "typ": "JWT"}`, `{"sub": "1234567890", "name": "John Doe", "iat": 1516239022}`, sampleSecret)
	require.NoError(t, err)
	// compacting the inputs reproduces the well known example token byte for byte
	assert.Equal(t, sampleJWT, token)

	ok, err := codec.VerifyHS256(token, sampleSecret)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignHS256_Rejects(t *testing.T) {
	_, err := codec.SignHS256(`{"alg":"RS256"}`, `{}`, sampleSecret)
	assert.Error(t, err)

	_, err = codec.SignHS256(`[1]`, `{}`, sampleSecret)
	assert.Error(t, err)

	_, err = codec.SignHS256("", `{not json`, sampleSecret)
	assert.ErrorIs(t, err, codec.ErrInvalidJSON)
}

func TestIsJWT(t *testing.T) {
	assert.True(t, codec.IsJWT(sampleJWT))
	assert.False(t, codec.IsJWT("a.b.c"))
	assert.False(t, codec.IsJWT("www.example.com"))
	assert.False(t, codec.IsJWT(".."))
}

func splitToken(token string) [3]string {
	var out [3]string
	start, n := 0, 0
	for i := 0; i < len(token) && n < 2; i++ {
		if token[i] == '.' {
			out[n] = token[start:i]
			start = i + 1
			n++
		}
	}
	out[2] = token[start:]
	return out
}
