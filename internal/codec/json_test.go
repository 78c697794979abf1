package codec_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/devtoolshub/devtools-hub/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatJSON_PreservesOrderAndNumbers(t *testing.T) {
	out, err := codec.FormatJSON(`{"b":1.50,"a":[true,null],"c":{"z":"<tag>","y":1e3}}`, 2)
	require.NoError(t, err)
	assert.Equal(t, `{
  "b": 1.50,
  "a": [
    true,
    null
  ],
  "c": {
    "z": "<tag>",
    "y": 1e3
  }
}`, out)
}

func TestFormatJSON_DefaultIndentIsFour(t *testing.T) {
	out, err := codec.FormatJSON(`{"a":1}`, 0)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"a\": 1\n}", out)
}

func TestFormatJSON_RoundTripIsDeepEqual(t *testing.T) {
	inputs := []string{
		`{"name":"devtools","tags":["json","php"],"nested":{"n":[1,2,{"x":null}]}}`,
		`[1, "two", 3.25, false]`,
		`"just a string"`,
		`  {"spaces" :   "around"}  `,
	}
	for _, in := range inputs {
		out, err := codec.FormatJSON(in, 4)
		require.NoError(t, err, in)

		var before, after any
		require.NoError(t, json.Unmarshal([]byte(in), &before))
		require.NoError(t, json.Unmarshal([]byte(out), &after))
		assert.Equal(t, before, after, in)
	}
}

func TestFormatJSON_Invalid(t *testing.T) {
	_, err := codec.FormatJSON(`{"a":}`, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, codec.ErrInvalidJSON))

	var syn *codec.SyntaxError
	assert.True(t, errors.As(err, &syn))

	_, err = codec.FormatJSON("", 4)
	assert.ErrorIs(t, err, codec.ErrEmptyInput)
}

func TestCompactJSON(t *testing.T) {
	out, err := codec.CompactJSON("{\n  \"a\": [1, 2],\n  \"b\": \"x y\"\n}")
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,2],"b":"x y"}`, out)
}

func TestQueryJSON(t *testing.T) {
	doc := `{"user":{"name":"Ada","roles":["admin","dev"]}}`

	out, err := codec.QueryJSON(doc, "user.name", 2)
	require.NoError(t, err)
	assert.Equal(t, `"Ada"`, out)

	out, err = codec.QueryJSON(doc, "user.roles", 2)
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"admin\",\n  \"dev\"\n]", out)

	out, err = codec.QueryJSON(doc, "user.roles.#", 2)
	require.NoError(t, err)
	assert.Equal(t, "2", out)

	_, err = codec.QueryJSON(doc, "user.email", 2)
	assert.Error(t, err)
}
