package jwttoken

import (
	"encoding/json"
	"testing"

	"github.com/devtoolshub/devtools-hub/internal/testutil"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sampleJWT = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." +
		"eyJzdWIiOiIxMjM0NTY3ODkwIiwibmFtZSI6IkpvaG4gRG9lIiwiaWF0IjoxNTE2MjM5MDIyfQ." +
		"SflKxwRJSMeKKF2QT4fwpMeJf36POk6yJV_adQssw5c"
	sampleSecret = "your-256-bit-secret"
)

func execute(t *testing.T, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := (&JWTTool{}).Execute(testutil.CreateTestContext(), testutil.CreateTestLogger(), testutil.CreateTestCache(), args)
	require.NoError(t, err)
	return result
}

func TestJWTTool_Decode(t *testing.T) {
	result := execute(t, map[string]any{"token": "Bearer " + sampleJWT})
	require.False(t, result.IsError)

	var resp struct {
		Header    map[string]any `json:"header"`
		Payload   map[string]any `json:"payload"`
		Algorithm string         `json:"algorithm"`
		Verified  *bool          `json:"signature_valid"`
	}
	require.NoError(t, json.Unmarshal([]byte(testutil.ResultText(t, result)), &resp))
	assert.Equal(t, "HS256", resp.Algorithm)
	assert.Equal(t, "John Doe", resp.Payload["name"])
	assert.Equal(t, "JWT", resp.Header["typ"])
	assert.Nil(t, resp.Verified, "no secret, no verification")
}

func TestJWTTool_Verify(t *testing.T) {
	var resp DecodeResponse
	text := testutil.ResultText(t, execute(t, map[string]any{"token": sampleJWT, "secret": sampleSecret}))
	require.NoError(t, json.Unmarshal([]byte(text), &resp))
	require.NotNil(t, resp.Verified)
	assert.True(t, *resp.Verified)

	text = testutil.ResultText(t, execute(t, map[string]any{"token": sampleJWT, "secret": "wrong"}))
	require.NoError(t, json.Unmarshal([]byte(text), &resp))
	require.NotNil(t, resp.Verified)
	assert.False(t, *resp.Verified)
}

func TestJWTTool_SignReproducesSample(t *testing.T) {
	result := execute(t, map[string]any{
		"action":  "sign",
		"payload": `{"sub":"1234567890","name":"John Doe","iat":1516239022}`,
		"secret":  sampleSecret,
	})
	require.False(t, result.IsError)
	assert.Equal(t, sampleJWT, testutil.ResultText(t, result))
}

func TestJWTTool_Errors(t *testing.T) {
	result := execute(t, map[string]any{"token": "not.a.jwt"})
	assert.True(t, result.IsError)
	assert.Contains(t, testutil.ResultText(t, result), "Error: ")

	result = execute(t, map[string]any{"action": "sign", "payload": `{"a":1}`, "secret": "x", "header": `{"alg":"RS256"}`})
	assert.True(t, result.IsError)

	tool := &JWTTool{}
	ctx, logger := testutil.CreateTestContext(), testutil.CreateTestLogger()
	_, err := tool.Execute(ctx, logger, nil, map[string]any{})
	assert.Error(t, err, "token is required to decode")
	_, err = tool.Execute(ctx, logger, nil, map[string]any{"action": "sign", "payload": "{}"})
	assert.Error(t, err, "secret is required to sign")
}

func TestJWTTool_HistoryInputNeverStoresSecret(t *testing.T) {
	tool := &JWTTool{}
	assert.Equal(t, sampleJWT, tool.HistoryInput(map[string]any{"token": sampleJWT, "secret": "s"}))
	assert.Equal(t, `{"a":1}`, tool.HistoryInput(map[string]any{"action": "sign", "payload": `{"a":1}`, "secret": "s"}))
}
