package morsecode

import (
	"testing"

	"github.com/devtoolshub/devtools-hub/internal/testutil"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := (&MorseCodeTool{}).Execute(testutil.CreateTestContext(), testutil.CreateTestLogger(), testutil.CreateTestCache(), args)
	require.NoError(t, err)
	return result
}

func TestMorseCodeTool_Translate(t *testing.T) {
	assert.Equal(t, "... --- ...", testutil.ResultText(t, execute(t, map[string]any{"input": "sos"})))
	assert.Equal(t, "HI THERE", testutil.ResultText(t, execute(t, map[string]any{"input": ".... .. / - .... . .-. ."})))
	assert.Equal(t, "... --- ...", testutil.ResultText(t, execute(t, map[string]any{"input": "SOS", "mode": "encode"})))
}

func TestMorseCodeTool_Audio(t *testing.T) {
	result := execute(t, map[string]any{"input": "E", "audio": true, "wpm": float64(20)})
	require.Len(t, result.Content, 3)
	assert.Equal(t, ".", testutil.ResultText(t, result))

	wav, mimeType := testutil.ResultBinary(t, result)
	assert.Equal(t, "audio/wav", mimeType)
	// one 60ms dot at 8kHz, 16-bit mono, after a 44 byte header
	assert.Len(t, wav, 44+960)
	assert.Equal(t, "RIFF", string(wav[:4]))

	summary, ok := result.Content[2].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, summary.Text, "1 elements")
	assert.Contains(t, summary.Text, "60ms")
}

func TestMorseCodeTool_AudioOfDecodedInputUsesTheCode(t *testing.T) {
	result := execute(t, map[string]any{"input": ".", "audio": true})
	assert.Equal(t, "E", testutil.ResultText(t, result))
	wav, _ := testutil.ResultBinary(t, result)
	assert.Len(t, wav, 44+960)
}

func TestMorseCodeTool_AudioWithoutSymbols(t *testing.T) {
	result := execute(t, map[string]any{"input": "#", "mode": "encode", "audio": true})
	assert.True(t, result.IsError)
	assert.Contains(t, testutil.ResultText(t, result), "Error: failed to render audio")
}

func TestMorseCodeTool_BadParameters(t *testing.T) {
	tool := &MorseCodeTool{}
	ctx, logger := testutil.CreateTestContext(), testutil.CreateTestLogger()

	for _, args := range []map[string]any{
		{},
		{"input": "sos", "mode": "sideways"},
		{"input": "sos", "wpm": float64(500)},
		{"input": "sos", "frequency": float64(20)},
	} {
		_, err := tool.Execute(ctx, logger, nil, args)
		assert.Error(t, err, args)
	}
}
