package qrcode

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/devtoolshub/devtools-hub/internal/testutil"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := (&QRCodeTool{}).Execute(testutil.CreateTestContext(), testutil.CreateTestLogger(), testutil.CreateTestCache(), args)
	require.NoError(t, err)
	return result
}

func TestQRCodeTool_PNG(t *testing.T) {
	result := execute(t, map[string]any{"text": "https://example.com", "size": float64(128)})
	require.False(t, result.IsError)

	data, mimeType := testutil.ResultBinary(t, result)
	assert.Equal(t, "image/png", mimeType)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Contains(t, testutil.ResultText(t, result), "modules")
}

func TestQRCodeTool_TextFormats(t *testing.T) {
	svg := testutil.ResultText(t, execute(t, map[string]any{"text": "hi", "format": "svg", "margin": float64(0)}))
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, `viewBox="0 0 21 21"`)

	url := testutil.ResultText(t, execute(t, map[string]any{"text": "hi", "format": "data-url"}))
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	term := testutil.ResultText(t, execute(t, map[string]any{"format": "terminal"}))
	assert.Contains(t, term, "█")
}

func TestQRCodeTool_Errors(t *testing.T) {
	result := execute(t, map[string]any{"text": strings.Repeat("x", 3000)})
	assert.True(t, result.IsError)
	assert.Contains(t, testutil.ResultText(t, result), "Error: text is too long")

	result = execute(t, map[string]any{"foreground": "blue"})
	assert.True(t, result.IsError)

	_, err := (&QRCodeTool{}).Execute(testutil.CreateTestContext(), testutil.CreateTestLogger(), nil, map[string]any{"size": "big"})
	assert.Error(t, err)
}
