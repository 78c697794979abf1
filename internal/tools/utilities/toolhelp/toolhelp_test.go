package toolhelp

import (
	"encoding/json"
	"testing"

	"github.com/devtoolshub/devtools-hub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggest(t *testing.T) {
	names := []string{"base64", "json_format", "jwt", "morse_code"}

	got := suggest("jsonformat", names)
	require.NotEmpty(t, got)
	assert.Equal(t, "json_format", got[0])

	assert.Empty(t, suggest("", names))
	assert.Empty(t, suggest("zzz", names))
}

func TestWebPages(t *testing.T) {
	assert.Equal(t, []string{"/json-format", "/json-format-vertical"}, webPages("json_format"))
	assert.Empty(t, webPages("get_tool_help"))
}

func TestToolHelpTool_UnknownTool(t *testing.T) {
	result, err := (&ToolHelpTool{}).Execute(testutil.CreateTestContext(), testutil.CreateTestLogger(), nil,
		map[string]any{"tool_name": "does_not_exist"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, testutil.ResultText(t, result), "not found")
}

func TestToolHelpTool_MissingName(t *testing.T) {
	_, err := (&ToolHelpTool{}).Execute(testutil.CreateTestContext(), testutil.CreateTestLogger(), nil, map[string]any{})
	assert.Error(t, err)
}

func TestToolHelpResponse_JSON(t *testing.T) {
	out, err := json.Marshal(ToolHelpResponse{ToolName: "jwt", Description: "d"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tool_name":"jwt","description":"d"}`, string(out))
}
