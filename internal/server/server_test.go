package server_test

import (
	"context"
	"errors"
	"testing"

	"github.com/devtoolshub/devtools-hub/internal/history"
	"github.com/devtoolshub/devtools-hub/internal/identity"
	_ "github.com/devtoolshub/devtools-hub/internal/imports"
	"github.com/devtoolshub/devtools-hub/internal/registry"
	"github.com/devtoolshub/devtools-hub/internal/server"
	"github.com/devtoolshub/devtools-hub/internal/testutil"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) {
	t.Helper()
	t.Setenv("DISABLED_TOOLS", "")
	t.Setenv("ENABLE_ADDITIONAL_TOOLS", "")
	registry.Init(testutil.CreateTestLogger())
	t.Cleanup(func() { registry.SetRecorder(nil) })
}

func callTool(t *testing.T, ctx context.Context, name string, args any) (*mcp.CallToolResult, error) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return server.Handler(name, "stdio")(ctx, req)
}

func installRecorder(t *testing.T) *history.Recorder {
	t.Helper()
	logger := testutil.CreateTestLogger()
	store, err := history.Open(history.Options{Backend: history.BackendFile, Dir: t.TempDir()}, logger)
	require.NoError(t, err)
	rec := history.NewRecorder(store, logger)
	registry.SetRecorder(rec)
	return rec
}

func TestNew_RegistersEnabledTools(t *testing.T) {
	setup(t)
	srv := server.New("test", "stdio", testutil.CreateTestLogger())

	listed := srv.ListTools()
	for _, name := range []string{"json_format", "php_serialize", "xml_convert", "base64", "morse_code", "jwt", "qr_code", "auto_convert", "get_tool_help"} {
		assert.Contains(t, listed, name)
	}
	assert.NotContains(t, listed, "conversion_history")
}

func TestNew_HonoursDisabledTools(t *testing.T) {
	setup(t)
	t.Setenv("DISABLED_TOOLS", "qr_code")
	t.Setenv("ENABLE_ADDITIONAL_TOOLS", "conversion_history")
	registry.Init(testutil.CreateTestLogger())

	listed := server.New("test", "http", testutil.CreateTestLogger()).ListTools()
	assert.NotContains(t, listed, "qr_code")
	assert.Contains(t, listed, "conversion_history")
}

func TestHandler_RunsTool(t *testing.T) {
	setup(t)

	result, err := callTool(t, context.Background(), "base64", map[string]any{"input": "hi", "action": "encode"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "aGk=", testutil.ResultText(t, result))
}

func TestHandler_RecordsSuccessfulConversions(t *testing.T) {
	setup(t)
	rec := installRecorder(t)
	ctx := identity.WithIdentity(context.Background(), identity.Static("ada@example.com"))

	_, err := callTool(t, ctx, "base64", map[string]any{"input": "hi", "action": "encode"})
	require.NoError(t, err)

	records, err := rec.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "base64", records[0].Tool)
	assert.Equal(t, "hi", records[0].InputData)
	assert.Equal(t, "aGk=", records[0].OutputData)
}

func TestHandler_SkipsHistoryWithoutIdentity(t *testing.T) {
	setup(t)
	rec := installRecorder(t)

	result, err := callTool(t, context.Background(), "base64", map[string]any{"input": "hi", "action": "encode"})
	require.NoError(t, err)
	assert.Equal(t, "aGk=", testutil.ResultText(t, result))

	ctx := identity.WithIdentity(context.Background(), identity.Static("ada@example.com"))
	records, err := rec.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHandler_ConversionErrorIsResultNotRecorded(t *testing.T) {
	setup(t)
	rec := installRecorder(t)
	ctx := identity.WithIdentity(context.Background(), identity.Static("ada@example.com"))

	result, err := callTool(t, ctx, "json_format", map[string]any{"input": `{"a":}`})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, testutil.ResultText(t, result), "Error: ")

	records, err := rec.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHandler_QRCodeIsNotRecorded(t *testing.T) {
	setup(t)
	rec := installRecorder(t)
	ctx := identity.WithIdentity(context.Background(), identity.Static("ada@example.com"))

	result, err := callTool(t, ctx, "qr_code", map[string]any{"text": "hello", "format": "svg"})
	require.NoError(t, err)
	assert.Contains(t, testutil.ResultText(t, result), "<svg")

	records, err := rec.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHandler_InvalidArguments(t *testing.T) {
	setup(t)

	_, err := callTool(t, context.Background(), "base64", "not a map")
	assert.ErrorContains(t, err, "invalid arguments type")

	_, err = callTool(t, context.Background(), "base64", nil)
	assert.ErrorContains(t, err, "tool execution failed")
}

func TestHandler_UnknownOrGatedTool(t *testing.T) {
	setup(t)

	_, err := callTool(t, context.Background(), "missing_tool", map[string]any{})
	assert.ErrorContains(t, err, "tool not found")

	_, err = callTool(t, context.Background(), "conversion_history", map[string]any{})
	assert.ErrorContains(t, err, "tool not found")
}

func TestHandler_ToolHelp(t *testing.T) {
	setup(t)

	result, err := callTool(t, context.Background(), "get_tool_help", map[string]any{"tool_name": "morse_code"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	text := testutil.ResultText(t, result)
	assert.Contains(t, text, `"tool_name": "morse_code"`)
	assert.Contains(t, text, "morse-code")
}

func TestHandler_ToolFailureAndCustomResult(t *testing.T) {
	setup(t)
	rec := installRecorder(t)
	ctx := identity.WithIdentity(context.Background(), identity.Static("ada@example.com"))

	failing := testutil.NewMockTool("stub_failing").WithError(errors.New("backend down"))
	echo := testutil.NewMockTool("stub_echo").WithResult(mcp.NewToolResultText("pong"))
	registry.Register(failing)
	registry.Register(echo)

	_, err := callTool(t, ctx, "stub_failing", map[string]any{"input": "x"})
	assert.ErrorContains(t, err, "backend down")
	assert.Len(t, failing.Calls(), 1)

	result, err := callTool(t, ctx, "stub_echo", map[string]any{"input": "ping"})
	require.NoError(t, err)
	assert.Equal(t, "pong", testutil.ResultText(t, result))
	assert.Equal(t, "ping", echo.Calls()[0]["input"])

	records, err := rec.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "stub_echo", records[0].Tool)
	assert.Equal(t, "pong", records[0].OutputData)
}
