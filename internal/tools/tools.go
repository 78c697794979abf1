// Package tools defines the contract between the MCP server and the conversion tools.
// Bad parameters are returned as errors; malformed input to convert is a successful
// call whose result has IsError set (see ConversionError).
package tools

import (
	"context"

	"github.com/devtoolshub/devtools-hub/internal/cache"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// Tool is one MCP tool
type Tool interface {
	// Definition is the schema advertised to clients
	Definition() mcp.Tool

	// Execute runs the tool with decoded arguments. cache is shared by every tool.
	Execute(ctx context.Context, logger *logrus.Logger, cache *cache.Cache, args map[string]any) (*mcp.CallToolResult, error)
}

// ExtendedHelpProvider is implemented by tools that get_tool_help can describe
type ExtendedHelpProvider interface {
	ProvideExtendedInfo() *ExtendedHelp
}

// HistoryRecorder is implemented by tools whose successful results are saved to the
// caller's conversion history. HistoryInput returns the input to store for args.
type HistoryRecorder interface {
	HistoryInput(args map[string]any) string
}

// ExtendedHelp is the document get_tool_help returns
type ExtendedHelp struct {
	Examples         []ToolExample        `json:"examples,omitempty"`
	CommonPatterns   []string             `json:"common_patterns,omitempty"`
	Troubleshooting  []TroubleshootingTip `json:"troubleshooting,omitempty"`
	ParameterDetails map[string]string    `json:"parameter_details,omitempty"`
	WhenToUse        string               `json:"when_to_use,omitempty"`
	WhenNotToUse     string               `json:"when_not_to_use,omitempty"`
}

// ToolExample is one sample call
type ToolExample struct {
	Description    string         `json:"description"`
	Arguments      map[string]any `json:"arguments"`
	ExpectedResult string         `json:"expected_result,omitempty"`
}

// TroubleshootingTip pairs a common failure with its fix
type TroubleshootingTip struct {
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
}
