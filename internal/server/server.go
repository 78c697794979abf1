// Package server exposes the registered tools over MCP. Every call passes through
// Handler, which adds tracing, tool error logging and conversion history.
package server

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/devtoolshub/devtools-hub/internal/config"
	"github.com/devtoolshub/devtools-hub/internal/history"
	"github.com/devtoolshub/devtools-hub/internal/registry"
	"github.com/devtoolshub/devtools-hub/internal/telemetry"
	"github.com/devtoolshub/devtools-hub/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

const instructions = "Developer utilities: format and query JSON, convert PHP-serialized data and XML, " +
	"decode and sign JWTs, encode Base64 and Morse code, render QR codes. " +
	"Use auto_convert when the input format is unknown and get_tool_help for usage examples."

// New creates an MCP server serving every enabled tool
func New(version, transport string, logger *logrus.Logger) *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer(config.AppName, version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(instructions),
	)

	enabled := registry.GetEnabledTools()
	names := make([]string, 0, len(enabled))
	for name := range enabled {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if transport != "stdio" {
			logger.Infof("Registering tool: %s", name)
		}
		srv.AddTool(enabled[name].Definition(), Handler(name, transport))
	}
	logger.WithField("tool_count", len(names)).Debug("MCP server created")

	return srv
}

// Handler returns the MCP handler for the named tool. The tool is looked up on every
// call so that gating changes take effect without rebuilding the server.
func Handler(name, transport string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tool, ok := registry.GetTool(name)
		if !ok {
			return nil, fmt.Errorf("tool not found: %s", name)
		}

		var args map[string]any
		switch a := request.Params.Arguments.(type) {
		case map[string]any:
			args = a
		case nil:
			args = map[string]any{}
		default:
			return nil, fmt.Errorf("invalid arguments type: expected map[string]any, got %T", request.Params.Arguments)
		}

		logger := registry.GetLogger()

		ctx, span := telemetry.StartToolSpan(ctx, name, args)
		result, err := tool.Execute(ctx, logger, registry.GetCache(), args)
		if err != nil {
			telemetry.EndToolSpan(span, err)
			if transport != "stdio" {
				logger.WithError(err).Errorf("Tool execution failed: %s", name)
			}
			if errorLog := tools.GetErrorLog(); errorLog.Enabled() {
				errorLog.Record(name, args, err, transport)
			}
			return nil, fmt.Errorf("tool execution failed: %w", err)
		}

		if result != nil && result.IsError {
			telemetry.EndToolSpan(span, errors.New(firstText(result)))
			return result, nil
		}
		telemetry.EndToolSpan(span, nil)

		if recorded, ok := tool.(tools.HistoryRecorder); ok {
			recordConversion(ctx, logger, name, recorded.HistoryInput(args), result)
		}
		return result, nil
	}
}

// recordConversion saves a successful conversion. History failures never fail the call.
func recordConversion(ctx context.Context, logger *logrus.Logger, name, input string, result *mcp.CallToolResult) {
	recorder := registry.GetRecorder()
	if recorder == nil || result == nil || input == "" {
		return
	}
	if _, err := recorder.Record(ctx, name, input, firstText(result)); err != nil && !history.Skipped(err) {
		logger.WithError(err).WithField("tool", name).Debug("Conversion not recorded")
	}
}

// firstText returns the first text content of a result
func firstText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := c.(mcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}
