package conversionhistory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/devtoolshub/devtools-hub/internal/cache"
	"github.com/devtoolshub/devtools-hub/internal/history"
	"github.com/devtoolshub/devtools-hub/internal/registry"
	"github.com/devtoolshub/devtools-hub/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// ErrHistoryDisabled is reported when the server runs without a history store
var ErrHistoryDisabled = errors.New("conversion history is disabled, start the server with --history")

// ConversionHistoryTool lists or clears the caller's saved conversions
type ConversionHistoryTool struct {
	// recorder overrides the registry's recorder in tests
	recorder *history.Recorder
}

func init() {
	registry.Register(&ConversionHistoryTool{})
}

// ListResponse is the list action's output
type ListResponse struct {
	Count   int              `json:"count"`
	Records []history.Record `json:"records"`
}

// Definition returns the tool's definition for MCP registration
func (t *ConversionHistoryTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"conversion_history",
		mcp.WithDescription("List or clear your saved conversions, newest first. Requires an authenticated identity."),
		mcp.WithString("action",
			mcp.Description("list shows records, clear deletes every record of the caller"),
			mcp.Enum("list", "clear"),
			mcp.DefaultString("list"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum records to list"),
			mcp.DefaultNumber(history.DefaultListLimit),
			mcp.Min(1),
			mcp.Max(history.MaxListLimit),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute lists or clears
func (t *ConversionHistoryTool) Execute(ctx context.Context, logger *logrus.Logger, _ *cache.Cache, args map[string]any) (*mcp.CallToolResult, error) {
	rec := t.recorder
	if rec == nil {
		rec = registry.GetRecorder()
	}
	if rec == nil {
		return tools.ConversionError(ErrHistoryDisabled), nil
	}

	action := strings.ToLower(tools.OptionalString(args, "action", "list"))
	switch action {
	case "list":
		limit, err := tools.OptionalInt(args, "limit", history.DefaultListLimit)
		if err != nil {
			return nil, err
		}
		records, err := rec.List(ctx, limit)
		if err != nil {
			return t.failure(logger, err), nil
		}
		if records == nil {
			records = []history.Record{}
		}
		return tools.NewToolResultJSON(ListResponse{Count: len(records), Records: records})
	case "clear":
		removed, err := rec.Clear(ctx)
		if err != nil {
			return t.failure(logger, err), nil
		}
		logger.WithField("removed", removed).Info("Cleared conversion history")
		return tools.NewToolResultJSON(map[string]int{"removed": removed})
	default:
		return nil, fmt.Errorf("invalid action %q: expected list or clear", action)
	}
}

func (t *ConversionHistoryTool) failure(logger *logrus.Logger, err error) *mcp.CallToolResult {
	if history.Skipped(err) {
		return tools.ConversionError(fmt.Errorf("%w: authenticate with a bearer token or set --user-email", err))
	}
	logger.WithError(err).Warn("Conversion history request failed")
	return tools.ConversionError(err)
}

// ProvideExtendedInfo provides detailed usage information for the conversion_history tool
func (t *ConversionHistoryTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{Description: "Last ten conversions", Arguments: map[string]any{"limit": 10}},
			{Description: "Delete every saved conversion", Arguments: map[string]any{"action": "clear"}},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Error: no caller identity",
				Solution: "Over HTTP send a bearer JWT with an email claim; over stdio set DEVTOOLS_USER_EMAIL",
			},
			{
				Problem:  "Error: conversion history is disabled",
				Solution: "Start the server with --history (HISTORY_ENABLED=true)",
			},
		},
		ParameterDetails: map[string]string{
			"limit": fmt.Sprintf("1 to %d, default %d.", history.MaxListLimit, history.DefaultListLimit),
		},
		WhenToUse: "Recovering the output of an earlier conversion.",
	}
}
