package autoconvert

import (
	"context"
	"fmt"

	"github.com/devtoolshub/devtools-hub/internal/cache"
	"github.com/devtoolshub/devtools-hub/internal/codec"
	"github.com/devtoolshub/devtools-hub/internal/registry"
	"github.com/devtoolshub/devtools-hub/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// AutoConvertTool detects the format of its input and runs the matching codec
type AutoConvertTool struct{}

func init() {
	registry.Register(&AutoConvertTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *AutoConvertTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"auto_convert",
		mcp.WithDescription("Detect whether input is JSON, PHP serialized, XML, a JWT, Morse code or Base64 and convert it. Reports the detected format alongside the output."),
		mcp.WithString("input",
			mcp.Required(),
			mcp.Description("Data to convert"),
		),
		mcp.WithString("mode",
			mcp.Description("Direction hint: auto and decode convert the detected format to its readable form, encode goes the other way"),
			mcp.Enum("auto", "encode", "decode"),
			mcp.DefaultString("auto"),
		),
		mcp.WithString("target",
			mcp.Description("Skip detection and use this codec"),
			mcp.Enum("json", "php", "xml", "base64", "morse", "jwt"),
		),
		mcp.WithNumber("indent",
			mcp.Description("Spaces per indent level of JSON output, defaults per format"),
			mcp.Min(1),
			mcp.Max(8),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute detects and converts
func (t *AutoConvertTool) Execute(ctx context.Context, logger *logrus.Logger, _ *cache.Cache, args map[string]any) (*mcp.CallToolResult, error) {
	input, err := tools.RequiredString(args, "input")
	if err != nil {
		return nil, err
	}
	mode, err := codec.ParseMode(tools.OptionalString(args, "mode", ""))
	if err != nil {
		return nil, err
	}
	target, err := codec.ParseFormat(tools.OptionalString(args, "target", ""))
	if err != nil {
		return nil, err
	}
	indent, err := tools.OptionalInt(args, "indent", 0)
	if err != nil {
		return nil, err
	}

	res := codec.Convert(codec.Request{Input: input, Mode: mode, Target: target, Indent: indent})
	logger.WithFields(logrus.Fields{
		"format":    res.Format,
		"direction": res.Direction,
		"ok":        res.OK(),
	}).Debug("Auto conversion finished")

	summary := mcp.NewTextContent(fmt.Sprintf("format: %s, direction: %s", res.Format, res.Direction))
	if !res.OK() {
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(res.Text()), summary},
			IsError: true,
		}, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(res.Output), summary},
	}, nil
}

// HistoryInput returns the input saved to conversion history
func (t *AutoConvertTool) HistoryInput(args map[string]any) string {
	return tools.OptionalString(args, "input", "")
}

// ProvideExtendedInfo provides detailed usage information for the auto_convert tool
func (t *AutoConvertTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description:    "PHP serialized data becomes JSON",
				Arguments:      map[string]any{"input": `a:2:{s:3:"foo";s:3:"bar";s:3:"baz";s:3:"qux";}`},
				ExpectedResult: "{\n    \"foo\": \"bar\",\n    \"baz\": \"qux\"\n}",
			},
			{
				Description:    "Morse is decoded",
				Arguments:      map[string]any{"input": "... --- ..."},
				ExpectedResult: "SOS",
			},
			{
				Description:    "Encode plain text to Base64",
				Arguments:      map[string]any{"input": "hello", "mode": "encode"},
				ExpectedResult: "aGVsbG8=",
			},
		},
		CommonPatterns: []string{
			"Detection order is JSON, PHP serialized, XML, Morse, JWT, then Base64; the first match wins",
			"Set target when the input is ambiguous, e.g. a short word that is also valid Base64",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Error: input format not recognised",
				Solution: "The input matched no detector; set target explicitly",
			},
			{
				Problem:  "A number like 42 is formatted as JSON",
				Solution: "Bare numbers are valid JSON and JSON is checked first; set target to force another codec",
			},
		},
		ParameterDetails: map[string]string{
			"mode":   "encode with no target turns JSON into PHP serialized data and anything else into Base64.",
			"indent": "JSON output defaults to 4 spaces, XML and JWT documents to 2.",
		},
		WhenToUse:    "Pasting unknown data and wanting it made readable.",
		WhenNotToUse: "When the format is known, the dedicated tool exposes more options.",
	}
}
