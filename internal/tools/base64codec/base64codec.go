package base64codec

import (
	"context"
	"fmt"
	"strings"

	"github.com/devtoolshub/devtools-hub/internal/cache"
	"github.com/devtoolshub/devtools-hub/internal/codec"
	"github.com/devtoolshub/devtools-hub/internal/registry"
	"github.com/devtoolshub/devtools-hub/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// Base64Tool encodes and decodes Base64
type Base64Tool struct{}

func init() {
	registry.Register(&Base64Tool{})
}

// Definition returns the tool's definition for MCP registration
func (t *Base64Tool) Definition() mcp.Tool {
	return mcp.NewTool(
		"base64",
		mcp.WithDescription("Encode text as Base64 or decode Base64 to text. Decoding accepts standard and URL-safe alphabets, missing padding and wrapped lines."),
		mcp.WithString("input",
			mcp.Required(),
			mcp.Description("Text to encode or Base64 to decode"),
		),
		mcp.WithString("action",
			mcp.Description("auto decodes input that is valid Base64 and encodes anything else"),
			mcp.Enum("auto", "encode", "decode"),
			mcp.DefaultString("auto"),
		),
		mcp.WithBoolean("url_safe",
			mcp.Description("Encode with the URL-safe alphabet and no padding"),
			mcp.DefaultBool(false),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute encodes or decodes the input
func (t *Base64Tool) Execute(ctx context.Context, logger *logrus.Logger, _ *cache.Cache, args map[string]any) (*mcp.CallToolResult, error) {
	raw, ok := args["input"].(string)
	if !ok {
		return nil, fmt.Errorf("missing required parameter: input")
	}

	action := strings.ToLower(tools.OptionalString(args, "action", "auto"))
	if action == "auto" {
		action = "encode"
		if codec.IsBase64(raw) {
			action = "decode"
		}
	}
	logger.WithField("action", action).Debug("Running Base64 conversion")

	switch action {
	case "encode":
		return mcp.NewToolResultText(codec.EncodeBase64(raw, tools.OptionalBool(args, "url_safe", false))), nil
	case "decode":
		out, err := codec.DecodeBase64(raw)
		if err != nil {
			return tools.ConversionError(err), nil
		}
		return mcp.NewToolResultText(out), nil
	default:
		return nil, fmt.Errorf("invalid action %q: expected auto, encode or decode", action)
	}
}

// HistoryInput returns the input saved to conversion history
func (t *Base64Tool) HistoryInput(args map[string]any) string {
	return tools.OptionalString(args, "input", "")
}

// ProvideExtendedInfo provides detailed usage information for the base64 tool
func (t *Base64Tool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description:    "Encode text",
				Arguments:      map[string]any{"input": "hello world", "action": "encode"},
				ExpectedResult: "aGVsbG8gd29ybGQ=",
			},
			{
				Description:    "Decode unpadded URL-safe Base64",
				Arguments:      map[string]any{"input": "Pz8-", "action": "decode"},
				ExpectedResult: "??>",
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Error: Invalid Base64 input!",
				Solution: "The input contains characters outside the Base64 alphabets or has an impossible length",
			},
			{
				Problem:  "Decoded text shows accented characters where binary was expected",
				Solution: "Bytes that are not UTF-8 are shown as Latin-1 text; this tool is for text payloads, not binary files",
			},
		},
		ParameterDetails: map[string]string{
			"url_safe": "Only affects encoding. Decoding always accepts both alphabets.",
		},
		WhenToUse:    "Inspecting Basic auth headers, data URIs, Kubernetes secrets and other Base64 text.",
		WhenNotToUse: "For JWTs use the jwt tool, which decodes each segment and shows the claims.",
	}
}
