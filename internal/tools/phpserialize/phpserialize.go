package phpserialize

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

const (
	actionAuto        = "auto"
	actionUnserialize = "unserialize"
	actionSerialize   = "serialize"
	actionPHPArray    = "php_array"
)

// PHPSerializeTool converts between PHP serialize() output, JSON and PHP array literals
type PHPSerializeTool struct{}

// init registers the tool with the registry
func init() {
	registry.Register(&PHPSerializeTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *PHPSerializeTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"php_serialize",
		mcp.WithDescription("Convert PHP serialize() output to JSON, JSON to PHP serialized data, or JSON to a PHP array literal."),
		mcp.WithString("input",
			mcp.Required(),
			mcp.Description("PHP serialized data or JSON, depending on action"),
		),
		mcp.WithString("action",
			mcp.Description("auto picks unserialize for PHP serialized input and serialize for anything else"),
			mcp.Enum(actionAuto, actionUnserialize, actionSerialize, actionPHPArray),
			mcp.DefaultString(actionAuto),
		),
		mcp.WithString("var_name",
			mcp.Description("Variable name for php_array output"),
			mcp.DefaultString(codec.DefaultPHPArrayVar),
		),
		mcp.WithNumber("indent",
			mcp.Description("Spaces per indent level of JSON output"),
			mcp.DefaultNumber(4),
			mcp.Min(1),
			mcp.Max(8),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute runs the requested conversion
func (t *PHPSerializeTool) Execute(ctx context.Context, logger *logrus.Logger, _ *cache.Cache, args map[string]any) (*mcp.CallToolResult, error) {
	input, err := tools.RequiredString(args, "input")
	if err != nil {
		return nil, err
	}
	indent, err := tools.OptionalInt(args, "indent", 4)
	if err != nil {
		return nil, err
	}
	action := strings.ToLower(tools.OptionalString(args, "action", actionAuto))
	if action == actionAuto {
		action = actionSerialize
		if codec.HasPHPSigil(input) {
			action = actionUnserialize
		}
	}

	logger.WithFields(logrus.Fields{"action": action, "bytes": len(input)}).Debug("Converting PHP data")

	var out string
	switch action {
	case actionUnserialize:
		out, err = codec.PHPToJSON(input, indent)
	case actionSerialize:
		out, err = codec.JSONToPHP(input)
	case actionPHPArray:
		out, err = codec.JSONToPHPArray(input, tools.OptionalString(args, "var_name", ""))
	default:
		return nil, fmt.Errorf("invalid action %q: expected one of auto, unserialize, serialize, php_array", action)
	}
	if err != nil {
		return tools.ConversionError(err), nil
	}
	return mcp.NewToolResultText(out), nil
}

// HistoryInput returns the input saved to conversion history
func (t *PHPSerializeTool) HistoryInput(args map[string]any) string {
	return tools.OptionalString(args, "input", "")
}

// ProvideExtendedInfo provides detailed usage information for the php_serialize tool
func (t *PHPSerializeTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description:    "Unserialize a PHP array",
				Arguments:      map[string]any{"input": `a:2:{s:3:"foo";s:3:"bar";s:3:"baz";s:3:"qux";}`},
				ExpectedResult: "{\n    \"foo\": \"bar\",\n    \"baz\": \"qux\"\n}",
			},
			{
				Description:    "Serialize JSON for PHP",
				Arguments:      map[string]any{"input": `{"foo":"bar"}`, "action": "serialize"},
				ExpectedResult: `a:1:{s:3:"foo";s:3:"bar";}`,
			},
			{
				Description:    "Generate a PHP array literal",
				Arguments:      map[string]any{"input": `{"debug":true}`, "action": "php_array", "var_name": "config"},
				ExpectedResult: "<?php\n$config = [\n    \"debug\" => true,\n];",
			},
		},
		CommonPatterns: []string{
			"Inspect WordPress options or Laravel cache entries by unserializing them to JSON",
			"Unserialize, edit the JSON, then serialize again; string lengths are recomputed in bytes",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Error: Invalid PHP serialized data! ... at offset N",
				Solution: "String lengths (s:N) count bytes, not characters; data copied through an editor that changed encoding or line endings will not parse",
			},
			{
				Problem:  "Object references (r: or R:) or custom serialization (C:) are rejected",
				Solution: "These cannot be represented as JSON; export the data with json_encode in PHP instead",
			},
		},
		ParameterDetails: map[string]string{
			"action":   "unserialize: PHP -> JSON. serialize: JSON -> PHP. php_array: JSON -> short array literal. auto: decided by the input's leading type tag.",
			"var_name": "Valid PHP identifier, with or without the leading $.",
			"indent":   "Only affects JSON output.",
		},
		WhenToUse:    "Reading or producing PHP serialize() data, or pasting JSON fixtures into PHP code.",
		WhenNotToUse: "For plain JSON formatting use json_format.",
	}
}
