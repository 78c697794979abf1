package jsonformat

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
	defaultIndent = 4
	maxIndent     = 8
)

// JSONFormatTool pretty prints, compacts or queries JSON
type JSONFormatTool struct{}

// init registers the tool with the registry
func init() {
	registry.Register(&JSONFormatTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *JSONFormatTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"json_format",
		mcp.WithDescription("Format, validate, compact or query JSON. Key order and number spelling are preserved. PHP serialized input is converted to JSON first."),
		mcp.WithString("input",
			mcp.Required(),
			mcp.Description("JSON document (or PHP serialize() output) to format"),
		),
		mcp.WithNumber("indent",
			mcp.Description("Spaces per indent level"),
			mcp.DefaultNumber(defaultIndent),
			mcp.Min(1),
			mcp.Max(maxIndent),
		),
		mcp.WithBoolean("compact",
			mcp.Description("Remove all insignificant whitespace instead of indenting"),
			mcp.DefaultBool(false),
		),
		mcp.WithString("path",
			mcp.Description("Optional GJSON path to extract (e.g. 'user.roles', 'items.#.id')"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute formats the input
func (t *JSONFormatTool) Execute(ctx context.Context, logger *logrus.Logger, _ *cache.Cache, args map[string]any) (*mcp.CallToolResult, error) {
	input, err := tools.RequiredString(args, "input")
	if err != nil {
		return nil, err
	}
	indent, err := tools.OptionalInt(args, "indent", defaultIndent)
	if err != nil {
		return nil, err
	}
	if indent < 1 || indent > maxIndent {
		return nil, fmt.Errorf("indent must be between 1 and %d", maxIndent)
	}
	compact := tools.OptionalBool(args, "compact", false)
	path := strings.TrimSpace(tools.OptionalString(args, "path", ""))

	logger.WithFields(logrus.Fields{
		"bytes":   len(input),
		"compact": compact,
		"path":    path,
	}).Debug("Formatting JSON")

	out, err := format(input, indent, compact, path)
	if err != nil {
		return tools.ConversionError(err), nil
	}
	return mcp.NewToolResultText(out), nil
}

func format(input string, indent int, compact bool, path string) (string, error) {
	src := input
	if codec.Detect(input) == codec.PHP {
		converted, err := codec.PHPToJSON(input, indent)
		if err != nil {
			return "", err
		}
		src = converted
	}

	switch {
	case path != "":
		return codec.QueryJSON(src, path, indent)
	case compact:
		return codec.CompactJSON(src)
	default:
		return codec.FormatJSON(src, indent)
	}
}

// HistoryInput returns the input saved to conversion history
func (t *JSONFormatTool) HistoryInput(args map[string]any) string {
	return tools.OptionalString(args, "input", "")
}

// ProvideExtendedInfo provides detailed usage information for the json_format tool
func (t *JSONFormatTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description:    "Pretty print with the default four space indent",
				Arguments:      map[string]any{"input": `{"name":"Ada","langs":["go","php"]}`},
				ExpectedResult: "{\n    \"name\": \"Ada\",\n    \"langs\": [\n        \"go\",\n        \"php\"\n    ]\n}",
			},
			{
				Description:    "Compact a document",
				Arguments:      map[string]any{"input": "{\n  \"a\": [1, 2]\n}", "compact": true},
				ExpectedResult: `{"a":[1,2]}`,
			},
			{
				Description:    "Extract a nested value with a GJSON path",
				Arguments:      map[string]any{"input": `{"user":{"roles":["admin","dev"]}}`, "path": "user.roles.#"},
				ExpectedResult: "2",
			},
			{
				Description: "Format PHP serialized data as JSON",
				Arguments:   map[string]any{"input": `a:1:{s:3:"foo";s:3:"bar";}`},
			},
		},
		CommonPatterns: []string{
			"Validate JSON before committing a config file: any syntax error comes back with its byte offset",
			"Use compact=true to produce a single line for environment variables or headers",
			"Use path to pull one field out of a large API response",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Error: invalid JSON at offset N",
				Solution: "Check the character at the reported offset; trailing commas and single quotes are not valid JSON",
			},
			{
				Problem:  "Path query returns 'no value at path'",
				Solution: "GJSON paths use dots for nesting and '#' for array length or iteration, e.g. 'items.#.id'",
			},
		},
		ParameterDetails: map[string]string{
			"input":   "The document to format. Leading and trailing whitespace is ignored.",
			"indent":  "Spaces per level for pretty output and path results, 1 to 8.",
			"compact": "When true the output has no whitespace. Ignored when path is set.",
			"path":    "GJSON path syntax: https://github.com/tidwall/gjson/blob/master/SYNTAX.md",
		},
		WhenToUse:    "Formatting, validating or querying JSON, including PHP session or cache payloads that should be read as JSON.",
		WhenNotToUse: "For converting XML use xml_convert; for turning JSON into PHP use php_serialize.",
	}
}
